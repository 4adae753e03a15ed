package debounce

// Kind represents the type of debounced filesystem event.
type Kind int

const (
	// KindCreate is emitted when a new file or directory appears.
	KindCreate Kind = iota
	// KindRename is emitted for a move observed inside one window. Paths
	// holds [from, to] pairs; chains coalesce into one event with the
	// destinations at the odd indices.
	KindRename
	// KindRemove is emitted when a path is deleted, or when a rename source
	// never saw its matching destination.
	KindRemove
	// KindOther covers events with no actionable path.
	KindOther
)

// String returns the string representation of the event kind.
func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindRename:
		return "rename"
	case KindRemove:
		return "remove"
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}

// Event is a single debounced filesystem event.
type Event struct {
	// Kind is the type of event.
	Kind Kind

	// Paths are the paths attached to the event. Create and remove events
	// carry one path; rename events carry [from, to] pairs.
	Paths []string
}

// Batch is an ordered sequence of events delivered together after one
// debounce window.
type Batch []Event
