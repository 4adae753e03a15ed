package sorter

// Options configures one sorting invocation.
type Options struct {
	// Format is the destination format string, rendered per-file from its
	// tags. Example: "{artist}/{album}/{track} {title}".
	Format string

	// DryRun logs what would happen without touching the filesystem.
	DryRun bool

	// Recursive descends into subdirectories when sorting a folder.
	Recursive bool

	// ExfatCompat keeps destination names compatible with FAT filesystems.
	ExfatCompat bool

	// RemoveEmpty prunes directories left empty by sorting.
	RemoveEmpty bool
}

// Report summarizes a folder sort.
type Report struct {
	// Total is the number of audio files attempted.
	Total int

	// Success is the number of files sorted without error.
	Success int

	// NewPaths are the destinations of files that actually moved.
	NewPaths []string
}
