package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/crateapp/crate/internal/errors"
)

// highWater is the ignore-set size past which growth is reported. Entries
// are meant to be consumed within one event cycle; sustained growth means
// events for produced paths never arrive.
const highWater = 1024

// IgnoreTracker records paths the watcher itself produced so the resulting
// filesystem events are not re-sorted. Sorting a file causes notifications
// identical in shape to a user dropping a new file there; without this
// suppression the watcher would chase its own output.
//
// The tracker is owned by the single consumer goroutine of the watch loop
// and needs no locking.
type IgnoreTracker struct {
	logger  *slog.Logger
	entries map[string]struct{}
}

// NewIgnoreTracker creates an empty tracker.
func NewIgnoreTracker(logger *slog.Logger) *IgnoreTracker {
	return &IgnoreTracker{
		logger:  logger,
		entries: make(map[string]struct{}),
	}
}

// MarkProduced records a path the sorting engine just created. The path's
// parent directory is recorded too, unless the parent is the watched root
// itself: creating an entry inside a directory also fires a modified event
// on that directory, and both must be suppressed.
func (t *IgnoreTracker) MarkProduced(path, root string) error {
	path = filepath.Clean(path)

	parent := filepath.Dir(path)
	if parent == path {
		return errors.InvalidParent(path)
	}

	if parent != filepath.Clean(root) {
		t.entries[parent] = struct{}{}
	}
	t.entries[path] = struct{}{}

	if len(t.entries) > highWater {
		t.logger.Warn("ignore set growing without bound", "size", len(t.entries))
	}

	return nil
}

// ShouldIgnore reports whether path is a self-produced path, consuming the
// matching entry on a hit. Suppression is one-shot: a later event for the
// same path is processed normally.
//
// An exact match always wins. Otherwise any entry that is a still-existing
// directory and an ancestor-or-self of path matches; this covers a whole
// directory tree that was moved, whose nested events reference paths under
// the recorded directory entry.
func (t *IgnoreTracker) ShouldIgnore(path string) bool {
	path = filepath.Clean(path)

	if _, ok := t.entries[path]; ok {
		delete(t.entries, path)
		return true
	}

	sep := string(filepath.Separator)
	for entry := range t.entries {
		info, err := os.Stat(entry)
		if err != nil || !info.IsDir() {
			continue
		}
		if strings.HasPrefix(path, entry+sep) {
			delete(t.entries, entry)
			return true
		}
	}

	return false
}

// Len returns the number of pending entries. Useful for monitoring and
// tests.
func (t *IgnoreTracker) Len() int {
	return len(t.entries)
}
