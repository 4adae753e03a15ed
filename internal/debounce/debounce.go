// Package debounce turns raw fsnotify notifications into ordered batches of
// structured events, coalesced over a fixed time window.
package debounce

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Debouncer subscribes to directory trees and delivers debounced event
// batches. Raw notifications are collected for one window, then handed to the
// consumer as a single ordered Batch.
type Debouncer struct {
	logger  *slog.Logger
	opts    Options
	watcher *fsnotify.Watcher

	mu          sync.Mutex
	pending     Batch
	renameFroms []string // rename sources waiting for their destination

	batches chan Batch
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates a debouncer. Call Subscribe for each root, then Start.
func New(logger *slog.Logger, opts Options) (*Debouncer, error) {
	opts.setDefaults()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Debouncer{
		logger:  logger,
		opts:    opts,
		watcher: watcher,
		batches: make(chan Batch, 16),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Subscribe adds a directory tree to be monitored recursively.
func (d *Debouncer) Subscribe(root string) error {
	root = filepath.Clean(root)

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("subscribe target %q is not a directory", root)
	}

	return d.watchTree(root)
}

// watchTree recursively adds fsnotify watches for every directory under root.
func (d *Debouncer) watchTree(root string) error {
	return filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			d.logger.Warn("failed to access path", "path", p, "error", err)
			return nil
		}

		if d.opts.shouldIgnore(p) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.IsDir() {
			return nil
		}

		if err := d.watcher.Add(p); err != nil {
			return fmt.Errorf("failed to add watch for %q: %w", p, err)
		}

		d.logger.Debug("added watch", "path", p)
		return nil
	})
}

// Start pumps raw notifications into pending batches and flushes one batch
// per window. It blocks until the context is cancelled.
func (d *Debouncer) Start(ctx context.Context) error {
	ticker := time.NewTicker(d.opts.Window)
	defer ticker.Stop()

	d.wg.Add(1)
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.done:
			return nil
		case event, ok := <-d.watcher.Events:
			if !ok {
				return nil
			}
			d.collect(event)
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return nil
			}
			select {
			case d.errors <- err:
			case <-d.done:
				return nil
			}
		case <-ticker.C:
			d.flush()
		}
	}
}

// collect appends one raw fsnotify event to the pending batch.
func (d *Debouncer) collect(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	if d.opts.shouldIgnore(path) {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Create):
		// New directories extend the recursive watch before anything
		// is created inside them.
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := d.watchTree(path); err != nil {
				d.logger.Warn("failed to extend watch", "path", path, "error", err)
			}
		}

		d.mu.Lock()
		if len(d.renameFroms) > 0 {
			// A pending rename source pairs with this create into a
			// single rename event.
			from := d.renameFroms[0]
			d.renameFroms = d.renameFroms[1:]
			d.pending = append(d.pending, Event{Kind: KindRename, Paths: []string{from, path}})
		} else {
			d.pending = append(d.pending, Event{Kind: KindCreate, Paths: []string{path}})
		}
		d.mu.Unlock()

	case event.Op.Has(fsnotify.Rename):
		// The source half of a move. Hold it until the destination
		// create arrives or the window closes.
		d.mu.Lock()
		d.renameFroms = append(d.renameFroms, path)
		d.mu.Unlock()

	case event.Op.Has(fsnotify.Remove):
		d.mu.Lock()
		d.pending = append(d.pending, Event{Kind: KindRemove, Paths: []string{path}})
		d.mu.Unlock()
	}
	// Write and chmod notifications carry no actionable path for sorting.
}

// flush delivers the pending batch, if any. Rename sources that never saw a
// destination are demoted to removes.
func (d *Debouncer) flush() {
	d.mu.Lock()
	batch := d.pending
	d.pending = nil
	for _, from := range d.renameFroms {
		batch = append(batch, Event{Kind: KindRemove, Paths: []string{from}})
	}
	d.renameFroms = nil
	d.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	select {
	case d.batches <- batch:
	case <-d.done:
	}
}

// Batches returns the channel on which event batches are delivered.
func (d *Debouncer) Batches() <-chan Batch {
	return d.batches
}

// Errors returns the channel for transport-level errors.
func (d *Debouncer) Errors() <-chan error {
	return d.errors
}

// Stop stops the debouncer and releases resources.
func (d *Debouncer) Stop() error {
	close(d.done)
	err := d.watcher.Close()
	d.wg.Wait()
	close(d.batches)
	close(d.errors)
	return err
}
