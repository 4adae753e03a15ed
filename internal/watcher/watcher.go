// Package watcher contains the continuous watch/dispatch loop: it drains
// debounced event batches, extracts candidate paths, suppresses the
// watcher's own output, and routes everything else into the sorting engine.
package watcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/crateapp/crate/internal/config"
	"github.com/crateapp/crate/internal/debounce"
)

// Source is the debounced event source the watch loop consumes.
type Source interface {
	Subscribe(root string) error
	Start(ctx context.Context) error
	Batches() <-chan debounce.Batch
	Errors() <-chan error
}

// Watcher owns the subscription to the event source and drives
// classification and dispatch for every batch, forever.
type Watcher struct {
	logger     *slog.Logger
	index      *RootIndex
	ignore     *IgnoreTracker
	dispatcher *Dispatcher
	source     Source
}

// New wires the watch loop from configuration, an event source, and a
// sorting engine.
func New(logger *slog.Logger, cfg *config.Config, source Source, engine Engine) (*Watcher, error) {
	index, err := NewRootIndex(cfg.Roots())
	if err != nil {
		return nil, err
	}

	ignore := NewIgnoreTracker(logger)

	return &Watcher{
		logger:     logger,
		index:      index,
		ignore:     ignore,
		dispatcher: NewDispatcher(logger, cfg, index, ignore, engine),
		source:     source,
	}, nil
}

// Run subscribes every watched root and drains batches until the context is
// cancelled or the event source closes. Zero configured libraries is a
// valid, inert configuration: Run returns nil immediately.
func (w *Watcher) Run(ctx context.Context) error {
	if w.index.Empty() {
		w.logger.Info("no directories to watch")
		return nil
	}

	for _, root := range w.index.Roots() {
		if err := w.source.Subscribe(root); err != nil {
			return fmt.Errorf("failed to subscribe to %q: %w", root, err)
		}
	}

	go func() {
		if err := w.source.Start(ctx); err != nil {
			w.logger.Error("event source stopped", "error", err)
		}
	}()

	w.logger.Info("watching libraries", "roots", w.index.Len())

	batches := w.source.Batches()
	errs := w.source.Errors()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			// Transport errors are never fatal to the loop.
			w.logger.Error("event source error", "error", err)
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			w.processBatch(ctx, batch)
		}
	}
}

// processBatch classifies every event in delivery order and dispatches the
// candidates sequentially, so ignore-set mutations from one candidate are
// visible to the next candidate in the same batch.
func (w *Watcher) processBatch(ctx context.Context, batch debounce.Batch) {
	logger := w.logger.With("batch", shortID())
	logger.Debug("processing batch", "events", len(batch))

	for _, event := range batch {
		for _, candidate := range candidates(event) {
			if w.ignore.ShouldIgnore(candidate) {
				logger.Debug("suppressed self-produced path", "path", candidate)
				continue
			}

			// A failed candidate never aborts the batch.
			if err := w.dispatcher.Dispatch(ctx, candidate); err != nil {
				logger.Error("failed to process candidate", "path", candidate, "error", err)
				continue
			}
		}
	}
}

// candidates extracts the paths eligible for dispatch from one event.
// Create events propose every attached path. Rename events propose only
// destinations: paths[1] for a [from, to] pair, and every odd index for a
// coalesced chain of moves.
func candidates(event debounce.Event) []string {
	switch event.Kind {
	case debounce.KindCreate:
		return event.Paths
	case debounce.KindRename:
		var out []string
		for i := 1; i < len(event.Paths); i += 2 {
			out = append(out, event.Paths[i])
		}
		return out
	default:
		return nil
	}
}

// shortID returns a compact correlation id for one batch's log lines.
func shortID() string {
	return uuid.NewString()[:8]
}
