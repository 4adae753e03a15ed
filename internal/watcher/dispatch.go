package watcher

import (
	"context"
	"log/slog"
	"os"

	"github.com/crateapp/crate/internal/config"
	"github.com/crateapp/crate/internal/errors"
	"github.com/crateapp/crate/internal/sorter"
)

// Engine is the sorting engine the dispatcher drives.
type Engine interface {
	SortFile(ctx context.Context, root, path string, opts sorter.Options) (string, error)
	SortFolder(ctx context.Context, root, dir string, opts sorter.Options) (sorter.Report, error)
}

// Dispatcher routes one candidate path at a time into the sorting engine and
// feeds the resulting paths back into the ignore tracker.
type Dispatcher struct {
	logger *slog.Logger
	cfg    *config.Config
	index  *RootIndex
	ignore *IgnoreTracker
	engine Engine
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(logger *slog.Logger, cfg *config.Config, index *RootIndex, ignore *IgnoreTracker, engine Engine) *Dispatcher {
	return &Dispatcher{
		logger: logger,
		cfg:    cfg,
		index:  index,
		ignore: ignore,
		engine: engine,
	}
}

// Dispatch sorts the file or directory at path into its library. An event
// for a path outside every watched root is a configuration or resolver bug
// and is reported, never silently dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, path string) error {
	root, ok := d.index.FindRoot(path)
	if !ok {
		return errors.InvalidRoot(path)
	}

	library, _ := d.index.Library(root)

	format, ok := d.cfg.FormatOf(library)
	if !ok {
		// Config loading guarantees every library has a format.
		return errors.Internal("library vanished from configuration", nil)
	}

	opts := sorter.Options{
		Format:      format,
		DryRun:      false, // the live watch path never simulates
		Recursive:   true,
		ExfatCompat: d.cfg.IsExfatCompat(library),
		RemoveEmpty: true,
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return d.dispatchFolder(ctx, root, path, library, opts)
	}
	return d.dispatchFile(ctx, root, path, library, opts)
}

func (d *Dispatcher) dispatchFolder(ctx context.Context, root, path, library string, opts sorter.Options) error {
	report, err := d.engine.SortFolder(ctx, root, path, opts)
	if err != nil {
		d.logger.Error("folder sort failed", "path", path, "error", err)
		return err
	}

	d.logger.Info("sort complete",
		"library", library,
		"success", report.Success,
		"total", report.Total,
		"failed", report.Total-report.Success,
	)

	for _, newPath := range report.NewPaths {
		if err := d.ignore.MarkProduced(newPath, root); err != nil {
			d.logger.Error("failed to track produced path", "path", newPath, "error", err)
		}
	}
	return nil
}

func (d *Dispatcher) dispatchFile(ctx context.Context, root, path, library string, opts sorter.Options) error {
	newPath, err := d.engine.SortFile(ctx, root, path, opts)
	if err != nil {
		d.logger.Error("file sort failed", "path", path, "error", err)
		return err
	}

	d.logger.Info("sort complete", "library", library, "success", 1, "total", 1, "failed", 0)

	if err := d.ignore.MarkProduced(newPath, root); err != nil {
		d.logger.Error("failed to track produced path", "path", newPath, "error", err)
	}
	return nil
}
