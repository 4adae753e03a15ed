// Package sorter computes destination paths for audio files from their tags
// and a format string, and performs the actual moves.
package sorter

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/crateapp/crate/internal/errors"
)

// Sorter is the sorting engine.
type Sorter struct {
	logger *slog.Logger
}

// New creates a sorting engine.
func New(logger *slog.Logger) *Sorter {
	return &Sorter{logger: logger}
}

// SortFile moves one audio file to its computed destination under root and
// returns the new path. A file already in place is a successful no-op.
func (s *Sorter) SortFile(ctx context.Context, root, path string, opts Options) (string, error) {
	if opts.Format == "" {
		return "", errors.Validation("no format string configured")
	}

	tags, err := readTags(ctx, path)
	if err != nil {
		return "", err
	}

	rel, err := render(opts.Format, path, tags, opts.ExfatCompat)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(root, rel) + strings.ToLower(filepath.Ext(path))

	if dest == path {
		s.logger.Debug("already sorted", "path", path)
		return dest, nil
	}

	if opts.DryRun {
		s.logger.Info("would move", "from", path, "to", dest)
		return dest, nil
	}

	if _, err := os.Stat(dest); err == nil {
		return "", errors.SortFailed(path, fmt.Errorf("destination %q already exists", dest))
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", errors.SortFailed(path, err)
	}

	if err := os.Rename(path, dest); err != nil {
		return "", errors.SortFailed(path, err)
	}

	s.logger.Debug("moved", "from", path, "to", dest)

	if opts.RemoveEmpty {
		s.pruneEmptyUp(filepath.Dir(path), root)
	}

	return dest, nil
}

// SortFolder sorts every audio file under dir and reports per-file results.
// Individual failures are counted, not fatal.
func (s *Sorter) SortFolder(ctx context.Context, root, dir string, opts Options) (Report, error) {
	files, err := s.collectAudioFiles(dir, opts.Recursive)
	if err != nil {
		return Report{}, errors.SortFailed(dir, err)
	}

	fileOpts := opts
	fileOpts.RemoveEmpty = false // prune once, after all moves

	report := Report{Total: len(files)}
	for _, file := range files {
		newPath, err := s.SortFile(ctx, root, file, fileOpts)
		if err != nil {
			s.logger.Error("failed to sort file", "path", file, "error", err)
			continue
		}
		report.Success++
		if newPath != file {
			report.NewPaths = append(report.NewPaths, newPath)
		}
	}

	if opts.RemoveEmpty && !opts.DryRun {
		s.pruneEmptyTree(dir)
	}

	return report, nil
}

// collectAudioFiles gathers the audio files under dir, depth-first when
// recursive.
func (s *Sorter) collectAudioFiles(dir string, recursive bool) ([]string, error) {
	var files []string

	if !recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if IsAudioExt(filepath.Ext(entry.Name())) {
				files = append(files, filepath.Join(dir, entry.Name()))
			}
		}
		return files, nil
	}

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("failed to access path", "path", p, "error", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if IsAudioExt(filepath.Ext(p)) {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

// pruneEmptyUp removes empty directories from start up to, but never
// including, stop.
func (s *Sorter) pruneEmptyUp(start, stop string) {
	stop = filepath.Clean(stop)
	sep := string(filepath.Separator)

	for p := filepath.Clean(start); p != stop && strings.HasPrefix(p, stop+sep); p = filepath.Dir(p) {
		entries, err := os.ReadDir(p)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(p); err != nil {
			s.logger.Warn("failed to remove empty directory", "path", p, "error", err)
			return
		}
		s.logger.Debug("removed empty directory", "path", p)
	}
}

// pruneEmptyTree removes directories left empty under dir, bottom-up,
// including dir itself once emptied.
func (s *Sorter) pruneEmptyTree(dir string) {
	var dirs []string

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			dirs = append(dirs, p)
		}
		return nil
	})
	if err != nil {
		return
	}

	// Deepest first so children disappear before their parents are checked.
	sort.Slice(dirs, func(i, j int) bool {
		return strings.Count(dirs[i], string(filepath.Separator)) > strings.Count(dirs[j], string(filepath.Separator))
	})

	for _, p := range dirs {
		entries, err := os.ReadDir(p)
		if err != nil || len(entries) > 0 {
			continue
		}
		if err := os.Remove(p); err == nil {
			s.logger.Debug("removed empty directory", "path", p)
		}
	}
}
