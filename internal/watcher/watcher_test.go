package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateapp/crate/internal/config"
	"github.com/crateapp/crate/internal/debounce"
	"github.com/crateapp/crate/internal/errors"
	"github.com/crateapp/crate/internal/sorter"
)

// fakeSource feeds canned batches to the watch loop.
type fakeSource struct {
	subscribed []string
	batches    chan debounce.Batch
	errs       chan error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		batches: make(chan debounce.Batch, 8),
		errs:    make(chan error, 8),
	}
}

func (s *fakeSource) Subscribe(root string) error {
	s.subscribed = append(s.subscribed, root)
	return nil
}

func (s *fakeSource) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (s *fakeSource) Batches() <-chan debounce.Batch { return s.batches }
func (s *fakeSource) Errors() <-chan error           { return s.errs }

func testWatcher(t *testing.T, cfg *config.Config, source Source, engine Engine) *Watcher {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	w, err := New(logger, cfg, source, engine)
	require.NoError(t, err)
	return w
}

func TestCandidates(t *testing.T) {
	tests := []struct {
		name  string
		event debounce.Event
		want  []string
	}{
		{
			name:  "create proposes every path",
			event: debounce.Event{Kind: debounce.KindCreate, Paths: []string{"/a", "/b"}},
			want:  []string{"/a", "/b"},
		},
		{
			name:  "rename pair proposes only the destination",
			event: debounce.Event{Kind: debounce.KindRename, Paths: []string{"/from", "/to"}},
			want:  []string{"/to"},
		},
		{
			name:  "coalesced rename chain proposes odd indices",
			event: debounce.Event{Kind: debounce.KindRename, Paths: []string{"/p0", "/p1", "/p2", "/p3", "/p4"}},
			want:  []string{"/p1", "/p3"},
		},
		{
			name:  "remove proposes nothing",
			event: debounce.Event{Kind: debounce.KindRemove, Paths: []string{"/gone"}},
			want:  nil,
		},
		{
			name:  "other proposes nothing",
			event: debounce.Event{Kind: debounce.KindOther, Paths: []string{"/x"}},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, candidates(tt.event))
		})
	}
}

func TestWatcher_EmptyConfiguration(t *testing.T) {
	cfg := &config.Config{Logger: config.LoggerConfig{Level: "info"}}
	source := newFakeSource()
	w := testWatcher(t, cfg, source, &fakeEngine{})

	// Zero configured libraries: immediate success, nothing subscribed.
	err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, source.subscribed)
}

func TestWatcher_SubscribesEveryRoot(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	cfg := &config.Config{
		Libraries: map[string]config.Library{
			"a": {Folders: []string{rootA}, Format: "{title}"},
			"b": {Folders: []string{rootB}, Format: "{title}"},
		},
	}
	source := newFakeSource()
	w := testWatcher(t, cfg, source, &fakeEngine{})

	close(source.batches) // loop exits right after subscribing

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := w.Run(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{rootA, rootB}, source.subscribed)
}

func TestWatcher_NoFeedbackLoop(t *testing.T) {
	root := t.TempDir()
	engine := &fakeEngine{}
	w := testWatcher(t, testConfig(t, root), newFakeSource(), engine)

	dropped := filepath.Join(root, "new.mp3")
	require.NoError(t, os.WriteFile(dropped, []byte("x"), 0o644))

	dest := filepath.Join(root, "Artist", "Album", "01 Track.mp3")
	engine.fileFn = func(_, _ string, _ sorter.Options) (string, error) {
		return dest, nil
	}

	// First batch: the user dropped a file; it gets sorted.
	w.processBatch(context.Background(), debounce.Batch{
		{Kind: debounce.KindCreate, Paths: []string{dropped}},
	})
	require.Equal(t, []string{dropped}, engine.fileCalls)

	// Next batch: the filesystem reports the watcher's own move as a
	// create on the destination and its parent. Neither may dispatch.
	w.processBatch(context.Background(), debounce.Batch{
		{Kind: debounce.KindCreate, Paths: []string{filepath.Dir(dest)}},
		{Kind: debounce.KindCreate, Paths: []string{dest}},
	})
	assert.Equal(t, []string{dropped}, engine.fileCalls)
	assert.Empty(t, engine.folderCalls)
}

func TestWatcher_PartialFailureIsolation(t *testing.T) {
	root := t.TempDir()
	engine := &fakeEngine{}
	w := testWatcher(t, testConfig(t, root), newFakeSource(), engine)

	var paths []string
	for _, name := range []string{"one.mp3", "two.mp3", "three.mp3"} {
		p := filepath.Join(root, name)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		paths = append(paths, p)
	}

	engine.fileFn = func(_, path string, _ sorter.Options) (string, error) {
		if filepath.Base(path) == "two.mp3" {
			return "", errors.SortFailed(path, os.ErrInvalid)
		}
		return filepath.Join(root, "Sorted", filepath.Base(path)), nil
	}

	w.processBatch(context.Background(), debounce.Batch{
		{Kind: debounce.KindCreate, Paths: []string{paths[0]}},
		{Kind: debounce.KindCreate, Paths: []string{paths[1]}},
		{Kind: debounce.KindCreate, Paths: []string{paths[2]}},
	})

	// The failure on the second candidate did not stop the third.
	assert.Equal(t, paths, engine.fileCalls)

	// Successes were recorded for suppression, the failure was not.
	assert.True(t, w.ignore.ShouldIgnore(filepath.Join(root, "Sorted", "one.mp3")))
	assert.True(t, w.ignore.ShouldIgnore(filepath.Join(root, "Sorted", "three.mp3")))
	assert.False(t, w.ignore.ShouldIgnore(filepath.Join(root, "Sorted", "two.mp3")))
}

func TestWatcher_RenameOnlyDispatchesDestination(t *testing.T) {
	root := t.TempDir()
	engine := &fakeEngine{}
	w := testWatcher(t, testConfig(t, root), newFakeSource(), engine)

	to := filepath.Join(root, "moved.mp3")
	require.NoError(t, os.WriteFile(to, []byte("x"), 0o644))

	w.processBatch(context.Background(), debounce.Batch{
		{Kind: debounce.KindRename, Paths: []string{"/elsewhere/original.mp3", to}},
	})

	assert.Equal(t, []string{to}, engine.fileCalls)
}

func TestWatcher_RunDrainsBatchesUntilClosed(t *testing.T) {
	root := t.TempDir()
	engine := &fakeEngine{}
	source := newFakeSource()
	w := testWatcher(t, testConfig(t, root), source, engine)

	path := filepath.Join(root, "new.mp3")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	source.batches <- debounce.Batch{{Kind: debounce.KindCreate, Paths: []string{path}}}
	source.errs <- os.ErrDeadlineExceeded // transport error must not stop the loop
	source.batches <- debounce.Batch{{Kind: debounce.KindOther}}
	close(source.batches)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch loop did not exit after the batch channel closed")
	}

	assert.Equal(t, []string{path}, engine.fileCalls)
}
