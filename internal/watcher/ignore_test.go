package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTracker(t *testing.T) *IgnoreTracker {
	t.Helper()
	return NewIgnoreTracker(slog.New(slog.NewTextHandler(os.Stdout, nil)))
}

func TestIgnoreTracker_ExactMatchIsOneShot(t *testing.T) {
	tracker := testTracker(t)
	root := t.TempDir()
	produced := filepath.Join(root, "Artist", "Album", "01 Track.mp3")

	require.NoError(t, tracker.MarkProduced(produced, root))

	// First event for the produced path is suppressed and consumes the entry.
	assert.True(t, tracker.ShouldIgnore(produced))

	// An identical subsequent event is processed normally.
	assert.False(t, tracker.ShouldIgnore(produced))
}

func TestIgnoreTracker_RecordsParentUnlessRoot(t *testing.T) {
	tracker := testTracker(t)
	root := t.TempDir()

	// Parent differs from the root: both leaf and parent are recorded.
	nested := filepath.Join(root, "Artist", "song.mp3")
	require.NoError(t, tracker.MarkProduced(nested, root))
	assert.Equal(t, 2, tracker.Len())
	assert.True(t, tracker.ShouldIgnore(filepath.Join(root, "Artist")))

	// Parent is the root itself: only the leaf is recorded.
	tracker = testTracker(t)
	direct := filepath.Join(root, "song.mp3")
	require.NoError(t, tracker.MarkProduced(direct, root))
	assert.Equal(t, 1, tracker.Len())
	assert.False(t, tracker.ShouldIgnore(root))
}

func TestIgnoreTracker_MarkProduced_NoParent(t *testing.T) {
	tracker := testTracker(t)
	err := tracker.MarkProduced("/", "/")
	require.Error(t, err)
}

func TestIgnoreTracker_DirectoryMoveSuppression(t *testing.T) {
	// A folder sorted into the library produces events for paths nested
	// under the recorded directory entry; the ancestor check covers them.
	tracker := testTracker(t)
	root := t.TempDir()

	albumDir := filepath.Join(root, "Artist", "AlbumX")
	require.NoError(t, os.MkdirAll(albumDir, 0o755))

	require.NoError(t, tracker.MarkProduced(albumDir, root))

	// Both the parent and the moved directory are tracked.
	assert.Equal(t, 2, tracker.Len())

	// A create event for a file inside the moved tree matches the
	// still-existing directory entry.
	nested := filepath.Join(albumDir, "track1.mp3")
	assert.True(t, tracker.ShouldIgnore(nested))

	// The matched entry was consumed.
	assert.Equal(t, 1, tracker.Len())
}

func TestIgnoreTracker_VanishedEntryNeverMatchesAsAncestor(t *testing.T) {
	tracker := testTracker(t)
	root := t.TempDir()

	// The recorded path does not exist on disk, so the ancestor check
	// skips it.
	ghost := filepath.Join(root, "gone")
	require.NoError(t, tracker.MarkProduced(ghost, root))

	assert.False(t, tracker.ShouldIgnore(filepath.Join(ghost, "child.mp3")))
}
