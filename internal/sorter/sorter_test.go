package sorter

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateapp/crate/internal/errors"
)

func testSorter(t *testing.T) *Sorter {
	t.Helper()
	return New(slog.New(slog.NewTextHandler(os.Stdout, nil)))
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestIsAudioExt(t *testing.T) {
	assert.True(t, IsAudioExt(".mp3"))
	assert.True(t, IsAudioExt(".FLAC"))
	assert.True(t, IsAudioExt(".m4b"))
	assert.False(t, IsAudioExt(".jpg"))
	assert.False(t, IsAudioExt(".nfo"))
	assert.False(t, IsAudioExt(""))
}

func TestSortFile_RequiresFormat(t *testing.T) {
	s := testSorter(t)
	_, err := s.SortFile(context.Background(), t.TempDir(), "/x/y.mp3", Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestSortFile_UnsupportedExtension(t *testing.T) {
	s := testSorter(t)
	root := t.TempDir()
	path := filepath.Join(root, "notes.txt")
	touch(t, path)

	_, err := s.SortFile(context.Background(), root, path, Options{Format: "{title}"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedFormat))
}

func TestCollectAudioFiles(t *testing.T) {
	s := testSorter(t)
	dir := t.TempDir()

	touch(t, filepath.Join(dir, "a.mp3"))
	touch(t, filepath.Join(dir, "cover.jpg"))
	touch(t, filepath.Join(dir, "sub", "b.flac"))
	touch(t, filepath.Join(dir, "sub", "deep", "c.ogg"))

	t.Run("flat", func(t *testing.T) {
		files, err := s.collectAudioFiles(dir, false)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "a.mp3")}, files)
	})

	t.Run("recursive", func(t *testing.T) {
		files, err := s.collectAudioFiles(dir, true)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{
			filepath.Join(dir, "a.mp3"),
			filepath.Join(dir, "sub", "b.flac"),
			filepath.Join(dir, "sub", "deep", "c.ogg"),
		}, files)
	})
}

func TestSortFolder_NoAudioFiles(t *testing.T) {
	s := testSorter(t)
	root := t.TempDir()
	dir := filepath.Join(root, "incoming")
	touch(t, filepath.Join(dir, "readme.txt"))

	report, err := s.SortFolder(context.Background(), root, dir, Options{Format: "{title}", Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total)
	assert.Equal(t, 0, report.Success)
	assert.Empty(t, report.NewPaths)
}

func TestPruneEmptyUp(t *testing.T) {
	s := testSorter(t)
	root := t.TempDir()

	deep := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	s.pruneEmptyUp(deep, root)

	// Every empty level below the root is gone; the root survives.
	assert.NoDirExists(t, filepath.Join(root, "a"))
	assert.DirExists(t, root)
}

func TestPruneEmptyUp_StopsAtNonEmpty(t *testing.T) {
	s := testSorter(t)
	root := t.TempDir()

	deep := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(deep, 0o755))
	touch(t, filepath.Join(root, "a", "keep.txt"))

	s.pruneEmptyUp(deep, root)

	assert.NoDirExists(t, filepath.Join(root, "a", "b"))
	assert.DirExists(t, filepath.Join(root, "a"))
}

func TestPruneEmptyUp_NeverEscapesRoot(t *testing.T) {
	s := testSorter(t)
	parent := t.TempDir()
	root := filepath.Join(parent, "library")
	require.NoError(t, os.MkdirAll(root, 0o755))

	s.pruneEmptyUp(parent, root)

	assert.DirExists(t, parent)
	assert.DirExists(t, root)
}

func TestPruneEmptyTree(t *testing.T) {
	s := testSorter(t)
	parent := t.TempDir()
	dir := filepath.Join(parent, "incoming")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "x", "y"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "z"), 0o755))
	touch(t, filepath.Join(dir, "z", "keep.txt"))

	s.pruneEmptyTree(dir)

	assert.NoDirExists(t, filepath.Join(dir, "x"))
	assert.DirExists(t, filepath.Join(dir, "z"))
	assert.DirExists(t, dir) // not empty, so it stays
}
