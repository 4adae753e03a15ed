package sorter

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/simonhull/audiometa"

	"github.com/crateapp/crate/internal/errors"
)

// audioExts are the extensions the sorting engine will attempt to read tags
// from.
var audioExts = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".m4b":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
	".aac":  true,
	".wav":  true,
	".wma":  true,
}

// IsAudioExt reports whether ext (including the dot) is a known audio
// extension. Matching is case-insensitive.
func IsAudioExt(ext string) bool {
	return audioExts[strings.ToLower(ext)]
}

// fileTags holds the tag values the format renderer can reference.
type fileTags struct {
	Artist string
	Album  string
	Title  string
	Genre  string
	Track  int
	Disc   int
	Year   int
}

// readTags extracts tags from the audio file at path.
func readTags(ctx context.Context, path string) (*fileTags, error) {
	if !IsAudioExt(filepath.Ext(path)) {
		return nil, errors.UnsupportedFormat(path)
	}

	file, err := audiometa.OpenContext(ctx, path)
	if err != nil {
		return nil, errors.SortFailed(path, err)
	}
	defer file.Close() //nolint:errcheck // Read-only access

	genre := ""
	if len(file.Tags.Genres) > 0 {
		genre = file.Tags.Genres[0]
	}

	return &fileTags{
		Artist: strings.TrimSpace(file.Tags.Artist),
		Album:  strings.TrimSpace(file.Tags.Album),
		Title:  strings.TrimSpace(file.Tags.Title),
		Genre:  strings.TrimSpace(genre),
		Track:  file.Tags.TrackNumber,
		Disc:   file.Tags.DiscNumber,
		Year:   file.Tags.Year,
	}, nil
}
