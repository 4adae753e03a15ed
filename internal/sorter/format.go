package sorter

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/crateapp/crate/internal/errors"
)

// placeholderRe matches {name} tokens in a format string.
var placeholderRe = regexp.MustCompile(`\{([a-z]+)\}`)

// render expands the format string for one file's tags into a relative
// destination path (without extension). Slashes in the format separate
// directories; slashes inside tag values never do.
func render(format, sourcePath string, t *fileTags, exfatCompat bool) (string, error) {
	var badToken string

	expanded := placeholderRe.ReplaceAllStringFunc(format, func(token string) string {
		name := token[1 : len(token)-1]
		value, ok := t.lookup(name, sourcePath)
		if !ok {
			badToken = token
			return token
		}
		return sanitizeSegment(value, exfatCompat)
	})

	if badToken != "" {
		return "", errors.Validationf("unknown placeholder %s in format %q", badToken, format)
	}

	// Normalize the directory structure the literal slashes produced.
	segments := strings.Split(expanded, "/")
	cleaned := segments[:0]
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		cleaned = append(cleaned, seg)
	}

	if len(cleaned) == 0 {
		return "", errors.Validationf("format %q rendered to an empty path", format)
	}

	return filepath.Join(cleaned...), nil
}

// lookup resolves a placeholder name to its tag value. Empty tags fall back
// to stable defaults so a half-tagged file still lands somewhere predictable.
func (t *fileTags) lookup(name, sourcePath string) (string, bool) {
	switch name {
	case "artist":
		return fallback(t.Artist, "Unknown Artist"), true
	case "album":
		return fallback(t.Album, "Unknown Album"), true
	case "title":
		base := filepath.Base(sourcePath)
		base = strings.TrimSuffix(base, filepath.Ext(base))
		return fallback(t.Title, base), true
	case "genre":
		return fallback(t.Genre, "Unknown Genre"), true
	case "track":
		return fmt.Sprintf("%02d", t.Track), true
	case "disc":
		return fmt.Sprintf("%d", t.Disc), true
	case "year":
		return fmt.Sprintf("%d", t.Year), true
	default:
		return "", false
	}
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
