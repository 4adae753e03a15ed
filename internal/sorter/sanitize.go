package sorter

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fatReserved are the characters FAT-family filesystems reject in names.
const fatReserved = `<>:"\|?*`

// asciiFolder strips combining marks after NFD decomposition, folding
// "Motörhead" to "Motorhead".
var asciiFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// sanitizeSegment makes a tag value safe to use as one path segment. Path
// separators never survive; in exfat mode FAT-reserved characters are
// dropped, diacritics are folded to ASCII, and trailing dots and spaces are
// trimmed.
func sanitizeSegment(value string, exfatCompat bool) string {
	value = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '-'
		}
		return r
	}, value)

	if exfatCompat {
		if folded, _, err := transform.String(asciiFolder, value); err == nil {
			value = folded
		}

		value = strings.Map(func(r rune) rune {
			if strings.ContainsRune(fatReserved, r) || r < 0x20 {
				return -1
			}
			return r
		}, value)

		value = strings.TrimRight(value, ". ")
	}

	// Collapse runs of whitespace left behind by removals.
	value = strings.Join(strings.Fields(value), " ")

	return value
}
