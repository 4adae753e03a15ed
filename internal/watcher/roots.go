package watcher

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/crateapp/crate/internal/errors"
)

// RootIndex is the immutable mapping from watched root directory to library
// name, built once at startup.
type RootIndex struct {
	roots map[string]string
}

// NewRootIndex builds the index from a root→library mapping. Roots must be
// absolute and pairwise disjoint; an overlap would make library attribution
// depend on iteration order during the ancestor walk.
func NewRootIndex(roots map[string]string) (*RootIndex, error) {
	index := make(map[string]string, len(roots))
	for root, library := range roots {
		root = filepath.Clean(root)
		if !filepath.IsAbs(root) {
			return nil, errors.Validationf("root %q is not absolute", root)
		}
		index[root] = library
	}

	sep := string(filepath.Separator)
	for a := range index {
		for b := range index {
			if a != b && strings.HasPrefix(b, a+sep) {
				return nil, errors.Validationf("root %q overlaps root %q", a, b)
			}
		}
	}

	return &RootIndex{roots: index}, nil
}

// Empty reports whether there is nothing to watch.
func (ri *RootIndex) Empty() bool {
	return len(ri.roots) == 0
}

// Len returns the number of watched roots.
func (ri *RootIndex) Len() int {
	return len(ri.roots)
}

// Roots returns the watched root directories in a stable order.
func (ri *RootIndex) Roots() []string {
	roots := make([]string, 0, len(ri.roots))
	for root := range ri.roots {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}

// Library returns the library name a root belongs to.
func (ri *RootIndex) Library(root string) (string, bool) {
	library, ok := ri.roots[filepath.Clean(root)]
	return library, ok
}

// FindRoot walks the ancestor chain of path (the path itself, then each
// parent) and returns the first ancestor that is a watched root. Events
// report the exact changed path, deeply nested; only this inverse lookup
// recovers which tree it belongs to.
func (ri *RootIndex) FindRoot(path string) (string, bool) {
	p := filepath.Clean(path)
	for {
		if _, ok := ri.roots[p]; ok {
			return p, true
		}
		parent := filepath.Dir(p)
		if parent == p {
			return "", false
		}
		p = parent
	}
}
