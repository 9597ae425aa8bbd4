package fs

import (
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v5"
	"go.trai.ch/weave/internal/core/domain"
)

// Resolver turns glob patterns into concrete paths.
type Resolver struct {
	walker *Walker
}

// NewResolver creates a new Resolver.
func NewResolver(walker *Walker) *Resolver {
	return &Resolver{walker: walker}
}

// Resolve returns the files of bfs matched by patterns. Patterns starting
// with "!" exclude. Files come ordered by the first pattern matching them and
// by path within one pattern. A pattern without glob meta characters names a
// single file that must exist.
func (r *Resolver) Resolve(bfs billy.Filesystem, patterns []string) ([]string, error) {
	var includes, excludes []string
	for _, p := range patterns {
		if ex, ok := strings.CutPrefix(p, "!"); ok {
			excludes = append(excludes, ex)
			continue
		}
		includes = append(includes, p)
	}
	for _, p := range slices.Concat(includes, excludes) {
		if !doublestar.ValidatePattern(p) {
			return nil, fail(domain.ErrSelectionFailed, doublestar.ErrBadPattern, "pattern", p)
		}
	}

	seen := make(map[string]struct{})
	var out []string
	for _, inc := range includes {
		matches, err := r.match(bfs, inc)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup || excluded(m, excludes) {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *Resolver) match(bfs billy.Filesystem, pattern string) ([]string, error) {
	if !hasMeta(pattern) {
		p := path.Clean(pattern)
		info, err := bfs.Stat(p)
		if err != nil {
			return nil, fail(domain.ErrSelectionFailed, err, "path", p)
		}
		if info.IsDir() {
			return nil, nil
		}
		return []string{p}, nil
	}

	base, _ := doublestar.SplitPattern(pattern)
	var ignores []string
	if !strings.HasPrefix(base, "node_modules") {
		ignores = []string{"node_modules"}
	}

	var matches []string
	for p := range r.walker.WalkFiles(bfs, base, ignores) {
		p = path.Clean(p)
		if ok, _ := doublestar.Match(pattern, p); ok {
			matches = append(matches, p)
		}
	}
	slices.Sort(matches)
	return matches, nil
}

func excluded(p string, excludes []string) bool {
	for _, ex := range excludes {
		if ok, _ := doublestar.Match(ex, p); ok {
			return true
		}
	}
	return false
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, `*?[{\`)
}
