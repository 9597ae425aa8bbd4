package fs

import (
	"context"
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
)

const (
	// DirPerm is the permission of created output directories.
	DirPerm = 0o755
	// FilePerm is the permission of written output files.
	FilePerm = 0o644
)

// Opener returns the filesystem rooted at a project directory.
type Opener func(root string) billy.Filesystem

// OSOpener roots an OS filesystem at the project directory.
func OSOpener(root string) billy.Filesystem {
	return osfs.New(root)
}

// Store reads selections, writes artifacts and removes build output below a
// project root.
type Store struct {
	open     Opener
	resolver *Resolver
	walker   *Walker
}

// NewStore creates a Store over the filesystems returned by open.
func NewStore(open Opener, resolver *Resolver, walker *Walker) *Store {
	return &Store{open: open, resolver: resolver, walker: walker}
}

var (
	_ ports.ArtifactSource = (*Store)(nil)
	_ ports.ArtifactSink   = (*Store)(nil)
	_ ports.Cleaner        = (*Store)(nil)
)

// Read returns the selected files with paths relative to root.
func (s *Store) Read(ctx context.Context, root string, sel domain.Selection) ([]*domain.Artifact, error) {
	bfs := s.open(root)
	paths, err := s.resolver.Resolve(bfs, sel.Patterns)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Artifact, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := util.ReadFile(bfs, p)
		if err != nil {
			return nil, fail(domain.ErrSelectionFailed, err, "path", p)
		}
		out = append(out, &domain.Artifact{Path: p, Contents: data})
	}
	return out, nil
}

// Write stores every artifact below dest. Artifact paths are relative to the
// output root; their directories are created as needed.
func (s *Store) Write(ctx context.Context, root, dest string, artifacts []*domain.Artifact) error {
	bfs := s.open(root)
	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := domain.OutputPath(dest, a.Path)
		if escapes(p) {
			return fail(domain.ErrWriteFailed, os.ErrPermission, "path", p)
		}
		if err := bfs.MkdirAll(path.Dir(p), DirPerm); err != nil {
			return fail(domain.ErrWriteFailed, err, "path", p)
		}
		if err := util.WriteFile(bfs, p, a.Contents, FilePerm); err != nil {
			return fail(domain.ErrWriteFailed, err, "path", p)
		}
	}
	return nil
}

// Remove deletes the paths below root matched by patterns. A pattern without
// glob characters names a file or a whole directory. Missing paths are not an error.
func (s *Store) Remove(ctx context.Context, root string, patterns []string) (int, error) {
	bfs := s.open(root)
	removed := 0
	for _, pattern := range patterns {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		pattern = path.Clean(pattern)
		if escapes(pattern) || pattern == "." {
			return removed, fail(domain.ErrCleanFailed, os.ErrPermission, "path", pattern)
		}

		if !hasMeta(pattern) {
			if _, err := bfs.Lstat(pattern); err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return removed, fail(domain.ErrCleanFailed, err, "path", pattern)
			}
			if err := util.RemoveAll(bfs, pattern); err != nil {
				return removed, fail(domain.ErrCleanFailed, err, "path", pattern)
			}
			removed++
			continue
		}

		base, _ := doublestar.SplitPattern(pattern)
		var matches []string
		for p := range s.walker.WalkFiles(bfs, base, nil) {
			if ok, _ := doublestar.Match(pattern, path.Clean(p)); ok {
				matches = append(matches, p)
			}
		}
		for _, p := range matches {
			if err := bfs.Remove(p); err != nil && !os.IsNotExist(err) {
				return removed, fail(domain.ErrCleanFailed, err, "path", p)
			}
			removed++
		}
	}
	return removed, nil
}

// escapes reports whether a cleaned relative path leaves its root.
func escapes(p string) bool {
	return p == ".." || strings.HasPrefix(p, "../") || path.IsAbs(p)
}
