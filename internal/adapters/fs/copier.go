package fs

import (
	"context"
	"os"
	"path/filepath"

	"github.com/otiai10/copy"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
)

// Copier copies source trees into the output unchanged.
type Copier struct {
	open     Opener
	resolver *Resolver
}

// NewCopier creates a Copier. open is used to resolve patterns below the source directory.
func NewCopier(open Opener, resolver *Resolver) *Copier {
	return &Copier{open: open, resolver: resolver}
}

var _ ports.Copier = (*Copier)(nil)

// Copy copies the files below src matched by patterns into dest. No patterns
// copies the whole tree. A missing src copies nothing.
func (c *Copier) Copy(ctx context.Context, root, src, dest string, patterns []string) error {
	srcDir := abs(root, src)
	destDir := abs(root, dest)

	if _, err := os.Stat(srcDir); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fail(domain.ErrCopyFailed, err, "path", src)
	}

	if len(patterns) == 0 {
		err := copy.Copy(srcDir, destDir, copy.Options{
			Skip: func(info os.FileInfo, _, _ string) (bool, error) {
				if err := ctx.Err(); err != nil {
					return true, err
				}
				return info.IsDir() && shouldSkipDir(info.Name(), nil), nil
			},
			PermissionControl: copy.AddPermission(0o200),
		})
		if err != nil {
			return fail(domain.ErrCopyFailed, err, "path", src)
		}
		return nil
	}

	files, err := c.resolver.Resolve(c.open(srcDir), patterns)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		from := filepath.Join(srcDir, filepath.FromSlash(f))
		to := filepath.Join(destDir, filepath.FromSlash(f))
		if err := copy.Copy(from, to); err != nil {
			return fail(domain.ErrCopyFailed, err, "path", f)
		}
	}
	return nil
}

func abs(root, rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(root, filepath.FromSlash(rel))
}
