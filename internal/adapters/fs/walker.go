// Package fs provides the file system adapters: source selection, artifact
// output, cleaning, tree copies and output digests.
package fs

import (
	"iter"
	"os"
	"path/filepath"
	"slices"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// alwaysSkipped are directory names never descended into.
var alwaysSkipped = []string{".git", ".jj"}

// Walker provides file walking functionality over a billy filesystem.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// WalkFiles yields the slash separated paths of all files below dir, skipping
// version control directories and directories named in ignores.
// A missing dir yields nothing.
func (w *Walker) WalkFiles(bfs billy.Filesystem, dir string, ignores []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if _, err := bfs.Lstat(dir); err != nil {
			return
		}
		_ = util.Walk(bfs, dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if info.IsDir() {
				if path != dir && shouldSkipDir(info.Name(), ignores) {
					return filepath.SkipDir
				}
				return nil
			}
			if !info.Mode().IsRegular() {
				return nil
			}

			if !yield(filepath.ToSlash(path)) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func shouldSkipDir(name string, ignores []string) bool {
	return slices.Contains(alwaysSkipped, name) || slices.Contains(ignores, name)
}
