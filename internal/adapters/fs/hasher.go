package fs

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/go-git/go-billy/v5"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.TreeHasher = (*Hasher)(nil)

// Hasher digests output trees so the development server can tell when a
// build changed what it serves.
type Hasher struct {
	open   Opener
	walker *Walker
}

// NewHasher creates a new Hasher.
func NewHasher(open Opener, walker *Walker) *Hasher {
	return &Hasher{open: open, walker: walker}
}

// Digest returns the XXHash of every file path and content below root. A
// missing root digests as the empty string.
func (h *Hasher) Digest(root string) (string, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return "", nil
	}

	bfs := h.open(root)
	var files []string
	for p := range h.walker.WalkFiles(bfs, ".", nil) {
		files = append(files, p)
	}
	slices.Sort(files)

	hasher := xxhash.New()
	for _, p := range files {
		_, _ = hasher.WriteString(p)
		_, _ = hasher.Write([]byte{0})

		sum, err := h.hashFile(bfs, p)
		if err != nil {
			// The file vanished between walk and read; the next poll sees the settled tree.
			if os.IsNotExist(err) {
				continue
			}
			return "", zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", p)
		}
		if err := binary.Write(hasher, binary.LittleEndian, sum); err != nil {
			return "", zerr.Wrap(err, "failed to write hash to digest")
		}
	}

	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

func (h *Hasher) hashFile(bfs billy.Filesystem, p string) (uint64, error) {
	f, err := bfs.Open(p)
	if err != nil {
		return 0, err
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	d := xxhash.New()
	if _, err := io.Copy(d, f); err != nil {
		return 0, err
	}
	return d.Sum64(), nil
}
