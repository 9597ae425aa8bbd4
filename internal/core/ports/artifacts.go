package ports

import (
	"context"

	"go.trai.ch/weave/internal/core/domain"
)

// ArtifactSource reads the files picked by a selection below a project root.
//
//go:generate mockgen -source=artifacts.go -destination=mocks/mock_artifacts.go -package=mocks
type ArtifactSource interface {
	// Read returns the selected files with paths relative to root.
	// Files are ordered by pattern, then by path within a pattern; a file
	// matched twice is returned once.
	Read(ctx context.Context, root string, sel domain.Selection) ([]*domain.Artifact, error)
}

// ArtifactSink writes artifacts below an output directory.
type ArtifactSink interface {
	// Write stores every artifact at dest joined with its output relative path.
	// dest is relative to root.
	Write(ctx context.Context, root, dest string, artifacts []*domain.Artifact) error
}

// Cleaner removes build output.
type Cleaner interface {
	// Remove deletes every path below root matched by patterns and returns how
	// many were removed.
	Remove(ctx context.Context, root string, patterns []string) (int, error)
}

// Copier copies files into the output unchanged.
type Copier interface {
	// Copy copies the files below src matched by patterns into dest, keeping
	// their layout relative to src. No patterns copies the whole tree.
	// src and dest are relative to root.
	Copy(ctx context.Context, root, src, dest string, patterns []string) error
}

// TreeHasher digests a directory tree.
type TreeHasher interface {
	// Digest returns a stable hex digest of every file path and content below root.
	Digest(root string) (string, error)
}
