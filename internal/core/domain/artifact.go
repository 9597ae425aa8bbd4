package domain

import "slices"

// Artifact is an in-memory file flowing between pipeline steps.
type Artifact struct {
	// Path is slash separated. It is relative to the project root until the
	// artifact is rebased onto the output root.
	Path     string
	Contents []byte
	// SourceMap is the current map of Contents when Tracked is set.
	SourceMap []byte
	// Tracked is set by sourcemap-init.
	Tracked bool
}

// Clone returns a deep copy of a.
func (a *Artifact) Clone() *Artifact {
	return &Artifact{
		Path:      a.Path,
		Contents:  slices.Clone(a.Contents),
		SourceMap: slices.Clone(a.SourceMap),
		Tracked:   a.Tracked,
	}
}
