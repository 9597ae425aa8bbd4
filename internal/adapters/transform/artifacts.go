package transform

import (
	"context"
	"path"
	"strings"

	"go.trai.ch/weave/internal/core/domain"
)

// each maps fn over in, stopping at the first error or when ctx is done.
func each(
	ctx context.Context,
	in []*domain.Artifact,
	fn func(a *domain.Artifact) ([]*domain.Artifact, error),
) ([]*domain.Artifact, error) {
	out := make([]*domain.Artifact, 0, len(in))
	for _, a := range in {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := fn(a)
		if err != nil {
			return nil, err
		}
		out = append(out, res...)
	}
	return out, nil
}

// withExt replaces the extension of p.
func withExt(p, ext string) string {
	return strings.TrimSuffix(p, path.Ext(p)) + ext
}

func hasExt(p string, exts ...string) bool {
	e := strings.ToLower(path.Ext(p))
	for _, x := range exts {
		if e == x {
			return true
		}
	}
	return false
}

func passthrough(a *domain.Artifact) ([]*domain.Artifact, error) {
	return []*domain.Artifact{a.Clone()}, nil
}
