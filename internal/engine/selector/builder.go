package selector

import (
	"strconv"

	"go.trai.ch/weave/internal/core/domain"
)

// builder appends steps, attaching a pending input selection to the next one.
type builder struct {
	steps []domain.TransformStep
	input *domain.Selection
	base  string
	maps  bool
	ids   map[string]int
}

// newBuilder starts a stream on in. In development the stream opens with sourcemap-init.
func newBuilder(cfg domain.BuildConfig, in *domain.Selection) *builder {
	b := &builder{input: in, base: in.Base, maps: cfg.Sourcemaps()}
	if b.maps {
		b.add(domain.KindSourcemapInit, domain.StepOptions{})
	}
	return b
}

func (b *builder) add(kind domain.TransformKind, opts domain.StepOptions) {
	b.steps = append(b.steps, domain.TransformStep{
		ID:      b.id(kind),
		Kind:    kind,
		Input:   b.input,
		Options: opts,
	})
	b.input = nil
}

// open adds a step that starts its own stream.
func (b *builder) open(kind domain.TransformKind, in *domain.Selection, opts domain.StepOptions) {
	b.input = in
	b.add(kind, opts)
}

// closeSourcemaps ends the script transforms of a development stream written to dest.
func (b *builder) closeSourcemaps(dest string) {
	if b.maps {
		b.add(domain.KindSourcemapWrite, domain.StepOptions{SourceBase: b.base, OutDir: dest})
	}
}

func (b *builder) id(kind domain.TransformKind) string {
	if b.ids == nil {
		b.ids = make(map[string]int)
	}
	id := kind.String()
	b.ids[id]++
	if n := b.ids[id]; n > 1 {
		return id + "-" + strconv.Itoa(n)
	}
	return id
}
