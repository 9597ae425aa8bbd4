package domain

import "go.trai.ch/zerr"

// FailurePolicy decides what happens to the remaining steps when one fails.
type FailurePolicy int

const (
	// AbortOnError skips every step after the failing one.
	AbortOnError FailurePolicy = iota
	// ContinueOnError reports the failure and keeps going.
	ContinueOnError
)

// Pipeline is the ordered list of steps selected for one task under one
// packaging mode and environment.
type Pipeline struct {
	Task        TaskID
	Mode        PackagingMode
	Environment Environment
	// Root is the project directory that selections and Dest are relative to.
	Root string
	// Dest is the directory every stream of the pipeline is written to.
	Dest    string
	Steps   []TransformStep
	Policy  FailurePolicy
	Outputs []Output
}

// Kinds returns the kinds of the steps in order.
func (p *Pipeline) Kinds() []TransformKind {
	kinds := make([]TransformKind, len(p.Steps))
	for i, s := range p.Steps {
		kinds[i] = s.Kind
	}
	return kinds
}

// Has reports whether the pipeline contains a step of kind k.
func (p *Pipeline) Has(k TransformKind) bool {
	return p.Index(k) >= 0
}

// Index returns the position of the first step of kind k, or -1.
func (p *Pipeline) Index(k TransformKind) int {
	for i, s := range p.Steps {
		if s.Kind == k {
			return i
		}
	}
	return -1
}

// Validate checks the structural rules of a pipeline: it has steps, the first
// step opens a stream and step IDs are unique.
func (p *Pipeline) Validate() error {
	if len(p.Steps) == 0 {
		return zerr.With(zerr.Wrap(ErrConfiguration, "pipeline has no steps"), "task", p.Task)
	}
	if p.Steps[0].Input == nil {
		return zerr.With(zerr.Wrap(ErrConfiguration, "first step has no input selection"), "task", p.Task)
	}
	seen := make(map[string]struct{}, len(p.Steps))
	for _, s := range p.Steps {
		if _, dup := seen[s.ID]; dup {
			return zerr.With(zerr.Wrap(ErrConfiguration, "duplicate step id"), "step", s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}
