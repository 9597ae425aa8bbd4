package ports

import (
	"context"

	"go.trai.ch/weave/internal/core/domain"
)

// TaskRunner runs a single task of a command.
//
//go:generate mockgen -source=sequencer.go -destination=mocks/mock_sequencer.go -package=mocks
type TaskRunner interface {
	// Run executes task under cfg. Failures are reported in the result, never panicked.
	Run(ctx context.Context, cfg domain.BuildConfig, task domain.TaskID) domain.BuildResult
	// Outputs returns what task writes under cfg. Tasks that write nothing return nil.
	Outputs(cfg domain.BuildConfig, task domain.TaskID) ([]domain.Output, error)
}

// Reloader tells connected browsers that the output changed.
type Reloader interface {
	// Reload broadcasts version. Repeated versions are ignored.
	Reload(version string)
}
