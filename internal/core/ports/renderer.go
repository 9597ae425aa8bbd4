package ports

import (
	"context"
	"time"
)

// Renderer presents build progress. The same event stream drives the
// interactive view and plain line output.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// Start begins the renderer lifecycle. Asynchronous renderers may start goroutines.
	Start(ctx context.Context) error
	// Stop flushes buffered output and stops accepting events.
	Stop() error
	// Wait blocks until the renderer has terminated.
	Wait() error

	// OnPlanEmit is called once the stages of a command are known.
	// tasks lists every task in stage order.
	OnPlanEmit(command string, tasks []string)
	// OnTaskStart is called when a task or a pipeline step begins.
	// parentID is empty for tasks.
	OnTaskStart(spanID, parentID, name string, startTime time.Time)
	// OnTaskLog is called with raw output of a task.
	OnTaskLog(spanID string, data []byte)
	// OnTaskComplete is called when a task or step ends. err is nil on success.
	OnTaskComplete(spanID string, endTime time.Time, err error)
}
