package tui

import "time"

// MsgPlan resets the task list for a new command.
type MsgPlan struct {
	Command string
	Tasks   []string
}

// MsgTaskStart reports a started task or pipeline step. ParentID is empty
// for tasks.
type MsgTaskStart struct {
	SpanID    string
	ParentID  string
	Name      string
	StartTime time.Time
}

// MsgTaskLog carries a chunk of output of a task or step.
type MsgTaskLog struct {
	SpanID string
	Data   []byte
}

// MsgTaskComplete reports a finished task or step.
type MsgTaskComplete struct {
	SpanID  string
	EndTime time.Time
	Err     error
}
