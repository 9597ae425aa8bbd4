package domain

import "time"

// BuildResult is the outcome of one task.
type BuildResult struct {
	Task        TaskID
	Mode        PackagingMode
	Environment Environment
	// Step is the ID of the failing pipeline step, if any.
	Step     string
	Err      error
	Duration time.Duration
	// Advisory results never fail a command.
	Advisory bool
}

// Failed reports whether the result fails its command.
func (r BuildResult) Failed() bool {
	return r.Err != nil && !r.Advisory
}

// Warned reports whether an advisory task reported a problem.
func (r BuildResult) Warned() bool {
	return r.Err != nil && r.Advisory
}
