// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"io"
)

// Invocation describes one run of an external tool.
type Invocation struct {
	// Args holds the program and its arguments.
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env is merged over the allow-listed system environment.
	Env map[string]string
	// Stdin is fed to the process. A nil Stdin runs the tool on a pseudo terminal
	// so that it keeps its colored output.
	Stdin io.Reader
}

// Executor defines the interface for running external tools.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs the invocation and waits for it to exit.
	// It returns an error wrapping domain.ErrCommandFailed on a non-zero exit.
	Execute(ctx context.Context, inv Invocation, stdout, stderr io.Writer) error
}
