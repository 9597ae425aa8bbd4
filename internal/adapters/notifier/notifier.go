// Package notifier tells the developer how a build ended through a
// configurable command, or through the log when none is configured.
package notifier

import (
	"bytes"
	"context"
	"strings"

	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/zerr"
)

// Notifier implements ports.Notifier. The title and message are appended to
// the command's arguments.
type Notifier struct {
	executor ports.Executor
	logger   ports.Logger
	command  []string
	dir      string
}

var _ ports.Notifier = (*Notifier)(nil)

// New creates a Notifier running command in dir. An empty command logs instead.
func New(executor ports.Executor, logger ports.Logger, command []string, dir string) *Notifier {
	return &Notifier{
		executor: executor,
		logger:   logger,
		command:  command,
		dir:      dir,
	}
}

// Notify delivers title and message.
func (n *Notifier) Notify(ctx context.Context, title, message string) error {
	if len(n.command) == 0 {
		n.log(title, message)
		return nil
	}

	args := make([]string, 0, len(n.command)+2)
	args = append(args, n.command...)
	args = append(args, title, message)

	var out bytes.Buffer
	err := n.executor.Execute(ctx, ports.Invocation{
		Args:  args,
		Dir:   n.dir,
		Stdin: strings.NewReader(""),
	}, &out, &out)
	if err != nil {
		// The developer still learns the outcome.
		n.log(title, message)
		err = zerr.With(zerr.Wrap(err, "notification command failed"), "command", n.command[0])
		if s := strings.TrimSpace(out.String()); s != "" {
			err = zerr.With(err, "output", s)
		}
		return err
	}
	return nil
}

func (n *Notifier) log(title, message string) {
	if message == "" {
		n.logger.Info(title)
		return
	}
	n.logger.Info(title + ": " + message)
}
