package ports

import (
	"context"
	"io"
)

type outputKey struct{}

// WithOutput returns a context whose external tools report their output to w.
// The engine sets it to the span of the running task or step.
func WithOutput(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, outputKey{}, w)
}

// OutputFrom returns the writer set by WithOutput, or io.Discard.
func OutputFrom(ctx context.Context) io.Writer {
	if w, ok := ctx.Value(outputKey{}).(io.Writer); ok && w != nil {
		return w
	}
	return io.Discard
}
