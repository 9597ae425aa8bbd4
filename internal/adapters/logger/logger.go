// Package logger implements ports.Logger on log/slog.
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/weave/internal/ui/style"
)

// messager is implemented by zerr errors: the message of one link without its cause.
type messager interface {
	Message() string
}

// metadataer is implemented by zerr errors carrying key/value context.
type metadataer interface {
	Metadata() map[string]any
}

// Logger implements ports.Logger using log/slog.
type Logger struct {
	logger   *slog.Logger
	mu       sync.RWMutex
	jsonMode bool
	output   io.Writer
}

var _ ports.Logger = (*Logger)(nil)

// New creates a Logger writing pretty output to stderr.
func New() *Logger {
	l := &Logger{output: os.Stderr}
	l.rebuild()
	return l
}

// SetOutput changes where log lines go. A nil w means stderr.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w == nil {
		w = os.Stderr
	}
	l.output = w
	l.rebuild()
}

// SetJSON switches between JSON and pretty output.
func (l *Logger) SetJSON(enable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.jsonMode = enable
	l.rebuild()
}

// rebuild replaces the handler. The caller holds mu or owns l exclusively.
func (l *Logger) rebuild() {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if l.jsonMode {
		l.logger = slog.New(slog.NewJSONHandler(l.output, opts))
		return
	}
	l.logger = slog.New(NewPrettyHandler(l.output, opts))
}

// Info logs an informational message.
func (l *Logger) Info(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Info(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Warn(msg)
}

// Error logs err with its cause chain.
func (l *Logger) Error(err error) {
	if err == nil {
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.jsonMode {
		l.logger.Error("build failed", "error", err)
		return
	}
	l.logger.Error(formatErrorEntries(collectErrorEntries(err)))
}

type errorEntry struct {
	message  string
	metadata map[string]any
}

// collectErrorEntries flattens err into one entry per message. Joined errors
// contribute each branch in order. Metadata of links without a message is
// attached to the next message found.
func collectErrorEntries(err error) []errorEntry {
	var (
		entries []errorEntry
		carry   map[string]any
	)

	var walk func(e error)
	walk = func(e error) {
		for e != nil {
			if joined, ok := e.(interface{ Unwrap() []error }); ok {
				for _, branch := range joined.Unwrap() {
					walk(branch)
				}
				return
			}

			m, ok := e.(messager)
			if !ok {
				entries = append(entries, errorEntry{message: e.Error(), metadata: carry})
				carry = nil
				return
			}
			if md, ok := e.(metadataer); ok {
				if meta := md.Metadata(); len(meta) > 0 {
					if carry == nil {
						carry = make(map[string]any, len(meta))
					}
					maps.Copy(carry, meta)
				}
			}
			if msg := m.Message(); msg != "" {
				entries = append(entries, errorEntry{message: msg, metadata: carry})
				carry = nil
			}
			e = errors.Unwrap(e)
		}
	}
	walk(err)

	if len(carry) > 0 && len(entries) > 0 {
		last := &entries[len(entries)-1]
		if last.metadata == nil {
			last.metadata = carry
		} else {
			maps.Copy(last.metadata, carry)
		}
	}
	return entries
}

// formatErrorEntries renders the first entry as the error and the rest as causes.
func formatErrorEntries(entries []errorEntry) string {
	var lines []string
	for i, e := range entries {
		msg := e.message
		if len(e.metadata) > 0 {
			msg += " (" + formatMetadata(e.metadata) + ")"
		}
		parts := strings.Split(msg, "\n")

		if i == 0 {
			lines = append(lines, "Error: "+parts[0])
			for _, p := range parts[1:] {
				lines = append(lines, "       "+p)
			}
			continue
		}
		if i == 1 {
			lines = append(lines, "", "  Caused by:")
		}
		lines = append(lines, "    "+style.Arrow+" "+parts[0])
		for _, p := range parts[1:] {
			lines = append(lines, "      "+p)
		}
	}
	return strings.Join(lines, "\n")
}

func formatMetadata(meta map[string]any) string {
	keys := slices.Sorted(maps.Keys(meta))
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%v", k, meta[k])
	}
	return strings.Join(pairs, " ")
}
