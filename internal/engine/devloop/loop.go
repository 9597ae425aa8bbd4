// Package devloop rebuilds the project whenever its sources change.
package devloop

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/zerr"
)

// DefaultDebounceWindow is how long the loop waits for a burst of changes to settle.
const DefaultDebounceWindow = 100 * time.Millisecond

// BuildFunc runs one rebuild.
type BuildFunc func(ctx context.Context) error

// Options configures a watch session.
type Options struct {
	// Root is the project directory.
	Root string
	// Patterns are the globs, relative to Root, whose changes trigger a
	// rebuild. No patterns means every change does.
	Patterns []string
	// Ignore lists directories, relative to Root, that are never watched.
	Ignore []string
}

// Loop watches the sources and serializes rebuilds. A change arriving while a
// rebuild runs marks a single pending rebuild; further changes coalesce into it.
type Loop struct {
	watcher  ports.Watcher
	logger   ports.Logger
	reloader ports.Reloader
	window   time.Duration
	builds   int
}

// New creates a Loop. reloader may be nil when no server is attached.
func New(watcher ports.Watcher, logger ports.Logger, reloader ports.Reloader) *Loop {
	return &Loop{
		watcher:  watcher,
		logger:   logger,
		reloader: reloader,
		window:   DefaultDebounceWindow,
	}
}

// WithWindow sets the debounce window.
func (l *Loop) WithWindow(d time.Duration) *Loop {
	l.window = d
	return l
}

// Run watches opts.Root until ctx is done, calling build after each settled
// batch of matching changes. Rebuild failures are logged and never stop the loop.
func (l *Loop) Run(ctx context.Context, opts Options, build BuildFunc) error {
	if err := l.watcher.Start(ctx, opts.Root, opts.Ignore); err != nil {
		return errors.Join(domain.ErrWatchFailed, zerr.With(zerr.Wrap(err, ""), "root", opts.Root))
	}
	defer func() { _ = l.watcher.Stop() }()

	// One slot: a trigger sent while a rebuild runs waits here, and any
	// further trigger is dropped because one is already pending.
	pending := make(chan []string, 1)
	debouncer := NewDebouncer(l.window, func(paths []string) {
		select {
		case pending <- paths:
		default:
		}
	})
	defer debouncer.Stop()

	go func() {
		for ev := range l.watcher.Events() {
			if l.matches(opts, ev.Path) {
				debouncer.Add(ev.Path)
			}
		}
	}()

	l.logger.Info("Watching for changes...")
	for {
		select {
		case <-ctx.Done():
			return nil
		case paths := <-pending:
			l.rebuild(ctx, paths, build)
		}
	}
}

func (l *Loop) rebuild(ctx context.Context, paths []string, build BuildFunc) {
	l.logger.Info("Change detected in " + describe(paths))
	if err := build(ctx); err != nil {
		if ctx.Err() == nil {
			l.logger.Error(err)
		}
		return
	}
	l.builds++
	if l.reloader != nil {
		l.reloader.Reload("build-" + strconv.Itoa(l.builds))
	}
}

// matches reports whether a changed path should trigger a rebuild.
func (l *Loop) matches(opts Options, path string) bool {
	rel, err := filepath.Rel(opts.Root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	for _, ig := range opts.Ignore {
		if rel == ig || len(rel) > len(ig) && rel[:len(ig)+1] == ig+"/" {
			return false
		}
	}
	if len(opts.Patterns) == 0 {
		return true
	}
	for _, p := range opts.Patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func describe(paths []string) string {
	if len(paths) == 1 {
		return filepath.Base(paths[0])
	}
	return strconv.Itoa(len(paths)) + " files"
}
