// Package server is the development server: static files from the output
// root, a live-reload event stream and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	// MetricsPath exposes Prometheus metrics.
	MetricsPath = "/metrics"
	// DefaultPollInterval is how often the output digest is recomputed.
	DefaultPollInterval = 500 * time.Millisecond

	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Server serves root over HTTP. It implements ports.Reloader.
type Server struct {
	root    string
	port    int
	logger  ports.Logger
	hasher  ports.TreeHasher
	metrics *metrics
	hub     *Hub
}

var _ ports.Reloader = (*Server)(nil)

// New creates a server for the absolute directory root on port.
func New(root string, port int, logger ports.Logger, hasher ports.TreeHasher) *Server {
	m := newMetrics()
	return &Server{
		root:    root,
		port:    port,
		logger:  logger,
		hasher:  hasher,
		metrics: m,
		hub:     newHub(m),
	}
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(EventsPath, s.hub)
	mux.HandleFunc(ScriptPath, serveScript)
	mux.Handle(MetricsPath, s.metrics.handler())
	mux.Handle("/", injectScript(http.FileServer(http.Dir(s.root))))
	return s.metrics.instrument(mux)
}

// Reload tells connected browsers to reload. Repeated versions are ignored.
func (s *Server) Reload(version string) {
	s.hub.Reload(version)
}

// Clients returns the number of connected live-reload clients.
func (s *Server) Clients() int {
	return s.hub.Clients()
}

// Serve listens on the configured port until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := net.JoinHostPort("", strconv.Itoa(s.port))
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return errors.Join(domain.ErrServerFailed, zerr.With(zerr.Wrap(err, "failed to listen"), "addr", addr))
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled. Open event streams are
// closed before the server shuts down.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	s.logger.Info(fmt.Sprintf("Serving %s at http://localhost:%d", s.root, port(ln, s.port)))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.hub.Shutdown()
		return errors.Join(domain.ErrServerFailed, zerr.Wrap(err, "server stopped"))
	case <-ctx.Done():
	}

	s.hub.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Join(domain.ErrServerFailed, zerr.Wrap(err, "shutdown failed"))
	}
	return nil
}

// WatchOutput recomputes the digest of the served tree every interval and
// broadcasts a reload when it changes. The first digest is the baseline.
func (s *Server) WatchOutput(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	last, err := s.hasher.Digest(s.root)
	if err != nil {
		s.logger.Warn("failed to digest output: " + err.Error())
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		digest, err := s.hasher.Digest(s.root)
		if err != nil {
			s.logger.Warn("failed to digest output: " + err.Error())
			continue
		}
		if digest == last {
			continue
		}
		last = digest
		s.Reload(digest)
	}
}

func port(ln net.Listener, fallback int) int {
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return fallback
}
