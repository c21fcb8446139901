// Package server runs the HTTP listener in front of the metrics responder.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/smazurov/metricsd/internal/logging"
)

// Default timeouts. Scrapers usually time out after 10s.
const (
	DefaultReadTimeout  = 5 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	DefaultIdleTimeout  = 60 * time.Second
)

// Options configures a Server.
type Options struct {
	// Handler answers every request; it owns the whole path space.
	Handler http.Handler

	// MetricsPath is logged at debug level on success.
	MetricsPath string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	Logger *slog.Logger
}

// Server wraps an http.Server with access logging and graceful shutdown.
type Server struct {
	handler    http.Handler
	options    Options
	logger     *slog.Logger
	mu         sync.Mutex
	httpServer *http.Server
	stopped    bool
}

// New creates a server from opts. Zero timeouts take the defaults.
func New(opts *Options) *Server {
	o := *opts
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	if o.Handler == nil {
		o.Handler = http.NotFoundHandler()
	}
	logger := o.Logger
	if logger == nil {
		logger = logging.GetLogger("server")
	}

	return &Server{
		handler: HTTPLoggingMiddleware(o.Logger, o.MetricsPath, o.Handler),
		options: o,
		logger:  logger,
	}
}

// Handler returns the root handler including the logging middleware.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on addr and serves until Stop. Like ListenAndServe it
// returns http.ErrServerClosed after a clean shutdown.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Stop.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.options.ReadTimeout,
		ReadHeaderTimeout: s.options.ReadTimeout,
		WriteTimeout:      s.options.WriteTimeout,
		IdleTimeout:       s.options.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		_ = ln.Close()
		return http.ErrServerClosed
	}
	if s.httpServer != nil {
		s.mu.Unlock()
		_ = ln.Close()
		return errors.New("server already started")
	}
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.Info("Starting metrics server", "addr", ln.Addr().String(), "path", s.options.MetricsPath)
	return srv.Serve(ln)
}

// Stop waits for in-flight scrapes until ctx is done, then closes the
// remaining connections. A later Serve returns http.ErrServerClosed at once.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.stopped = true
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	s.logger.Info("Stopping metrics server")
	err := srv.Shutdown(ctx)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger.Warn("Graceful shutdown timed out, closing connections")
		return srv.Close()
	}
	return err
}
