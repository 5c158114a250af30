// Package server provides HTTP server lifecycle management with graceful
// shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownFunc is a function that shuts down a component gracefully.
type ShutdownFunc func(ctx context.Context) error

// Config holds listener and timeout settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server wraps http.Server with graceful shutdown.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger
	shutdownFuncs   []ShutdownFunc
	mu              sync.Mutex
}

// New creates a new Server instance.
func New(handler http.Handler, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       2 * cfg.WriteTimeout,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          logger,
	}
}

// OnShutdown registers a function to be called during graceful shutdown.
// Shutdown functions run in reverse registration order after the HTTP
// server stops, so dependencies registered first are closed last.
func (s *Server) OnShutdown(name string, fn ShutdownFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdownFuncs = append(s.shutdownFuncs, func(ctx context.Context) error {
		s.logger.Info("shutting down component", "name", name)
		if err := fn(ctx); err != nil {
			s.logger.Error("component shutdown error", "name", name, "error", err)
			return fmt.Errorf("%s: %w", name, err)
		}
		s.logger.Info("component stopped", "name", name)
		return nil
	})
}

// Run starts the server and blocks until SIGINT/SIGTERM, ctx cancellation
// or a listener error.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)

	go func() {
		s.logger.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		shutdownErr := s.gracefulShutdown()
		return errors.Join(fmt.Errorf("server error: %w", err), shutdownErr)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received", "cause", context.Cause(ctx))
		return s.gracefulShutdown()
	}
}

// gracefulShutdown stops the HTTP server, then every registered component.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.logger.Info("phase 1: stopping HTTP server", "timeout", s.shutdownTimeout)
	s.httpServer.SetKeepAlivesEnabled(false)

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	s.logger.Info("HTTP server stopped")

	s.mu.Lock()
	funcs := append([]ShutdownFunc(nil), s.shutdownFuncs...)
	s.mu.Unlock()

	s.logger.Info("phase 2: stopping registered components", "count", len(funcs))

	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		s.logger.Error("shutdown completed with errors", "error_count", len(errs))
		return errors.Join(errs...)
	}

	s.logger.Info("server stopped gracefully")
	return nil
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
