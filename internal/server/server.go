// Package server exposes flow conversion over HTTP and keeps a workbook in
// sync with a watched flow document.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/flowdoc/internal/docs"
	"github.com/leapstack-labs/flowdoc/internal/export"
	"golang.org/x/sync/errgroup"
)

// Defaults for Config.
const (
	DefaultPort        = 8080
	DefaultMaxUploadMB = 32
)

// Config holds configuration for the server.
type Config struct {
	Port        int
	MaxUploadMB int
	IndexSheet  string
	LinkText    string

	// WatchInput, when set, is regenerated into WatchOutput on every change.
	WatchInput  string
	WatchOutput string

	Logger *slog.Logger
}

// Server serves the conversion API.
type Server struct {
	cfg       Config
	generator *docs.Generator
	workbook  *export.WorkbookWriter
	notifier  *Notifier
	logger    *slog.Logger
}

// New creates a server.
func New(cfg Config) *Server {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = DefaultMaxUploadMB
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Server{
		cfg:       cfg,
		generator: docs.NewGenerator(docs.Options{IndexSheet: cfg.IndexSheet, Logger: logger}),
		workbook:  export.NewWorkbookWriter(export.WorkbookOptions{LinkText: cfg.LinkText, Logger: logger}),
		notifier:  NewNotifier(),
		logger:    logger,
	}
}

// Notifier returns the notifier that receives watch-mode events.
func (s *Server) Notifier() *Notifier {
	return s.notifier
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
	)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/convert", s.handleConvert)
		r.Post("/catalog", s.handleCatalog)
		r.Get("/events", s.handleEvents)
	})
	return r
}

// Serve starts the server and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.logger.Info("starting server", "addr", fmt.Sprintf("http://localhost:%d", s.cfg.Port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.cfg.WatchInput != "" {
		eg.Go(func() error {
			return s.Watch(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
