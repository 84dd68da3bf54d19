// Package server exposes the engine as a local HTTP/JSON API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/rshade/carbonfocus/internal/engine"
)

// Defaults for Options left unset.
const (
	DefaultAddr             = "127.0.0.1:8080"
	DefaultReadTimeout      = 15 * time.Second
	DefaultWriteTimeout     = 4 * time.Minute
	DefaultReductionPercent = 20.0

	// requestTimeout covers the slowest route, an advisory call.
	requestTimeout  = 200 * time.Second
	maxBodyBytes    = 1 << 20
	corsMaxAgeSecs  = 300
	shutdownTimeout = 10 * time.Second
)

// Options configure the server.
type Options struct {
	Addr           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	// ReductionPercent and TrendDays are the goal defaults for /goal.
	ReductionPercent float64
	TrendDays        int
	Version          string
	Logger           zerolog.Logger
}

// Server is the HTTP API.
type Server struct {
	server *http.Server
	router *chi.Mux
	logger zerolog.Logger
}

// New builds the router and HTTP server for eng.
func New(eng *engine.Engine, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.ReductionPercent <= 0 {
		opts.ReductionPercent = DefaultReductionPercent
	}
	if opts.TrendDays <= 0 {
		opts.TrendDays = engine.DefaultTrendDays
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(opts.Logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(requestTimeout))

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{traceHeader},
		MaxAge:         corsMaxAgeSecs,
	}))

	h := &handlers{eng: eng, opts: opts}

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)

		r.Route("/v1", func(r chi.Router) {
			r.Get("/factors", h.factors)
			r.Get("/benchmarks", h.benchmarks)
			r.Post("/footprints", h.calculate)

			r.Route("/history", func(r chi.Router) {
				r.Get("/", h.history)
				r.Get("/latest", h.latest)
			})

			r.Get("/trend", h.trend)
			r.Get("/goal", h.goal)
			r.Get("/climate", h.climate)
			r.Post("/advice", h.advise)
			r.Get("/insights", h.insights)
		})
	})

	return &Server{
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           router,
			ReadTimeout:       opts.ReadTimeout,
			ReadHeaderTimeout: opts.ReadTimeout,
			WriteTimeout:      opts.WriteTimeout,
		},
		router: router,
		logger: opts.Logger,
	}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.server.Addr).Msg("http api listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("http api shutting down")
	return s.server.Shutdown(ctx)
}
