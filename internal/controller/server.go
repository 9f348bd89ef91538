// Package controller assembles the HTTP API.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"adhocdist/internal/auth"
	"adhocdist/internal/controller/handlers"
	"adhocdist/internal/controller/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config holds the server settings that shape routing.
type Config struct {
	Addr           string
	AdminAuth      auth.CredentialChecker
	CallbackSecret string
	Metrics        http.Handler
	Logger         *slog.Logger
}

// Server is the HTTP server for the distribution API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new server.
func New(cfg Config, h *handlers.Handlers) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           NewRouter(cfg, h),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
		},
		logger: cfg.Logger,
	}
}

// NewRouter builds the route table.
func NewRouter(cfg Config, h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(middleware.Recover(cfg.Logger))

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	// Tester and device facing.
	r.Post("/register", h.Register)
	r.Get("/get-udid", h.GetUDIDProfile)
	r.Post("/udid/callback", h.DeviceCallback)
	r.Post("/udid/manual", h.ManualUDID)

	// Called by the build pipeline.
	r.With(middleware.RequireInternalAuth(cfg.CallbackSecret)).Post("/build-completed", h.BuildCompleted)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(cfg.AdminAuth, cfg.Logger))

		r.Get("/testers", h.ListTesters)
		r.Get("/testers/{id}", h.GetTester)
		r.Get("/builds", h.ListBuilds)
		r.Get("/builds/{id}", h.GetBuild)
		r.Get("/devices", h.ListDevices)
		r.Get("/vendor/devices", h.VendorDevices)
		r.Delete("/admin/data", h.Purge)
	})

	return otelhttp.NewHandler(r, "adhocdist",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
