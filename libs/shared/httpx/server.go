package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/matapang/platform/libs/shared/logging"
	"github.com/matapang/platform/libs/shared/observability"
)

const defaultRequestTimeout = 30 * time.Second

// Server wraps a chi router with graceful shutdown helpers.
type Server struct {
	Router     chi.Router
	httpServer *http.Server
	logger     *zap.Logger
}

// New creates a new HTTP server with request ids, structured request logs,
// panic recovery, a per-request timeout and a /metrics endpoint.
func New(logger *zap.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logging.Middleware(logger))
	router.Use(observability.Instrument)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(defaultRequestTimeout))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Handle("/metrics", observability.Handler())

	return &Server{Router: router, logger: logging.OrNop(logger)}
}

// Start begins serving HTTP traffic on the provided address.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.logger.Info("http server listening", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
