package metrics

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ReadyCheck reports whether the process is ready to serve traffic; a
// non-nil error makes /readyz answer 503 with the error text. A nil
// ReadyCheck means always ready.
type ReadyCheck func(ctx context.Context) error

// Server exposes /healthz, /readyz, and /metrics over chi — the ambient
// ops surface carried regardless of the excluded CRUD/RPC transport
// (SPEC_FULL.md §5.5).
type Server struct {
	server *http.Server
	log    *zap.Logger
	ready  ReadyCheck
}

// NewServer builds a Server listening on port addr on all interfaces
// (its address is ":"+addr). A nil ready always reports ready.
func NewServer(addr string, logger *zap.Logger, ready ReadyCheck) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{log: logger, ready: ready}

	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{http.MethodGet},
		MaxAge:         300,
	}))
	router.Get("/healthz", s.handleHealthz)
	router.Get("/readyz", s.handleReadyz)
	router.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{Addr: ":" + addr, Handler: router}
	return s
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready == nil {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
		return
	}
	if err := s.ready(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(err.Error()))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// StartAsync runs the server in a background goroutine. Bind errors
// other than a graceful shutdown are logged, not returned — callers
// observe server health through /healthz instead.
func (s *Server) StartAsync() {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("metrics server stopped unexpectedly", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts the server down, respecting ctx's deadline.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
