// Package server exposes the enrichment pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/minhvu-dev/enricher/internal/infra/ratelimit"
)

// Server provides the inbound HTTP API. The rate limiter guards every
// route before any dispatch work happens.
type Server struct {
	handlers *Handlers
	server   *http.Server
}

// NewServer creates the HTTP server with rate limiting applied.
func NewServer(h *Handlers, store ratelimit.Store, budgets ratelimit.Budgets, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		handlers: h,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: ratelimit.Middleware(store, budgets, mux),
		},
	}

	mux.HandleFunc("POST /api/enrich", h.handleEnrich)
	mux.HandleFunc("GET /api/progress/{fileID}", h.handleProgress)
	mux.HandleFunc("DELETE /api/progress/{fileID}", h.handleProgressCleanup)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
