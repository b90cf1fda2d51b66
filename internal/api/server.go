// Package api provides the HTTP API exposing the tracker's performance data.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/token-scanner/internal/config"
	"github.com/token-scanner/internal/logging"
	"github.com/token-scanner/internal/strategy"
	"github.com/token-scanner/internal/worker"
)

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	monitor    *strategy.Monitor
	worker     *worker.ScanWorker // optional, reported in health
	logger     *logging.Logger
}

// NewServer creates a new API server instance.
func NewServer(cfg config.ServerConfig, monitor *strategy.Monitor, scanWorker *worker.ScanWorker, logger *logging.Logger) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		monitor: monitor,
		worker:  scanWorker,
		logger:  logger,
	}

	s.setupRouter(cfg)
	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter(cfg config.ServerConfig) {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)
	s.router.Use(corsMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/opportunities", s.handleOpportunities).Methods("GET")
	api.HandleFunc("/patterns", s.handlePatterns).Methods("GET")
	api.HandleFunc("/history/{symbol}", s.handleHistory).Methods("GET")
	api.HandleFunc("/export", s.handleExport).Methods("GET")
}

// Router returns the configured handler, for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
