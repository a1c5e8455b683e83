// Package httpserver exposes the agent's API: trade ledger CRUD, risk-checked
// execution, positions and exposure, and the analytics surface, plus the
// operational endpoints (health, readiness, Prometheus metrics).
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/acastellana/prediction-agent/internal/analysis"
	"github.com/acastellana/prediction-agent/internal/auditlog"
	"github.com/acastellana/prediction-agent/internal/ledger"
	"github.com/acastellana/prediction-agent/internal/resolver"
	"github.com/acastellana/prediction-agent/internal/strategy"
	"github.com/acastellana/prediction-agent/internal/trading"
	"github.com/acastellana/prediction-agent/pkg/clock"
	"github.com/acastellana/prediction-agent/pkg/healthprobe"
)

// Server provides the HTTP API.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// Config holds server configuration and collaborators.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker

	Store    ledger.Store
	Audit    auditlog.Sink
	Clock    clock.Clock
	Engine   *trading.Engine
	Scanner  *trading.Scanner
	Registry *strategy.Registry
	Reporter *analysis.Reporter
	Resolver *resolver.Resolver
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Operational endpoints
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	h := &handlers{
		store:    cfg.Store,
		audit:    cfg.Audit,
		clock:    cfg.Clock,
		engine:   cfg.Engine,
		scanner:  cfg.Scanner,
		registry: cfg.Registry,
		reporter: cfg.Reporter,
		resolver: cfg.Resolver,
		logger:   cfg.Logger,
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/trades", h.createTrade)
		r.Get("/trades", h.listTrades)
		r.Get("/trades/{id}", h.getTrade)
		r.Put("/trades/{id}/resolve", h.resolveTrade)

		r.Get("/strategies", h.listStrategies)

		r.Get("/performance", h.overallPerformance)
		r.Get("/performance/{strategy}", h.strategyPerformance)

		r.Post("/analyze/trade/{id}", h.analyzeTrade)
		r.Get("/analysis/calibration", h.calibration)
		r.Get("/analysis/improvements", h.improvements)
		r.Get("/analysis/optimal-parameters", h.optimalParameters)
		r.Get("/report", h.report)

		r.Get("/trading/status", h.tradingStatus)
		r.Post("/trading/execute", h.executeOpportunity)
		r.Post("/trading/check-risk", h.checkRisk)
		r.Get("/trading/positions", h.positions)
		r.Get("/trading/exposure", h.exposure)

		r.Post("/scan", h.scan)
		r.Post("/resolve", h.resolveSweep)
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server: server,
		logger: cfg.Logger,
	}
}

// Handler returns the server's HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}
