// Package server exposes the surveillance API over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/guardiana/sentinel/internal/domain"
	"github.com/guardiana/sentinel/internal/server/handler"
	"github.com/guardiana/sentinel/internal/server/middleware"
	"github.com/guardiana/sentinel/internal/server/ws"
)

const (
	// rateLimitRequests / rateLimitWindow caps per-client API throughput.
	rateLimitRequests = 60
	rateLimitWindow   = time.Minute
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // empty disables auth
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health   *handler.HealthHandler
	Market   *handler.MarketHandler
	Trades   *handler.TradeHandler
	Alerts   *handler.AlertHandler
	Patterns *handler.PatternHandler
}

// Server is the HTTP + WebSocket API server for the surveillance feed.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered and the middleware
// chain (CORS, logging, rate limit, auth) applied. limiter may be nil to
// disable rate limiting; wsHub may be nil to disable the live feed.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Live market state.
	mux.HandleFunc("GET /api/book", handlers.Market.GetBook)
	mux.HandleFunc("GET /api/history", handlers.Market.GetHistory)
	mux.HandleFunc("GET /api/metrics", handlers.Market.GetMetrics)

	// Trade tape and flagged trades.
	mux.HandleFunc("GET /api/trades", handlers.Trades.ListTrades)
	mux.HandleFunc("GET /api/trades/flagged", handlers.Trades.ListFlagged)

	// Detection alerts.
	mux.HandleFunc("GET /api/alerts", handlers.Alerts.ListAlerts)

	// Pattern history and manual injection.
	mux.HandleFunc("GET /api/patterns", handlers.Patterns.ListPatterns)
	mux.HandleFunc("POST /api/patterns/trigger", handlers.Patterns.TriggerPattern)

	// WebSocket feed.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.RateLimit(limiter, rateLimitRequests, rateLimitWindow)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server fails
// or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
