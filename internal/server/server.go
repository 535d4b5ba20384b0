// Package server assembles the HTTP API: routes, middleware chain, and
// lifecycle management.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/arenabets/arenasync/internal/domain"
	"github.com/arenabets/arenasync/internal/server/handler"
	"github.com/arenabets/arenasync/internal/server/middleware"
	"github.com/arenabets/arenasync/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port            int
	CORSOrigins     []string
	APIKey          string // empty disables authentication
	RateLimit       int    // requests per window per client IP; 0 disables
	RateLimitWindow time.Duration
}

// Handlers aggregates everything the server registers.
type Handlers struct {
	Health      *handler.HealthHandler
	Markets     *handler.MarketHandler
	Claims      *handler.ClaimHandler
	Balances    *handler.BalanceHandler
	Leaderboard *handler.LeaderboardHandler
	Admin       *handler.AdminHandler
}

// Server is the HTTP + WebSocket front of the sync service.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes registered. The leaderboard webhook
// verifies its own HMAC on top of the shared middleware chain; the rate
// limiter is optional.
func New(cfg Config, handlers Handlers, hub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Market reads and operations.
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{address}", handlers.Markets.GetMarket)
	mux.HandleFunc("POST /api/markets/{address}/refresh", handlers.Markets.RefreshMarket)
	mux.HandleFunc("POST /api/markets/{address}/close", handlers.Markets.CloseMarket)

	// Per-user claims.
	mux.HandleFunc("GET /api/markets/{address}/claims/{user}", handlers.Claims.GetClaim)
	mux.HandleFunc("POST /api/markets/{address}/claims/{user}/refresh", handlers.Claims.RefreshClaim)

	// Stake-token balances.
	mux.HandleFunc("GET /api/balances/{user}", handlers.Balances.GetBalance)

	// Leaderboard read plus signed submission webhook.
	mux.HandleFunc("GET /api/leaderboard", handlers.Leaderboard.GetLatest)
	mux.HandleFunc("POST /api/leaderboard", handlers.Leaderboard.Submit)

	// Operational endpoints.
	mux.HandleFunc("POST /api/admin/sweep", handlers.Admin.TriggerSweep)
	mux.HandleFunc("POST /api/admin/import", handlers.Admin.Import)
	mux.HandleFunc("POST /api/admin/leaderboard/seed", handlers.Admin.SeedLeaderboard)
	mux.HandleFunc("POST /api/admin/reset/{kind}", handlers.Admin.Reset)

	if hub != nil {
		mux.HandleFunc("GET /ws", hub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateLimitWindow)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{httpServer: srv, logger: logger}
}

// Start begins listening. It blocks until the listener fails or the server
// is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
