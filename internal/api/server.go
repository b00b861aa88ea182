// Package api serves the webapp-facing HTTP API: game result intake,
// stats, leaderboards, health and metrics.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"minesweeper-bot/internal/model"
	"minesweeper-bot/internal/service"
)

// ResultSubmitter accepts claimed game results.
type ResultSubmitter interface {
	Submit(ctx context.Context, sub service.Submission) (service.Outcome, error)
}

// StatsProvider answers leaderboard and per-player stat queries.
type StatsProvider interface {
	Leaderboard(ctx context.Context, mode string) ([]*model.LeaderboardEntry, error)
	PlayerStats(ctx context.Context, userID int64) (*model.PlayerStats, error)
}

// Server is the HTTP API server.
type Server struct {
	results     ResultSubmitter
	stats       StatsProvider
	healthCheck func(ctx context.Context) error
	webAppDir   string
}

// NewServer creates a new API server. healthCheck may be nil; webAppDir
// may be empty to skip serving the static game client.
func NewServer(results ResultSubmitter, stats StatsProvider, healthCheck func(ctx context.Context) error, webAppDir string) *Server {
	return &Server{
		results:     results,
		stats:       stats,
		healthCheck: healthCheck,
		webAppDir:   webAppDir,
	}
}

// Handler builds the chi router for the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	// The webapp runs inside Telegram's webview; its origin is not ours.
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}).Handler)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/game/result", s.handleGameResult)
		r.Get("/stats/{user_id}", s.handleStats)
		r.Get("/leaderboard/{mode}", s.handleLeaderboard)
	})

	if s.webAppDir != "" {
		fs := http.StripPrefix("/game/", http.FileServer(http.Dir(s.webAppDir)))
		r.Get("/game/*", fs.ServeHTTP)
	}

	return r
}

// ListenAndServe runs the API server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:           addr,
		Handler:        s.Handler(),
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("API server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Dur("elapsed", time.Since(start)).
			Msg("HTTP request")
	})
}
