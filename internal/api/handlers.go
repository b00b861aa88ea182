package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"minesweeper-bot/internal/game"
	"minesweeper-bot/internal/repository"
	"minesweeper-bot/internal/service"
)

// gameResultRequest mirrors the webapp's POST body. Omitted board fields
// default to the beginner configuration.
type gameResultRequest struct {
	InitData  string `json:"initData"`
	UserID    int64  `json:"user_id"`
	Score     int    `json:"score"`
	IsWin     bool   `json:"is_win"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
	GameMode  string `json:"game_mode"`
	Rows      int    `json:"rows"`
	Cols      int    `json:"cols"`
	Mines     int    `json:"mines"`
	RoundID   string `json:"round_id"`
}

func (req *gameResultRequest) applyDefaults() {
	if req.GameMode == "" {
		req.GameMode = game.ModeBeginner
	}
	if req.Rows == 0 {
		req.Rows = 9
	}
	if req.Cols == 0 {
		req.Cols = 9
	}
	if req.Mines == 0 {
		req.Mines = 10
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// Rejections travel in the body with HTTP 200, matching what the webapp
// client expects.
func writeError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "error",
		"message": message,
	})
}

// handleGameResult is POST /api/game/result.
func (s *Server) handleGameResult(w http.ResponseWriter, r *http.Request) {
	var req gameResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body")
		return
	}
	req.applyDefaults()

	outcome, err := s.results.Submit(r.Context(), service.Submission{
		InitData:   req.InitData,
		UserID:     req.UserID,
		Score:      req.Score,
		IsWin:      req.IsWin,
		FirstName:  req.FirstName,
		Username:   req.Username,
		GameMode:   req.GameMode,
		Rows:       req.Rows,
		Cols:       req.Cols,
		Mines:      req.Mines,
		RoundToken: req.RoundID,
	})
	if err != nil {
		// Storage faults are the one class worth a client retry; they
		// surface as a generic message, never as a crash.
		log.Error().Err(err).Int64("user_id", req.UserID).Msg("Failed to process game result")
		writeError(w, outcome.Reason)
		return
	}
	if !outcome.Accepted {
		writeError(w, outcome.Reason)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"suspicious": outcome.Suspicious,
	})
}

// handleStats is GET /api/stats/{user_id}.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"error": "Invalid user id"})
		return
	}

	stats, err := s.stats.PlayerStats(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{"error": "User not found"})
			return
		}
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to get player stats")
		writeJSON(w, http.StatusOK, map[string]any{"error": "Internal error"})
		return
	}

	modes := make(map[string]any, len(game.PresetModes()))
	for _, mode := range game.PresetModes() {
		m := stats.Modes[mode]
		modes[mode] = map[string]any{
			"wins":      m.Wins,
			"best_time": m.BestTime,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":        stats.UserID,
		"total_games":    stats.TotalGames,
		"current_streak": stats.CurrentStreak,
		"best_streak":    stats.BestStreak,
		"modes":          modes,
	})
}

// handleLeaderboard is GET /api/leaderboard/{mode}.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	mode := chi.URLParam(r, "mode")

	entries, err := s.stats.Leaderboard(r.Context(), mode)
	if err != nil {
		log.Error().Err(err).Str("mode", mode).Msg("Failed to get leaderboard")
		writeJSON(w, http.StatusOK, map[string]any{"error": "Internal error"})
		return
	}

	board := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		board = append(board, map[string]any{
			"rank":      e.Rank,
			"user_id":   e.UserID,
			"name":      e.Name,
			"best_time": e.BestTime,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"mode":        mode,
		"leaderboard": board,
	})
}

// handleHealth is GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.healthCheck != nil {
		if err := s.healthCheck(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "degraded",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
