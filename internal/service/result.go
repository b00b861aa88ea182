// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"minesweeper-bot/internal/game"
	"minesweeper-bot/internal/initdata"
	"minesweeper-bot/internal/metrics"
	"minesweeper-bot/internal/model"
	"minesweeper-bot/internal/pkg/ratelimit"
	"minesweeper-bot/internal/repository"
)

// Rejection messages returned to the client. Reasons travel in the
// response body; the transport status stays 200 either way.
const (
	ReasonInvalidSignature = "Invalid signature"
	ReasonRateLimited      = "Too many requests"
	ReasonBlocked          = "User is blocked"
	ReasonInternal         = "Internal error"
)

// Outcome is the structured result of one submission.
type Outcome struct {
	Accepted   bool
	Suspicious bool
	// Reason explains a rejection; empty when accepted.
	Reason string
}

func rejected(reason string) Outcome {
	return Outcome{Reason: reason}
}

// Submission is the client-reported outcome of one round, together with
// the signed init data proving who reports it.
type Submission struct {
	InitData   string
	UserID     int64
	Score      int
	IsWin      bool
	FirstName  string
	Username   string
	GameMode   string
	Rows       int
	Cols       int
	Mines      int
	RoundToken string
}

// ResultStore applies a validated submission atomically.
type ResultStore interface {
	Apply(ctx context.Context, in repository.ApplyInput) (*model.User, error)
}

// ResultService is the intake orchestrator: it authenticates, validates
// and persists client-reported game results.
type ResultService struct {
	verifier  *initdata.Verifier
	validator *game.Validator
	results   ResultStore
	limiter   ratelimit.Limiter
}

// NewResultService creates a new ResultService instance.
func NewResultService(
	verifier *initdata.Verifier,
	validator *game.Validator,
	results ResultStore,
	limiter ratelimit.Limiter,
) *ResultService {
	if limiter == nil {
		limiter = ratelimit.Noop{}
	}
	return &ResultService{
		verifier:  verifier,
		validator: validator,
		results:   results,
		limiter:   limiter,
	}
}

// Submit processes one claimed game result.
//
// Checks run in a fixed order: signature, rate limit, domain validation,
// then the persistence transaction (which re-checks the standing blocked
// condition under the row lock). Nothing is persisted and no metric is
// emitted unless the transaction commits. Steps before the transaction
// are pure, so a retried request repeats them safely; the transaction
// itself is only idempotent when the client sends a round token.
func (s *ResultService) Submit(ctx context.Context, sub Submission) (Outcome, error) {
	claims, err := s.verifier.Verify(sub.InitData)
	if err != nil {
		log.Warn().Err(err).Int64("claimed_user_id", sub.UserID).Msg("Rejected init data")
		return rejected(ReasonInvalidSignature), nil
	}

	allowed, err := s.limiter.Allow(ctx, claims.User.ID)
	if err != nil {
		// Fail open: a broken limiter should not take down intake
		log.Warn().Err(err).Msg("Rate limiter unavailable, allowing submission")
	} else if !allowed {
		return rejected(ReasonRateLimited), nil
	}

	verdict, err := s.validator.Validate(claims.User.ID, game.Submission{
		UserID: sub.UserID,
		Mode:   sub.GameMode,
		Rows:   sub.Rows,
		Cols:   sub.Cols,
		Mines:  sub.Mines,
		IsWin:  sub.IsWin,
		Score:  sub.Score,
	})
	if err != nil {
		log.Info().
			Err(err).
			Int64("user_id", sub.UserID).
			Str("mode", sub.GameMode).
			Int("score", sub.Score).
			Msg("Submission rejected by policy")
		return rejected(err.Error()), nil
	}

	// Profile fields come from the verified claims; the unsigned body
	// copies are a fallback only.
	firstName := claims.User.FirstName
	if firstName == "" {
		firstName = sub.FirstName
	}
	username := claims.User.Username
	if username == "" {
		username = sub.Username
	}

	in := repository.ApplyInput{
		UserID:       claims.User.ID,
		FirstName:    firstName,
		LastName:     optional(claims.User.LastName),
		Username:     optional(username),
		LanguageCode: optional(claims.User.LanguageCode),
		IsPremium:    claims.User.IsPremium,
		Mode:         sub.GameMode,
		Rows:         sub.Rows,
		Cols:         sub.Cols,
		Mines:        sub.Mines,
		Score:        sub.Score,
		IsWin:        sub.IsWin,
		Suspicious:   verdict.Suspicious,
		RoundToken:   optional(sub.RoundToken),
	}

	if _, err := s.results.Apply(ctx, in); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserBlocked):
			return rejected(ReasonBlocked), nil
		case errors.Is(err, repository.ErrDuplicateRound):
			// The round is already durably recorded; a retry is a
			// success from the client's point of view.
			log.Debug().Int64("user_id", claims.User.ID).Msg("Duplicate round token, no-op")
			return Outcome{Accepted: true, Suspicious: verdict.Suspicious}, nil
		default:
			return rejected(ReasonInternal), fmt.Errorf("failed to apply submission: %w", err)
		}
	}

	metrics.RecordGame(sub.GameMode, sub.IsWin)

	log.Info().
		Int64("user_id", claims.User.ID).
		Str("mode", sub.GameMode).
		Bool("is_win", sub.IsWin).
		Int("score", sub.Score).
		Bool("suspicious", verdict.Suspicious).
		Msg("Game result recorded")

	return Outcome{Accepted: true, Suspicious: verdict.Suspicious}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
