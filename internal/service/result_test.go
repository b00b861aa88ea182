package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minesweeper-bot/internal/game"
	"minesweeper-bot/internal/initdata"
	"minesweeper-bot/internal/model"
	"minesweeper-bot/internal/repository"
)

const testBotToken = "12345:test-token"

type fakeStore struct {
	applied []repository.ApplyInput
	err     error
}

func (f *fakeStore) Apply(_ context.Context, in repository.ApplyInput) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.applied = append(f.applied, in)
	user := &model.User{ID: in.UserID, FirstName: in.FirstName}
	user.ApplyGameResult(in.IsWin)
	return user, nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, int64) (bool, error) { return false, nil }

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, int64) (bool, error) {
	return false, errors.New("redis unavailable")
}

func signedInitData(t *testing.T, verifier *initdata.Verifier, userID int64) string {
	t.Helper()
	fields := url.Values{}
	fields.Set("user", fmt.Sprintf(`{"id":%d,"first_name":"Alice","username":"alice"}`, userID))
	fields.Set("auth_date", fmt.Sprintf("%d", time.Now().Unix()))
	fields.Set("query_id", "AAE1")
	return verifier.Sign(fields)
}

func beginnerWin(initData string, userID int64, score int) Submission {
	return Submission{
		InitData:  initData,
		UserID:    userID,
		Score:     score,
		IsWin:     true,
		FirstName: "Alice",
		GameMode:  game.ModeBeginner,
		Rows:      9,
		Cols:      9,
		Mines:     10,
	}
}

func TestSubmit_Accepted(t *testing.T) {
	verifier := initdata.New(testBotToken, 24*time.Hour)
	store := &fakeStore{}
	svc := NewResultService(verifier, game.DefaultValidator(), store, nil)

	outcome, err := svc.Submit(context.Background(), beginnerWin(signedInitData(t, verifier, 42), 42, 120))

	require.NoError(t, err)
	assert.True(t, outcome.Accepted)
	assert.False(t, outcome.Suspicious)

	require.Len(t, store.applied, 1)
	in := store.applied[0]
	assert.Equal(t, int64(42), in.UserID)
	assert.Equal(t, "Alice", in.FirstName)
	require.NotNil(t, in.Username)
	assert.Equal(t, "alice", *in.Username)
	assert.True(t, in.IsWin)
}

func TestSubmit_InvalidSignatureSkipsStore(t *testing.T) {
	verifier := initdata.New(testBotToken, 24*time.Hour)
	store := &fakeStore{}
	svc := NewResultService(verifier, game.DefaultValidator(), store, nil)

	forged := initdata.New("999:other-token", 0)
	outcome, err := svc.Submit(context.Background(), beginnerWin(signedInitData(t, forged, 42), 42, 120))

	require.NoError(t, err)
	assert.False(t, outcome.Accepted)
	assert.Equal(t, ReasonInvalidSignature, outcome.Reason)
	assert.Empty(t, store.applied)
}

func TestSubmit_IdentityMismatch(t *testing.T) {
	verifier := initdata.New(testBotToken, 24*time.Hour)
	store := &fakeStore{}
	svc := NewResultService(verifier, game.DefaultValidator(), store, nil)

	// Signed as user 42, claimed as user 7
	outcome, err := svc.Submit(context.Background(), beginnerWin(signedInitData(t, verifier, 42), 7, 120))

	require.NoError(t, err)
	assert.False(t, outcome.Accepted)
	assert.Equal(t, game.ErrIdentityMismatch.Error(), outcome.Reason)
	assert.Empty(t, store.applied)
}

func TestSubmit_PolicyRejection(t *testing.T) {
	verifier := initdata.New(testBotToken, 24*time.Hour)
	store := &fakeStore{}
	svc := NewResultService(verifier, game.DefaultValidator(), store, nil)

	outcome, err := svc.Submit(context.Background(), beginnerWin(signedInitData(t, verifier, 42), 42, 2))

	require.NoError(t, err)
	assert.False(t, outcome.Accepted)
	assert.Equal(t, game.ErrTimeTooShort.Error(), outcome.Reason)
	assert.Empty(t, store.applied)
}

func TestSubmit_SuspiciousExpertWin(t *testing.T) {
	verifier := initdata.New(testBotToken, 24*time.Hour)
	store := &fakeStore{}
	svc := NewResultService(verifier, game.DefaultValidator(), store, nil)

	sub := Submission{
		InitData:  signedInitData(t, verifier, 42),
		UserID:    42,
		Score:     25,
		IsWin:     true,
		FirstName: "Alice",
		GameMode:  game.ModeExpert,
		Rows:      16,
		Cols:      30,
		Mines:     99,
	}
	outcome, err := svc.Submit(context.Background(), sub)

	require.NoError(t, err)
	assert.True(t, outcome.Accepted)
	assert.True(t, outcome.Suspicious)
	require.Len(t, store.applied, 1)
	assert.True(t, store.applied[0].Suspicious)
}

func TestSubmit_BlockedUser(t *testing.T) {
	verifier := initdata.New(testBotToken, 24*time.Hour)
	store := &fakeStore{err: repository.ErrUserBlocked}
	svc := NewResultService(verifier, game.DefaultValidator(), store, nil)

	outcome, err := svc.Submit(context.Background(), beginnerWin(signedInitData(t, verifier, 42), 42, 120))

	require.NoError(t, err)
	assert.False(t, outcome.Accepted)
	assert.Equal(t, ReasonBlocked, outcome.Reason)
}

func TestSubmit_DuplicateRoundIsSuccess(t *testing.T) {
	verifier := initdata.New(testBotToken, 24*time.Hour)
	store := &fakeStore{err: repository.ErrDuplicateRound}
	svc := NewResultService(verifier, game.DefaultValidator(), store, nil)

	outcome, err := svc.Submit(context.Background(), beginnerWin(signedInitData(t, verifier, 42), 42, 120))

	require.NoError(t, err)
	assert.True(t, outcome.Accepted)
}

func TestSubmit_StoreFailure(t *testing.T) {
	verifier := initdata.New(testBotToken, 24*time.Hour)
	store := &fakeStore{err: errors.New("connection reset")}
	svc := NewResultService(verifier, game.DefaultValidator(), store, nil)

	outcome, err := svc.Submit(context.Background(), beginnerWin(signedInitData(t, verifier, 42), 42, 120))

	require.Error(t, err)
	assert.False(t, outcome.Accepted)
	assert.Equal(t, ReasonInternal, outcome.Reason)
}

func TestSubmit_RateLimited(t *testing.T) {
	verifier := initdata.New(testBotToken, 24*time.Hour)
	store := &fakeStore{}
	svc := NewResultService(verifier, game.DefaultValidator(), store, denyLimiter{})

	outcome, err := svc.Submit(context.Background(), beginnerWin(signedInitData(t, verifier, 42), 42, 120))

	require.NoError(t, err)
	assert.False(t, outcome.Accepted)
	assert.Equal(t, ReasonRateLimited, outcome.Reason)
	assert.Empty(t, store.applied)
}

func TestSubmit_LimiterFailureFailsOpen(t *testing.T) {
	verifier := initdata.New(testBotToken, 24*time.Hour)
	store := &fakeStore{}
	svc := NewResultService(verifier, game.DefaultValidator(), store, brokenLimiter{})

	outcome, err := svc.Submit(context.Background(), beginnerWin(signedInitData(t, verifier, 42), 42, 120))

	require.NoError(t, err)
	assert.True(t, outcome.Accepted)
	require.Len(t, store.applied, 1)
}
