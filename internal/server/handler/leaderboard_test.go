package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenabets/arenasync/internal/crypto"
	"github.com/arenabets/arenasync/internal/domain"
)

type boardStub struct {
	entries   []domain.LeaderboardEntry
	lastDate  time.Time
	lastIndex *int
	submitErr error
}

func (s *boardStub) Latest(ctx context.Context) ([]domain.LeaderboardEntry, domain.BatchID, error) {
	return s.entries, domain.NewBatchID(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), 0), nil
}

func (s *boardStub) Submit(ctx context.Context, date time.Time, index *int, entries []domain.LeaderboardEntry) (domain.BatchID, error) {
	if s.submitErr != nil {
		return domain.BatchID{}, s.submitErr
	}
	s.entries = entries
	s.lastDate = date
	s.lastIndex = index
	return domain.NewBatchID(date, 0), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func submitBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"date": "2025-01-15",
		"entries": []domain.LeaderboardEntry{
			{Rank: 1, Name: "alpha", Score: 10},
			{Rank: 2, Name: "beta", Score: 5},
		},
	})
	require.NoError(t, err)
	return body
}

func TestSubmitAcceptsSignedPayload(t *testing.T) {
	verifier := crypto.NewWebhookVerifier("hunter2", "pepper")
	board := &boardStub{}
	h := NewLeaderboardHandler(board, verifier, discardLogger())

	body := submitBody(t)
	req := httptest.NewRequest(http.MethodPost, "/api/leaderboard", bytes.NewReader(body))
	req.Header.Set("X-Signature", verifier.Sign(body))
	rec := httptest.NewRecorder()

	h.Submit(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, board.entries, 2)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), board.lastDate)
}

func TestSubmitRejectsBadSignature(t *testing.T) {
	verifier := crypto.NewWebhookVerifier("hunter2", "pepper")
	board := &boardStub{}
	h := NewLeaderboardHandler(board, verifier, discardLogger())

	body := submitBody(t)
	req := httptest.NewRequest(http.MethodPost, "/api/leaderboard", bytes.NewReader(body))
	req.Header.Set("X-Signature", "deadbeef")
	rec := httptest.NewRecorder()

	h.Submit(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, board.entries)
}

func TestSubmitRejectsTamperedBody(t *testing.T) {
	verifier := crypto.NewWebhookVerifier("hunter2", "pepper")
	h := NewLeaderboardHandler(&boardStub{}, verifier, discardLogger())

	body := submitBody(t)
	sig := verifier.Sign(body)
	tampered := bytes.Replace(body, []byte(`"score":10`), []byte(`"score":99`), 1)

	req := httptest.NewRequest(http.MethodPost, "/api/leaderboard", bytes.NewReader(tampered))
	req.Header.Set("X-Signature", sig)
	rec := httptest.NewRecorder()

	h.Submit(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitWithoutVerifierIsDisabled(t *testing.T) {
	h := NewLeaderboardHandler(&boardStub{}, nil, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/leaderboard", bytes.NewReader(submitBody(t)))
	rec := httptest.NewRecorder()

	h.Submit(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSubmitSurfacesInvalidRanks(t *testing.T) {
	verifier := crypto.NewWebhookVerifier("hunter2", "pepper")
	board := &boardStub{submitErr: domain.ErrInvalidRanks}
	h := NewLeaderboardHandler(board, verifier, discardLogger())

	body := submitBody(t)
	req := httptest.NewRequest(http.MethodPost, "/api/leaderboard", bytes.NewReader(body))
	req.Header.Set("X-Signature", verifier.Sign(body))
	rec := httptest.NewRecorder()

	h.Submit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetLatestEmptyBoard(t *testing.T) {
	h := NewLeaderboardHandler(&boardStub{}, nil, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)
	rec := httptest.NewRecorder()

	h.GetLatest(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp leaderboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Entries)
	assert.Empty(t, resp.Entries)
}
