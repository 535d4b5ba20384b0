package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/arenabets/arenasync/internal/domain"
)

const maxWebhookBody = 1 << 20 // 1 MiB

// LeaderboardService defines the leaderboard operations the handler needs.
type LeaderboardService interface {
	Latest(ctx context.Context) ([]domain.LeaderboardEntry, domain.BatchID, error)
	Submit(ctx context.Context, date time.Time, index *int, entries []domain.LeaderboardEntry) (domain.BatchID, error)
}

// SignatureVerifier checks webhook payload signatures.
type SignatureVerifier interface {
	Verify(body []byte, signature string) bool
}

// LeaderboardHandler serves the leaderboard read endpoint and the signed
// snapshot-submission webhook.
type LeaderboardHandler struct {
	boards   LeaderboardService
	verifier SignatureVerifier
	logger   *slog.Logger
}

// NewLeaderboardHandler creates a LeaderboardHandler. A nil verifier
// disables the webhook; submissions are rejected outright.
func NewLeaderboardHandler(boards LeaderboardService, verifier SignatureVerifier, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{boards: boards, verifier: verifier, logger: logger}
}

type leaderboardResponse struct {
	Entries []domain.LeaderboardEntry `json:"entries"`
	Batch   domain.BatchID            `json:"batch"`
}

// GetLatest returns the current leaderboard snapshot. An empty board is a
// valid response, not an error.
// GET /api/leaderboard
func (h *LeaderboardHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	entries, batch, err := h.boards.Latest(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get leaderboard failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read leaderboard")
		return
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}

	writeJSON(w, http.StatusOK, leaderboardResponse{Entries: entries, Batch: batch})
}

type submitRequest struct {
	Date    string                    `json:"date,omitempty"`
	Index   *int                      `json:"index,omitempty"`
	Entries []domain.LeaderboardEntry `json:"entries"`
}

// Submit stores a new leaderboard snapshot. The raw body must carry a valid
// HMAC in the X-Signature header. Resubmitting with an explicit index
// replaces that batch, making webhook retries idempotent.
// POST /api/leaderboard
func (h *LeaderboardHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.verifier == nil {
		writeError(w, http.StatusForbidden, "webhook not configured")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if !h.verifier.Verify(body, r.Header.Get("X-Signature")) {
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var req submitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Entries) == 0 {
		writeError(w, http.StatusBadRequest, "entries must not be empty")
		return
	}

	date := time.Now().UTC()
	if req.Date != "" {
		date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	}

	batch, err := h.boards.Submit(r.Context(), date, req.Index, req.Entries)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRanks) {
			writeError(w, http.StatusBadRequest, "ranks must form a permutation of 1..N")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: leaderboard submit failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to store snapshot")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"batch": batch,
		"count": len(req.Entries),
	})
}
