package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/arenabets/arenasync/internal/domain"
)

// ClaimService defines the claim operations the handler needs.
type ClaimService interface {
	GetUserClaim(ctx context.Context, market, user string) (domain.ClaimView, error)
	RefreshUserClaim(ctx context.Context, market, user string) (domain.UserClaim, domain.SyncStatus, error)
}

// ClaimHandler serves per-user claim endpoints.
type ClaimHandler struct {
	claims ClaimService
	logger *slog.Logger
}

func NewClaimHandler(claims ClaimService, logger *slog.Logger) *ClaimHandler {
	return &ClaimHandler{claims: claims, logger: logger}
}

// GetClaim returns the user's claim tuple for one market, creating the
// mirror row lazily on first access.
// GET /api/markets/{address}/claims/{user}
func (h *ClaimHandler) GetClaim(w http.ResponseWriter, r *http.Request) {
	market := pathParam(r, "address")
	user := pathParam(r, "user")
	if market == "" || user == "" {
		writeError(w, http.StatusBadRequest, "missing market address or user")
		return
	}

	view, err := h.claims.GetUserClaim(r.Context(), market, user)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "claim not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get claim failed",
			slog.String("market", market),
			slog.String("user", user),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to read claim state")
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// RefreshClaim forces a synchronous refetch of one claim tuple.
// POST /api/markets/{address}/claims/{user}/refresh
func (h *ClaimHandler) RefreshClaim(w http.ResponseWriter, r *http.Request) {
	market := pathParam(r, "address")
	user := pathParam(r, "user")
	if market == "" || user == "" {
		writeError(w, http.StatusBadRequest, "missing market address or user")
		return
	}

	claim, status, err := h.claims.RefreshUserClaim(r.Context(), market, user)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: refresh claim failed",
			slog.String("market", market),
			slog.String("user", user),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "refresh failed")
		return
	}
	if status == domain.SyncAbsent {
		writeError(w, http.StatusNotFound, "no contract deployed at address")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": status,
		"claim":  claim,
	})
}
