package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/arenabets/arenasync/internal/domain"
)

// BalanceService defines the balance operations the handler needs.
type BalanceService interface {
	GetUserBalance(ctx context.Context, user string) (domain.BalanceView, error)
}

// BalanceHandler serves stake-token balance endpoints.
type BalanceHandler struct {
	balances BalanceService
	logger   *slog.Logger
}

func NewBalanceHandler(balances BalanceService, logger *slog.Logger) *BalanceHandler {
	return &BalanceHandler{balances: balances, logger: logger}
}

// GetBalance returns the user's mirrored stake-token balance.
// GET /api/balances/{user}
func (h *BalanceHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	user := pathParam(r, "user")
	if user == "" {
		writeError(w, http.StatusBadRequest, "missing user address")
		return
	}

	view, err := h.balances.GetUserBalance(r.Context(), user)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "balance not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get balance failed",
			slog.String("user", user),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to read balance")
		return
	}

	writeJSON(w, http.StatusOK, view)
}
