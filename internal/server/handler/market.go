package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/arenabets/arenasync/internal/domain"
)

// MarketService defines what the market handler needs from the service layer.
type MarketService interface {
	GetMarket(ctx context.Context, address string) (domain.MarketView, error)
	ListLatest(ctx context.Context) ([]domain.MarketSnapshot, domain.BatchID, error)
	ForceRefresh(ctx context.Context, address string) (domain.MarketSnapshot, domain.SyncStatus, error)
	CloseMarket(ctx context.Context, address string) (string, domain.MarketSnapshot, error)
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{markets: markets, logger: logger}
}

type listMarketsResponse struct {
	Markets []domain.MarketSnapshot `json:"markets"`
	Batch   domain.BatchID          `json:"batch"`
	Count   int                     `json:"count"`
}

// ListMarkets returns every market of the current deployment batch.
// GET /api/markets
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	markets, batch, err := h.markets.ListLatest(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list markets")
		return
	}

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: markets,
		Batch:   batch,
		Count:   len(markets),
	})
}

// GetMarket returns a single market snapshot with serving metadata.
// GET /api/markets/{address}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	address := pathParam(r, "address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "missing market address")
		return
	}

	view, err := h.markets.GetMarket(r.Context(), address)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get market failed",
			slog.String("address", address),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to read market state")
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// RefreshMarket forces a synchronous refetch of one market.
// POST /api/markets/{address}/refresh
func (h *MarketHandler) RefreshMarket(w http.ResponseWriter, r *http.Request) {
	address := pathParam(r, "address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "missing market address")
		return
	}

	snap, status, err := h.markets.ForceRefresh(r.Context(), address)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: refresh market failed",
			slog.String("address", address),
			slog.String("status", string(status)),
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
		"market": snap,
	})
}

// CloseMarket submits the market-close transaction and refreshes the mirror
// once it lands.
// POST /api/markets/{address}/close
func (h *MarketHandler) CloseMarket(w http.ResponseWriter, r *http.Request) {
	address := pathParam(r, "address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "missing market address")
		return
	}

	txHash, snap, err := h.markets.CloseMarket(r.Context(), address)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			writeError(w, http.StatusForbidden, "no operator key configured")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: close market failed",
			slog.String("address", address),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "close failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tx_hash": txHash,
		"market":  snap,
	})
}
