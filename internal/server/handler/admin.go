package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/arenabets/arenasync/internal/batch"
	"github.com/arenabets/arenasync/internal/domain"
	"github.com/arenabets/arenasync/internal/service"
)

// SweepRunner triggers a full synchronous sweep.
type SweepRunner interface {
	Sweep(ctx context.Context) domain.SweepReport
}

// ImportRunner imports deployment batches, inline or from a stored manifest.
type ImportRunner interface {
	ImportDeployments(ctx context.Context, addresses []string) (service.ImportReport, error)
	ImportFromManifest(ctx context.Context, key string) (service.ImportReport, error)
}

// SeedRunner installs the configured initial leaderboard.
type SeedRunner interface {
	Seed(ctx context.Context) (domain.BatchID, error)
}

// BatchResetter clears one versioned collection.
type BatchResetter interface {
	Reset(ctx context.Context, kind batch.Kind) error
}

// AdminHandler serves operational endpoints: sweeps, imports, seeding, and
// collection resets. All routes sit behind the API-key middleware.
type AdminHandler struct {
	sweeps   SweepRunner
	imports  ImportRunner
	seeder   SeedRunner
	resetter BatchResetter
	logger   *slog.Logger
}

func NewAdminHandler(
	sweeps SweepRunner,
	imports ImportRunner,
	seeder SeedRunner,
	resetter BatchResetter,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		sweeps:   sweeps,
		imports:  imports,
		seeder:   seeder,
		resetter: resetter,
		logger:   logger,
	}
}

// TriggerSweep runs a full sweep synchronously and returns its report.
// POST /api/admin/sweep
func (h *AdminHandler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	report := h.sweeps.Sweep(r.Context())
	writeJSON(w, http.StatusOK, report)
}

type importRequest struct {
	Addresses   []string `json:"addresses,omitempty"`
	ManifestKey string   `json:"manifest_key,omitempty"`
}

// Import registers a new deployment batch from an inline address list or a
// manifest stored in object storage.
// POST /api/admin/import
func (h *AdminHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Addresses) == 0 && req.ManifestKey == "" {
		writeError(w, http.StatusBadRequest, "addresses or manifest_key required")
		return
	}

	var (
		report service.ImportReport
		err    error
	)
	if req.ManifestKey != "" {
		report, err = h.imports.ImportFromManifest(r.Context(), req.ManifestKey)
	} else {
		report, err = h.imports.ImportDeployments(r.Context(), req.Addresses)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "manifest not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: import failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "import failed")
		return
	}

	writeJSON(w, http.StatusCreated, report)
}

// SeedLeaderboard installs the configured initial board with zero scores.
// POST /api/admin/leaderboard/seed
func (h *AdminHandler) SeedLeaderboard(w http.ResponseWriter, r *http.Request) {
	batchID, err := h.seeder.Seed(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: leaderboard seed failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "seed failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"batch": batchID})
}

// Reset clears one versioned collection so indexing restarts at zero.
// POST /api/admin/reset/{kind}
func (h *AdminHandler) Reset(w http.ResponseWriter, r *http.Request) {
	kind := batch.Kind(pathParam(r, "kind"))
	if kind != batch.KindMarkets && kind != batch.KindLeaderboard {
		writeError(w, http.StatusBadRequest, "kind must be markets or leaderboard")
		return
	}

	if err := h.resetter.Reset(r.Context(), kind); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: reset failed",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "reset failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared", "kind": string(kind)})
}
