package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arenabets/arenasync/internal/batch"
	"github.com/arenabets/arenasync/internal/domain"
)

// ImportReport summarises one deployment import.
type ImportReport struct {
	Batch    domain.BatchID `json:"batch"`
	Imported int            `json:"imported"`
	Skipped  []string       `json:"skipped,omitempty"`
	Failed   []string       `json:"failed,omitempty"`
}

// deploymentManifest is the JSON document describing one deployment batch.
type deploymentManifest struct {
	Markets []string `json:"markets"`
}

// ImportService creates market snapshots from deployment manifests. Each
// import is assigned (today, nextIndex) computed fresh on the call; the
// unlocked index computation can collide under concurrent imports, which is
// harmless for markets because rows are keyed by contract address.
type ImportService struct {
	fetcher domain.StateFetcher
	markets domain.MarketStore
	batches *batch.Manager
	blobs   domain.BlobReader // nil when object storage is not configured
	logger  *slog.Logger
}

// NewImportService creates an ImportService.
func NewImportService(
	fetcher domain.StateFetcher,
	markets domain.MarketStore,
	batches *batch.Manager,
	blobs domain.BlobReader,
	logger *slog.Logger,
) *ImportService {
	return &ImportService{
		fetcher: fetcher,
		markets: markets,
		batches: batches,
		blobs:   blobs,
		logger:  logger.With(slog.String("component", "import_service")),
	}
}

// ImportDeployments fetches each address and stores its snapshot under a
// freshly assigned batch. Addresses absent on the ledger are skipped, not
// stored; individual failures never abort the import.
func (s *ImportService) ImportDeployments(ctx context.Context, addresses []string) (ImportReport, error) {
	now := time.Now().UTC()
	next, err := s.batches.NextIndex(ctx, batch.KindMarkets, now)
	if err != nil {
		return ImportReport{}, fmt.Errorf("import_service: next index: %w", err)
	}
	report := ImportReport{Batch: domain.NewBatchID(now, next)}

	for _, address := range addresses {
		state, err := s.fetcher.FetchMarket(ctx, address)
		if err != nil {
			if errors.Is(err, domain.ErrAbsentEntity) {
				s.logger.WarnContext(ctx, "manifest entry absent on ledger, skipping",
					slog.String("market", address),
				)
				report.Skipped = append(report.Skipped, address)
				continue
			}
			s.logger.ErrorContext(ctx, "import fetch failed",
				slog.String("market", address),
				slog.String("error", err.Error()),
			)
			report.Failed = append(report.Failed, address)
			continue
		}

		snap := domain.MarketSnapshot{
			Address:      address,
			Phase:        state.Phase,
			PoolA:        state.PoolA,
			PoolB:        state.PoolB,
			Winner:       state.Winner,
			LockTime:     state.LockTime,
			ResolveTime:  state.ResolveTime,
			LastSyncedAt: time.Now().UTC(),
			Batch:        report.Batch,
		}
		if err := s.markets.Upsert(ctx, snap); err != nil {
			s.logger.ErrorContext(ctx, "import upsert failed",
				slog.String("market", address),
				slog.String("error", err.Error()),
			)
			report.Failed = append(report.Failed, address)
			continue
		}
		report.Imported++
	}

	s.logger.InfoContext(ctx, "deployment import finished",
		slog.String("batch", report.Batch.String()),
		slog.Int("imported", report.Imported),
		slog.Int("skipped", len(report.Skipped)),
		slog.Int("failed", len(report.Failed)),
	)
	return report, nil
}

// ImportFromManifest loads a JSON manifest from object storage and imports
// the markets it lists.
func (s *ImportService) ImportFromManifest(ctx context.Context, key string) (ImportReport, error) {
	if s.blobs == nil {
		return ImportReport{}, fmt.Errorf("import_service: manifest %s: object storage not configured", key)
	}

	body, err := s.blobs.Get(ctx, key)
	if err != nil {
		return ImportReport{}, fmt.Errorf("import_service: manifest %s: %w", key, err)
	}
	defer body.Close()

	var manifest deploymentManifest
	if err := json.NewDecoder(body).Decode(&manifest); err != nil {
		return ImportReport{}, fmt.Errorf("import_service: decode manifest %s: %w", key, err)
	}
	if len(manifest.Markets) == 0 {
		return ImportReport{}, fmt.Errorf("import_service: manifest %s lists no markets", key)
	}

	return s.ImportDeployments(ctx, manifest.Markets)
}
