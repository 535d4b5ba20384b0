package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/arenabets/arenasync/internal/domain"
)

// ReportArchiver uploads finished sweep reports to cold storage so a
// sweep's tally survives the process that produced it.
type ReportArchiver struct {
	blobs  domain.BlobWriter
	logger *slog.Logger
}

// NewReportArchiver creates a ReportArchiver. A nil writer disables
// archival; Archive becomes a no-op.
func NewReportArchiver(blobs domain.BlobWriter, logger *slog.Logger) *ReportArchiver {
	return &ReportArchiver{blobs: blobs, logger: logger}
}

// Archive writes the report as JSON under sweeps/YYYY/MM/DD/<id>.json.
func (a *ReportArchiver) Archive(ctx context.Context, report domain.SweepReport) error {
	if a.blobs == nil {
		return nil
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding sweep report %s: %w", report.ID, err)
	}

	key := fmt.Sprintf("sweeps/%s/%s.json", report.StartedAt.UTC().Format("2006/01/02"), report.ID)
	if err := a.blobs.Put(ctx, key, bytes.NewReader(payload), "application/json"); err != nil {
		return fmt.Errorf("uploading sweep report to %s: %w", key, err)
	}

	a.logger.Info("archived sweep report",
		slog.String("key", key),
		slog.Int("total", report.Total),
	)
	return nil
}
