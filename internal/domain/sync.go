package domain

import "time"

// SyncStatus classifies the outcome of one refresh attempt.
type SyncStatus string

const (
	SyncUpdated    SyncStatus = "updated"
	SyncAbsent     SyncStatus = "absent"
	SyncTransient  SyncStatus = "transient"
	SyncUnexpected SyncStatus = "unexpected"
	SyncSkipped    SyncStatus = "skipped"
)

// SweepFailure records one non-updated entity visited by a sweep.
type SweepFailure struct {
	Address string     `json:"address"`
	Status  SyncStatus `json:"status"`
	Error   string     `json:"error,omitempty"`
}

// SweepReport tallies one full pass over the known markets. A sweep visits
// every entity regardless of individual failures, so the counts always sum
// to Total.
type SweepReport struct {
	ID         string         `json:"id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Total      int            `json:"total"`
	Updated    int            `json:"updated"`
	Absent     int            `json:"absent"`
	Transient  int            `json:"transient"`
	Unexpected int            `json:"unexpected"`
	Failures   []SweepFailure `json:"failures,omitempty"`
}
