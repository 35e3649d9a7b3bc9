package models

import "time"

// SyncStatus is the outcome of one synchronization attempt.
type SyncStatus string

const (
	SyncStatusSuccess      SyncStatus = "success"
	SyncStatusFailure      SyncStatus = "failure"
	SyncStatusDisconnected SyncStatus = "disconnected"
)

// Well-known source names. Source is free-form on Holding but the built-in
// connectors always write these values.
const (
	SourceKite      = "kite"
	SourceUpload    = "upload"
	SourceMFCentral = "mfcentral"
)

// SyncLogEntry is one append-only record per synchronization attempt per
// source. Entries are never mutated; disconnect bookkeeping appends a
// "disconnected" entry rather than rewriting history.
type SyncLogEntry struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Source        string     `json:"source"`
	Status        SyncStatus `json:"status"`
	HoldingsCount int        `json:"holdings_count,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// SourceHealthStatus classifies the freshness of a source's data.
type SourceHealthStatus string

const (
	HealthFresh  SourceHealthStatus = "fresh"  // last success < 1 day old
	HealthRecent SourceHealthStatus = "recent" // 1-7 days
	HealthStale  SourceHealthStatus = "stale"  // > 7 days or never synced
)

// SourceHealth is the derived freshness view for one source.
type SourceHealth struct {
	Source        string             `json:"source"`
	Status        SourceHealthStatus `json:"status"`
	LastSyncedAt  *time.Time         `json:"last_synced_at,omitempty"`
	HoldingsCount int                `json:"holdings_count"`
}
