// Package interfaces defines service contracts for the portfolio sync service.
package interfaces

import (
	"context"

	"github.com/Sheringkapoting/portfo-blend/internal/models"
)

// StorageManager coordinates all storage backends.
type StorageManager interface {
	Sessions() SessionStore
	Holdings() HoldingStore
	SyncLog() SyncLogStore
	Snapshots() SnapshotStore
	MutualFunds() MutualFundStore

	// System key-value (non-user-scoped)
	GetSystemKV(ctx context.Context, key string) (string, error)
	SetSystemKV(ctx context.Context, key, value string) error

	Close() error
}

// SessionStore manages broker OAuth sessions. At most one row is treated as
// logically current per user: the one with the most recent CreatedAt.
type SessionStore interface {
	SaveSession(ctx context.Context, session *models.BrokerSession) error
	// CurrentSession returns the most recently created session for the user,
	// or an error when none exists. Expired rows are returned as-is; validity
	// is the caller's concern.
	CurrentSession(ctx context.Context, userID string) (*models.BrokerSession, error)
	// OrphanSession returns the most recently created session with no owning
	// user yet, or an error when none exists.
	OrphanSession(ctx context.Context) (*models.BrokerSession, error)
	// AssociateSession sets the owning user on a previously orphaned session.
	AssociateSession(ctx context.Context, sessionID, userID string) error
	// DeleteSessions removes all session rows for the user and returns the count.
	DeleteSessions(ctx context.Context, userID string) (int, error)
}

// HoldingStore manages the current holdings ledger. A source's rows are
// replaced wholesale on every successful sync; readers never observe a
// partial replacement.
type HoldingStore interface {
	ReplaceSource(ctx context.Context, userID, source string, holdings []models.Holding) error
	ListByUser(ctx context.Context, userID string) ([]models.Holding, error)
	ListBySource(ctx context.Context, userID, source string) ([]models.Holding, error)
	DeleteSource(ctx context.Context, userID, source string) (int, error)
}

// SyncLogStore manages the append-only synchronization log.
type SyncLogStore interface {
	Append(ctx context.Context, entry *models.SyncLogEntry) error
	// LatestSuccess returns the most recent success entry for the source, or
	// nil (no error) when the source has never synced successfully.
	LatestSuccess(ctx context.Context, userID, source string) (*models.SyncLogEntry, error)
	List(ctx context.Context, userID string, limit int) ([]models.SyncLogEntry, error)
}

// SnapshotStore manages dated portfolio snapshots and their per-source
// detail rows.
type SnapshotStore interface {
	// UpsertSnapshot creates or overwrites the snapshot for its (user, date)
	// key, preserving CreatedAt on overwrite.
	UpsertSnapshot(ctx context.Context, snapshot *models.PortfolioSnapshot) error
	GetSnapshot(ctx context.Context, userID, date string) (*models.PortfolioSnapshot, error)
	LatestSnapshot(ctx context.Context, userID string) (*models.PortfolioSnapshot, error)
	ListSnapshots(ctx context.Context, userID string, limit int) ([]models.PortfolioSnapshot, error)
	// ReplaceDetails deletes then reinserts all detail rows for the snapshot.
	ReplaceDetails(ctx context.Context, userID, date string, details []models.SnapshotSourceDetail) error
	ListDetails(ctx context.Context, userID, date string) ([]models.SnapshotSourceDetail, error)
}

// MutualFundStore manages OTP sync attempts and the decomposed statement data.
type MutualFundStore interface {
	SaveSync(ctx context.Context, sync *models.MFCASSync) error
	GetSync(ctx context.Context, syncID string) (*models.MFCASSync, error)
	// ReplaceStatement atomically replaces the user's folios, transactions,
	// and scheme summaries with the decomposition of a freshly fetched
	// statement.
	ReplaceStatement(ctx context.Context, userID string, folios []models.MFFolio, txns []models.MFTransaction, summaries []models.MFSchemeSummary) error
	ListFolios(ctx context.Context, userID string) ([]models.MFFolio, error)
	ListTransactions(ctx context.Context, userID string) ([]models.MFTransaction, error)
	ListSchemeSummaries(ctx context.Context, userID string) ([]models.MFSchemeSummary, error)
}
