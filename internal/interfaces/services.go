package interfaces

import (
	"context"
	"io"
	"time"

	"github.com/Sheringkapoting/portfo-blend/internal/models"
)

// BrokerService manages the broker OAuth session lifecycle and holding syncs.
type BrokerService interface {
	LoginURL(userID string) (string, error)
	SessionStatus(ctx context.Context, userID string) (*models.SessionStatus, error)
	HandleCallback(ctx context.Context, state, requestToken string) (*models.BrokerSession, error)
	Sync(ctx context.Context, userID string) (int, error)
	SyncWithRetry(ctx context.Context, userID string) (int, error)
	Disconnect(ctx context.Context, userID string) error
}

// MFCASService drives the OTP-gated mutual fund statement flow.
type MFCASService interface {
	StartSync(ctx context.Context, userID, pan string, method models.OTPMethod, phone, email string) (*models.MFCASSync, error)
	SubmitOTP(ctx context.Context, userID, syncID, otp string) (*models.MFCASSync, error)
	FetchCAS(ctx context.Context, userID, syncID string) (*models.MFCASSync, error)
	SyncStatus(ctx context.Context, userID, syncID string) (*models.MFCASSync, error)
}

// UploadService ingests spreadsheet holding files.
type UploadService interface {
	Process(ctx context.Context, userID, filename string, size int64, r io.Reader, progress func(models.UploadProgress)) (*models.UploadResult, error)
}

// PortfolioService aggregates holdings across sources.
type PortfolioService interface {
	Summary(ctx context.Context, userID string) (*models.PortfolioSummary, error)
	Holdings(ctx context.Context, userID string) ([]models.EnrichedHolding, error)
	Allocations(ctx context.Context, userID, dimension string) ([]models.AllocationBucket, error)
	CaptureSnapshot(ctx context.Context, userID string, at time.Time, filter *models.SnapshotFilter) (*models.PortfolioSnapshot, error)
	LatestSnapshot(ctx context.Context, userID string) (*models.PortfolioSnapshot, []models.SnapshotSourceDetail, error)
	ListSnapshots(ctx context.Context, userID string, limit int) ([]models.PortfolioSnapshot, error)
}

// HealthService reports per-source sync freshness.
type HealthService interface {
	Report(ctx context.Context, userID string) ([]models.SourceHealth, error)
}
