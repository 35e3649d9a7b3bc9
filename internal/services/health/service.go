// Package health derives per-source sync freshness from the sync log and the
// current holdings ledger.
package health

import (
	"context"
	"time"

	"github.com/Sheringkapoting/portfo-blend/internal/common"
	"github.com/Sheringkapoting/portfo-blend/internal/interfaces"
	"github.com/Sheringkapoting/portfo-blend/internal/models"
)

// trackedSources is the fixed report order.
var trackedSources = []string{models.SourceKite, models.SourceUpload, models.SourceMFCentral}

// Service implements interfaces.HealthService.
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
	now     func() time.Time
}

// NewService creates a health service.
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{storage: storage, logger: logger, now: time.Now}
}

// Classify maps a last-success age onto a freshness band. A nil time means
// the source has never synced and is stale.
func Classify(lastSyncedAt *time.Time, now time.Time) models.SourceHealthStatus {
	if lastSyncedAt == nil {
		return models.HealthStale
	}
	age := now.Sub(*lastSyncedAt)
	switch {
	case age < common.FreshnessFresh:
		return models.HealthFresh
	case age < common.FreshnessRecent:
		return models.HealthRecent
	default:
		return models.HealthStale
	}
}

// Report returns the freshness view for every tracked source.
func (s *Service) Report(ctx context.Context, userID string) ([]models.SourceHealth, error) {
	now := s.now()
	report := make([]models.SourceHealth, 0, len(trackedSources))
	for _, source := range trackedSources {
		entry, err := s.storage.SyncLog().LatestSuccess(ctx, userID, source)
		if err != nil {
			return nil, err
		}

		holdings, err := s.storage.Holdings().ListBySource(ctx, userID, source)
		if err != nil {
			return nil, err
		}

		var lastSyncedAt *time.Time
		if entry != nil {
			t := entry.CreatedAt
			lastSyncedAt = &t
		}
		report = append(report, models.SourceHealth{
			Source:        source,
			Status:        Classify(lastSyncedAt, now),
			LastSyncedAt:  lastSyncedAt,
			HoldingsCount: len(holdings),
		})
	}
	return report, nil
}

// Compile-time check
var _ interfaces.HealthService = (*Service)(nil)
