// Package portfolio aggregates holdings across sources into enriched views,
// allocation breakdowns, and dated snapshots.
package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/Sheringkapoting/portfo-blend/internal/cache"
	"github.com/Sheringkapoting/portfo-blend/internal/common"
	"github.com/Sheringkapoting/portfo-blend/internal/interfaces"
	"github.com/Sheringkapoting/portfo-blend/internal/models"
)

// Service implements interfaces.PortfolioService.
type Service struct {
	storage interfaces.StorageManager
	broker  interfaces.BrokerClient
	cache   *cache.Store
	logger  *common.Logger
}

// NewService creates a portfolio service. broker may be nil when no broker
// client is configured; enrichment then uses persisted prices only.
func NewService(storage interfaces.StorageManager, broker interfaces.BrokerClient, cacheStore *cache.Store, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		broker:  broker,
		cache:   cacheStore,
		logger:  logger,
	}
}

// Holdings returns all of the user's holdings enriched with derived metrics.
// When a valid broker session exists, broker-sourced equity holdings are
// repriced with live quotes; quote failures fall back to persisted prices.
func (s *Service) Holdings(ctx context.Context, userID string) ([]models.EnrichedHolding, error) {
	holdings, err := s.storage.Holdings().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}
	return Enrich(holdings, s.liveQuotes(ctx, userID, holdings)), nil
}

// liveQuotes fetches last traded prices for broker-sourced holdings. Any
// failure is logged and an empty map returned; pricing must never fail a read.
func (s *Service) liveQuotes(ctx context.Context, userID string, holdings []models.Holding) map[string]float64 {
	if s.broker == nil {
		return nil
	}
	session, err := s.storage.Sessions().CurrentSession(ctx, userID)
	if err != nil || !session.ValidAt(time.Now()) {
		return nil
	}

	var symbols []string
	for _, h := range holdings {
		if h.Source == models.SourceKite {
			symbols = append(symbols, h.Symbol)
		}
	}
	if len(symbols) == 0 {
		return nil
	}

	quotes, err := s.broker.Quotes(ctx, session.AccessToken, symbols)
	if err != nil {
		s.logger.Warn().Err(err).Int("symbols", len(symbols)).Msg("Live quote fetch failed, using persisted prices")
		return nil
	}
	return quotes
}

// Summary returns the portfolio aggregate, served from the local cache when
// a fresh entry exists.
func (s *Service) Summary(ctx context.Context, userID string) (*models.PortfolioSummary, error) {
	if s.cache != nil {
		if summary, ok := s.cache.Get(userID); ok {
			s.logger.Debug().Str("user_id", userID).Msg("Summary served from cache")
			return summary, nil
		}
	}

	holdings, err := s.Holdings(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := Summarize(holdings)

	if s.cache != nil {
		if err := s.cache.Put(userID, summary); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to cache summary")
		}
	}
	return summary, nil
}

// Allocations returns the allocation breakdown for one dimension: type,
// sector, source, or amc.
func (s *Service) Allocations(ctx context.Context, userID, dimension string) ([]models.AllocationBucket, error) {
	keyFn := AllocationKey(dimension)
	if keyFn == nil {
		return nil, fmt.Errorf("unsupported allocation dimension '%s'", dimension)
	}
	holdings, err := s.Holdings(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Allocate(holdings, keyFn), nil
}

// CaptureSnapshot persists the portfolio aggregate for at's calendar date,
// replacing the per-source detail rows wholesale. Capturing twice on one
// date overwrites the aggregate and keeps the original CreatedAt. A filter
// restricts the capture to specific sources or asset types; nil captures
// everything.
func (s *Service) CaptureSnapshot(ctx context.Context, userID string, at time.Time, filter *models.SnapshotFilter) (*models.PortfolioSnapshot, error) {
	holdings, err := s.Holdings(ctx, userID)
	if err != nil {
		return nil, err
	}
	holdings = filterHoldings(holdings, filter)
	summary := Summarize(holdings)

	now := time.Now()
	snapshot := &models.PortfolioSnapshot{
		UserID:          userID,
		Date:            at.Format(models.SnapshotDateFormat),
		TotalInvestment: summary.TotalInvestment,
		CurrentValue:    summary.CurrentValue,
		TotalPnl:        summary.TotalPnl,
		PnlPercent:      summary.PnlPercent,
		HoldingsCount:   summary.HoldingsCount,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.storage.Snapshots().UpsertSnapshot(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to persist snapshot: %w", err)
	}

	details := snapshotDetails(userID, snapshot.Date, holdings)
	if err := s.storage.Snapshots().ReplaceDetails(ctx, userID, snapshot.Date, details); err != nil {
		return nil, fmt.Errorf("failed to persist snapshot details: %w", err)
	}

	s.logger.Info().Str("user_id", userID).Str("date", snapshot.Date).
		Int("holdings", snapshot.HoldingsCount).Int("details", len(details)).
		Msg("Snapshot captured")
	return snapshot, nil
}

// filterHoldings keeps the holdings passing the capture filter.
func filterHoldings(holdings []models.EnrichedHolding, filter *models.SnapshotFilter) []models.EnrichedHolding {
	if filter.Empty() {
		return holdings
	}
	kept := make([]models.EnrichedHolding, 0, len(holdings))
	for _, h := range holdings {
		if filter.Match(h.Source, h.Type) {
			kept = append(kept, h)
		}
	}
	return kept
}

// snapshotDetails groups enriched holdings into one detail row per
// (source, asset type) pair.
func snapshotDetails(userID, date string, holdings []models.EnrichedHolding) []models.SnapshotSourceDetail {
	type groupKey struct {
		source    string
		assetType models.AssetType
	}
	groups := make(map[groupKey]*models.SnapshotSourceDetail)
	order := make([]groupKey, 0)
	for _, h := range holdings {
		key := groupKey{source: h.Source, assetType: h.Type}
		d, ok := groups[key]
		if !ok {
			d = &models.SnapshotSourceDetail{
				UserID:    userID,
				Date:      date,
				Source:    h.Source,
				AssetType: h.Type,
			}
			groups[key] = d
			order = append(order, key)
		}
		d.InvestedValue += h.InvestedValue
		d.CurrentValue += h.CurrentValue
		d.HoldingsCount++
	}

	details := make([]models.SnapshotSourceDetail, 0, len(order))
	for _, key := range order {
		details = append(details, *groups[key])
	}
	return details
}

// LatestSnapshot returns the most recent snapshot with its detail rows.
func (s *Service) LatestSnapshot(ctx context.Context, userID string) (*models.PortfolioSnapshot, []models.SnapshotSourceDetail, error) {
	snapshot, err := s.storage.Snapshots().LatestSnapshot(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	details, err := s.storage.Snapshots().ListDetails(ctx, userID, snapshot.Date)
	if err != nil {
		return nil, nil, err
	}
	return snapshot, details, nil
}

// ListSnapshots returns recent snapshots, newest first.
func (s *Service) ListSnapshots(ctx context.Context, userID string, limit int) ([]models.PortfolioSnapshot, error) {
	return s.storage.Snapshots().ListSnapshots(ctx, userID, limit)
}

// Compile-time check
var _ interfaces.PortfolioService = (*Service)(nil)
