package models

import (
	"slices"
	"time"
)

// SnapshotDateFormat is the calendar-date key for PortfolioSnapshot rows.
const SnapshotDateFormat = "2006-01-02"

// PortfolioSnapshot is a persisted, dated aggregate of the portfolio. At most
// one row exists per user per calendar date; repeated captures the same day
// upsert rather than duplicate.
type PortfolioSnapshot struct {
	UserID          string    `json:"user_id"`
	Date            string    `json:"date"` // SnapshotDateFormat
	TotalInvestment float64   `json:"total_investment"`
	CurrentValue    float64   `json:"current_value"`
	TotalPnl        float64   `json:"total_pnl"`
	PnlPercent      float64   `json:"pnl_percent"`
	HoldingsCount   int       `json:"holdings_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SnapshotSourceDetail is a child row of a snapshot, one per
// (source, asset type) pair. Details are fully replaced on every recapture
// for that snapshot, never incrementally patched.
type SnapshotSourceDetail struct {
	UserID        string    `json:"user_id"`
	Date          string    `json:"date"`
	Source        string    `json:"source"`
	AssetType     AssetType `json:"asset_type"`
	InvestedValue float64   `json:"invested_value"`
	CurrentValue  float64   `json:"current_value"`
	HoldingsCount int       `json:"holdings_count"`
}

// SnapshotFilter restricts a capture to specific sources or asset types.
// Empty slices place no restriction on that axis; a nil filter matches
// everything.
type SnapshotFilter struct {
	Sources    []string    `json:"sources,omitempty"`
	AssetTypes []AssetType `json:"asset_types,omitempty"`
}

// Empty reports whether the filter restricts nothing.
func (f *SnapshotFilter) Empty() bool {
	return f == nil || (len(f.Sources) == 0 && len(f.AssetTypes) == 0)
}

// Match reports whether a holding with the given source and asset type
// passes the filter.
func (f *SnapshotFilter) Match(source string, assetType AssetType) bool {
	if f == nil {
		return true
	}
	if len(f.Sources) > 0 && !slices.Contains(f.Sources, source) {
		return false
	}
	if len(f.AssetTypes) > 0 && !slices.Contains(f.AssetTypes, assetType) {
		return false
	}
	return true
}

// PortfolioSummary is the aggregate view computed from the current ledger.
type PortfolioSummary struct {
	TotalInvestment float64 `json:"total_investment"`
	CurrentValue    float64 `json:"current_value"`
	TotalPnl        float64 `json:"total_pnl"`
	PnlPercent      float64 `json:"pnl_percent"`
	HoldingsCount   int     `json:"holdings_count"`
}

// AllocationBucket is one group in an allocation breakdown, with its share of
// the total current value.
type AllocationBucket struct {
	Key          string  `json:"key"`
	CurrentValue float64 `json:"current_value"`
	Percent      float64 `json:"percent"`
	Count        int     `json:"count"`
}
