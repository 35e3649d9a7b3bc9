// Package models defines data structures for the portfolio sync service.
package models

import "time"

// AssetType classifies a holding into one of the supported asset classes.
type AssetType string

const (
	AssetTypeStock      AssetType = "stock"
	AssetTypeETF        AssetType = "etf"
	AssetTypeMutualFund AssetType = "mutual_fund"
	AssetTypeBond       AssetType = "bond"
	AssetTypeGold       AssetType = "gold"
	AssetTypeOther      AssetType = "other"
)

// ValidAssetType reports whether t is one of the closed asset-class values.
func ValidAssetType(t AssetType) bool {
	switch t {
	case AssetTypeStock, AssetTypeETF, AssetTypeMutualFund, AssetTypeBond, AssetTypeGold, AssetTypeOther:
		return true
	}
	return false
}

// Sector classifies a holding's industry sector.
type Sector string

const (
	SectorTechnology  Sector = "Technology"
	SectorFinancials  Sector = "Financial Services"
	SectorHealthcare  Sector = "Healthcare"
	SectorConsumer    Sector = "Consumer"
	SectorEnergy      Sector = "Energy"
	SectorIndustrial  Sector = "Industrials"
	SectorUtilities   Sector = "Utilities"
	SectorMaterials   Sector = "Materials"
	SectorRealEstate  Sector = "Real Estate"
	SectorTelecom     Sector = "Communication Services"
	SectorDiversified Sector = "Diversified"
	SectorUnknown     Sector = "Unknown"
)

// NormalizeSector maps free-form sector text onto the closed Sector enum.
func NormalizeSector(s string) Sector {
	switch Sector(s) {
	case SectorTechnology, SectorFinancials, SectorHealthcare, SectorConsumer,
		SectorEnergy, SectorIndustrial, SectorUtilities, SectorMaterials,
		SectorRealEstate, SectorTelecom, SectorDiversified:
		return Sector(s)
	}
	return SectorUnknown
}

// Holding represents one instrument position from one source. The ledger for
// a source is fully replaced, never merged, on every successful sync.
type Holding struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	ISIN      string    `json:"isin,omitempty"`
	Type      AssetType `json:"type"`
	Sector    Sector    `json:"sector"`
	Quantity  float64   `json:"quantity"`  // >= 0
	AvgPrice  float64   `json:"avg_price"` // >= 0
	LTP       float64   `json:"ltp"`       // last traded price persisted at sync time
	Exchange  string    `json:"exchange,omitempty"`
	Source    string    `json:"source"` // connector instance that owns this row
	AMC       string    `json:"amc,omitempty"`         // mutual-fund house, MF holdings only
	Category  string    `json:"category,omitempty"`    // MF category (equity/debt/hybrid), MF holdings only
	XIRR      *float64  `json:"xirr,omitempty"`        // annualized return where computable
	UpdatedAt time.Time `json:"updated_at"`
}

// Recommendation classifies a holding purely from its unrealized return
// percentage. The thresholds partition the entire number line.
type Recommendation string

const (
	RecommendationTrimProfit Recommendation = "trim_profit" // pnl% >= 50
	RecommendationRideTrend  Recommendation = "ride_trend"  // pnl% >= 25
	RecommendationHold       Recommendation = "hold"        // pnl% >= 5
	RecommendationAccumulate Recommendation = "accumulate"  // pnl% >= -10
	RecommendationReview     Recommendation = "review"      // otherwise
)

// RecommendationFor maps a P&L percentage to its recommendation band.
func RecommendationFor(pnlPercent float64) Recommendation {
	switch {
	case pnlPercent >= 50:
		return RecommendationTrimProfit
	case pnlPercent >= 25:
		return RecommendationRideTrend
	case pnlPercent >= 5:
		return RecommendationHold
	case pnlPercent >= -10:
		return RecommendationAccumulate
	default:
		return RecommendationReview
	}
}

// EnrichedHolding is a Holding plus derived financial metrics. Enrichment is
// recomputed on every read and never persisted.
type EnrichedHolding struct {
	Holding
	InvestedValue  float64        `json:"invested_value"`
	CurrentValue   float64        `json:"current_value"`
	Pnl            float64        `json:"pnl"`
	PnlPercent     float64        `json:"pnl_percent"`
	Recommendation Recommendation `json:"recommendation"`
}
