package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/Sheringkapoting/portfo-blend/internal/models"
)

// Enrich derives financial metrics for each holding. Live quotes override the
// persisted last traded price when present; holdings with no quote fall back
// to the price recorded at sync time. Metrics are recomputed on every call
// and never persisted.
func Enrich(holdings []models.Holding, quotes map[string]float64) []models.EnrichedHolding {
	enriched := make([]models.EnrichedHolding, 0, len(holdings))
	for _, h := range holdings {
		ltp := h.LTP
		if q, ok := quotes[h.Symbol]; ok && q > 0 {
			ltp = q
		}

		qty := decimal.NewFromFloat(h.Quantity)
		invested := qty.Mul(decimal.NewFromFloat(h.AvgPrice))
		current := qty.Mul(decimal.NewFromFloat(ltp))
		pnl := current.Sub(invested)

		pnlPercent := 0.0
		if !invested.IsZero() {
			pnlPercent = pnl.Div(invested).Mul(decimal.NewFromInt(100)).InexactFloat64()
		}

		h.LTP = ltp
		enriched = append(enriched, models.EnrichedHolding{
			Holding:        h,
			InvestedValue:  invested.InexactFloat64(),
			CurrentValue:   current.InexactFloat64(),
			Pnl:            pnl.InexactFloat64(),
			PnlPercent:     pnlPercent,
			Recommendation: models.RecommendationFor(pnlPercent),
		})
	}
	return enriched
}
