package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Sheringkapoting/portfo-blend/internal/models"
)

// Summarize folds enriched holdings into the portfolio aggregate.
func Summarize(holdings []models.EnrichedHolding) *models.PortfolioSummary {
	invested := decimal.Zero
	current := decimal.Zero
	for _, h := range holdings {
		invested = invested.Add(decimal.NewFromFloat(h.InvestedValue))
		current = current.Add(decimal.NewFromFloat(h.CurrentValue))
	}
	pnl := current.Sub(invested)

	pnlPercent := 0.0
	if !invested.IsZero() {
		pnlPercent = pnl.Div(invested).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}

	return &models.PortfolioSummary{
		TotalInvestment: invested.InexactFloat64(),
		CurrentValue:    current.InexactFloat64(),
		TotalPnl:        pnl.InexactFloat64(),
		PnlPercent:      pnlPercent,
		HoldingsCount:   len(holdings),
	}
}

// Allocate groups enriched holdings by keyFn and computes each group's share
// of the total current value. Buckets are ordered by current value,
// largest first.
func Allocate(holdings []models.EnrichedHolding, keyFn func(*models.EnrichedHolding) string) []models.AllocationBucket {
	type bucket struct {
		value decimal.Decimal
		count int
	}
	groups := make(map[string]*bucket)
	total := decimal.Zero
	for i := range holdings {
		key := keyFn(&holdings[i])
		if key == "" {
			key = "unknown"
		}
		b, ok := groups[key]
		if !ok {
			b = &bucket{}
			groups[key] = b
		}
		v := decimal.NewFromFloat(holdings[i].CurrentValue)
		b.value = b.value.Add(v)
		b.count++
		total = total.Add(v)
	}

	buckets := make([]models.AllocationBucket, 0, len(groups))
	for key, b := range groups {
		percent := 0.0
		if !total.IsZero() {
			percent = b.value.Div(total).Mul(decimal.NewFromInt(100)).InexactFloat64()
		}
		buckets = append(buckets, models.AllocationBucket{
			Key:          key,
			CurrentValue: b.value.InexactFloat64(),
			Percent:      percent,
			Count:        b.count,
		})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].CurrentValue != buckets[j].CurrentValue {
			return buckets[i].CurrentValue > buckets[j].CurrentValue
		}
		return buckets[i].Key < buckets[j].Key
	})
	return buckets
}

// AllocationKey returns the grouping function for a named dimension, or nil
// when the dimension is not supported.
func AllocationKey(dimension string) func(*models.EnrichedHolding) string {
	switch dimension {
	case "type":
		return func(h *models.EnrichedHolding) string { return string(h.Type) }
	case "sector":
		return func(h *models.EnrichedHolding) string { return string(h.Sector) }
	case "source":
		return func(h *models.EnrichedHolding) string { return h.Source }
	case "amc":
		return func(h *models.EnrichedHolding) string { return h.AMC }
	case "category":
		return func(h *models.EnrichedHolding) string { return h.Category }
	default:
		return nil
	}
}
