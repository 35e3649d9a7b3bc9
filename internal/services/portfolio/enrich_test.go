package portfolio

import (
	"testing"

	"github.com/Sheringkapoting/portfo-blend/internal/models"
)

func TestEnrichDerivesMetrics(t *testing.T) {
	holdings := []models.Holding{
		{ID: "1", Symbol: "INFY", Quantity: 10, AvgPrice: 100, LTP: 150},
		{ID: "2", Symbol: "TCS", Quantity: 5, AvgPrice: 200, LTP: 180},
	}

	enriched := Enrich(holdings, nil)
	if len(enriched) != 2 {
		t.Fatalf("expected 2 enriched holdings, got %d", len(enriched))
	}

	infy := enriched[0]
	if infy.InvestedValue != 1000 || infy.CurrentValue != 1500 {
		t.Errorf("INFY values: %+v", infy)
	}
	if infy.Pnl != 500 || !approxEqual(infy.PnlPercent, 50, 1e-9) {
		t.Errorf("INFY pnl: %v / %v", infy.Pnl, infy.PnlPercent)
	}
	if infy.Recommendation != models.RecommendationTrimProfit {
		t.Errorf("INFY recommendation: %s", infy.Recommendation)
	}

	tcs := enriched[1]
	if !approxEqual(tcs.PnlPercent, -10, 1e-9) {
		t.Errorf("TCS pnl percent: %v", tcs.PnlPercent)
	}
	if tcs.Recommendation != models.RecommendationAccumulate {
		t.Errorf("TCS recommendation: %s", tcs.Recommendation)
	}

	// current - invested must equal pnl for every holding.
	for _, h := range enriched {
		if !approxEqual(h.CurrentValue-h.InvestedValue, h.Pnl, 1e-9) {
			t.Errorf("%s: pnl identity violated: %v - %v != %v",
				h.Symbol, h.CurrentValue, h.InvestedValue, h.Pnl)
		}
	}
}

func TestEnrichQuoteOverride(t *testing.T) {
	holdings := []models.Holding{
		{ID: "1", Symbol: "INFY", Quantity: 10, AvgPrice: 100, LTP: 120},
		{ID: "2", Symbol: "TCS", Quantity: 10, AvgPrice: 100, LTP: 120},
	}
	quotes := map[string]float64{
		"INFY": 140,
		"TCS":  0, // zero quote is ignored, persisted LTP stands
	}

	enriched := Enrich(holdings, quotes)
	if enriched[0].LTP != 140 || enriched[0].CurrentValue != 1400 {
		t.Errorf("live quote not applied: %+v", enriched[0])
	}
	if enriched[1].LTP != 120 {
		t.Errorf("zero quote should not override: %+v", enriched[1])
	}
}

func TestEnrichZeroInvested(t *testing.T) {
	holdings := []models.Holding{
		{ID: "1", Symbol: "BONUS", Quantity: 10, AvgPrice: 0, LTP: 50},
	}

	enriched := Enrich(holdings, nil)
	if enriched[0].PnlPercent != 0 {
		t.Errorf("pnl percent must be 0 when invested is 0, got %v", enriched[0].PnlPercent)
	}
	if enriched[0].Pnl != 500 {
		t.Errorf("absolute pnl should still be computed, got %v", enriched[0].Pnl)
	}
}

func TestRecommendationBands(t *testing.T) {
	cases := []struct {
		pnl  float64
		want models.Recommendation
	}{
		{75, models.RecommendationTrimProfit},
		{50, models.RecommendationTrimProfit},
		{49.99, models.RecommendationRideTrend},
		{25, models.RecommendationRideTrend},
		{24.99, models.RecommendationHold},
		{5, models.RecommendationHold},
		{4.99, models.RecommendationAccumulate},
		{0, models.RecommendationAccumulate},
		{-10, models.RecommendationAccumulate},
		{-10.01, models.RecommendationReview},
		{-60, models.RecommendationReview},
	}
	for _, tc := range cases {
		if got := models.RecommendationFor(tc.pnl); got != tc.want {
			t.Errorf("RecommendationFor(%v) = %s, want %s", tc.pnl, got, tc.want)
		}
	}
}
