package mfcas

import (
	"testing"
	"time"

	"github.com/Sheringkapoting/portfo-blend/internal/models"
)

func TestCoerceFloat(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"5000", 5000},
		{"5,000.25", 5000.25},
		{"12,34,567.89", 1234567.89},
		{"(1,500.00)", -1500},
		{"-42.5", -42.5},
		{"", 0},
		{"N/A", 0},
		{"  100  ", 100},
		{"garbage", 0},
		{"1.2.3", 0},
	}
	for _, tc := range cases {
		if got := coerceFloat(tc.in); got != tc.want {
			t.Errorf("coerceFloat(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-01-15", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"15-Jan-2025", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"15/01/2025", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"not a date", time.Time{}},
		{"", time.Time{}},
	}
	for _, tc := range cases {
		if got := parseDate(tc.in); !got.Equal(tc.want) {
			t.Errorf("parseDate(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDecompose(t *testing.T) {
	sync := &models.MFCASSync{ID: "sync-1", UserID: "alice"}
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	folios, txns, summaries := Decompose(sync, sampleStatement(), now)

	if len(folios) != 1 || folios[0].Number != "123/45" || folios[0].AMC != "Acme AMC" {
		t.Fatalf("folios: %+v", folios)
	}
	if len(folios[0].Schemes) != 2 {
		t.Fatalf("schemes: %+v", folios[0].Schemes)
	}
	if len(txns) != 2 {
		t.Fatalf("txns: %+v", txns)
	}
	if txns[0].Amount != 5000 || txns[0].Units != 500.25 {
		t.Errorf("txn coercion: %+v", txns[0])
	}

	if len(summaries) != 2 {
		t.Fatalf("summaries: %+v", summaries)
	}
	equity := summaries[0]
	if equity.SchemeName != "Acme Flexi Cap Growth" {
		equity = summaries[1]
	}
	if equity.InvestedValue != 10000 {
		t.Errorf("invested = %v", equity.InvestedValue)
	}
	// 1000.5 units at NAV 12.50.
	if equity.CurrentValue != 12506.25 {
		t.Errorf("current = %v", equity.CurrentValue)
	}
	if equity.XIRR == nil || *equity.XIRR <= 0 {
		t.Errorf("XIRR should be positive for gains: %v", equity.XIRR)
	}
}

func TestDecomposeMalformedNumbersCoerceToZero(t *testing.T) {
	sync := &models.MFCASSync{ID: "sync-1", UserID: "alice"}
	stmt := &models.CASStatement{
		Folios: []models.CASFolio{{
			Folio: "1",
			Schemes: []models.CASScheme{{
				Scheme:     "Broken Fund",
				CloseUnits: "??",
				NAV:        "N/A",
				Transactions: []models.CASTransaction{
					{Date: "bad date", Amount: "not a number", Units: "-"},
				},
			}},
		}},
	}

	folios, txns, summaries := Decompose(sync, stmt, time.Now())
	if len(folios) != 1 || len(txns) != 1 || len(summaries) != 1 {
		t.Fatalf("counts: %d/%d/%d", len(folios), len(txns), len(summaries))
	}
	if txns[0].Amount != 0 || !txns[0].Date.IsZero() {
		t.Errorf("malformed txn should coerce to zero: %+v", txns[0])
	}
	if summaries[0].CurrentValue != 0 || summaries[0].XIRR != nil {
		t.Errorf("summary: %+v", summaries[0])
	}
}

func TestHoldingsFromSummariesSkipsRedeemed(t *testing.T) {
	xirr := 12.5
	summaries := []models.MFSchemeSummary{
		{ID: "1", SchemeName: "Held Fund", ISIN: "INF1", AMC: "Acme", Category: "equity",
			Units: 100, InvestedValue: 1000, CurrentValue: 1200, XIRR: &xirr},
		{ID: "2", SchemeName: "Redeemed Fund", ISIN: "INF2", Units: 0},
	}

	holdings := holdingsFromSummaries("alice", summaries, time.Now())
	if len(holdings) != 1 {
		t.Fatalf("expected 1 holding, got %+v", holdings)
	}
	h := holdings[0]
	if h.Symbol != "INF1" || h.ISIN != "INF1" {
		t.Errorf("symbol should be the ISIN: %+v", h)
	}
	if h.AvgPrice != 10 || h.LTP != 12 {
		t.Errorf("prices: avg=%v ltp=%v", h.AvgPrice, h.LTP)
	}
	if h.Sector != models.SectorDiversified || h.Type != models.AssetTypeMutualFund {
		t.Errorf("classification: %+v", h)
	}
	if h.XIRR == nil || *h.XIRR != 12.5 {
		t.Errorf("XIRR not carried: %v", h.XIRR)
	}
}
