package portfolio

import (
	"math"
	"testing"
	"time"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestXIRR_SimpleBuyAndHold(t *testing.T) {
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	flows := []CashFlow{
		{Date: now.AddDate(-1, 0, 0), Amount: -10000},
	}

	// 10000 grown to 11000 over one year is roughly 10% annualised.
	got := CalculateXIRR(flows, 11000, now)
	if !approxEqual(got, 10, 0.2) {
		t.Errorf("expected ~10%%, got %.4f", got)
	}
}

func TestXIRR_Loss(t *testing.T) {
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	flows := []CashFlow{
		{Date: now.AddDate(-1, 0, 0), Amount: -10000},
	}

	got := CalculateXIRR(flows, 8000, now)
	if !approxEqual(got, -20, 0.3) {
		t.Errorf("expected ~-20%%, got %.4f", got)
	}
}

func TestXIRR_MultiplePurchases(t *testing.T) {
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	flows := []CashFlow{
		{Date: now.AddDate(-2, 0, 0), Amount: -5000},
		{Date: now.AddDate(-1, 0, 0), Amount: -5000},
	}

	got := CalculateXIRR(flows, 12000, now)
	if got <= 0 {
		t.Errorf("expected positive rate for gains, got %.4f", got)
	}
	// Money-weighted return must exceed the simple 20% total gain spread
	// over the average holding period.
	if got < 10 || got > 20 {
		t.Errorf("rate outside plausible band: %.4f", got)
	}
}

func TestXIRR_WithRedemption(t *testing.T) {
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	flows := []CashFlow{
		{Date: now.AddDate(-2, 0, 0), Amount: -10000},
		{Date: now.AddDate(-1, 0, 0), Amount: 3000},
	}

	got := CalculateXIRR(flows, 9000, now)
	if got <= 0 {
		t.Errorf("expected positive rate, got %.4f", got)
	}
}

func TestXIRR_Degenerate(t *testing.T) {
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	if got := CalculateXIRR(nil, 1000, now); got != 0 {
		t.Errorf("no flows: expected 0, got %.4f", got)
	}

	// All flows zero or undated are dropped.
	flows := []CashFlow{{Amount: -100}, {Date: now, Amount: 0}}
	if got := CalculateXIRR(flows, 1000, now); got != 0 {
		t.Errorf("empty after filtering: expected 0, got %.4f", got)
	}

	// No positive flow at all: nothing to discount against.
	flows = []CashFlow{{Date: now.AddDate(-1, 0, 0), Amount: -100}}
	if got := CalculateXIRR(flows, 0, now); got != 0 {
		t.Errorf("no positive flow: expected 0, got %.4f", got)
	}
}

func TestXIRR_FlatValue(t *testing.T) {
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	flows := []CashFlow{
		{Date: now.AddDate(-1, 0, 0), Amount: -10000},
	}

	got := CalculateXIRR(flows, 10000, now)
	if !approxEqual(got, 0, 0.1) {
		t.Errorf("expected ~0%% for unchanged value, got %.4f", got)
	}
}
