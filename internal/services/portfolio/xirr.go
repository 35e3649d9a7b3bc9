package portfolio

import (
	"math"
	"sort"
	"time"
)

// CashFlow is a single dated cash flow for XIRR calculation.
// Negative values = money out (purchases), positive values = money in
// (redemptions, current value).
type CashFlow struct {
	Date   time.Time
	Amount float64
}

// CalculateXIRR computes the annualised internal rate of return for a series
// of cash flows using Newton-Raphson iteration, with the current market value
// appended as a terminal positive flow at now.
//
// Returns the XIRR as a percentage, or 0 if it cannot be computed.
func CalculateXIRR(flows []CashFlow, currentValue float64, now time.Time) float64 {
	if len(flows) == 0 {
		return 0
	}

	all := make([]CashFlow, 0, len(flows)+1)
	for _, f := range flows {
		if f.Date.IsZero() || f.Amount == 0 {
			continue
		}
		all = append(all, f)
	}
	if len(all) == 0 {
		return 0
	}
	if currentValue > 0 {
		all = append(all, CashFlow{Date: now, Amount: currentValue})
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Date.Before(all[j].Date)
	})

	// Need at least one negative and one positive flow
	hasNeg, hasPos := false, false
	for _, f := range all {
		if f.Amount < 0 {
			hasNeg = true
		}
		if f.Amount > 0 {
			hasPos = true
		}
	}
	if !hasNeg || !hasPos {
		return 0
	}

	rate := solveXIRR(all)
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0
	}

	return rate * 100
}

// solveXIRR uses Newton-Raphson to find the rate r such that NPV(r) = 0.
// NPV(r) = sum of amount_i / (1 + r)^(years_i) where years_i = days from first date / 365.25
// Returns the rate as a decimal (e.g., 0.12 for 12%).
func solveXIRR(flows []CashFlow) float64 {
	const (
		maxIter = 100
		tol     = 1e-7
		minRate = -0.999 // rate can't go below -99.9%
	)

	baseDate := flows[0].Date

	// Convert dates to year fractions
	years := make([]float64, len(flows))
	for i, f := range flows {
		days := f.Date.Sub(baseDate).Hours() / 24
		years[i] = days / 365.25
	}

	// Initial guess: use simple return as starting point
	totalInvested := 0.0
	totalReceived := 0.0
	for _, f := range flows {
		if f.Amount < 0 {
			totalInvested -= f.Amount
		} else {
			totalReceived += f.Amount
		}
	}

	guess := 0.1 // default 10%
	if totalInvested > 0 {
		simpleReturn := totalReceived/totalInvested - 1
		if simpleReturn > -0.9 && simpleReturn < 10 {
			guess = simpleReturn
		}
	}

	rate := guess

	for iter := 0; iter < maxIter; iter++ {
		npv := 0.0
		dnpv := 0.0 // derivative of NPV with respect to rate

		for i, f := range flows {
			y := years[i]
			base := 1 + rate
			if base <= 0 {
				// Avoid negative base with fractional exponent
				rate = minRate
				base = 1 + rate
			}
			discount := math.Pow(base, y)
			if discount == 0 {
				continue
			}
			npv += f.Amount / discount
			if y != 0 {
				dnpv -= y * f.Amount / (discount * base)
			}
		}

		if math.Abs(npv) < tol {
			return rate
		}

		if dnpv == 0 {
			// Derivative is zero — can't continue Newton-Raphson
			break
		}

		newRate := rate - npv/dnpv

		// Clamp to prevent wild oscillation
		if newRate < minRate {
			newRate = minRate
		}
		if newRate > 100 { // 10000% annual return cap
			newRate = 100
		}

		rate = newRate
	}

	// Fallback: bisection method if Newton-Raphson didn't converge
	return bisectXIRR(flows, years)
}

// bisectXIRR uses bisection as a fallback solver for XIRR.
func bisectXIRR(flows []CashFlow, years []float64) float64 {
	const (
		maxIter = 200
		tol     = 1e-6
	)

	npvAt := func(rate float64) float64 {
		sum := 0.0
		for i, f := range flows {
			base := 1 + rate
			if base <= 0 {
				return math.NaN()
			}
			sum += f.Amount / math.Pow(base, years[i])
		}
		return sum
	}

	// Find bracket [lo, hi] where NPV changes sign
	lo, hi := -0.99, 10.0
	npvLo := npvAt(lo)
	npvHi := npvAt(hi)

	if math.IsNaN(npvLo) || math.IsNaN(npvHi) {
		return math.NaN()
	}
	if npvLo*npvHi > 0 {
		// Same sign — no root in this bracket
		return math.NaN()
	}

	for iter := 0; iter < maxIter; iter++ {
		mid := (lo + hi) / 2
		npvMid := npvAt(mid)
		if math.IsNaN(npvMid) {
			return math.NaN()
		}
		if math.Abs(npvMid) < tol {
			return mid
		}
		if npvMid*npvLo < 0 {
			hi = mid
		} else {
			lo = mid
			npvLo = npvMid
		}
	}

	return (lo + hi) / 2
}
