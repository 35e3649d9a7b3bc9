package mfcas

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Sheringkapoting/portfo-blend/internal/models"
	"github.com/Sheringkapoting/portfo-blend/internal/services/portfolio"
)

// Decompose flattens a consolidated statement into folios, transactions, and
// per-scheme summaries. Numeric fields arrive as strings; malformed values
// coerce to zero rather than failing the whole import.
func Decompose(sync *models.MFCASSync, stmt *models.CASStatement, now time.Time) ([]models.MFFolio, []models.MFTransaction, []models.MFSchemeSummary) {
	var folios []models.MFFolio
	var txns []models.MFTransaction
	var summaries []models.MFSchemeSummary

	for _, rawFolio := range stmt.Folios {
		folio := models.MFFolio{
			ID:     uuid.NewString(),
			SyncID: sync.ID,
			UserID: sync.UserID,
			Number: rawFolio.Folio,
			AMC:    rawFolio.AMC,
			PAN:    rawFolio.PAN,
			KYC:    rawFolio.KYC,
		}

		for _, rawScheme := range rawFolio.Schemes {
			scheme := models.MFScheme{
				ID:         uuid.NewString(),
				FolioID:    folio.ID,
				Name:       rawScheme.Scheme,
				ISIN:       rawScheme.ISIN,
				AMFICode:   rawScheme.AMFI,
				Category:   rawScheme.Type,
				OpenUnits:  coerceFloat(rawScheme.OpenUnits),
				CloseUnits: coerceFloat(rawScheme.CloseUnits),
				NAV:        coerceFloat(rawScheme.NAV),
				NAVDate:    rawScheme.NAVDate,
			}
			folio.Schemes = append(folio.Schemes, scheme)

			var flows []portfolio.CashFlow
			invested := 0.0
			for _, rawTxn := range rawScheme.Transactions {
				txn := models.MFTransaction{
					ID:          uuid.NewString(),
					SchemeID:    scheme.ID,
					UserID:      sync.UserID,
					Date:        parseDate(rawTxn.Date),
					Description: rawTxn.Description,
					Amount:      coerceFloat(rawTxn.Amount),
					Units:       coerceFloat(rawTxn.Units),
					NAV:         coerceFloat(rawTxn.NAV),
					Balance:     coerceFloat(rawTxn.Balance),
				}
				txns = append(txns, txn)

				if txn.Amount > 0 {
					invested += txn.Amount
				}
				// Purchases are money out, redemptions money in.
				flows = append(flows, portfolio.CashFlow{Date: txn.Date, Amount: -txn.Amount})
			}

			currentValue := scheme.CloseUnits * scheme.NAV
			summary := models.MFSchemeSummary{
				ID:            uuid.NewString(),
				UserID:        sync.UserID,
				SchemeName:    scheme.Name,
				AMC:           folio.AMC,
				Category:      scheme.Category,
				ISIN:          scheme.ISIN,
				Units:         scheme.CloseUnits,
				InvestedValue: invested,
				CurrentValue:  currentValue,
			}
			if xirr := portfolio.CalculateXIRR(flows, currentValue, now); xirr != 0 {
				summary.XIRR = &xirr
			}
			summaries = append(summaries, summary)
		}

		folios = append(folios, folio)
	}

	return folios, txns, summaries
}

// holdingsFromSummaries maps scheme summaries onto canonical holdings, one
// mutual fund row per held scheme. Fully redeemed schemes are skipped.
func holdingsFromSummaries(userID string, summaries []models.MFSchemeSummary, now time.Time) []models.Holding {
	holdings := make([]models.Holding, 0, len(summaries))
	for _, sum := range summaries {
		if sum.Units <= 0 {
			continue
		}
		avgPrice := 0.0
		if sum.Units > 0 {
			avgPrice = sum.InvestedValue / sum.Units
		}
		ltp := 0.0
		if sum.Units > 0 {
			ltp = sum.CurrentValue / sum.Units
		}
		holdings = append(holdings, models.Holding{
			ID:        uuid.NewString(),
			UserID:    userID,
			Symbol:    sum.ISIN,
			Name:      sum.SchemeName,
			ISIN:      sum.ISIN,
			Type:      models.AssetTypeMutualFund,
			Sector:    models.SectorDiversified,
			Quantity:  sum.Units,
			AvgPrice:  avgPrice,
			LTP:       ltp,
			Source:    models.SourceMFCentral,
			AMC:       sum.AMC,
			Category:  sum.Category,
			XIRR:      sum.XIRR,
			UpdatedAt: now,
		})
	}
	return holdings
}

// coerceFloat parses a statement numeric string. Commas are thousands
// separators and parentheses mark negatives. Anything unparseable is 0.
func coerceFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return 0
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	if neg {
		v = -v
	}
	return v
}

// parseDate accepts the statement's date formats, newest convention first.
func parseDate(s string) time.Time {
	for _, layout := range []string{"2006-01-02", "02-Jan-2006", "02/01/2006"} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t
		}
	}
	return time.Time{}
}
