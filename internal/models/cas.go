package models

// CASStatement is the consolidated account statement as returned by the
// statement provider. Numeric fields arrive as strings and are coerced during
// decomposition; malformed values coerce to zero rather than failing the
// import.
type CASStatement struct {
	PAN       string     `json:"pan"`
	Generated string     `json:"generated_at,omitempty"`
	Folios    []CASFolio `json:"folios"`
}

// CASFolio is one folio block in a statement.
type CASFolio struct {
	Folio   string      `json:"folio"`
	AMC     string      `json:"amc"`
	PAN     string      `json:"pan,omitempty"`
	KYC     string      `json:"kyc,omitempty"`
	Schemes []CASScheme `json:"schemes"`
}

// CASScheme is one scheme block within a folio.
type CASScheme struct {
	Scheme       string           `json:"scheme"`
	ISIN         string           `json:"isin,omitempty"`
	AMFI         string           `json:"amfi,omitempty"`
	Type         string           `json:"type,omitempty"` // equity / debt / hybrid
	OpenUnits    string           `json:"open"`
	CloseUnits   string           `json:"close"`
	NAV          string           `json:"nav"`
	NAVDate      string           `json:"nav_date,omitempty"`
	Transactions []CASTransaction `json:"transactions"`
}

// CASTransaction is one transaction line within a scheme.
type CASTransaction struct {
	Date        string `json:"date"` // 2006-01-02
	Description string `json:"description,omitempty"`
	Amount      string `json:"amount"`
	Units       string `json:"units"`
	NAV         string `json:"nav"`
	Balance     string `json:"balance"`
}
