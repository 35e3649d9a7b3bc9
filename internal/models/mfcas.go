package models

import "time"

// MFSyncPhase is the current phase of the OTP-gated statement fetch protocol.
// Legal transitions: pending_otp → otp_sent → verified → syncing → completed,
// with failed reachable from any non-terminal phase.
type MFSyncPhase string

const (
	MFPhasePendingOTP MFSyncPhase = "pending_otp"
	MFPhaseOTPSent    MFSyncPhase = "otp_sent"
	MFPhaseVerified   MFSyncPhase = "verified"
	MFPhaseSyncing    MFSyncPhase = "syncing"
	MFPhaseCompleted  MFSyncPhase = "completed"
	MFPhaseFailed     MFSyncPhase = "failed"
)

// Terminal reports whether the phase admits no further transitions.
func (p MFSyncPhase) Terminal() bool {
	return p == MFPhaseCompleted || p == MFPhaseFailed
}

// OTPMethod selects how the provider delivers the one-time password.
type OTPMethod string

const (
	OTPMethodPhone OTPMethod = "phone"
	OTPMethodEmail OTPMethod = "email"
)

// MFCASSync is one row per mutual-fund sync attempt. It carries the protocol
// phase plus the correlation fields needed to resume across requests.
type MFCASSync struct {
	ID           string      `json:"id"` // sync_id returned to the caller
	UserID       string      `json:"user_id"`
	PAN          string      `json:"pan"`
	Method       OTPMethod   `json:"method"`
	Phone        string      `json:"phone,omitempty"`
	Email        string      `json:"email,omitempty"`
	Phase        MFSyncPhase `json:"phase"`
	OTPReference string      `json:"otp_reference,omitempty"` // provider reference from request_otp
	ErrorMessage string      `json:"error_message,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// MFFolio is one folio decomposed from a consolidated account statement.
type MFFolio struct {
	ID      string     `json:"id"`
	SyncID  string     `json:"sync_id"`
	UserID  string     `json:"user_id"`
	Number  string     `json:"number"`
	AMC     string     `json:"amc"`
	PAN     string     `json:"pan"`
	KYC     string     `json:"kyc,omitempty"`
	Schemes []MFScheme `json:"schemes,omitempty"`
}

// MFScheme is one scheme within a folio.
type MFScheme struct {
	ID         string  `json:"id"`
	FolioID    string  `json:"folio_id"`
	Name       string  `json:"name"`
	ISIN       string  `json:"isin,omitempty"`
	AMFICode   string  `json:"amfi_code,omitempty"`
	Category   string  `json:"category,omitempty"` // equity / debt / hybrid
	OpenUnits  float64 `json:"open_units"`
	CloseUnits float64 `json:"close_units"`
	NAV        float64 `json:"nav"`
	NAVDate    string  `json:"nav_date,omitempty"`
}

// MFTransaction is one transaction within a scheme.
type MFTransaction struct {
	ID          string    `json:"id"`
	SchemeID    string    `json:"scheme_id"`
	UserID      string    `json:"user_id"`
	Date        time.Time `json:"date"`
	Description string    `json:"description,omitempty"`
	Amount      float64   `json:"amount"` // signed: purchases positive, redemptions negative
	Units       float64   `json:"units"`
	NAV         float64   `json:"nav"`
	Balance     float64   `json:"balance"` // unit balance after this transaction
}

// MFSchemeSummary is the per-scheme holding summary computed from the
// decomposed statement and persisted alongside the MF holdings.
type MFSchemeSummary struct {
	ID            string   `json:"id"`
	UserID        string   `json:"user_id"`
	SchemeName    string   `json:"scheme_name"`
	AMC           string   `json:"amc"`
	Category      string   `json:"category,omitempty"`
	ISIN          string   `json:"isin,omitempty"`
	Units         float64  `json:"units"`
	InvestedValue float64  `json:"invested_value"`
	CurrentValue  float64  `json:"current_value"`
	XIRR          *float64 `json:"xirr,omitempty"`
}
