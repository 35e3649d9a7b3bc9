package interfaces

import (
	"context"

	"github.com/Sheringkapoting/portfo-blend/internal/models"
)

// BrokerClient is the external brokerage OAuth API.
type BrokerClient interface {
	// LoginURL builds the provider login URL carrying the opaque state token.
	LoginURL(state string) string
	// ExchangeToken swaps the redirect's request token for a session token.
	ExchangeToken(ctx context.Context, requestToken string) (*models.KiteToken, error)
	// FetchHoldings pulls the account's current holdings.
	FetchHoldings(ctx context.Context, accessToken string) ([]models.KiteHolding, error)
	// Quotes returns the latest traded price per symbol. Missing symbols are
	// simply absent from the result.
	Quotes(ctx context.Context, accessToken string, symbols []string) (map[string]float64, error)
	// InvalidateToken revokes the session token with the provider.
	InvalidateToken(ctx context.Context, accessToken string) error
}

// CASClient is the statement provider's OTP-gated API.
type CASClient interface {
	// RequestOTP asks the provider to deliver a one-time password and returns
	// the reference token correlating the remaining phases.
	RequestOTP(ctx context.Context, pan string, method models.OTPMethod, phone, email string) (string, error)
	// VerifyOTP confirms the delivered code against the reference token.
	VerifyOTP(ctx context.Context, reference, otp string) error
	// FetchStatement pulls the full consolidated account statement for a
	// verified reference.
	FetchStatement(ctx context.Context, reference string) (*models.CASStatement, error)
}
