// Package mfcentral provides a client for the consolidated account statement
// provider's OTP-gated API.
package mfcentral

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Sheringkapoting/portfo-blend/internal/common"
	"github.com/Sheringkapoting/portfo-blend/internal/interfaces"
	"github.com/Sheringkapoting/portfo-blend/internal/models"
)

const (
	DefaultBaseURL   = "https://api.mfcentral.com/v1"
	DefaultTimeout   = 60 * time.Second
	DefaultRateLimit = 2 // requests per second
)

// Protocol errors the service layer maps onto sync phases.
var (
	// ErrNotConfigured means the client has no credentials and cannot call out.
	ErrNotConfigured = errors.New("mfcentral client is not configured")
	// ErrInvalidOTP means the submitted code did not match; the attempt may be retried.
	ErrInvalidOTP = errors.New("invalid otp")
	// ErrReferenceExpired means the OTP reference is no longer usable and a new
	// sync must be started.
	ErrReferenceExpired = errors.New("otp reference expired")
	// ErrUnauthorized means the provider rejected the client credentials.
	ErrUnauthorized = errors.New("unauthorized")
)

// Client implements the CASClient interface.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *common.Logger
	limiter      *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new statement provider client
func NewClient(clientID, clientSecret string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      DefaultBaseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c.clientID != "" && c.clientSecret != ""
}

// APIError represents a statement provider API error
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mfcentral API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// post performs a rate-limited JSON POST and maps provider error codes onto
// the package's protocol errors.
func (c *Client) post(ctx context.Context, path string, payload, result interface{}) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-Id", c.clientID)
	req.Header.Set("X-Client-Secret", c.clientSecret)

	c.logger.Debug().Str("path", path).Msg("MFCentral API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		var errResp errorResponse
		_ = json.Unmarshal(raw, &errResp)
		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return ErrUnauthorized
		case errResp.Code == "invalid_otp":
			return ErrInvalidOTP
		case errResp.Code == "reference_expired" || resp.StatusCode == http.StatusGone:
			return ErrReferenceExpired
		}
		msg := errResp.Message
		if msg == "" {
			msg = string(raw)
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       errResp.Code,
			Message:    msg,
			Endpoint:   path,
		}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

type otpRequest struct {
	PAN    string `json:"pan"`
	Method string `json:"method"`
	Phone  string `json:"phone,omitempty"`
	Email  string `json:"email,omitempty"`
}

type otpResponse struct {
	Reference string `json:"reference"`
}

// RequestOTP asks the provider to deliver a one-time password and returns the
// reference correlating the remaining phases.
func (c *Client) RequestOTP(ctx context.Context, pan string, method models.OTPMethod, phone, email string) (string, error) {
	var resp otpResponse
	err := c.post(ctx, "/statement/otp/request", &otpRequest{
		PAN:    pan,
		Method: string(method),
		Phone:  phone,
		Email:  email,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Reference == "" {
		return "", fmt.Errorf("provider returned empty otp reference")
	}
	return resp.Reference, nil
}

type verifyRequest struct {
	Reference string `json:"reference"`
	OTP       string `json:"otp"`
}

// VerifyOTP confirms the delivered code against the reference.
func (c *Client) VerifyOTP(ctx context.Context, reference, otp string) error {
	return c.post(ctx, "/statement/otp/verify", &verifyRequest{
		Reference: reference,
		OTP:       otp,
	}, nil)
}

type statementRequest struct {
	Reference string `json:"reference"`
}

// FetchStatement pulls the full consolidated account statement for a verified
// reference.
func (c *Client) FetchStatement(ctx context.Context, reference string) (*models.CASStatement, error) {
	var stmt models.CASStatement
	if err := c.post(ctx, "/statement/fetch", &statementRequest{Reference: reference}, &stmt); err != nil {
		return nil, err
	}
	return &stmt, nil
}

// Compile-time check
var _ interfaces.CASClient = (*Client)(nil)
