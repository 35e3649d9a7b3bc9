// Package kite provides a client for the broker's Connect API: OAuth token
// exchange, holdings, last-traded-price quotes, and session revocation.
package kite

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Sheringkapoting/portfo-blend/internal/common"
	"github.com/Sheringkapoting/portfo-blend/internal/interfaces"
	"github.com/Sheringkapoting/portfo-blend/internal/models"
)

const (
	DefaultBaseURL   = "https://api.kite.trade"
	DefaultLoginURL  = "https://kite.zerodha.com/connect/login"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 3 // requests per second
)

// Client implements the BrokerClient interface.
type Client struct {
	baseURL    string
	loginURL   string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the API base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLoginURL sets the provider login page URL
func WithLoginURL(loginURL string) ClientOption {
	return func(c *Client) {
		c.loginURL = loginURL
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

// NewClient creates a new broker client
func NewClient(apiKey, apiSecret string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		loginURL:  DefaultLoginURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
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

// APIError represents a broker API error
type APIError struct {
	StatusCode int
	Message    string
	ErrorType  string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kite API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// envelope is the broker's standard response wrapper.
type envelope struct {
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	ErrorType string          `json:"error_type"`
	Data      json.RawMessage `json:"data"`
}

// do performs a rate-limited request and unwraps the response envelope.
func (c *Client) do(ctx context.Context, method, path, accessToken string, form url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("X-Kite-Version", "3")
	if accessToken != "" {
		req.Header.Set("Authorization", "token "+c.apiKey+":"+accessToken)
	}

	c.logger.Debug().Str("method", method).Str("path", path).Msg("Kite API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &APIError{StatusCode: resp.StatusCode, Message: string(raw), Endpoint: path}
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || env.Status == "error" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    env.Message,
			ErrorType:  env.ErrorType,
			Endpoint:   path,
		}
	}

	if result != nil {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

// LoginURL builds the provider login URL carrying the opaque state token.
func (c *Client) LoginURL(state string) string {
	params := url.Values{}
	params.Set("v", "3")
	params.Set("api_key", c.apiKey)
	if state != "" {
		params.Set("redirect_params", "state="+state)
	}
	return c.loginURL + "?" + params.Encode()
}

type sessionResponse struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
	PublicToken string `json:"public_token"`
	LoginTime   string `json:"login_time"`
}

// ExchangeToken swaps the redirect's request token for an access token. The
// checksum is SHA-256 over api_key + request_token + api_secret.
func (c *Client) ExchangeToken(ctx context.Context, requestToken string) (*models.KiteToken, error) {
	sum := sha256.Sum256([]byte(c.apiKey + requestToken + c.apiSecret))

	form := url.Values{}
	form.Set("api_key", c.apiKey)
	form.Set("request_token", requestToken)
	form.Set("checksum", hex.EncodeToString(sum[:]))

	var sess sessionResponse
	if err := c.do(ctx, http.MethodPost, "/session/token", "", form, &sess); err != nil {
		return nil, err
	}

	token := &models.KiteToken{
		AccessToken: sess.AccessToken,
		PublicToken: sess.PublicToken,
		UserID:      sess.UserID,
	}
	if t, err := time.Parse("2006-01-02 15:04:05", sess.LoginTime); err == nil {
		token.LoginTime = t
	}
	return token, nil
}

type holdingResponse struct {
	TradingSymbol string  `json:"tradingsymbol"`
	Exchange      string  `json:"exchange"`
	ISIN          string  `json:"isin"`
	Quantity      float64 `json:"quantity"`
	T1Quantity    float64 `json:"t1_quantity"`
	AveragePrice  float64 `json:"average_price"`
	LastPrice     float64 `json:"last_price"`
	Product       string  `json:"product"`
}

// FetchHoldings pulls the account's current holdings.
func (c *Client) FetchHoldings(ctx context.Context, accessToken string) ([]models.KiteHolding, error) {
	var rows []holdingResponse
	if err := c.do(ctx, http.MethodGet, "/portfolio/holdings", accessToken, nil, &rows); err != nil {
		return nil, err
	}

	holdings := make([]models.KiteHolding, 0, len(rows))
	for _, row := range rows {
		holdings = append(holdings, models.KiteHolding{
			TradingSymbol: row.TradingSymbol,
			Exchange:      row.Exchange,
			ISIN:          row.ISIN,
			// T1 quantity is settled-in-transit stock; it still belongs to the account.
			Quantity:     row.Quantity + row.T1Quantity,
			AveragePrice: row.AveragePrice,
			LastPrice:    row.LastPrice,
			Product:      row.Product,
		})
	}
	return holdings, nil
}

type ltpQuote struct {
	LastPrice float64 `json:"last_price"`
}

// Quotes returns the latest traded price per symbol. Symbols the provider
// does not recognize are absent from the result.
func (c *Client) Quotes(ctx context.Context, accessToken string, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}

	params := url.Values{}
	for _, sym := range symbols {
		if !strings.Contains(sym, ":") {
			sym = "NSE:" + sym
		}
		params.Add("i", sym)
	}

	var quotes map[string]ltpQuote
	if err := c.do(ctx, http.MethodGet, "/quote/ltp?"+params.Encode(), accessToken, nil, &quotes); err != nil {
		return nil, err
	}

	result := make(map[string]float64, len(quotes))
	for instrument, q := range quotes {
		// Strip exchange prefix so callers can look up by plain symbol.
		sym := instrument
		if idx := strings.Index(instrument, ":"); idx >= 0 {
			sym = instrument[idx+1:]
		}
		result[sym] = q.LastPrice
	}
	return result, nil
}

// InvalidateToken revokes the session token with the provider.
func (c *Client) InvalidateToken(ctx context.Context, accessToken string) error {
	form := url.Values{}
	form.Set("api_key", c.apiKey)
	form.Set("access_token", accessToken)
	return c.do(ctx, http.MethodDelete, "/session/token?"+form.Encode(), accessToken, nil, nil)
}

// Compile-time check
var _ interfaces.BrokerClient = (*Client)(nil)
