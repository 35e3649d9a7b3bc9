// Package broker manages the broker OAuth session lifecycle and holding
// syncs: login URL issuance, the redirect callback, session status, manual
// and retried syncs, and disconnect.
package broker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Sheringkapoting/portfo-blend/internal/cache"
	"github.com/Sheringkapoting/portfo-blend/internal/common"
	"github.com/Sheringkapoting/portfo-blend/internal/interfaces"
	"github.com/Sheringkapoting/portfo-blend/internal/models"
)

// Retry schedule for SyncWithRetry: exponential backoff from 1s, doubling,
// capped at 10s, at most 5 attempts.
const (
	retryInitialDelay = 1 * time.Second
	retryMaxDelay     = 10 * time.Second
	retryMaxAttempts  = 5
)

// sessionExpiryHourUTC is when the provider invalidates all access tokens
// each day. Sessions are persisted expiring at the next such boundary.
const sessionExpiryHourUTC = 6

// Service implements interfaces.BrokerService.
type Service struct {
	storage     interfaces.StorageManager
	client      interfaces.BrokerClient
	cache       *cache.Store
	logger      *common.Logger
	stateSecret []byte
	stateExpiry time.Duration

	// now and sleep are injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewService creates a broker service.
func NewService(storage interfaces.StorageManager, client interfaces.BrokerClient, cacheStore *cache.Store, logger *common.Logger, stateSecret string, stateExpiry time.Duration) *Service {
	return &Service{
		storage:     storage,
		client:      client,
		cache:       cacheStore,
		logger:      logger,
		stateSecret: []byte(stateSecret),
		stateExpiry: stateExpiry,
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// LoginURL returns the provider login URL with a signed state token binding
// the eventual callback to this user.
func (s *Service) LoginURL(userID string) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("broker client is not configured")
	}
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"nonce": uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   now.Add(s.stateExpiry).Unix(),
	}
	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.stateSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign state token: %w", err)
	}
	return s.client.LoginURL(state), nil
}

// parseState extracts the user ID from a state token. Returns an error for
// expired, tampered, or foreign tokens.
func (s *Service) parseState(state string) (string, error) {
	token, err := jwt.Parse(state, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.stateSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid state token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid state token claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("state token has no subject")
	}
	return sub, nil
}

// SessionStatus reports whether the user has a usable broker session.
// Expiry exactly at now counts as disconnected.
func (s *Service) SessionStatus(ctx context.Context, userID string) (*models.SessionStatus, error) {
	session, err := s.storage.Sessions().CurrentSession(ctx, userID)
	if err != nil {
		return &models.SessionStatus{Connected: false}, nil
	}
	if !session.ValidAt(s.now()) {
		return &models.SessionStatus{Connected: false, BrokerUser: session.BrokerUser}, nil
	}
	return &models.SessionStatus{
		Connected:  true,
		BrokerUser: session.BrokerUser,
		ExpiresAt:  session.ExpiresAt,
	}, nil
}

// HandleCallback exchanges the redirect's request token for a session and
// persists it. A missing or invalid state token still persists the session,
// unassociated, so a later reconciliation can adopt it; a valid state
// associates it immediately and kicks off a background sync.
func (s *Service) HandleCallback(ctx context.Context, state, requestToken string) (*models.BrokerSession, error) {
	if s.client == nil {
		return nil, fmt.Errorf("broker client is not configured")
	}
	if requestToken == "" {
		return nil, fmt.Errorf("request token is required")
	}

	token, err := s.client.ExchangeToken(ctx, requestToken)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	now := s.now()
	session := &models.BrokerSession{
		ID:          uuid.NewString(),
		AccessToken: token.AccessToken,
		PublicToken: token.PublicToken,
		BrokerUser:  token.UserID,
		ExpiresAt:   nextExpiry(now),
		CreatedAt:   now,
	}

	userID, stateErr := s.parseState(state)
	if stateErr == nil {
		session.UserID = userID
	} else {
		s.logger.Warn().Err(stateErr).Msg("Callback state invalid, persisting orphan session")
	}

	if err := s.storage.Sessions().SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	s.logger.Info().Str("session_id", session.ID).Str("user_id", session.UserID).
		Str("broker_user", session.BrokerUser).Time("expires_at", session.ExpiresAt).
		Msg("Broker session established")

	if session.UserID != "" {
		// Sync in the background so the redirect completes immediately.
		go func() {
			syncCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if _, err := s.SyncWithRetry(syncCtx, session.UserID); err != nil {
				s.logger.Error().Err(err).Str("user_id", session.UserID).Msg("Post-callback sync failed")
			}
		}()
	}

	return session, nil
}

// nextExpiry returns the next daily token-expiry boundary strictly after now.
func nextExpiry(now time.Time) time.Time {
	expiry := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), sessionExpiryHourUTC, 0, 0, 0, time.UTC)
	if !expiry.After(now) {
		expiry = expiry.AddDate(0, 0, 1)
	}
	return expiry
}

// Sync fetches the account's holdings and replaces the broker-sourced ledger
// rows wholesale. Every attempt appends a sync log entry.
func (s *Service) Sync(ctx context.Context, userID string) (int, error) {
	if s.client == nil {
		return 0, fmt.Errorf("broker client is not configured")
	}
	session, err := s.storage.Sessions().CurrentSession(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("no broker session: %w", err)
	}
	if !session.ValidAt(s.now()) {
		return 0, fmt.Errorf("broker session expired at %s", session.ExpiresAt.Format(time.RFC3339))
	}

	raw, err := s.client.FetchHoldings(ctx, session.AccessToken)
	if err != nil {
		s.appendLog(ctx, userID, models.SyncStatusFailure, 0, err.Error())
		return 0, fmt.Errorf("failed to fetch holdings: %w", err)
	}

	holdings := normalizeHoldings(userID, raw, s.now())
	if err := s.storage.Holdings().ReplaceSource(ctx, userID, models.SourceKite, holdings); err != nil {
		s.appendLog(ctx, userID, models.SyncStatusFailure, 0, err.Error())
		return 0, fmt.Errorf("failed to store holdings: %w", err)
	}

	s.appendLog(ctx, userID, models.SyncStatusSuccess, len(holdings), "")
	if s.cache != nil {
		s.cache.Clear(userID)
	}

	s.logger.Info().Str("user_id", userID).Int("count", len(holdings)).Msg("Broker sync completed")
	return len(holdings), nil
}

// SyncWithRetry runs Sync with exponential backoff. The last error is
// returned after the attempt budget is exhausted.
func (s *Service) SyncWithRetry(ctx context.Context, userID string) (int, error) {
	delay := retryInitialDelay
	var lastErr error
	for attempt := 1; attempt <= retryMaxAttempts; attempt++ {
		count, err := s.Sync(ctx, userID)
		if err == nil {
			return count, nil
		}
		lastErr = err
		if attempt == retryMaxAttempts {
			break
		}
		s.logger.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).
			Str("user_id", userID).Msg("Broker sync failed, retrying")
		if err := s.sleep(ctx, delay); err != nil {
			return 0, err
		}
		delay *= 2
		if delay > retryMaxDelay {
			delay = retryMaxDelay
		}
	}
	return 0, fmt.Errorf("broker sync failed after %d attempts: %w", retryMaxAttempts, lastErr)
}

// Disconnect revokes the session with the provider on a best-effort basis,
// deletes all session rows, and appends a disconnected entry to the sync
// log. Holdings are kept; health reporting marks the source disconnected.
func (s *Service) Disconnect(ctx context.Context, userID string) error {
	session, err := s.storage.Sessions().CurrentSession(ctx, userID)
	if err == nil && s.client != nil && session.ValidAt(s.now()) {
		if err := s.client.InvalidateToken(ctx, session.AccessToken); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("Provider token revocation failed")
		}
	}

	count, err := s.storage.Sessions().DeleteSessions(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}

	s.appendLog(ctx, userID, models.SyncStatusDisconnected, 0, "")
	if s.cache != nil {
		s.cache.Clear(userID)
	}

	s.logger.Info().Str("user_id", userID).Int("sessions", count).Msg("Broker disconnected")
	return nil
}

func (s *Service) appendLog(ctx context.Context, userID string, status models.SyncStatus, count int, errMsg string) {
	entry := &models.SyncLogEntry{
		ID:            uuid.NewString(),
		UserID:        userID,
		Source:        models.SourceKite,
		Status:        status,
		HoldingsCount: count,
		ErrorMessage:  errMsg,
		CreatedAt:     s.now(),
	}
	if err := s.storage.SyncLog().Append(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to append sync log entry")
	}
}

// normalizeHoldings maps raw broker rows onto the canonical holding shape.
func normalizeHoldings(userID string, raw []models.KiteHolding, now time.Time) []models.Holding {
	holdings := make([]models.Holding, 0, len(raw))
	for _, r := range raw {
		if r.TradingSymbol == "" {
			continue
		}
		holdings = append(holdings, models.Holding{
			ID:        uuid.NewString(),
			UserID:    userID,
			Symbol:    r.TradingSymbol,
			Name:      r.TradingSymbol,
			ISIN:      r.ISIN,
			Type:      classifyInstrument(r.TradingSymbol),
			Sector:    models.SectorUnknown,
			Quantity:  r.Quantity,
			AvgPrice:  r.AveragePrice,
			LTP:       r.LastPrice,
			Exchange:  r.Exchange,
			Source:    models.SourceKite,
			UpdatedAt: now,
		})
	}
	return holdings
}

// classifyInstrument distinguishes exchange-traded funds from stocks by the
// symbol conventions Indian ETFs follow.
func classifyInstrument(symbol string) models.AssetType {
	upper := strings.ToUpper(symbol)
	if strings.HasSuffix(upper, "BEES") || strings.Contains(upper, "ETF") {
		return models.AssetTypeETF
	}
	return models.AssetTypeStock
}

// Compile-time check
var _ interfaces.BrokerService = (*Service)(nil)
