// Package mfcas drives the OTP-gated mutual fund statement flow: start a
// sync, deliver the one-time password, fetch the consolidated statement, and
// decompose it into folios, transactions, scheme summaries, and holdings.
package mfcas

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Sheringkapoting/portfo-blend/internal/cache"
	"github.com/Sheringkapoting/portfo-blend/internal/clients/mfcentral"
	"github.com/Sheringkapoting/portfo-blend/internal/common"
	"github.com/Sheringkapoting/portfo-blend/internal/interfaces"
	"github.com/Sheringkapoting/portfo-blend/internal/models"
)

// panPattern is the statutory permanent account number format.
var panPattern = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)

// Service implements interfaces.MFCASService.
type Service struct {
	storage interfaces.StorageManager
	client  interfaces.CASClient
	cache   *cache.Store
	logger  *common.Logger
	now     func() time.Time
}

// NewService creates a mutual fund statement service.
func NewService(storage interfaces.StorageManager, client interfaces.CASClient, cacheStore *cache.Store, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		client:  client,
		cache:   cacheStore,
		logger:  logger,
		now:     time.Now,
	}
}

// StartSync validates the request, creates a sync row in pending_otp, and
// asks the provider to deliver the one-time password. The row advances to
// otp_sent on success and to failed on any provider error.
func (s *Service) StartSync(ctx context.Context, userID, pan string, method models.OTPMethod, phone, email string) (*models.MFCASSync, error) {
	pan = strings.ToUpper(strings.TrimSpace(pan))
	if !panPattern.MatchString(pan) {
		return nil, fmt.Errorf("invalid PAN format")
	}
	switch method {
	case models.OTPMethodPhone:
		if phone == "" {
			return nil, fmt.Errorf("phone is required for phone OTP delivery")
		}
	case models.OTPMethodEmail:
		if email == "" {
			return nil, fmt.Errorf("email is required for email OTP delivery")
		}
	default:
		return nil, fmt.Errorf("unsupported OTP method '%s'", method)
	}
	if s.client == nil {
		return nil, mfcentral.ErrNotConfigured
	}

	now := s.now()
	sync := &models.MFCASSync{
		ID:        uuid.NewString(),
		UserID:    userID,
		PAN:       pan,
		Method:    method,
		Phone:     phone,
		Email:     email,
		Phase:     models.MFPhasePendingOTP,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.storage.MutualFunds().SaveSync(ctx, sync); err != nil {
		return nil, fmt.Errorf("failed to persist sync: %w", err)
	}

	reference, err := s.client.RequestOTP(ctx, pan, method, phone, email)
	if err != nil {
		s.fail(ctx, sync, err)
		return sync, fmt.Errorf("otp request failed: %w", err)
	}

	sync.Phase = models.MFPhaseOTPSent
	sync.OTPReference = reference
	sync.UpdatedAt = s.now()
	if err := s.storage.MutualFunds().SaveSync(ctx, sync); err != nil {
		return nil, fmt.Errorf("failed to persist sync: %w", err)
	}

	s.logger.Info().Str("sync_id", sync.ID).Str("user_id", userID).
		Str("method", string(method)).Msg("MF statement OTP requested")
	return sync, nil
}

// SubmitOTP verifies the code. Invalid codes and transient provider errors
// leave the sync in otp_sent so the user may retry; only an expired
// reference fails the sync. Verification never advances past verified; the
// statement fetch is a separate call.
func (s *Service) SubmitOTP(ctx context.Context, userID, syncID, otp string) (*models.MFCASSync, error) {
	sync, err := s.ownedSync(ctx, userID, syncID)
	if err != nil {
		return nil, err
	}
	if sync.Phase.Terminal() {
		return nil, fmt.Errorf("sync '%s' already %s", syncID, sync.Phase)
	}
	if sync.Phase != models.MFPhaseOTPSent {
		return nil, fmt.Errorf("sync '%s' is not awaiting an OTP (phase %s)", syncID, sync.Phase)
	}

	if err := s.client.VerifyOTP(ctx, sync.OTPReference, otp); err != nil {
		if errors.Is(err, mfcentral.ErrReferenceExpired) {
			s.fail(ctx, sync, err)
			return sync, fmt.Errorf("otp verification failed: %w", err)
		}
		// Invalid codes and transient provider errors are retryable: the
		// reference stays live and the sync stays in otp_sent.
		return sync, fmt.Errorf("otp verification failed: %w", err)
	}

	sync.Phase = models.MFPhaseVerified
	sync.UpdatedAt = s.now()
	if err := s.storage.MutualFunds().SaveSync(ctx, sync); err != nil {
		return nil, fmt.Errorf("failed to persist sync: %w", err)
	}
	return sync, nil
}

// FetchCAS runs the statement fetch and decomposition for a verified sync.
// Calling before verification, or again after completion, is rejected. A
// transient failure returns the sync to verified so the fetch can be retried
// without a new OTP round; only an expired reference is terminal.
func (s *Service) FetchCAS(ctx context.Context, userID, syncID string) (*models.MFCASSync, error) {
	sync, err := s.ownedSync(ctx, userID, syncID)
	if err != nil {
		return nil, err
	}
	if sync.Phase != models.MFPhaseVerified {
		return nil, fmt.Errorf("sync '%s' is not verified (phase %s)", syncID, sync.Phase)
	}
	if err := s.runStatementSync(ctx, sync); err != nil {
		return sync, err
	}
	return sync, nil
}

// SyncStatus returns the sync row after an ownership check.
func (s *Service) SyncStatus(ctx context.Context, userID, syncID string) (*models.MFCASSync, error) {
	return s.ownedSync(ctx, userID, syncID)
}

func (s *Service) ownedSync(ctx context.Context, userID, syncID string) (*models.MFCASSync, error) {
	sync, err := s.storage.MutualFunds().GetSync(ctx, syncID)
	if err != nil {
		return nil, err
	}
	if sync.UserID != userID {
		return nil, fmt.Errorf("mf sync '%s' not found", syncID)
	}
	return sync, nil
}

// runStatementSync fetches and decomposes the statement, replacing the
// user's statement data and mutual fund holdings wholesale.
func (s *Service) runStatementSync(ctx context.Context, sync *models.MFCASSync) error {
	sync.Phase = models.MFPhaseSyncing
	sync.UpdatedAt = s.now()
	if err := s.storage.MutualFunds().SaveSync(ctx, sync); err != nil {
		return fmt.Errorf("failed to persist sync: %w", err)
	}

	stmt, err := s.client.FetchStatement(ctx, sync.OTPReference)
	if err != nil {
		if errors.Is(err, mfcentral.ErrReferenceExpired) {
			s.fail(ctx, sync, err)
		} else {
			s.restoreVerified(ctx, sync, err)
		}
		s.appendLog(ctx, sync.UserID, models.SyncStatusFailure, 0, err.Error())
		return fmt.Errorf("statement fetch failed: %w", err)
	}

	folios, txns, summaries := Decompose(sync, stmt, s.now())
	if err := s.storage.MutualFunds().ReplaceStatement(ctx, sync.UserID, folios, txns, summaries); err != nil {
		s.restoreVerified(ctx, sync, err)
		s.appendLog(ctx, sync.UserID, models.SyncStatusFailure, 0, err.Error())
		return fmt.Errorf("failed to store statement data: %w", err)
	}

	holdings := holdingsFromSummaries(sync.UserID, summaries, s.now())
	if err := s.storage.Holdings().ReplaceSource(ctx, sync.UserID, models.SourceMFCentral, holdings); err != nil {
		s.restoreVerified(ctx, sync, err)
		s.appendLog(ctx, sync.UserID, models.SyncStatusFailure, 0, err.Error())
		return fmt.Errorf("failed to store holdings: %w", err)
	}

	sync.Phase = models.MFPhaseCompleted
	sync.ErrorMessage = ""
	sync.UpdatedAt = s.now()
	if err := s.storage.MutualFunds().SaveSync(ctx, sync); err != nil {
		return fmt.Errorf("failed to persist sync: %w", err)
	}

	s.appendLog(ctx, sync.UserID, models.SyncStatusSuccess, len(holdings), "")
	if s.cache != nil {
		s.cache.Clear(sync.UserID)
	}

	s.logger.Info().Str("sync_id", sync.ID).Str("user_id", sync.UserID).
		Int("folios", len(folios)).Int("holdings", len(holdings)).
		Msg("MF statement sync completed")
	return nil
}

// restoreVerified returns a sync interrupted by a transient error to
// verified so the statement fetch can be retried without a new OTP round.
func (s *Service) restoreVerified(ctx context.Context, sync *models.MFCASSync, cause error) {
	sync.Phase = models.MFPhaseVerified
	sync.ErrorMessage = cause.Error()
	sync.UpdatedAt = s.now()
	if err := s.storage.MutualFunds().SaveSync(ctx, sync); err != nil {
		s.logger.Error().Err(err).Str("sync_id", sync.ID).Msg("Failed to persist sync after transient fetch error")
	}
}

// fail moves a non-terminal sync to failed with the error message. Reserved
// for an expired provider reference and the initial OTP request, where no
// earlier phase remains to resume from.
func (s *Service) fail(ctx context.Context, sync *models.MFCASSync, cause error) {
	if sync.Phase.Terminal() {
		return
	}
	sync.Phase = models.MFPhaseFailed
	sync.ErrorMessage = cause.Error()
	sync.UpdatedAt = s.now()
	if err := s.storage.MutualFunds().SaveSync(ctx, sync); err != nil {
		s.logger.Error().Err(err).Str("sync_id", sync.ID).Msg("Failed to persist failed sync")
	}
}

func (s *Service) appendLog(ctx context.Context, userID string, status models.SyncStatus, count int, errMsg string) {
	entry := &models.SyncLogEntry{
		ID:            uuid.NewString(),
		UserID:        userID,
		Source:        models.SourceMFCentral,
		Status:        status,
		HoldingsCount: count,
		ErrorMessage:  errMsg,
		CreatedAt:     s.now(),
	}
	if err := s.storage.SyncLog().Append(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to append sync log entry")
	}
}

// Compile-time check
var _ interfaces.MFCASService = (*Service)(nil)
