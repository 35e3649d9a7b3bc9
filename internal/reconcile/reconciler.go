// Package reconcile settles the broker connection state after an OAuth
// redirect lands back on the app. It polls for the expected session, adopts
// an orphaned one when association never happened, and confirms a fresh sync
// landed, falling back to a manual sync when it did not.
package reconcile

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/Sheringkapoting/portfo-blend/internal/common"
	"github.com/Sheringkapoting/portfo-blend/internal/interfaces"
	"github.com/Sheringkapoting/portfo-blend/internal/models"
)

// Polling budgets. Session polling is short and frequent because the
// callback normally persists the session within a second or two; sync
// polling is slower because a holdings fetch takes longer.
const (
	sessionPollAttempts = 30
	sessionPollInterval = 1 * time.Second
	orphanPollAttempts  = 5
	syncPollAttempts    = 15
	syncPollInterval    = 2 * time.Second

	// syncFreshWindow bounds how old a success entry may be and still count
	// as the sync this reconciliation is waiting for.
	syncFreshWindow = 2 * time.Minute
)

var (
	// ErrAlreadyRunning is returned when a reconciliation for this instance
	// is still in flight.
	ErrAlreadyRunning = fmt.Errorf("reconciliation already in progress")

	// ErrSessionNotFound means the polling budget elapsed without any usable
	// session appearing; the user must retry the login.
	ErrSessionNotFound = fmt.Errorf("no broker session appeared within the polling budget")
)

// Result describes how the reconciliation settled.
type Result struct {
	Connected    bool   `json:"connected"`
	Adopted      bool   `json:"adopted"`      // an orphan session was claimed
	Synced       bool   `json:"synced"`       // a fresh sync log entry was observed
	ManualSync   bool   `json:"manual_sync"`  // the fallback sync was triggered
	ErrorMessage string `json:"error_message,omitempty"`
}

// Reconciler runs at most one reconciliation at a time.
type Reconciler struct {
	storage interfaces.StorageManager
	broker  interfaces.BrokerService
	logger  *common.Logger
	running atomic.Bool

	// now and sleep are injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a reconciler.
func New(storage interfaces.StorageManager, broker interfaces.BrokerService, logger *common.Logger) *Reconciler {
	return &Reconciler{
		storage: storage,
		broker:  broker,
		logger:  logger,
		now:     time.Now,
		sleep:   sleepCtx,
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

// Run reconciles the user's broker connection. brokerError is the provider's
// error marker from the redirect, when one was present: its decoded message
// is surfaced immediately and no polling happens.
func (r *Reconciler) Run(ctx context.Context, userID, brokerError string) (*Result, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer r.running.Store(false)

	if brokerError != "" {
		message := brokerError
		if decoded, err := url.QueryUnescape(brokerError); err == nil {
			message = decoded
		}
		r.logger.Warn().Str("user_id", userID).Str("error", message).Msg("Broker redirect carried an error marker")
		return &Result{Connected: false, ErrorMessage: message}, nil
	}

	result := &Result{}

	connected, err := r.waitForSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !connected {
		// The callback may have landed without a usable state token. Claim
		// the orphaned session it left behind.
		adopted, err := r.adoptOrphan(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !adopted {
			return nil, ErrSessionNotFound
		}
		result.Adopted = true
	}
	result.Connected = true

	synced, err := r.waitForSync(ctx, userID)
	if err != nil {
		return nil, err
	}
	if synced {
		result.Synced = true
		return result, nil
	}

	// No fresh sync landed inside the budget; trigger one ourselves.
	result.ManualSync = true
	if _, err := r.broker.SyncWithRetry(ctx, userID); err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("Fallback sync failed")
		result.ErrorMessage = err.Error()
		return result, nil
	}
	result.Synced = true
	return result, nil
}

// waitForSession polls for a valid session owned by the user.
func (r *Reconciler) waitForSession(ctx context.Context, userID string) (bool, error) {
	for attempt := 0; attempt < sessionPollAttempts; attempt++ {
		if attempt > 0 {
			if err := r.sleep(ctx, sessionPollInterval); err != nil {
				return false, err
			}
		}
		session, err := r.storage.Sessions().CurrentSession(ctx, userID)
		if err == nil && session.ValidAt(r.now()) {
			return true, nil
		}
	}
	return false, nil
}

// adoptOrphan polls for an unowned valid session and associates it with the
// user. At most one orphan is assumed to exist at a time; concurrent
// unauthenticated logins would race for the same row.
func (r *Reconciler) adoptOrphan(ctx context.Context, userID string) (bool, error) {
	for attempt := 0; attempt < orphanPollAttempts; attempt++ {
		if attempt > 0 {
			if err := r.sleep(ctx, sessionPollInterval); err != nil {
				return false, err
			}
		}
		session, err := r.storage.Sessions().OrphanSession(ctx)
		if err != nil || !session.ValidAt(r.now()) {
			continue
		}
		if err := r.storage.Sessions().AssociateSession(ctx, session.ID, userID); err != nil {
			return false, fmt.Errorf("failed to adopt orphan session: %w", err)
		}
		r.logger.Info().Str("session_id", session.ID).Str("user_id", userID).Msg("Orphan session adopted")
		return true, nil
	}
	return false, nil
}

// waitForSync polls the sync log for a success entry fresh enough to belong
// to this connection attempt.
func (r *Reconciler) waitForSync(ctx context.Context, userID string) (bool, error) {
	for attempt := 0; attempt < syncPollAttempts; attempt++ {
		if attempt > 0 {
			if err := r.sleep(ctx, syncPollInterval); err != nil {
				return false, err
			}
		}
		entry, err := r.storage.SyncLog().LatestSuccess(ctx, userID, models.SourceKite)
		if err != nil {
			return false, err
		}
		if entry != nil && r.now().Sub(entry.CreatedAt) < syncFreshWindow {
			return true, nil
		}
	}
	return false, nil
}
