package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Sheringkapoting/portfo-blend/internal/common"
	"github.com/Sheringkapoting/portfo-blend/internal/reconcile"
)

// handleBrokerLoginURL handles GET /api/broker/login-url. A caller identity
// is required; missing provider credentials and missing identity are
// distinguishable by error code.
func (s *Server) handleBrokerLoginURL(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	uc := common.UserContextFromContext(r.Context())
	if uc == nil || uc.UserID == "" {
		WriteErrorWithCode(w, http.StatusUnauthorized, "caller identity required", "unauthorized")
		return
	}

	if s.app.KiteClient == nil {
		WriteErrorWithCode(w, http.StatusServiceUnavailable, "broker credentials are not configured", "not_configured")
		return
	}

	loginURL, err := s.app.BrokerService.LoginURL(uc.UserID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error building login URL: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"login_url": loginURL,
	})
}

// handleBrokerSession handles GET /api/broker/session.
func (s *Server) handleBrokerSession(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	userID := common.ResolveUserID(r.Context())
	status, err := s.app.BrokerService.SessionStatus(r.Context(), userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error checking session: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, status)
}

// handleBrokerCallback handles POST /api/broker/callback. The provider's
// redirect parameters arrive either as query string or JSON body. An error
// marker from the provider short-circuits through the reconciler, which
// surfaces the decoded message without polling.
func (s *Server) handleBrokerCallback(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		RequestToken string `json:"request_token"`
		State        string `json:"state"`
		BrokerError  string `json:"kite_error"`
	}
	req.RequestToken = r.URL.Query().Get("request_token")
	req.State = r.URL.Query().Get("state")
	req.BrokerError = r.URL.Query().Get("kite_error")
	if req.RequestToken == "" && req.BrokerError == "" && r.Body != nil {
		if !DecodeJSON(w, r, &req) {
			return
		}
	}

	userID := common.ResolveUserID(r.Context())

	if req.BrokerError != "" {
		result, err := s.app.Reconciler.Run(r.Context(), userID, req.BrokerError)
		if err != nil {
			if errors.Is(err, reconcile.ErrAlreadyRunning) {
				WriteError(w, http.StatusConflict, err.Error())
				return
			}
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Reconciliation error: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, result)
		return
	}

	session, err := s.app.BrokerService.HandleCallback(r.Context(), req.State, req.RequestToken)
	if err != nil {
		WriteError(w, http.StatusBadGateway, fmt.Sprintf("Callback error: %v", err))
		return
	}

	// Settle connection state in the background: adopt the session if state
	// validation left it orphaned and make sure a sync lands.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := s.app.Reconciler.Run(ctx, userID, ""); err != nil && !errors.Is(err, reconcile.ErrAlreadyRunning) {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Post-callback reconciliation failed")
		}
	}()

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"session_id":  session.ID,
		"broker_user": session.BrokerUser,
		"expires_at":  session.ExpiresAt,
		"associated":  session.UserID != "",
	})
}

// handleBrokerSync handles POST /api/broker/sync. ?retry=true runs the
// backoff schedule instead of a single attempt.
func (s *Server) handleBrokerSync(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	userID := common.ResolveUserID(r.Context())

	var count int
	var err error
	if r.URL.Query().Get("retry") == "true" {
		count, err = s.app.BrokerService.SyncWithRetry(r.Context(), userID)
	} else {
		count, err = s.app.BrokerService.Sync(r.Context(), userID)
	}
	if err != nil {
		WriteError(w, http.StatusBadGateway, fmt.Sprintf("Sync error: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"holdings_count": count,
	})
}

// handleBrokerDisconnect handles POST /api/broker/disconnect. Idempotent;
// disconnecting with no active session succeeds trivially.
func (s *Server) handleBrokerDisconnect(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	userID := common.ResolveUserID(r.Context())
	if err := s.app.BrokerService.Disconnect(r.Context(), userID); err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Disconnect error: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "broker disconnected",
	})
}
