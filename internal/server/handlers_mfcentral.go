package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Sheringkapoting/portfo-blend/internal/clients/mfcentral"
	"github.com/Sheringkapoting/portfo-blend/internal/common"
	"github.com/Sheringkapoting/portfo-blend/internal/models"
)

// handleMFCentralSync handles POST /api/mfcentral/sync. The three OTP
// protocol phases are multiplexed over one endpoint via an action
// discriminator: request_otp, verify_otp, fetch_cas. A status action reads
// the sync row without advancing it.
func (s *Server) handleMFCentralSync(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Action string `json:"action"`
		PAN    string `json:"pan"`
		Method string `json:"method"`
		Phone  string `json:"phone"`
		Email  string `json:"email"`
		SyncID string `json:"sync_id"`
		OTP    string `json:"otp"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	userID := common.ResolveUserID(r.Context())

	switch req.Action {
	case "request_otp":
		sync, err := s.app.MFCASService.StartSync(r.Context(), userID, req.PAN, models.OTPMethod(req.Method), req.Phone, req.Email)
		if err != nil {
			writeMFError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, sync)

	case "verify_otp":
		if req.SyncID == "" || req.OTP == "" {
			WriteError(w, http.StatusBadRequest, "sync_id and otp are required")
			return
		}
		sync, err := s.app.MFCASService.SubmitOTP(r.Context(), userID, req.SyncID, req.OTP)
		if err != nil {
			writeMFError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, sync)

	case "fetch_cas":
		if req.SyncID == "" {
			WriteError(w, http.StatusBadRequest, "sync_id is required")
			return
		}
		sync, err := s.app.MFCASService.FetchCAS(r.Context(), userID, req.SyncID)
		if err != nil {
			writeMFError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, sync)

	case "status":
		if req.SyncID == "" {
			WriteError(w, http.StatusBadRequest, "sync_id is required")
			return
		}
		sync, err := s.app.MFCASService.SyncStatus(r.Context(), userID, req.SyncID)
		if err != nil {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("Sync not found: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, sync)

	default:
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("unknown action '%s'", req.Action))
	}
}

// writeMFError maps the statement provider's protocol errors onto HTTP
// statuses and codes the client can branch on.
func writeMFError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mfcentral.ErrNotConfigured):
		WriteErrorWithCode(w, http.StatusServiceUnavailable, err.Error(), "not_configured")
	case errors.Is(err, mfcentral.ErrUnauthorized):
		WriteErrorWithCode(w, http.StatusUnauthorized, err.Error(), "unauthorized")
	case errors.Is(err, mfcentral.ErrInvalidOTP):
		WriteErrorWithCode(w, http.StatusUnprocessableEntity, err.Error(), "invalid_otp")
	case errors.Is(err, mfcentral.ErrReferenceExpired):
		WriteErrorWithCode(w, http.StatusGone, err.Error(), "reference_expired")
	default:
		WriteError(w, http.StatusBadRequest, err.Error())
	}
}
