package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sheringkapoting/portfo-blend/internal/common"
	"github.com/Sheringkapoting/portfo-blend/internal/models"
)

// defaultSnapshotLimit bounds GET /api/snapshots when no limit is given.
const defaultSnapshotLimit = 90

// handleSnapshotCapture handles POST /api/snapshots/capture. The caller must
// present the shared capture secret; the internal scheduler bypasses HTTP
// entirely.
func (s *Server) handleSnapshotCapture(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	secret := s.app.Config.Snapshot.CaptureSecret
	if secret != "" {
		presented := r.Header.Get("X-Capture-Secret")
		if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
			WriteError(w, http.StatusForbidden, "invalid capture secret")
			return
		}
	}

	filter, err := captureFilter(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := common.ResolveUserID(r.Context())
	snapshot, err := s.app.PortfolioService.CaptureSnapshot(r.Context(), userID, time.Now(), filter)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Capture error: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, snapshot)
}

// captureFilter parses the optional ?sources= and ?asset_types= restrictions
// (comma-separated). A request without either captures everything.
func captureFilter(r *http.Request) (*models.SnapshotFilter, error) {
	filter := &models.SnapshotFilter{}
	if v := r.URL.Query().Get("sources"); v != "" {
		for _, src := range strings.Split(v, ",") {
			src = strings.TrimSpace(src)
			if src != "" {
				filter.Sources = append(filter.Sources, src)
			}
		}
	}
	if v := r.URL.Query().Get("asset_types"); v != "" {
		for _, raw := range strings.Split(v, ",") {
			t := models.AssetType(strings.TrimSpace(raw))
			if t == "" {
				continue
			}
			if !models.ValidAssetType(t) {
				return nil, fmt.Errorf("unknown asset type '%s'", t)
			}
			filter.AssetTypes = append(filter.AssetTypes, t)
		}
	}
	if filter.Empty() {
		return nil, nil
	}
	return filter, nil
}

// handleSnapshotLatest handles GET /api/snapshots/latest.
func (s *Server) handleSnapshotLatest(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	userID := common.ResolveUserID(r.Context())
	snapshot, details, err := s.app.PortfolioService.LatestSnapshot(r.Context(), userID)
	if err != nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("No snapshot: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"snapshot": snapshot,
		"details":  details,
	})
}

// handleSnapshotList handles GET /api/snapshots.
func (s *Server) handleSnapshotList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := defaultSnapshotLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	userID := common.ResolveUserID(r.Context())
	snapshots, err := s.app.PortfolioService.ListSnapshots(r.Context(), userID, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing snapshots: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}
