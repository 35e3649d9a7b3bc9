package server

import (
	"net/http"
	"time"

	"github.com/Sheringkapoting/portfo-blend/internal/common"
)

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": common.GetVersion(),
		"uptime":  time.Since(s.app.StartupTime).Round(time.Second).String(),
	})
}

// handleVersion handles GET /api/version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}
