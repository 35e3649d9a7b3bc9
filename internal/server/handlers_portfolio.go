package server

import (
	"fmt"
	"net/http"

	"github.com/Sheringkapoting/portfo-blend/internal/common"
)

// handlePortfolioSummary handles GET /api/portfolio/summary.
func (s *Server) handlePortfolioSummary(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	userID := common.ResolveUserID(r.Context())
	summary, err := s.app.PortfolioService.Summary(r.Context(), userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error computing summary: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}

// handlePortfolioHoldings handles GET /api/portfolio/holdings.
func (s *Server) handlePortfolioHoldings(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	userID := common.ResolveUserID(r.Context())
	holdings, err := s.app.PortfolioService.Holdings(r.Context(), userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error loading holdings: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"holdings": holdings,
		"count":    len(holdings),
	})
}

// handlePortfolioAllocations handles GET /api/portfolio/allocations?by=...
func (s *Server) handlePortfolioAllocations(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	dimension := r.URL.Query().Get("by")
	if dimension == "" {
		dimension = "type"
	}

	userID := common.ResolveUserID(r.Context())
	buckets, err := s.app.PortfolioService.Allocations(r.Context(), userID, dimension)
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Allocation error: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"by":          dimension,
		"allocations": buckets,
	})
}

// handleSyncHealth handles GET /api/sync/health.
func (s *Server) handleSyncHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	userID := common.ResolveUserID(r.Context())
	report, err := s.app.HealthService.Report(r.Context(), userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error building health report: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sources": report,
	})
}
