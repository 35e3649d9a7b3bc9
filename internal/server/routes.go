package server

import (
	"net/http"
	"time"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Broker session lifecycle
	mux.HandleFunc("/api/broker/login-url", s.handleBrokerLoginURL)
	mux.HandleFunc("/api/broker/session", s.handleBrokerSession)
	mux.HandleFunc("/api/broker/callback", s.handleBrokerCallback)
	mux.HandleFunc("/api/broker/sync", s.handleBrokerSync)
	mux.HandleFunc("/api/broker/disconnect", s.handleBrokerDisconnect)

	// Mutual fund statement flow
	mux.HandleFunc("/api/mfcentral/sync", s.handleMFCentralSync)

	// Spreadsheet upload
	mux.HandleFunc("/api/holdings/upload", s.handleHoldingsUpload)

	// Portfolio views
	mux.HandleFunc("/api/portfolio/summary", s.handlePortfolioSummary)
	mux.HandleFunc("/api/portfolio/holdings", s.handlePortfolioHoldings)
	mux.HandleFunc("/api/portfolio/allocations", s.handlePortfolioAllocations)

	// Sync health
	mux.HandleFunc("/api/sync/health", s.handleSyncHealth)

	// Snapshots
	mux.HandleFunc("/api/snapshots/capture", s.handleSnapshotCapture)
	mux.HandleFunc("/api/snapshots/latest", s.handleSnapshotLatest)
	mux.HandleFunc("/api/snapshots", s.handleSnapshotList)
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		s.shutdown <- struct{}{}
	}()
}
