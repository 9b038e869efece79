package server

import (
	"fmt"
	"net/http"
	"time"
)

// --- Portfolio handlers ---

// handleHoldings handles GET /api/portfolio/holdings.
func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	holdings, err := s.app.PortfolioService.Holdings(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error computing holdings: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"holdings": holdings,
		"count":    len(holdings),
	})
}

// handleSummary handles GET /api/portfolio/summary.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	summary, err := s.app.PortfolioService.Summary(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error computing summary: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}

// handleTimeline handles GET /api/portfolio/timeline.
func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	timeline, err := s.app.PortfolioService.RealizedTimeline(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error computing timeline: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, timeline)
}

// handleHistory handles GET /api/portfolio/history?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	from := r.URL.Query().Get("from")
	if from != "" {
		if _, err := time.Parse("2006-01-02", from); err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid from date '%s' (use YYYY-MM-DD)", from))
			return
		}
	}

	to := r.URL.Query().Get("to")
	if to != "" {
		if _, err := time.Parse("2006-01-02", to); err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid to date '%s' (use YYYY-MM-DD)", to))
			return
		}
	}

	snapshots, err := s.app.PortfolioService.History(r.Context(), from, to)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error loading history: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}
