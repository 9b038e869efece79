package server

import (
	"fmt"
	"net/http"

	"github.com/stakd-me/stakd-sub000/internal/interfaces"
)

// --- Rebalance handlers ---

// handleSuggestions handles GET /api/rebalance/suggestions.
// An optional ?strategy= query overrides the vault's configured strategy
// for this run only; unrecognized values fall back to the default.
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	opts := interfaces.SuggestOptions{
		Strategy: r.URL.Query().Get("strategy"),
	}

	data, err := s.app.RebalanceService.Suggestions(r.Context(), opts)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error computing suggestions: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, data)
}

// handleAlerts handles GET /api/rebalance/alerts.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	alerts, err := s.app.RebalanceService.Alerts(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error evaluating alerts: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}
