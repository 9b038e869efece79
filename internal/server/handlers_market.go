package server

import (
	"fmt"
	"net/http"

	"github.com/stakd-me/stakd-sub000/internal/realtime"
)

// --- Market data handlers ---

// handleMarketPrices handles GET /api/market/prices.
func (s *Server) handleMarketPrices(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	prices, err := s.app.MarketService.Prices(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error loading prices: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"prices": prices,
		"count":  len(prices),
	})
}

// handleMarketRefresh handles POST /api/market/refresh. The refresh is
// forced, bypassing the freshness window, and pushes the recomputed
// summary to connected websocket clients.
func (s *Server) handleMarketRefresh(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	prices, err := s.app.MarketService.Refresh(r.Context(), true)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Refresh error: %v", err))
		return
	}

	if s.app.Hub != nil && len(prices) > 0 {
		if summary, err := s.app.PortfolioService.Summary(r.Context()); err == nil {
			s.app.Hub.Broadcast(realtime.PortfolioUpdate(summary))
		}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"prices": prices,
		"count":  len(prices),
	})
}
