package server

import (
	"net/http"
	"runtime"

	"github.com/stakd-me/stakd-sub000/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/debug/memstats", s.handleMemstats)

	// Vault
	mux.HandleFunc("/api/vault/transactions/", s.handleTransactionByID)
	mux.HandleFunc("/api/vault/transactions", s.handleTransactions)
	mux.HandleFunc("/api/vault/manual-entries/", s.handleManualEntryByID)
	mux.HandleFunc("/api/vault/manual-entries", s.handleManualEntries)
	mux.HandleFunc("/api/vault/targets", s.handleTargets)
	mux.HandleFunc("/api/vault/groups", s.handleGroups)
	mux.HandleFunc("/api/vault/categories", s.handleCategories)
	mux.HandleFunc("/api/vault/settings", s.handleSettings)
	mux.HandleFunc("/api/vault/export", s.handleVaultExport)
	mux.HandleFunc("/api/vault/import", s.handleVaultImport)

	// Portfolio
	mux.HandleFunc("/api/portfolio/holdings", s.handleHoldings)
	mux.HandleFunc("/api/portfolio/summary", s.handleSummary)
	mux.HandleFunc("/api/portfolio/timeline", s.handleTimeline)
	mux.HandleFunc("/api/portfolio/history", s.handleHistory)

	// Rebalance
	mux.HandleFunc("/api/rebalance/suggestions", s.handleSuggestions)
	mux.HandleFunc("/api/rebalance/alerts", s.handleAlerts)

	// Market
	mux.HandleFunc("/api/market/prices", s.handleMarketPrices)
	mux.HandleFunc("/api/market/refresh", s.handleMarketRefresh)

	// Reports
	mux.HandleFunc("/api/report/rebalance", s.handleRebalanceReport)
	mux.HandleFunc("/api/report/charts/allocation", s.handleAllocationChart)
	mux.HandleFunc("/api/report/charts/deviation", s.handleDeviationChart)

	// Live updates
	mux.HandleFunc("/api/ws/portfolio", s.handlePortfolioWS)
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

func (s *Server) handleMemstats(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"heap_alloc_bytes": m.HeapAlloc,
		"heap_inuse_bytes": m.HeapInuse,
		"heap_idle_bytes":  m.HeapIdle,
		"sys_bytes":        m.Sys,
		"num_gc":           m.NumGC,
		"heap_alloc_mb":    float64(m.HeapAlloc) / 1024 / 1024,
		"heap_inuse_mb":    float64(m.HeapInuse) / 1024 / 1024,
		"heap_idle_mb":     float64(m.HeapIdle) / 1024 / 1024,
		"sys_mb":           float64(m.Sys) / 1024 / 1024,
	})
}

// handlePortfolioWS handles GET /api/ws/portfolio (WebSocket upgrade).
func (s *Server) handlePortfolioWS(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	if s.app.Hub == nil {
		WriteError(w, http.StatusServiceUnavailable, "Live updates not running")
		return
	}

	s.app.Hub.ServeWS(w, r)
}
