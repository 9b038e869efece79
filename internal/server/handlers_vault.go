package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/stakd-me/stakd-sub000/internal/models"
)

// validateTransaction checks the fields a ledger entry must carry before it
// is accepted. Returns a message suitable for a 400 response, or "".
func validateTransaction(tx *models.Transaction) string {
	if !tx.Type.Valid() {
		return fmt.Sprintf("invalid transaction type '%s' (must be buy, sell, receive or send)", tx.Type)
	}
	if strings.TrimSpace(tx.TokenSymbol) == "" {
		return "tokenSymbol is required"
	}
	if tx.Quantity.Float() <= 0 {
		return "quantity must be greater than zero"
	}
	return ""
}

// validateManualEntry checks an off-exchange balance before it is accepted.
func validateManualEntry(entry *models.ManualEntry) string {
	if strings.TrimSpace(entry.TokenSymbol) == "" {
		return "tokenSymbol is required"
	}
	if entry.Quantity.Float() <= 0 {
		return "quantity must be greater than zero"
	}
	return ""
}

// --- Transaction handlers ---

// handleTransactions handles /api/vault/transactions (GET list, POST create).
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		txs, err := s.app.Storage.VaultStore().ListTransactions(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing transactions: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"transactions": txs,
			"count":        len(txs),
		})

	case http.MethodPost:
		var tx models.Transaction
		if !DecodeJSON(w, r, &tx) {
			return
		}
		if msg := validateTransaction(&tx); msg != "" {
			WriteError(w, http.StatusBadRequest, msg)
			return
		}
		created, err := s.app.VaultService.AddTransaction(r.Context(), &tx)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error adding transaction: %v", err))
			return
		}
		WriteJSON(w, http.StatusCreated, created)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleTransactionByID dispatches GET/PUT/DELETE for /api/vault/transactions/{id}.
func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/vault/transactions/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "transaction id is required in path")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleTransactionGet(w, r, id)
	case http.MethodPut:
		s.handleTransactionUpdate(w, r, id)
	case http.MethodDelete:
		s.handleTransactionDelete(w, r, id)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (s *Server) handleTransactionGet(w http.ResponseWriter, r *http.Request, id string) {
	tx, err := s.app.Storage.VaultStore().GetTransaction(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("transaction '%s' not found", id))
		return
	}
	WriteJSON(w, http.StatusOK, tx)
}

func (s *Server) handleTransactionUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var tx models.Transaction
	if !DecodeJSON(w, r, &tx) {
		return
	}
	// Path wins over any id in the body
	tx.ID = id

	if msg := validateTransaction(&tx); msg != "" {
		WriteError(w, http.StatusBadRequest, msg)
		return
	}

	if _, err := s.app.Storage.VaultStore().GetTransaction(r.Context(), id); err != nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("transaction '%s' not found", id))
		return
	}

	updated, err := s.app.VaultService.UpdateTransaction(r.Context(), &tx)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error updating transaction: %v", err))
		return
	}
	WriteJSON(w, http.StatusOK, updated)
}

func (s *Server) handleTransactionDelete(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := s.app.Storage.VaultStore().GetTransaction(r.Context(), id); err != nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("transaction '%s' not found", id))
		return
	}

	if err := s.app.VaultService.DeleteTransaction(r.Context(), id); err != nil {
		s.logger.Error().Err(err).Str("id", id).Msg("Failed to delete transaction")
		WriteError(w, http.StatusInternalServerError, "failed to delete transaction")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}

// --- Manual entry handlers ---

// handleManualEntries handles /api/vault/manual-entries (GET list, POST create).
func (s *Server) handleManualEntries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		entries, err := s.app.Storage.VaultStore().ListManualEntries(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing manual entries: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"manualEntries": entries,
			"count":         len(entries),
		})

	case http.MethodPost:
		var entry models.ManualEntry
		if !DecodeJSON(w, r, &entry) {
			return
		}
		if msg := validateManualEntry(&entry); msg != "" {
			WriteError(w, http.StatusBadRequest, msg)
			return
		}
		created, err := s.app.VaultService.AddManualEntry(r.Context(), &entry)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error adding manual entry: %v", err))
			return
		}
		WriteJSON(w, http.StatusCreated, created)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleManualEntryByID handles DELETE /api/vault/manual-entries/{id}.
func (s *Server) handleManualEntryByID(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/vault/manual-entries/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "manual entry id is required in path")
		return
	}

	if err := s.app.VaultService.DeleteManualEntry(r.Context(), id); err != nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("manual entry '%s' not found", id))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}

// --- Allocation target handlers ---

// handleTargets handles /api/vault/targets (GET, PUT replace).
func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		targets, err := s.app.Storage.VaultStore().ListTargets(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing targets: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"targets": targets,
		})

	case http.MethodPut:
		var req struct {
			Targets []models.RebalanceTarget `json:"targets"`
		}
		if !DecodeJSON(w, r, &req) {
			return
		}
		for _, target := range req.Targets {
			if strings.TrimSpace(target.TokenSymbol) == "" {
				WriteError(w, http.StatusBadRequest, "every target needs a tokenSymbol")
				return
			}
			if target.TargetPercent.Float() < 0 {
				WriteError(w, http.StatusBadRequest, fmt.Sprintf("target percent for '%s' must not be negative", target.TokenSymbol))
				return
			}
		}
		if err := s.app.VaultService.ReplaceTargets(r.Context(), req.Targets); err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error replacing targets: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"count":  len(req.Targets),
		})

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut)
	}
}

// --- Token group handlers ---

// handleGroups handles /api/vault/groups (GET, PUT replace).
func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		groups, err := s.app.Storage.VaultStore().ListGroups(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing groups: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"groups": groups,
		})

	case http.MethodPut:
		var req struct {
			Groups []models.TokenGroup `json:"groups"`
		}
		if !DecodeJSON(w, r, &req) {
			return
		}
		for _, group := range req.Groups {
			if strings.TrimSpace(group.Name) == "" {
				WriteError(w, http.StatusBadRequest, "every group needs a name")
				return
			}
		}
		if err := s.app.VaultService.ReplaceGroups(r.Context(), req.Groups); err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error replacing groups: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"count":  len(req.Groups),
		})

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut)
	}
}

// --- Category handlers ---

// handleCategories handles /api/vault/categories (GET, PUT replace).
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		categories, err := s.app.Storage.VaultStore().ListCategories(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing categories: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"categories": categories,
		})

	case http.MethodPut:
		var req struct {
			Categories []models.TokenCategory `json:"categories"`
		}
		if !DecodeJSON(w, r, &req) {
			return
		}
		for _, cat := range req.Categories {
			if strings.TrimSpace(cat.TokenSymbol) == "" {
				WriteError(w, http.StatusBadRequest, "every category needs a tokenSymbol")
				return
			}
		}
		if err := s.app.VaultService.ReplaceCategories(r.Context(), req.Categories); err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error replacing categories: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"count":  len(req.Categories),
		})

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut)
	}
}

// --- Settings handlers ---

// handleSettings handles /api/vault/settings (GET, PUT merge).
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := s.app.VaultService.GetSettings(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error loading settings: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"settings": settings,
		})

	case http.MethodPut:
		var req map[string]string
		if !DecodeJSON(w, r, &req) {
			return
		}
		if len(req) == 0 {
			WriteError(w, http.StatusBadRequest, "at least one settings key is required")
			return
		}
		if err := s.app.VaultService.UpdateSettings(r.Context(), req); err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error updating settings: %v", err))
			return
		}
		settings, err := s.app.VaultService.GetSettings(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error loading settings: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"settings": settings,
		})

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut)
	}
}

// --- Export / import handlers ---

// handleVaultExport handles POST /api/vault/export.
func (s *Server) handleVaultExport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Passphrase string `json:"passphrase"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Passphrase == "" {
		WriteError(w, http.StatusBadRequest, "passphrase is required")
		return
	}

	envelope, err := s.app.VaultService.Export(r.Context(), req.Passphrase)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Export error: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, envelope)
}

// handleVaultImport handles POST /api/vault/import.
func (s *Server) handleVaultImport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Passphrase string               `json:"passphrase"`
		Envelope   models.VaultEnvelope `json:"envelope"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Passphrase == "" {
		WriteError(w, http.StatusBadRequest, "passphrase is required")
		return
	}
	if len(req.Envelope.Ciphertext) == 0 {
		WriteError(w, http.StatusBadRequest, "envelope is required")
		return
	}

	if err := s.app.VaultService.Import(r.Context(), &req.Envelope, req.Passphrase); err != nil {
		// A wrong passphrase never touches stored data
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Import error: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}
