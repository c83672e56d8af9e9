package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
)

// transactionRequest is the JSON body for creating or updating a
// transaction. Amount accepts a decimal number or string, never signed.
type transactionRequest struct {
	Description string     `json:"description"`
	Amount      core.Money `json:"amount"`
	Kind        core.Kind  `json:"type"`
	CategoryID  string     `json:"category"`
	Date        core.Date  `json:"date"`
	Notes       string     `json:"notes"`
	Tags        []string   `json:"tags"`
	Location    string     `json:"location"`
}

func (req transactionRequest) toInput() ledger.TransactionInput {
	return ledger.TransactionInput{
		Description: sanitizeInput(req.Description),
		Amount:      req.Amount,
		Kind:        req.Kind,
		CategoryID:  req.CategoryID,
		Date:        req.Date,
		Notes:       sanitizeInput(req.Notes),
		Tags:        req.Tags,
		Location:    sanitizeInput(req.Location),
	}
}

type categoryRequest struct {
	Name  string    `json:"name"`
	Icon  string    `json:"icon"`
	Color string    `json:"color"`
	Kind  core.Kind `json:"type"`
}

type budgetRequest struct {
	Amount core.Money  `json:"amount"`
	Period core.Period `json:"period"`
}

type filterRequest struct {
	Mode     core.FilterMode `json:"mode"`
	MonthKey string          `json:"monthKey"`
	From     core.Date       `json:"from"`
	To       core.Date       `json:"to"`
}

// ---------------------------------------------------------------------------
// Dashboard
// ---------------------------------------------------------------------------

// handleDashboard serves the full dashboard snapshot, cached per
// revision and selection.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	key := s.snapshotCacheKey()
	if data, found := s.snapshotCache.Get(key); found {
		slog.DebugContext(r.Context(), "Snapshot cache hit", "key", key)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	snap := s.tracker.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		slog.ErrorContext(r.Context(), "Snapshot encoding failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.snapshotCache.Set(key, data)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{"months": snap.MonthKeys})
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"selection":    snap.Selection,
		"transactions": snap.Transactions,
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tr, err := s.tracker.AddTransaction(r.Context(), req.toInput())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tr)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tr, err := s.tracker.UpdateTransaction(r.Context(), r.PathValue("id"), req.toInput())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": s.tracker.Categories()})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cat, err := s.tracker.CreateCategory(r.Context(), sanitizeInput(req.Name), req.Icon, req.Color, req.Kind)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cat, err := s.tracker.UpdateCategory(r.Context(), r.PathValue("id"), sanitizeInput(req.Name), req.Icon, req.Color, req.Kind)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Budgets
// ---------------------------------------------------------------------------

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	b, err := s.tracker.SetBudget(r.Context(), r.PathValue("categoryID"), req.Amount, req.Period)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleRemoveBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.RemoveBudget(r.Context(), r.PathValue("categoryID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Filter selection
// ---------------------------------------------------------------------------

func (s *Server) handleGetFilter(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Selection())
}

func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var err error
	switch req.Mode {
	case core.ModeAllTime:
		s.tracker.SelectAllTime()
	case core.ModeSingleMonth:
		err = s.tracker.SelectMonth(req.MonthKey)
	case core.ModeCustomRange:
		err = s.tracker.ApplyCustomRange(req.From, req.To)
	default:
		writeError(w, http.StatusUnprocessableEntity, "unknown filter mode")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.Selection())
}

// ---------------------------------------------------------------------------
// Export and import
// ---------------------------------------------------------------------------

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	data, err := s.tracker.ExportJSON()
	if err != nil {
		slog.ErrorContext(r.Context(), "Export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="bilancio-backup.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="bilancio-transactions.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(s.tracker.ExportCSV())
}

func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="bilancio-report.txt"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(s.tracker.ExportReport())
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 16<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.tracker.ImportJSON(r.Context(), payload); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imported": true})
}

// ---------------------------------------------------------------------------
// Settings and reset
// ---------------------------------------------------------------------------

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Root().Settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings core.Settings
	if err := decodeBody(r, &settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.tracker.UpdateSettings(r.Context(), settings)
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.Reset(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Reset failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reset": true})
}
