package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/storage"
)

type expenseRequest struct {
	Amount      string `json:"amount"` // decimal string, e.g. "45.00"
	Category    string `json:"category"`
	Date        string `json:"date"` // YYYY-MM-DD
	Description string `json:"description"`
	Source      string `json:"source"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

type expenseResponse struct {
	ID          int64  `json:"id"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Source      string `json:"source"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		Amount:      e.Amount.String(),
		Category:    string(e.Category),
		Date:        e.Date.Format("2006-01-02"),
		Description: e.Description,
		Source:      string(e.Source),
		ImageURL:    e.ImageURL,
	}
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	var filter storage.ExpenseFilter
	if v := strings.TrimSpace(r.URL.Query().Get("category")); v != "" {
		cat, err := core.ParseCategory(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown category")
			return
		}
		filter.Category = cat
	}
	if r.URL.Query().Get("year") != "" || r.URL.Query().Get("month") != "" {
		filter.Year, filter.Month = parseYearMonth(r)
	}

	expenses, err := s.storage.ListExpenses(r.Context(), userID, filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "List expenses failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not list expenses")
		return
	}

	resp := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		resp = append(resp, toExpenseResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	expense, err := s.expenseFromRequest(userID, req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.expenses.CreateExpense(r.Context(), expense)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Create expense failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not save expense")
		return
	}

	s.invalidateSummary(userID, expense.Date.Year(), int(expense.Date.Month()))

	expense.ID = id
	writeJSON(w, http.StatusCreated, toExpenseResponse(expense))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	// Fetch first so the right month's cache entry can be dropped.
	expense, err := s.storage.GetExpense(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "expense not found")
			return
		}
		slog.ErrorContext(r.Context(), "Get expense failed", "user_id", userID, "expense_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete expense")
		return
	}

	if err := s.expenses.DeleteExpense(r.Context(), userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "expense not found")
			return
		}
		slog.ErrorContext(r.Context(), "Delete expense failed", "user_id", userID, "expense_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete expense")
		return
	}

	s.invalidateSummary(userID, expense.Date.Year(), int(expense.Date.Month()))
	w.WriteHeader(http.StatusNoContent)
}

type summaryResponse struct {
	Year       int                  `json:"year"`
	Month      int                  `json:"month"`
	Total      string               `json:"total"`
	Count      int                  `json:"count"`
	ByCategory []categoryAmountJSON `json:"byCategory"`
}

type categoryAmountJSON struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)
	year, month := parseYearMonth(r)

	key := summaryKey(userID, year, month)
	summary, found := s.summaryCache.Get(key)
	if !found {
		var err error
		summary, err = s.storage.MonthSummary(r.Context(), userID, year, month)
		if err != nil {
			slog.ErrorContext(r.Context(), "Month summary failed",
				"user_id", userID, "year", year, "month", month, "error", err)
			writeError(w, http.StatusInternalServerError, "could not compute summary")
			return
		}
		s.summaryCache.Set(key, summary)
	}

	resp := summaryResponse{
		Year:  summary.Year,
		Month: summary.Month,
		Total: summary.Total.String(),
		Count: summary.Count,
	}
	for _, ca := range summary.ByCategory {
		resp.ByCategory = append(resp.ByCategory, categoryAmountJSON{
			Category: string(ca.Category),
			Amount:   ca.Amount.String(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) expenseFromRequest(userID int64, req expenseRequest) (core.Expense, error) {
	cents, err := core.ParseDecimalToCents(strings.TrimSpace(req.Amount))
	if err != nil {
		return core.Expense{}, fmt.Errorf("invalid amount: %w", err)
	}

	category, err := core.ParseCategory(req.Category)
	if err != nil {
		return core.Expense{}, err
	}
	source, err := core.ParseSource(req.Source)
	if err != nil {
		return core.Expense{}, err
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("invalid date, expected YYYY-MM-DD")
	}

	return core.Expense{
		UserID:      userID,
		Amount:      core.Money{Cents: cents},
		Category:    category,
		Date:        date,
		Description: sanitizeInput(req.Description),
		Source:      source,
		ImageURL:    sanitizeInput(req.ImageURL),
	}, nil
}

// isValidationError reports whether err is one of the domain's field
// validation sentinels, as opposed to a storage failure.
func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidCategory,
		core.ErrInvalidSource,
		core.ErrInvalidFrequency,
		core.ErrInvalidAmount,
		core.ErrInvalidDate,
		core.ErrEmptyDescription,
		core.ErrEmptyTitle,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func summaryKey(userID int64, year, month int) string {
	return fmt.Sprintf("%d:%04d-%02d", userID, year, month)
}

func (s *Server) invalidateSummary(userID int64, year, month int) {
	s.summaryCache.Delete(summaryKey(userID, year, month))
}
