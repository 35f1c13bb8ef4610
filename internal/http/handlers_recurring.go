package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/storage"
)

type recurringRequest struct {
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Source      string `json:"source"`
	StartDate   string `json:"startDate"` // YYYY-MM-DD
	Frequency   string `json:"frequency"`
	Active      *bool  `json:"active,omitempty"`
}

type recurringResponse struct {
	ID          int64  `json:"id"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Source      string `json:"source"`
	StartDate   string `json:"startDate"`
	Frequency   string `json:"frequency"`
	NextDueDate string `json:"nextDueDate"`
	Active      bool   `json:"active"`
}

func toRecurringResponse(re core.RecurringExpense) recurringResponse {
	return recurringResponse{
		ID:          re.ID,
		Amount:      re.Amount.String(),
		Category:    string(re.Category),
		Description: re.Description,
		Source:      string(re.Source),
		StartDate:   re.StartDate.Format("2006-01-02"),
		Frequency:   string(re.Frequency),
		NextDueDate: re.NextDueDate.Format("2006-01-02"),
		Active:      re.Active,
	}
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	templates, err := s.storage.ListRecurring(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List recurring failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not list recurring expenses")
		return
	}

	resp := make([]recurringResponse, 0, len(templates))
	for _, re := range templates {
		resp = append(resp, toRecurringResponse(re))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	var req recurringRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	re, err := s.recurringFromRequest(userID, req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := re.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.storage.CreateRecurring(r.Context(), re)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create recurring failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not save recurring expense")
		return
	}

	re.ID = id
	writeJSON(w, http.StatusCreated, toRecurringResponse(re))
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recurring expense id")
		return
	}

	existing, err := s.storage.GetRecurring(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "recurring expense not found")
			return
		}
		slog.ErrorContext(r.Context(), "Get recurring failed", "user_id", userID, "recurring_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not update recurring expense")
		return
	}

	var req recurringRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	re, err := s.recurringFromRequest(userID, req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	re.ID = id

	// A moved start date resets the schedule; otherwise keep the
	// current position so updates don't replay past occurrences.
	if re.StartDate.Equal(existing.StartDate) {
		re.NextDueDate = existing.NextDueDate
	} else {
		re.NextDueDate = re.StartDate
	}

	if err := re.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.storage.UpdateRecurring(r.Context(), userID, re); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "recurring expense not found")
			return
		}
		slog.ErrorContext(r.Context(), "Update recurring failed", "user_id", userID, "recurring_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not update recurring expense")
		return
	}

	writeJSON(w, http.StatusOK, toRecurringResponse(re))
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recurring expense id")
		return
	}

	if err := s.storage.DeleteRecurring(r.Context(), userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "recurring expense not found")
			return
		}
		slog.ErrorContext(r.Context(), "Delete recurring failed", "user_id", userID, "recurring_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete recurring expense")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) recurringFromRequest(userID int64, req recurringRequest) (core.RecurringExpense, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.RecurringExpense{}, err
	}

	category, err := core.ParseCategory(req.Category)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	source, err := core.ParseSource(req.Source)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	frequency, err := core.ParseFrequency(req.Frequency)
	if err != nil {
		return core.RecurringExpense{}, err
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return core.RecurringExpense{}, core.ErrInvalidDate
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	return core.RecurringExpense{
		UserID:      userID,
		Amount:      core.Money{Cents: cents},
		Category:    category,
		Description: sanitizeInput(req.Description),
		Source:      source,
		StartDate:   start,
		Frequency:   frequency,
		NextDueDate: start,
		Active:      active,
	}, nil
}
