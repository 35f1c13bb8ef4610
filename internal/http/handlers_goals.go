package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/storage"
)

type goalRequest struct {
	Title        string `json:"title"`
	TargetAmount string `json:"targetAmount"`
	SavedAmount  string `json:"savedAmount,omitempty"`
	Deadline     string `json:"deadline"` // YYYY-MM-DD
}

type goalResponse struct {
	ID                 int64  `json:"id"`
	Title              string `json:"title"`
	TargetAmount       string `json:"targetAmount"`
	SavedAmount        string `json:"savedAmount"`
	Deadline           string `json:"deadline"`
	RecommendedMonthly string `json:"recommendedMonthly"`
}

func toGoalResponse(g core.Goal, now time.Time) goalResponse {
	return goalResponse{
		ID:                 g.ID,
		Title:              g.Title,
		TargetAmount:       g.TargetAmount.String(),
		SavedAmount:        core.Money{Cents: g.SavedAmount}.String(),
		Deadline:           g.Deadline.Format("2006-01-02"),
		RecommendedMonthly: core.Money{Cents: g.RecommendedMonthly(now)}.String(),
	}
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	goals, err := s.storage.ListGoals(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List goals failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not list goals")
		return
	}

	now := time.Now()
	resp := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		resp = append(resp, toGoalResponse(g, now))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	goal, err := s.goalFromRequest(userID, req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := goal.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.storage.CreateGoal(r.Context(), goal)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create goal failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not save goal")
		return
	}

	goal.ID = id
	writeJSON(w, http.StatusCreated, toGoalResponse(goal, time.Now()))
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid goal id")
		return
	}

	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	goal, err := s.goalFromRequest(userID, req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	goal.ID = id
	if err := goal.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.storage.UpdateGoal(r.Context(), userID, goal); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "goal not found")
			return
		}
		slog.ErrorContext(r.Context(), "Update goal failed", "user_id", userID, "goal_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not update goal")
		return
	}

	writeJSON(w, http.StatusOK, toGoalResponse(goal, time.Now()))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid goal id")
		return
	}

	if err := s.storage.DeleteGoal(r.Context(), userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "goal not found")
			return
		}
		slog.ErrorContext(r.Context(), "Delete goal failed", "user_id", userID, "goal_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete goal")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) goalFromRequest(userID int64, req goalRequest) (core.Goal, error) {
	target, err := core.ParseDecimalToCents(req.TargetAmount)
	if err != nil {
		return core.Goal{}, err
	}

	var saved int64
	if req.SavedAmount != "" {
		saved, err = core.ParseDecimalToCents(req.SavedAmount)
		if err != nil {
			return core.Goal{}, err
		}
	}

	deadline, err := time.Parse("2006-01-02", req.Deadline)
	if err != nil {
		return core.Goal{}, core.ErrInvalidDate
	}

	return core.Goal{
		UserID:       userID,
		Title:        sanitizeInput(req.Title),
		TargetAmount: core.Money{Cents: target},
		SavedAmount:  saved,
		Deadline:     deadline,
	}, nil
}
