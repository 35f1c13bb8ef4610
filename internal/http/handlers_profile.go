package http

import (
	"log/slog"
	"net/http"
	"strings"

	"spendwise/internal/core"
)

type emailSettingsJSON struct {
	Enabled         bool   `json:"enabled"`
	RecipientEmail  string `json:"recipientEmail,omitempty"`
	ThresholdType   string `json:"thresholdType"`
	ThresholdAmount string `json:"thresholdAmount,omitempty"`
}

type profileResponse struct {
	Name          string            `json:"name"`
	Email         string            `json:"email"`
	StudentType   string            `json:"studentType,omitempty"`
	EmailSettings emailSettingsJSON `json:"emailSettings"`
}

type profileRequest struct {
	Name          string             `json:"name"`
	StudentType   string             `json:"studentType,omitempty"`
	EmailSettings *emailSettingsJSON `json:"emailSettings,omitempty"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	user, err := s.storage.GetUserByID(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Get profile failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load profile")
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		Name:        user.Name,
		Email:       user.Email,
		StudentType: user.StudentType,
		EmailSettings: emailSettingsJSON{
			Enabled:         user.EmailSettings.Enabled,
			RecipientEmail:  user.EmailSettings.RecipientEmail,
			ThresholdType:   string(user.EmailSettings.ThresholdType),
			ThresholdAmount: user.EmailSettings.ThresholdAmount.String(),
		},
	})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := sanitizeInput(req.Name)
	if name == "" {
		writeError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}

	if err := s.storage.UpdateProfile(r.Context(), userID, name, sanitizeInput(req.StudentType)); err != nil {
		slog.ErrorContext(r.Context(), "Update profile failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not update profile")
		return
	}

	if req.EmailSettings != nil {
		settings, err := emailSettingsFromJSON(*req.EmailSettings)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if err := settings.Validate(); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if err := s.storage.UpdateEmailSettings(r.Context(), userID, settings); err != nil {
			slog.ErrorContext(r.Context(), "Update email settings failed", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "could not update email settings")
			return
		}
	}

	s.handleGetProfile(w, r)
}

type budgetRequest struct {
	Monthly    string            `json:"monthly"`
	ByCategory map[string]string `json:"byCategory,omitempty"`
}

type budgetResponse struct {
	Monthly    string            `json:"monthly"`
	ByCategory map[string]string `json:"byCategory,omitempty"`
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	user, err := s.storage.GetUserByID(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Get budget failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load budget")
		return
	}

	resp := budgetResponse{Monthly: user.Budget.Monthly.String()}
	if len(user.Budget.ByCategory) > 0 {
		resp.ByCategory = make(map[string]string, len(user.Budget.ByCategory))
		for cat, m := range user.Budget.ByCategory {
			resp.ByCategory[string(cat)] = m.String()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	budget := core.Budget{}
	if strings.TrimSpace(req.Monthly) != "" {
		cents, err := core.ParseDecimalToCents(req.Monthly)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid monthly budget amount")
			return
		}
		budget.Monthly = core.Money{Cents: cents}
	}
	for name, amount := range req.ByCategory {
		cat, err := core.ParseCategory(name)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "unknown category "+name)
			return
		}
		cents, err := core.ParseDecimalToCents(amount)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid amount for category "+name)
			return
		}
		if budget.ByCategory == nil {
			budget.ByCategory = make(map[core.Category]core.Money)
		}
		budget.ByCategory[cat] = core.Money{Cents: cents}
	}

	if err := s.storage.UpdateBudget(r.Context(), userID, budget); err != nil {
		slog.ErrorContext(r.Context(), "Update budget failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not update budget")
		return
	}

	s.handleGetBudget(w, r)
}

func emailSettingsFromJSON(in emailSettingsJSON) (core.EmailSettings, error) {
	out := core.EmailSettings{
		Enabled:        in.Enabled,
		RecipientEmail: sanitizeInput(in.RecipientEmail),
	}

	switch tt := core.ThresholdType(in.ThresholdType); tt {
	case core.ThresholdMonthly, core.ThresholdWeekly, core.ThresholdNever, "":
		if tt == "" {
			tt = core.ThresholdNever
		}
		out.ThresholdType = tt
	default:
		return core.EmailSettings{}, core.ErrInvalidFrequency
	}

	if strings.TrimSpace(in.ThresholdAmount) != "" {
		cents, err := core.ParseDecimalToCents(in.ThresholdAmount)
		if err != nil {
			return core.EmailSettings{}, err
		}
		out.ThresholdAmount = core.Money{Cents: cents}
	}
	return out, nil
}
