package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"spendwise/internal/core"
)

type notificationResponse struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"createdAt"`
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	notes, err := s.storage.ListNotifications(r.Context(), userID, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "List notifications failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not list notifications")
		return
	}

	resp := make([]notificationResponse, 0, len(notes))
	for _, n := range notes {
		resp = append(resp, toNotificationResponse(n))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMarkNotificationsRead(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	if err := s.storage.MarkNotificationsRead(r.Context(), userID); err != nil {
		slog.ErrorContext(r.Context(), "Mark notifications read failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not mark notifications read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toNotificationResponse(n core.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		Type:      string(n.Type),
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
}
