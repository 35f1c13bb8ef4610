package http

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"spendwise/internal/export"
	"spendwise/internal/insights"
	"spendwise/internal/receipt"
	"spendwise/internal/storage"
	"spendwise/internal/vision"
)

type ocrRequest struct {
	ImageBase64 string `json:"imageBase64,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	var req ocrRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	image, err := s.resolveImage(r, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.recognizer == nil {
		writeError(w, http.StatusInternalServerError, "text recognition is not configured")
		return
	}

	text, err := s.recognizer.RecognizeText(r.Context(), image)
	switch {
	case errors.Is(err, vision.ErrNoText):
		writeError(w, http.StatusBadRequest, "no text detected in image")
		return
	case errors.Is(err, vision.ErrNotConfigured):
		writeError(w, http.StatusInternalServerError, "text recognition is not configured")
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "Text recognition failed", "error", err)
		writeError(w, http.StatusInternalServerError, "text recognition failed")
		return
	}

	extracted, err := s.extractor.Extract(text)
	if errors.Is(err, receipt.ErrNoContent) {
		writeError(w, http.StatusBadRequest, "no text detected in image")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Receipt extraction failed", "error", err)
		writeError(w, http.StatusInternalServerError, "receipt extraction failed")
		return
	}

	writeJSON(w, http.StatusOK, extracted)
}

// resolveImage turns the request into raw image bytes: inline base64 wins
// over a URL; a data-URL prefix on the base64 payload is tolerated.
func (s *Server) resolveImage(r *http.Request, req ocrRequest) ([]byte, error) {
	if b64 := strings.TrimSpace(req.ImageBase64); b64 != "" {
		if idx := strings.Index(b64, ";base64,"); idx >= 0 && strings.HasPrefix(b64, "data:") {
			b64 = b64[idx+len(";base64,"):]
		}
		image, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, errors.New("imageBase64 is not valid base64")
		}
		if len(image) == 0 {
			return nil, errors.New("image is empty")
		}
		return image, nil
	}

	if url := strings.TrimSpace(req.ImageURL); url != "" {
		return fetchImage(r, url)
	}

	return nil, errors.New("imageBase64 or imageUrl is required")
}

func fetchImage(r *http.Request, url string) ([]byte, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, errors.New("imageUrl must be an http or https URL")
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.New("imageUrl is not a valid URL")
	}
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.New("could not fetch imageUrl")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("imageUrl returned status %d", resp.StatusCode)
	}

	image, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil || len(image) == 0 {
		return nil, errors.New("could not read image from imageUrl")
	}
	return image, nil
}

type insightsResponse struct {
	Tips []string `json:"tips"`
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)
	year, month := parseYearMonth(r)

	summary, err := s.storage.MonthSummary(r.Context(), userID, year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Month summary failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load spending summary")
		return
	}
	user, err := s.storage.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load profile")
		return
	}
	goals, err := s.storage.ListGoals(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load goals")
		return
	}

	snap := insights.Snapshot{Summary: summary, Budget: user.Budget, Goals: goals}

	gen := s.insights
	if gen == nil {
		gen = insights.StaticGenerator{}
	}
	tips, err := gen.Generate(r.Context(), snap)
	if err != nil {
		// Model hiccups should not blank the endpoint; fall back to
		// the rule-based tips.
		slog.ErrorContext(r.Context(), "Insight generation failed, using fallback", "user_id", userID, "error", err)
		tips, err = insights.StaticGenerator{}.Generate(r.Context(), snap)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not generate insights")
			return
		}
	}

	writeJSON(w, http.StatusOK, insightsResponse{Tips: tips})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)
	year, month := parseYearMonth(r)

	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "xlsx"
	}
	if format != "xlsx" && format != "csv" {
		writeError(w, http.StatusBadRequest, "format must be xlsx or csv")
		return
	}

	expenses, err := s.storage.ListExpenses(r.Context(), userID, storage.ExpenseFilter{Year: year, Month: month})
	if err != nil {
		slog.ErrorContext(r.Context(), "List expenses failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load expenses")
		return
	}

	var data []byte
	contentType := "text/csv"
	if format == "xlsx" {
		summary, err := s.storage.MonthSummary(r.Context(), userID, year, month)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not load spending summary")
			return
		}
		data, err = export.ExpensesXLSX(expenses, summary)
		if err != nil {
			slog.ErrorContext(r.Context(), "Export failed", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "could not build export")
			return
		}
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	} else {
		data, err = export.ExpensesCSV(expenses)
		if err != nil {
			slog.ErrorContext(r.Context(), "Export failed", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "could not build export")
			return
		}
	}

	filename := export.Filename(year, time.Month(month), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
