package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"spendwise/internal/receipt"
	"spendwise/internal/services"
	"spendwise/internal/storage"
	"spendwise/internal/vision"
)

type fakeRecognizer struct {
	text string
	err  error
}

func (f fakeRecognizer) RecognizeText(_ context.Context, _ []byte) (string, error) {
	return f.text, f.err
}

func newTestServer(t *testing.T, recognizer vision.TextRecognizer) *Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	srv := NewServer(Options{
		Addr:       "127.0.0.1:0",
		Storage:    repo,
		Expenses:   services.NewExpenseService(repo, nil, "budget_alerts"),
		Recognizer: recognizer,
		Extractor:  receipt.NewExtractor(nil),
		SessionTTL: 24 * time.Hour,
	})
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func registerUser(t *testing.T, srv *Server, email string) string {
	t.Helper()

	rec := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "Asha",
		"email":    email,
		"password": "correct horse",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("register returned empty token")
	}
	return resp.Token
}

func TestRegisterLoginLogout(t *testing.T) {
	srv := newTestServer(t, nil)

	token := registerUser(t, srv, "asha@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "asha@example.com",
		"password": "correct horse",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "asha@example.com",
		"password": "wrong password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad-password login status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/auth/logout", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodGet, "/api/expenses", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status after logout = %d, want 401", rec.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "Asha",
		"email":    "asha@example.com",
		"password": "short",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("short-password status = %d, want 422", rec.Code)
	}

	registerUser(t, srv, "asha@example.com")
	rec = doJSON(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "Asha Again",
		"email":    "asha@example.com",
		"password": "correct horse",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate-email status = %d, want 409", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/expenses", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no-token status = %d, want 401", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodGet, "/api/expenses", "not-a-real-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad-token status = %d, want 401", rec.Code)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)
	token := registerUser(t, srv, "asha@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/api/expenses", token, map[string]string{
		"amount":      "45.00",
		"category":    "Food",
		"date":        "2024-03-05",
		"description": "atta",
		"source":      "UPI",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created expenseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created expense: %v", err)
	}
	if created.Amount != "45.00" {
		t.Errorf("created amount = %q, want 45.00", created.Amount)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/expenses?year=2024&month=3", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listed []expenseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("listed %d expenses, want 1", len(listed))
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/expenses/summary?year=2024&month=3", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d", rec.Code)
	}
	var summary summaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Total != "45.00" || summary.Count != 1 {
		t.Errorf("summary = total %s count %d, want 45.00 and 1", summary.Total, summary.Count)
	}

	// A second write must invalidate the cached summary.
	rec = doJSON(t, srv, http.MethodPost, "/api/expenses", token, map[string]string{
		"amount":      "5.00",
		"category":    "Travel",
		"date":        "2024-03-06",
		"description": "bus",
		"source":      "Cash",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("second create status = %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodGet, "/api/expenses/summary?year=2024&month=3", token, nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Total != "50.00" || summary.Count != 2 {
		t.Errorf("summary after second write = total %s count %d, want 50.00 and 2", summary.Total, summary.Count)
	}

	rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", created.ID), token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", created.ID), token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("re-delete status = %d, want 404", rec.Code)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	srv := newTestServer(t, nil)
	token := registerUser(t, srv, "asha@example.com")

	tests := []struct {
		name string
		body map[string]string
	}{
		{"bad amount", map[string]string{"amount": "abc", "category": "Food", "date": "2024-03-05", "description": "x", "source": "UPI"}},
		{"bad category", map[string]string{"amount": "10.00", "category": "Yachts", "date": "2024-03-05", "description": "x", "source": "UPI"}},
		{"bad date", map[string]string{"amount": "10.00", "category": "Food", "date": "05-03-2024", "description": "x", "source": "UPI"}},
		{"empty description", map[string]string{"amount": "10.00", "category": "Food", "date": "2024-03-05", "description": "", "source": "UPI"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/api/expenses", token, tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422, body %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestOCRHandler(t *testing.T) {
	image := base64.StdEncoding.EncodeToString([]byte("not a real scan"))

	t.Run("missing image", func(t *testing.T) {
		srv := newTestServer(t, fakeRecognizer{text: "ignored"})
		token := registerUser(t, srv, "asha@example.com")
		rec := doJSON(t, srv, http.MethodPost, "/api/ocr", token, map[string]string{})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("recognizer not configured", func(t *testing.T) {
		srv := newTestServer(t, nil)
		token := registerUser(t, srv, "asha@example.com")
		rec := doJSON(t, srv, http.MethodPost, "/api/ocr", token, map[string]string{"imageBase64": image})
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})

	t.Run("no text detected", func(t *testing.T) {
		srv := newTestServer(t, fakeRecognizer{err: vision.ErrNoText})
		token := registerUser(t, srv, "asha@example.com")
		rec := doJSON(t, srv, http.MethodPost, "/api/ocr", token, map[string]string{"imageBase64": image})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("provider failure", func(t *testing.T) {
		srv := newTestServer(t, fakeRecognizer{err: fmt.Errorf("annotate: %w", vision.ErrProvider)})
		token := registerUser(t, srv, "asha@example.com")
		rec := doJSON(t, srv, http.MethodPost, "/api/ocr", token, map[string]string{"imageBase64": image})
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})

	t.Run("extracts fields", func(t *testing.T) {
		srv := newTestServer(t, fakeRecognizer{
			text: "SITA ATTA CHAKKI\nATTA 5KG\nTOTAL 45.00\nPAID VIA UPI\n05/03/2024",
		})
		token := registerUser(t, srv, "asha@example.com")

		dataURL := "data:image/png;base64," + image
		rec := doJSON(t, srv, http.MethodPost, "/api/ocr", token, map[string]string{"imageBase64": dataURL})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}

		var got struct {
			Amount   *float64 `json:"amount"`
			Vendor   string   `json:"vendor"`
			Category string   `json:"category"`
			Source   string   `json:"source"`
			Text     string   `json:"text"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if got.Vendor != "SITA ATTA CHAKKI" {
			t.Errorf("vendor = %q", got.Vendor)
		}
		if got.Amount == nil || *got.Amount != 45.0 {
			t.Errorf("amount = %v, want 45", got.Amount)
		}
		if got.Category != "Food" || got.Source != "UPI" {
			t.Errorf("category/source = %s/%s, want Food/UPI", got.Category, got.Source)
		}
		if got.Text == "" {
			t.Error("raw text missing from response")
		}
	})
}

func TestInsightsFallback(t *testing.T) {
	srv := newTestServer(t, nil)
	token := registerUser(t, srv, "asha@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/api/expenses", token, map[string]string{
		"amount":      "120.00",
		"category":    "Food",
		"date":        time.Now().Format("2006-01-02"),
		"description": "groceries",
		"source":      "UPI",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/insights", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("insights status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp insightsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode insights: %v", err)
	}
	if len(resp.Tips) == 0 {
		t.Error("expected at least one tip from the fallback generator")
	}
}

func TestExportCSV(t *testing.T) {
	srv := newTestServer(t, nil)
	token := registerUser(t, srv, "asha@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/api/expenses", token, map[string]string{
		"amount":      "45.00",
		"category":    "Food",
		"date":        "2024-03-05",
		"description": "atta",
		"source":      "UPI",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/export?format=csv&year=2024&month=3", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") || !strings.Contains(cd, ".csv") {
		t.Errorf("content disposition = %q", cd)
	}
	if !strings.Contains(rec.Body.String(), "2024-03-05,atta,Food,UPI,45.00") {
		t.Errorf("csv body missing expense row:\n%s", rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/export?format=pdf", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown format status = %d, want 400", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/expenses", "", nil)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if got := rec.Header().Get("Content-Security-Policy"); got == "" {
		t.Error("Content-Security-Policy header missing")
	}
}
