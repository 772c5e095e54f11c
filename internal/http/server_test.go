package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mem := store.NewMemory()
	auths := auth.NewService(mem, time.Hour, nil)
	registry := services.NewRegistry(mem, nil)
	s := NewServer(":0", auths, registry, Options{RateLimitPerMinute: 10_000})
	t.Cleanup(func() { s.rateLimiter.stop() })
	return s
}

// flakyStore delegates to a real memory store but can be told to fail
// listing, to drive the coordinator into its failed state.
type flakyStore struct {
	*store.Memory
	mu   sync.Mutex
	fail bool
}

func (f *flakyStore) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *flakyStore) ListByOwner(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return nil, errors.New("backend unavailable")
	}
	return f.Memory.ListByOwner(ctx, ownerID)
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func register(t *testing.T, s *Server, email string) string {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/register", "", map[string]string{
		"email": email, "name": "Test", "password": "secret123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return resp.Token
}

func createTransaction(t *testing.T, s *Server, token string, body map[string]string) string {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/transactions", token, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return resp["id"]
}

func tx(desc, amount, kind, category, date string) map[string]string {
	return map[string]string{
		"description": desc,
		"amount":      amount,
		"kind":        kind,
		"category":    category,
		"date":        date,
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, s, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	token := register(t, s, "ada@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/login", "", map[string]string{
		"email": "ada@example.com", "password": "secret123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPost, "/api/login", "", map[string]string{
		"email": "ada@example.com", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/logout", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("logout status = %d, want 204", rec.Code)
	}
	rec = doJSON(t, s, http.MethodGet, "/api/transactions", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("after logout status = %d, want 401", rec.Code)
	}
}

func TestUnauthenticatedRejected(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/transactions", "/api/dashboard", "/api/export"} {
		rec := doJSON(t, s, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s status = %d, want 401", path, rec.Code)
		}
	}
	rec := doJSON(t, s, http.MethodGet, "/api/transactions", "bogus-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bogus token status = %d, want 401", rec.Code)
	}
}

func TestTransactionCRUD(t *testing.T) {
	s := newTestServer(t)
	token := register(t, s, "ada@example.com")

	id := createTransaction(t, s, token, tx("Groceries", "42.75", "expense", "food", "2024-01-15"))

	rec := doJSON(t, s, http.MethodGet, "/api/transactions", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d: %s", rec.Code, rec.Body.String())
	}
	var list transactionListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.State != "ready" {
		t.Errorf("state = %q, want ready", list.State)
	}
	if len(list.Transactions) != 1 {
		t.Fatalf("listed %d transactions, want 1", len(list.Transactions))
	}
	got := list.Transactions[0]
	if got.Description != "Groceries" || got.CategoryLabel != "Food & Dining" {
		t.Errorf("transaction = %+v", got)
	}

	rec = doJSON(t, s, http.MethodPut, "/api/transactions/"+id, token,
		tx("Weekly shop", "50,25", "expense", "food", "2024-01-16"))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/api/transactions", token, nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Transactions[0].Amount != "50.25" {
		t.Errorf("comma amount stored as %q, want 50.25", list.Transactions[0].Amount)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/transactions/"+id, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, s, http.MethodDelete, "/api/transactions/"+id, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("double delete status = %d, want 404", rec.Code)
	}
}

func TestCreateRejectsInvalidDraft(t *testing.T) {
	s := newTestServer(t)
	token := register(t, s, "ada@example.com")

	tests := []struct {
		name string
		body map[string]string
	}{
		{"bad amount", tx("X", "abc", "expense", "food", "2024-01-15")},
		{"negative amount", tx("X", "-5", "expense", "food", "2024-01-15")},
		{"bad kind", tx("X", "5", "transfer", "food", "2024-01-15")},
		{"category mismatch", tx("X", "5", "expense", "salary", "2024-01-15")},
		{"bad date", tx("X", "5", "expense", "food", "15/01/2024")},
		{"empty description", tx("  ", "5", "expense", "food", "2024-01-15")},
		{"overlong description", tx(strings.Repeat("x", 201), "5", "expense", "food", "2024-01-15")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/transactions", token, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestListFilters(t *testing.T) {
	s := newTestServer(t)
	token := register(t, s, "ada@example.com")

	createTransaction(t, s, token, tx("Salary", "1000", "income", "salary", "2024-02-01"))
	createTransaction(t, s, token, tx("Groceries", "40", "expense", "food", "2024-02-10"))
	createTransaction(t, s, token, tx("Leap day bus", "2.50", "expense", "transport", "2024-02-29"))
	createTransaction(t, s, token, tx("March rent", "800", "expense", "utilities", "2024-03-01"))

	list := func(query string) []transactionResponse {
		rec := doJSON(t, s, http.MethodGet, "/api/transactions"+query, token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("list %s status = %d: %s", query, rec.Code, rec.Body.String())
		}
		var resp transactionListResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode list: %v", err)
		}
		return resp.Transactions
	}

	if got := list("?kind=expense"); len(got) != 3 {
		t.Errorf("kind=expense returned %d, want 3", len(got))
	}
	if got := list("?category=food"); len(got) != 1 || got[0].Description != "Groceries" {
		t.Errorf("category=food returned %+v", got)
	}
	// Inclusive date bounds: 2024-02-29 is in, 2024-03-01 is out.
	got := list("?from=2024-02-01&to=2024-02-29")
	if len(got) != 3 {
		t.Fatalf("february window returned %d, want 3", len(got))
	}
	for _, tr := range got {
		if tr.Date == "2024-03-01" {
			t.Error("march record leaked into february window")
		}
	}
	if got := list("?kind=expense&from=2024-02-20"); len(got) != 2 {
		t.Errorf("composed filter returned %d, want 2", len(got))
	}

	rec := doJSON(t, s, http.MethodGet, "/api/transactions?from=bogus", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad from status = %d, want 400", rec.Code)
	}
	rec = doJSON(t, s, http.MethodGet, "/api/transactions?kind=transfer", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad kind status = %d, want 400", rec.Code)
	}
}

func TestOwnerIsolation(t *testing.T) {
	s := newTestServer(t)
	ada := register(t, s, "ada@example.com")
	bob := register(t, s, "bob@example.com")

	id := createTransaction(t, s, ada, tx("Ada only", "10", "expense", "food", "2024-01-15"))

	rec := doJSON(t, s, http.MethodGet, "/api/transactions", bob, nil)
	var list transactionListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Transactions) != 0 {
		t.Errorf("bob sees ada's records: %+v", list.Transactions)
	}

	// A leaked id is not a capability: mutations against another owner's
	// record are denied, not applied.
	rec = doJSON(t, s, http.MethodPut, "/api/transactions/"+id, bob,
		tx("hijacked", "1", "expense", "food", "2024-01-16"))
	if rec.Code != http.StatusForbidden {
		t.Errorf("cross-owner update status = %d, want 403", rec.Code)
	}
	rec = doJSON(t, s, http.MethodDelete, "/api/transactions/"+id, bob, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("cross-owner delete status = %d, want 403", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/transactions", ada, nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Transactions) != 1 || list.Transactions[0].Description != "Ada only" {
		t.Errorf("ada's record changed after denied mutations: %+v", list.Transactions)
	}
}

func TestListServesStaleSnapshotOnFailedReload(t *testing.T) {
	mem := store.NewMemory()
	flaky := &flakyStore{Memory: mem}
	auths := auth.NewService(mem, time.Hour, nil)
	registry := services.NewRegistry(flaky, nil)
	s := NewServer(":0", auths, registry, Options{RateLimitPerMinute: 10_000})
	t.Cleanup(func() { s.rateLimiter.stop() })

	token := register(t, s, "ada@example.com")
	createTransaction(t, s, token, tx("Groceries", "10", "expense", "food", "2024-01-15"))

	// The record is written, but the reload after the mutation fails and
	// the snapshot keeps the previous list.
	flaky.setFail(true)
	doJSON(t, s, http.MethodPost, "/api/transactions", token, tx("Coffee", "3", "expense", "food", "2024-01-16"))

	rec := doJSON(t, s, http.MethodGet, "/api/transactions", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var list transactionListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.State != "failed" {
		t.Errorf("state = %q, want failed", list.State)
	}
	if len(list.Transactions) != 1 || list.Transactions[0].Description != "Groceries" {
		t.Errorf("stale snapshot lost: %+v", list.Transactions)
	}

	// Once the backend recovers, the next read reloads the full list.
	flaky.setFail(false)
	rec = doJSON(t, s, http.MethodGet, "/api/transactions", token, nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.State != "ready" || len(list.Transactions) != 2 {
		t.Errorf("after recovery state = %q, %d transactions, want ready with 2",
			list.State, len(list.Transactions))
	}
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t)
	token := register(t, s, "ada@example.com")

	createTransaction(t, s, token, tx("Salary", "1000", "income", "salary", "2024-01-05"))
	createTransaction(t, s, token, tx("Groceries", "12.50", "expense", "food", "2024-01-15"))

	rec := doJSON(t, s, http.MethodGet, "/api/dashboard?month=2024-01", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d: %s", rec.Code, rec.Body.String())
	}
	var dash dashboardResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &dash); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}

	if dash.Totals.Income != "1000.00" || dash.Totals.Expenses != "12.50" || dash.Totals.Net != "987.50" {
		t.Errorf("totals = %+v", dash.Totals)
	}
	if len(dash.Categories) != 1 || dash.Categories[0].Label != "Food & Dining" {
		t.Errorf("categories = %+v", dash.Categories)
	}
	if len(dash.Trend) != 6 {
		t.Fatalf("trend has %d points, want 6", len(dash.Trend))
	}
	if dash.Trend[5].Month != "2024-01" || dash.Trend[5].Expenses != "12.50" {
		t.Errorf("last trend point = %+v", dash.Trend[5])
	}
	if dash.Trend[0].Month != "2023-08" {
		t.Errorf("first trend point = %+v, want 2023-08", dash.Trend[0])
	}

	rec = doJSON(t, s, http.MethodGet, "/api/dashboard?month=January", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad month status = %d, want 400", rec.Code)
	}
}

func TestDashboardCacheInvalidatedByMutation(t *testing.T) {
	s := newTestServer(t)
	token := register(t, s, "ada@example.com")

	createTransaction(t, s, token, tx("Groceries", "10", "expense", "food", "2024-01-15"))

	fetch := func() dashboardResponse {
		rec := doJSON(t, s, http.MethodGet, "/api/dashboard?month=2024-01", token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("dashboard status = %d: %s", rec.Code, rec.Body.String())
		}
		var dash dashboardResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &dash); err != nil {
			t.Fatalf("decode dashboard: %v", err)
		}
		return dash
	}

	if got := fetch().Totals.Expenses; got != "10.00" {
		t.Fatalf("expenses = %s, want 10.00", got)
	}
	createTransaction(t, s, token, tx("More groceries", "5", "expense", "food", "2024-01-16"))
	if got := fetch().Totals.Expenses; got != "15.00" {
		t.Errorf("expenses after mutation = %s, want 15.00 (stale cache?)", got)
	}
}

func TestExport(t *testing.T) {
	s := newTestServer(t)
	token := register(t, s, "ada@example.com")

	createTransaction(t, s, token, tx("Salary", "1000", "income", "salary", "2024-01-05"))
	createTransaction(t, s, token, tx("Groceries", "42.75", "expense", "food", "2024-01-15"))

	rec := doJSON(t, s, http.MethodGet, "/api/export?format=txt", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("txt export status = %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"Transaction Report", "Total Income: $1000.00", "Net Income: $957.25"} {
		if !strings.Contains(body, want) {
			t.Errorf("txt export missing %q", want)
		}
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("txt content type = %q", ct)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/export?format=csv&kind=expense", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("csv export status = %d: %s", rec.Code, rec.Body.String())
	}
	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("filtered csv has %d lines, want header plus 1 row:\n%s", len(lines), rec.Body.String())
	}
	if !strings.Contains(lines[1], "Groceries") {
		t.Errorf("csv row = %q", lines[1])
	}

	rec = doJSON(t, s, http.MethodGet, "/api/export?format=pdf", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unsupported format status = %d, want 400", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	mem := store.NewMemory()
	auths := auth.NewService(mem, time.Hour, nil)
	registry := services.NewRegistry(mem, nil)
	s := NewServer(":0", auths, registry, Options{RateLimitPerMinute: 3})
	t.Cleanup(func() { s.rateLimiter.stop() })

	var last int
	for i := 0; i < 5; i++ {
		rec := doJSON(t, s, http.MethodPost, "/api/login", "", map[string]string{
			"email": fmt.Sprintf("u%d@example.com", i), "password": "x",
		})
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("status after burst = %d, want 429", last)
	}
}
