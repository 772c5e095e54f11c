package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type transactionRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Kind        string `json:"kind"`
	Category    string `json:"category"`
	Date        string `json:"date"`
}

type transactionResponse struct {
	ID            string `json:"id"`
	Description   string `json:"description"`
	Amount        string `json:"amount"`
	Kind          string `json:"kind"`
	Category      string `json:"category"`
	CategoryLabel string `json:"categoryLabel"`
	Date          string `json:"date"`
	CreatedAt     string `json:"createdAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
}

type transactionListResponse struct {
	State        string                `json:"state"`
	Transactions []transactionResponse `json:"transactions"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:            t.ID,
		Description:   t.Description,
		Amount:        t.Amount.String(),
		Kind:          string(t.Kind),
		Category:      t.Category,
		CategoryLabel: core.CategoryLabel(t.Kind, t.Category),
		Date:          t.Date.String(),
	}
	if !t.CreatedAt.IsZero() {
		resp.CreatedAt = t.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !t.UpdatedAt.IsZero() {
		resp.UpdatedAt = t.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// parseDraft turns the request payload into a validated-ready draft.
// Validation itself happens in the coordinator.
func parseDraft(req transactionRequest) (core.Draft, error) {
	var d core.Draft
	d.Description = strings.TrimSpace(req.Description)
	d.Kind = core.Kind(req.Kind)
	d.Category = req.Category

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return core.Draft{}, err
	}
	d.Amount = amount

	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Draft{}, err
	}
	d.Date = date
	return d, nil
}

// parseFilter reads the optional kind, category, from and to query
// parameters. All given conditions must hold for a record to pass.
func parseFilter(q url.Values) (core.Filter, error) {
	var f core.Filter

	if v := q.Get("kind"); v != "" {
		k := core.Kind(v)
		if err := k.Validate(); err != nil {
			return core.Filter{}, err
		}
		f.Kind = k
	}
	f.Category = q.Get("category")

	if v := q.Get("from"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Filter{}, fmt.Errorf("from: %w", err)
		}
		f.From = d
	}
	if v := q.Get("to"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Filter{}, fmt.Errorf("to: %w", err)
		}
		f.To = d
	}
	return f, nil
}

// ensureReady makes sure the coordinator has a usable snapshot, loading
// on first access after sign-in. A failed reload is not fatal: the
// coordinator retains the last good transactions, so the stale snapshot is
// served with its failed state rather than an error page.
func ensureReady(r *http.Request, c *services.Coordinator) (services.Snapshot, error) {
	snap := c.Snapshot()
	if snap.State == services.StateReady {
		return snap, nil
	}
	if err := c.Load(r.Context()); err != nil {
		if snap = c.Snapshot(); snap.State == services.StateFailed {
			return snap, nil
		}
		return services.Snapshot{}, err
	}
	return c.Snapshot(), nil
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListTransactions(w, r)
	case http.MethodPost:
		s.handleCreateTransaction(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	id := identityFrom(r)
	coord := s.registry.CoordinatorFor(id.UserID)
	snap, err := ensureReady(r, coord)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	txs := filter.Apply(snap.Transactions)
	resp := transactionListResponse{
		State:        string(snap.State),
		Transactions: make([]transactionResponse, 0, len(txs)),
	}
	for _, t := range txs {
		resp.Transactions = append(resp.Transactions, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	draft, err := parseDraft(req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	id := identityFrom(r)
	coord := s.registry.CoordinatorFor(id.UserID)
	txID, err := coord.Create(r.Context(), draft)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateDashboards(id.UserID)
	writeJSON(w, http.StatusCreated, map[string]string{"id": txID})
}

func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	txID := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
	if txID == "" || strings.Contains(txID, "/") {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}

	id := identityFrom(r)
	coord := s.registry.CoordinatorFor(id.UserID)

	switch r.Method {
	case http.MethodPut:
		var req transactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		draft, err := parseDraft(req)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		if err := coord.Update(r.Context(), txID, draft); err != nil {
			writeDomainError(w, r, err)
			return
		}
		s.invalidateDashboards(id.UserID)
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		if err := coord.Delete(r.Context(), txID); err != nil {
			writeDomainError(w, r, err)
			return
		}
		s.invalidateDashboards(id.UserID)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "PUT, DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) invalidateDashboards(ownerID string) {
	s.dashCache.DeletePrefix(ownerID + ":")
}
