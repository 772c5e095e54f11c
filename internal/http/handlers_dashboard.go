package http

import (
	"log/slog"
	"net/http"
	"time"

	"fintrack/internal/core"
)

type totalsResponse struct {
	Income   string `json:"income"`
	Expenses string `json:"expenses"`
	Net      string `json:"net"`
}

type categoryTotalResponse struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Amount string `json:"amount"`
}

type trendPointResponse struct {
	Month    string `json:"month"`
	Label    string `json:"label"`
	Expenses string `json:"expenses"`
}

type dashboardResponse struct {
	Month      string                  `json:"month"`
	Totals     totalsResponse          `json:"totals"`
	Categories []categoryTotalResponse `json:"categories"`
	Trend      []trendPointResponse    `json:"trend"`
}

// handleDashboard aggregates one month. The month query parameter defaults
// to the current month; responses are cached per owner and month.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	month := core.CurrentMonth(time.Now())
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := core.ParseMonth(v)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		month = m
	}

	id := identityFrom(r)
	cacheKey := id.UserID + ":" + month.String()
	if cached, ok := s.dashCache.Get(cacheKey); ok {
		slog.DebugContext(r.Context(), "Dashboard cache hit", "key", cacheKey)
		writeJSON(w, http.StatusOK, cached)
		return
	}

	coord := s.registry.CoordinatorFor(id.UserID)
	if _, err := ensureReady(r, coord); err != nil {
		writeDomainError(w, r, err)
		return
	}

	dash, err := coord.Dashboard(month)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := dashboardResponse{
		Month: dash.Month.String(),
		Totals: totalsResponse{
			Income:   dash.Totals.Income.StringFixed(2),
			Expenses: dash.Totals.Expenses.StringFixed(2),
			Net:      dash.Totals.Net.StringFixed(2),
		},
		Categories: make([]categoryTotalResponse, 0, len(dash.Categories)),
		Trend:      make([]trendPointResponse, 0, len(dash.Trend)),
	}
	for _, c := range dash.Categories {
		resp.Categories = append(resp.Categories, categoryTotalResponse{
			Key:    c.Key,
			Label:  c.Label,
			Amount: c.Amount.StringFixed(2),
		})
	}
	for _, p := range dash.Trend {
		resp.Trend = append(resp.Trend, trendPointResponse{
			Month:    p.Month.String(),
			Label:    p.Label,
			Expenses: p.Expenses.StringFixed(2),
		})
	}

	s.dashCache.Set(cacheKey, resp)
	writeJSON(w, http.StatusOK, resp)
}
