package http

import (
	"log/slog"
	"net/http"

	"fintrack/internal/export"
)

// handleExport streams the filtered transaction list as a report document.
// The format query parameter picks txt (default) or csv; the same filter
// parameters as the listing endpoint apply.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "txt"
	}
	if format != "txt" && format != "csv" {
		writeError(w, http.StatusBadRequest, "unsupported format: "+format)
		return
	}

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

	switch format {
	case "txt":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="transactions.txt"`)
		err = export.WriteTXT(w, txs)
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
		err = export.WriteCSV(w, txs)
	}
	if err != nil {
		// Headers are already gone; just record the failure.
		slog.ErrorContext(r.Context(), "Report export failed", "format", format, "error", err)
	}
}
