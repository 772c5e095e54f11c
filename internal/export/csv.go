package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"fintrack/internal/core"
)

// csvHeader mirrors the tabular report layout.
var csvHeader = []string{"Description", "Category", "Type", "Amount", "Date"}

// WriteCSV renders the tabular report with one row per transaction in
// list order. Amounts carry the same sign convention as the text report.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, t := range txs {
		row := []string{
			t.Description,
			core.CategoryLabel(t.Kind, t.Category),
			kindLabel(t.Kind),
			signedAmount(t),
			t.Date.String(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}
