// Package export renders a transaction list as downloadable report
// documents. Amounts are rounded to cents at render time only.
package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Summary holds the report header figures.
type Summary struct {
	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
	NetIncome     decimal.Decimal
}

// Summarize accumulates full-precision sums over the whole list.
func Summarize(txs []core.Transaction) Summary {
	var income, expenses decimal.Decimal
	for _, t := range txs {
		switch t.Kind {
		case core.Income:
			income = income.Add(t.Amount)
		case core.Expense:
			expenses = expenses.Add(t.Amount)
		}
	}
	return Summary{
		TotalIncome:   income,
		TotalExpenses: expenses,
		NetIncome:     income.Sub(expenses),
	}
}

// WriteTXT renders the plain-text report: a summary block followed by the
// numbered entries in list order.
func WriteTXT(w io.Writer, txs []core.Transaction) error {
	s := Summarize(txs)

	if _, err := fmt.Fprintf(w, "Transaction Report\n==================\n\n"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	_, err := fmt.Fprintf(w, "Summary:\nTotal Income: $%s\nTotal Expenses: $%s\nNet Income: $%s\n\n",
		s.TotalIncome.StringFixed(2), s.TotalExpenses.StringFixed(2), s.NetIncome.StringFixed(2))
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if _, err := fmt.Fprintf(w, "Transactions:\n-------------\n\n"); err != nil {
		return fmt.Errorf("write separator: %w", err)
	}

	for i, t := range txs {
		_, err := fmt.Fprintf(w, "%d. %s\n   Type: %s\n   Category: %s\n   Amount: %s\n   Date: %s\n\n",
			i+1,
			t.Description,
			kindLabel(t.Kind),
			core.CategoryLabel(t.Kind, t.Category),
			signedAmount(t),
			t.Date.String(),
		)
		if err != nil {
			return fmt.Errorf("write entry %d: %w", i+1, err)
		}
	}
	return nil
}

func kindLabel(k core.Kind) string {
	if k == core.Income {
		return "Income"
	}
	return "Expense"
}

// signedAmount renders income with a leading plus and expenses with a
// minus, matching the report convention.
func signedAmount(t core.Transaction) string {
	sign := "-"
	if t.Kind == core.Income {
		sign = "+"
	}
	return fmt.Sprintf("%s$%s", sign, t.Amount.StringFixed(2))
}
