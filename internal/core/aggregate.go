// Package core holds the transaction domain model and the pure aggregation
// and filtering functions that power dashboards, listings and exports.
//
// All aggregation is stateless and deterministic: the same collection and
// the same month always produce the same result, and input order never
// affects totals. Amounts accumulate unrounded; rounding to two decimal
// places happens once, at the end, to avoid compounding per-item error.
package core

import "github.com/shopspring/decimal"

// Totals holds the income/expense sums and net balance for one calendar
// month. Values are unrounded; callers round for presentation.
type Totals struct {
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Net      decimal.Decimal
}

// CategoryTotal is one slice of the expense category breakdown.
type CategoryTotal struct {
	Key    string
	Label  string
	Amount decimal.Decimal
}

// TrendPoint is one month of the spending trend series.
type TrendPoint struct {
	Month    Month
	Label    string
	Expenses decimal.Decimal
}

// TrendMonths is the size of the spending trend window.
const TrendMonths = 6

// PeriodTotals sums income and expenses over the records falling in month.
// An empty collection, or one with no matching records, yields all zeros.
func PeriodTotals(txs []Transaction, month Month) Totals {
	t := Totals{Income: decimal.Zero, Expenses: decimal.Zero}
	for _, tx := range txs {
		if !month.Contains(tx.Date) {
			continue
		}
		switch tx.Kind {
		case Income:
			t.Income = t.Income.Add(tx.Amount)
		case Expense:
			t.Expenses = t.Expenses.Add(tx.Amount)
		}
	}
	t.Net = t.Income.Sub(t.Expenses)
	return t
}

// CategoryBreakdown groups the month's expense records by category and sums
// each group. Groups that do not sum to a positive amount are dropped.
// Output order is the order in which each category was first encountered.
// Group sums are rounded half-up to two decimals after summing, never per
// record, so 10.005 + 10.005 reports 20.01 rather than 20.00.
func CategoryBreakdown(txs []Transaction, month Month) []CategoryTotal {
	sums := make(map[string]decimal.Decimal)
	var order []string
	for _, tx := range txs {
		if tx.Kind != Expense || !month.Contains(tx.Date) {
			continue
		}
		if _, seen := sums[tx.Category]; !seen {
			order = append(order, tx.Category)
		}
		sums[tx.Category] = sums[tx.Category].Add(tx.Amount)
	}

	out := make([]CategoryTotal, 0, len(order))
	for _, key := range order {
		sum := sums[key]
		// Positivity is decided on the unrounded sum.
		if !sum.IsPositive() {
			continue
		}
		out = append(out, CategoryTotal{
			Key:    key,
			Label:  CategoryLabel(Expense, key),
			Amount: sum.Round(2),
		})
	}
	return out
}

// TrendSeries produces one point per month for the window of TrendMonths
// calendar months ending at end, in chronological order. Each point is the
// expense total of that month alone. An empty collection still yields the
// full window of zero points so charts keep their skeleton.
func TrendSeries(txs []Transaction, end Month) []TrendPoint {
	out := make([]TrendPoint, 0, TrendMonths)
	for i := TrendMonths - 1; i >= 0; i-- {
		m := end.AddMonths(-i)
		out = append(out, TrendPoint{
			Month:    m,
			Label:    m.Label(),
			Expenses: PeriodTotals(txs, m).Expenses.Round(2),
		})
	}
	return out
}
