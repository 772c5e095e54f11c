package core

import (
	"testing"
)

func sampleTransactions(t *testing.T) []Transaction {
	t.Helper()
	return []Transaction{
		tx(t, Expense, "food", "12.50", "2024-02-28"),
		tx(t, Income, "salary", "1000", "2024-02-15"),
		tx(t, Expense, "transport", "8", "2024-03-01"),
		tx(t, Expense, "food", "5.40", "2024-03-02"),
		tx(t, Income, "freelance", "250", "2024-01-20"),
	}
}

func TestFilterDateRange(t *testing.T) {
	txs := sampleTransactions(t)
	f := Filter{From: mustDate(t, "2024-02-01"), To: mustDate(t, "2024-02-29")}

	got := f.Apply(txs)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(got), got)
	}
	// 2024-02-28 is inside the range, 2024-03-01 outside.
	for _, tr := range got {
		if tr.Date.String() < "2024-02-01" || tr.Date.String() > "2024-02-29" {
			t.Errorf("record %s escaped the range", tr.Date)
		}
	}
}

func TestFilterOpenEndedBounds(t *testing.T) {
	txs := sampleTransactions(t)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"no bounds matches all", Filter{}, 5},
		{"from only", Filter{From: mustDate(t, "2024-03-01")}, 2},
		{"to only", Filter{To: mustDate(t, "2024-01-31")}, 1},
		{"kind only", Filter{Kind: Expense}, 3},
		{"category only", Filter{Category: "food"}, 2},
		{"kind and category", Filter{Kind: Income, Category: "salary"}, 1},
		{"category across kinds not revalidated", Filter{Kind: Expense, Category: "salary"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Apply(txs); len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestFilterCompositionCommutative(t *testing.T) {
	txs := sampleTransactions(t)

	kindOnly := Filter{Kind: Expense}
	dateOnly := Filter{From: mustDate(t, "2024-02-01"), To: mustDate(t, "2024-03-01")}
	combined := Filter{Kind: Expense, From: dateOnly.From, To: dateOnly.To}

	a := dateOnly.Apply(kindOnly.Apply(txs))
	b := kindOnly.Apply(dateOnly.Apply(txs))
	c := combined.Apply(txs)

	if len(a) != len(b) || len(a) != len(c) {
		t.Fatalf("lengths differ: %d %d %d", len(a), len(b), len(c))
	}
	for i := range a {
		if a[i].Date != b[i].Date || a[i].Date != c[i].Date {
			t.Errorf("element %d differs across application orders", i)
		}
	}
}

func TestFilterIdempotent(t *testing.T) {
	txs := sampleTransactions(t)
	f := Filter{Kind: Expense, Category: "food"}

	once := f.Apply(txs)
	twice := f.Apply(once)
	if len(once) != len(twice) {
		t.Fatalf("idempotence broken: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("element %d changed on second application", i)
		}
	}
}

func TestFilterPreservesOrderAndInput(t *testing.T) {
	txs := sampleTransactions(t)
	before := make([]Transaction, len(txs))
	copy(before, txs)

	got := Filter{Kind: Expense}.Apply(txs)

	// Relative input order is preserved.
	for i := 1; i < len(got); i++ {
		iA, iB := indexOf(t, txs, got[i-1]), indexOf(t, txs, got[i])
		if iA > iB {
			t.Errorf("order not preserved: %d before %d", iA, iB)
		}
	}

	// Input is untouched.
	for i := range txs {
		if txs[i] != before[i] {
			t.Errorf("input mutated at %d", i)
		}
	}
}

func indexOf(t *testing.T, txs []Transaction, want Transaction) int {
	t.Helper()
	for i, tr := range txs {
		if tr == want {
			return i
		}
	}
	t.Fatalf("transaction not found in input")
	return -1
}
