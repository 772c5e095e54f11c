package core

// Filter composes independent optional predicates over a transaction
// collection. All set predicates must pass for a record to be included.
// The zero Filter matches everything.
type Filter struct {
	// Kind restricts to a single kind when non-empty.
	Kind Kind

	// Category restricts to an exact category key when non-empty. The key
	// is compared across both taxonomies and is not re-validated against
	// the record's kind.
	Category string

	// From and To bound Date inclusively; each may be zero independently.
	From Date
	To   Date
}

// IsZero reports whether the filter has no predicates set.
func (f Filter) IsZero() bool {
	return f.Kind == "" && f.Category == "" && f.From.IsZero() && f.To.IsZero()
}

// Match reports whether t passes every set predicate.
func (f Filter) Match(t Transaction) bool {
	if f.Kind != "" && t.Kind != f.Kind {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if !f.From.IsZero() && t.Date.Before(f.From.Time) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To.Time) {
		return false
	}
	return true
}

// Apply returns the matching records in a fresh slice, preserving the
// relative order of the input. The input is never mutated.
func (f Filter) Apply(txs []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}
