package core

// Category is a taxonomy entry: a stable key plus a human-readable label.
type Category struct {
	Key   string
	Label string
}

// Taxonomy is the fixed mapping from kind to its ordered category set. A
// transaction's category must be a key present in the entry for its kind.
var Taxonomy = map[Kind][]Category{
	Income: {
		{Key: "salary", Label: "Salary"},
		{Key: "freelance", Label: "Freelance"},
		{Key: "business", Label: "Business"},
		{Key: "investment", Label: "Investment"},
		{Key: "other-income", Label: "Other Income"},
	},
	Expense: {
		{Key: "food", Label: "Food & Dining"},
		{Key: "transport", Label: "Transportation"},
		{Key: "entertainment", Label: "Entertainment"},
		{Key: "utilities", Label: "Utilities"},
		{Key: "healthcare", Label: "Healthcare"},
		{Key: "shopping", Label: "Shopping"},
		{Key: "other-expense", Label: "Other Expense"},
	},
}

// ValidCategory reports whether key belongs to the taxonomy entry for kind.
func ValidCategory(kind Kind, key string) bool {
	for _, c := range Taxonomy[kind] {
		if c.Key == key {
			return true
		}
	}
	return false
}

// CategoryLabel resolves a category key to its display label, falling back
// to the raw key when the key is not present in the taxonomy for kind.
func CategoryLabel(kind Kind, key string) string {
	for _, c := range Taxonomy[kind] {
		if c.Key == key {
			return c.Label
		}
	}
	return key
}
