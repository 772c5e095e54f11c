package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

type (
	// Kind classifies a transaction as money coming in or going out.
	Kind string

	// Transaction is a single dated income or expense entry owned by one
	// user. ID, OwnerID, CreatedAt and UpdatedAt are assigned by the store.
	Transaction struct {
		ID          string
		OwnerID     string
		Description string
		Amount      decimal.Decimal
		Kind        Kind
		Category    string
		Date        Date
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// Draft carries the user-editable fields of a transaction. It is what
	// forms submit and what create/update operations accept; the store fills
	// in the rest.
	Draft struct {
		Description string
		Amount      decimal.Decimal
		Kind        Kind
		Category    string
		Date        Date
	}
)

var (
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidKind        = errors.New("invalid kind")
	ErrEmptyCategory      = errors.New("empty category")
	ErrCategoryMismatch   = errors.New("category does not belong to kind")
)

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidKind
	}
}

// ParseAmount parses a positive decimal amount from user input. It accepts
// both dot and comma decimal separators. The value is kept unrounded;
// rounding happens only at presentation time.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

func (d Draft) Validate() error {
	if err := d.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(d.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(d.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if !d.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := d.Kind.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(d.Category) == "" {
		return ErrEmptyCategory
	}
	if !ValidCategory(d.Kind, d.Category) {
		return ErrCategoryMismatch
	}
	return nil
}

// Draft returns the editable fields of an existing transaction, for use as
// the base of a full-record update.
func (t Transaction) Draft() Draft {
	return Draft{
		Description: t.Description,
		Amount:      t.Amount,
		Kind:        t.Kind,
		Category:    t.Category,
		Date:        t.Date,
	}
}
