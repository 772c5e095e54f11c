// Package store defines the transaction store boundary and its
// implementations. The store is the only component allowed to filter
// server-side, and only by owner equality; everything else is computed
// locally by the filter and aggregation engines.
package store

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/core"
)

// Code classifies a store failure.
type Code string

const (
	CodeNotFound           Code = "not-found"
	CodePermissionDenied   Code = "permission-denied"
	CodePreconditionFailed Code = "precondition-failed"
	CodeUnknown            Code = "unknown"
)

// Error is a classified store failure. Op names the operation that failed.
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("store: %s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("store: %s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a classified store error.
func NewError(code Code, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// ErrorCode extracts the classification from err, or CodeUnknown when err
// is not a store error.
func ErrorCode(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeUnknown
}

// Store persists transaction records. Every record is exclusively owned by
// one user; implementations never return records across owners.
//
// Create assigns the record an opaque id and timestamps and returns the id.
// Update replaces all editable fields of an existing record. Drafts are
// assumed validated by the caller.
//
// Update and Delete are owner-scoped: mutating a record that exists but
// belongs to a different owner yields CodePermissionDenied, never the
// other owner's data.
type Store interface {
	Create(ctx context.Context, ownerID string, d core.Draft) (string, error)
	Update(ctx context.Context, ownerID, id string, d core.Draft) error
	Delete(ctx context.Context, ownerID, id string) error

	// ListByOwner returns the owner's records ordered by date descending;
	// same-day records keep insertion order (newest insert first).
	ListByOwner(ctx context.Context, ownerID string) ([]core.Transaction, error)
}

// User is an account record managed by the auth service.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash []byte
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u User) error
	UserByEmail(ctx context.Context, email string) (User, error)
}
