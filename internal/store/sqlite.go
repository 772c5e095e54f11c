package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"fintrack/internal/core"
)

// SQLite implements Store and UserStore on a local SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at dbPath and applies
// pending migrations.
func NewSQLite(dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Create implements Store.
func (s *SQLite) Create(ctx context.Context, ownerID string, d core.Draft) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, owner_id, description, amount, kind, category, occurred_on, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, ownerID, d.Description, d.Amount.String(), string(d.Kind), d.Category, d.Date.String(), now, now)
	if err != nil {
		return "", classify("create", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"owner_id", ownerID,
		"kind", d.Kind,
		"amount", d.Amount.String())

	return id, nil
}

// Update implements Store. All editable fields are replaced wholesale.
// The owner predicate keeps one user's update from touching another's record.
func (s *SQLite) Update(ctx context.Context, ownerID, id string, d core.Draft) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET description = ?, amount = ?, kind = ?, category = ?, occurred_on = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		d.Description, d.Amount.String(), string(d.Kind), d.Category, d.Date.String(), time.Now().UTC(), id, ownerID)
	if err != nil {
		return classify("update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("update", err)
	}
	if n == 0 {
		return s.mutationMiss(ctx, "update", id)
	}
	return nil
}

// Delete implements Store. Deletion is irreversible; there is no tombstone.
func (s *SQLite) Delete(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return classify("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("delete", err)
	}
	if n == 0 {
		return s.mutationMiss(ctx, "delete", id)
	}
	return nil
}

// mutationMiss tells a missing record apart from one owned by someone else
// after an owner-scoped mutation touched zero rows.
func (s *SQLite) mutationMiss(ctx context.Context, op, id string) error {
	var owner string
	err := s.db.QueryRowContext(ctx, `SELECT owner_id FROM transactions WHERE id = ?`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return NewError(CodeNotFound, op, fmt.Errorf("transaction %s", id))
	}
	if err != nil {
		return classify(op, err)
	}
	return NewError(CodePermissionDenied, op, fmt.Errorf("transaction %s", id))
}

// ListByOwner implements Store. Records come back date-descending; the
// rowid tiebreak keeps same-day records in insertion order, newest first.
func (s *SQLite) ListByOwner(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, description, amount, kind, category, occurred_on, created_at, updated_at
		FROM transactions
		WHERE owner_id = ?
		ORDER BY occurred_on DESC, rowid DESC`, ownerID)
	if err != nil {
		return nil, classify("list", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t          core.Transaction
			amount     string
			kind       string
			occurredOn string
		)
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Description, &amount, &kind, &t.Category, &occurredOn, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, classify("list", err)
		}
		t.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, classify("list", fmt.Errorf("corrupt amount %q: %w", amount, err))
		}
		t.Kind = core.Kind(kind)
		t.Date, err = core.ParseDate(occurredOn)
		if err != nil {
			return nil, classify("list", fmt.Errorf("corrupt date %q: %w", occurredOn, err))
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list", err)
	}
	return out, nil
}

// CreateUser implements UserStore.
func (s *SQLite) CreateUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, time.Now().UTC())
	if err != nil {
		return classify("create user", err)
	}
	return nil
}

// UserByEmail implements UserStore.
func (s *SQLite) UserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash)
	if err != nil {
		return User{}, classify("user by email", err)
	}
	return u, nil
}

// classify maps driver errors to classified store errors.
func classify(op string, err error) *Error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return NewError(CodeNotFound, op, err)
	case strings.Contains(err.Error(), "UNIQUE constraint failed"),
		strings.Contains(err.Error(), "CHECK constraint failed"):
		return NewError(CodePreconditionFailed, op, err)
	default:
		return NewError(CodeUnknown, op, err)
	}
}
