package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// Memory is an in-process Store and UserStore used as the default dev
// backend and as the substitute in tests. Records do not survive restarts.
type Memory struct {
	mu    sync.Mutex
	txs   []core.Transaction
	users map[string]User // keyed by email
}

func NewMemory() *Memory {
	return &Memory{users: make(map[string]User)}
}

// Create implements Store.
func (m *Memory) Create(_ context.Context, ownerID string, d core.Draft) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	t := core.Transaction{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Description: d.Description,
		Amount:      d.Amount,
		Kind:        d.Kind,
		Category:    d.Category,
		Date:        d.Date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.txs = append(m.txs, t)
	return t.ID, nil
}

// Update implements Store. Records owned by someone else are off limits.
func (m *Memory) Update(_ context.Context, ownerID, id string, d core.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.txs {
		if m.txs[i].ID == id {
			if m.txs[i].OwnerID != ownerID {
				return NewError(CodePermissionDenied, "update", fmt.Errorf("transaction %s", id))
			}
			m.txs[i].Description = d.Description
			m.txs[i].Amount = d.Amount
			m.txs[i].Kind = d.Kind
			m.txs[i].Category = d.Category
			m.txs[i].Date = d.Date
			m.txs[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return NewError(CodeNotFound, "update", fmt.Errorf("transaction %s", id))
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.txs {
		if m.txs[i].ID == id {
			if m.txs[i].OwnerID != ownerID {
				return NewError(CodePermissionDenied, "delete", fmt.Errorf("transaction %s", id))
			}
			m.txs = append(m.txs[:i], m.txs[i+1:]...)
			return nil
		}
	}
	return NewError(CodeNotFound, "delete", fmt.Errorf("transaction %s", id))
}

// ListByOwner implements Store. The stable sort keeps same-day records in
// insertion order; newest insertions surface first within a day because the
// slice is walked backwards.
func (m *Memory) ListByOwner(_ context.Context, ownerID string) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []core.Transaction
	for i := len(m.txs) - 1; i >= 0; i-- {
		if m.txs[i].OwnerID == ownerID {
			out = append(out, m.txs[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	return out, nil
}

// CreateUser implements UserStore.
func (m *Memory) CreateUser(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[u.Email]; exists {
		return NewError(CodePreconditionFailed, "create user", fmt.Errorf("email %s taken", u.Email))
	}
	m.users[u.Email] = u
	return nil
}

// UserByEmail implements UserStore.
func (m *Memory) UserByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[email]
	if !ok {
		return User{}, NewError(CodeNotFound, "user by email", fmt.Errorf("email %s", email))
	}
	return u, nil
}
