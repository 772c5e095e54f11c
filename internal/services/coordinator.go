// Package services orchestrates transaction mutations and report loading
// on top of the store, fanning record events out to the ledger queue.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/store"
)

// State of a coordinator's report snapshot.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

var (
	// ErrLoadInFlight rejects a second load while one is running.
	ErrLoadInFlight = errors.New("report load already in flight")
	// ErrNotReady rejects reads before the first successful load.
	ErrNotReady = errors.New("report not loaded")
	// ErrNoOwner rejects operations on a coordinator with no signed-in owner.
	ErrNoOwner = errors.New("no owner bound")
)

// EventPublisher is the slice of the AMQP client the coordinator needs.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, msg *amqp.TransactionEvent) error
}

// Snapshot is the coordinator's current view of an owner's records. On
// Failed the previous transactions are retained so readers can keep
// showing the last good data.
type Snapshot struct {
	State        State
	Transactions []core.Transaction
	Err          error
}

// Dashboard aggregates one month plus the trailing spending trend.
type Dashboard struct {
	Month      core.Month
	Totals     core.Totals
	Categories []core.CategoryTotal
	Trend      []core.TrendPoint
}

// Coordinator serializes loads and mutations for a single owner's report.
// A generation counter fences stale load results: binding or resetting the
// owner mid-load makes the in-flight result a no-op.
type Coordinator struct {
	store     store.Store
	publisher EventPublisher

	mu         sync.Mutex
	ownerID    string
	generation uint64
	state      State
	txs        []core.Transaction
	loadErr    error
	loading    bool
}

// NewCoordinator builds an idle coordinator. publisher may be nil; events
// are then skipped and mutations still succeed.
func NewCoordinator(s store.Store, publisher EventPublisher) *Coordinator {
	return &Coordinator{store: s, publisher: publisher, state: StateIdle}
}

// SetOwner binds the coordinator to an owner and clears the snapshot.
// Any in-flight load result for the previous owner is discarded.
func (c *Coordinator) SetOwner(ownerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ownerID = ownerID
	c.generation++
	c.state = StateIdle
	c.txs = nil
	c.loadErr = nil
}

// Reset unbinds the owner. Equivalent to SetOwner("").
func (c *Coordinator) Reset() {
	c.SetOwner("")
}

// Load fetches the owner's full record list and replaces the snapshot.
// Store not-found and permission-denied answers become an empty Ready
// snapshot rather than a failure; anything else flips the state to Failed
// while keeping the previous transactions.
func (c *Coordinator) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.ownerID == "" {
		c.mu.Unlock()
		return ErrNoOwner
	}
	if c.loading {
		c.mu.Unlock()
		return ErrLoadInFlight
	}
	c.loading = true
	c.state = StateLoading
	gen := c.generation
	ownerID := c.ownerID
	c.mu.Unlock()

	txs, err := c.store.ListByOwner(ctx, ownerID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false

	if gen != c.generation {
		slog.InfoContext(ctx, "Discarding stale report load", "owner_id", ownerID)
		return nil
	}

	if err != nil {
		switch store.ErrorCode(err) {
		case store.CodeNotFound, store.CodePermissionDenied:
			// A brand-new owner has no records yet; treat the answer as empty.
			c.state = StateReady
			c.txs = nil
			c.loadErr = nil
			return nil
		}
		slog.ErrorContext(ctx, "Report load failed", "owner_id", ownerID, "error", err)
		c.state = StateFailed
		c.loadErr = err
		return fmt.Errorf("load report: %w", err)
	}

	c.state = StateReady
	c.txs = txs
	c.loadErr = nil
	return nil
}

// Snapshot returns a copy of the current view.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	txs := make([]core.Transaction, len(c.txs))
	copy(txs, c.txs)
	return Snapshot{State: c.state, Transactions: txs, Err: c.loadErr}
}

// Dashboard derives the monthly aggregates from the Ready snapshot.
// Totals and category amounts are rounded to cents at this final step.
func (c *Coordinator) Dashboard(month core.Month) (Dashboard, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady {
		return Dashboard{}, ErrNotReady
	}

	totals := core.PeriodTotals(c.txs, month)
	return Dashboard{
		Month: month,
		Totals: core.Totals{
			Income:   totals.Income.Round(2),
			Expenses: totals.Expenses.Round(2),
			Net:      totals.Net.Round(2),
		},
		Categories: core.CategoryBreakdown(c.txs, month),
		Trend:      core.TrendSeries(c.txs, month),
	}, nil
}

// Create validates and stores a new record, then reloads the snapshot.
func (c *Coordinator) Create(ctx context.Context, d core.Draft) (string, error) {
	ownerID, err := c.boundOwner()
	if err != nil {
		return "", err
	}
	if err := d.Validate(); err != nil {
		return "", err
	}

	id, err := c.store.Create(ctx, ownerID, d)
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction created", "id", id, "owner_id", ownerID)

	c.publish(ctx, amqp.OpCreate, id, ownerID, d)
	return id, c.reload(ctx)
}

// Update validates and rewrites an existing record, then reloads.
func (c *Coordinator) Update(ctx context.Context, id string, d core.Draft) error {
	ownerID, err := c.boundOwner()
	if err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return err
	}

	if err := c.store.Update(ctx, ownerID, id, d); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction updated", "id", id, "owner_id", ownerID)

	c.publish(ctx, amqp.OpUpdate, id, ownerID, d)
	return c.reload(ctx)
}

// Delete removes a record, then reloads.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	ownerID, err := c.boundOwner()
	if err != nil {
		return err
	}

	if err := c.store.Delete(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id, "owner_id", ownerID)

	c.publish(ctx, amqp.OpDelete, id, ownerID, core.Draft{})
	return c.reload(ctx)
}

func (c *Coordinator) boundOwner() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ownerID == "" {
		return "", ErrNoOwner
	}
	return c.ownerID, nil
}

// reload refreshes the snapshot after a mutation. A concurrent load means
// fresh data is already on the way, so ErrLoadInFlight is not an error here.
func (c *Coordinator) reload(ctx context.Context) error {
	if err := c.Load(ctx); err != nil && !errors.Is(err, ErrLoadInFlight) {
		return err
	}
	return nil
}

func (c *Coordinator) publish(ctx context.Context, op, id, ownerID string, d core.Draft) {
	if c.publisher == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping event", "op", op, "id", id)
		return
	}

	msg := &amqp.TransactionEvent{
		Op:          op,
		ID:          id,
		OwnerID:     ownerID,
		Description: d.Description,
		Amount:      d.Amount.String(),
		Kind:        string(d.Kind),
		Category:    d.Category,
		Date:        d.Date.String(),
	}
	if op == amqp.OpDelete {
		msg.Description, msg.Amount, msg.Kind, msg.Category, msg.Date = "", "", "", "", ""
	}

	// Events are best effort. The record is already durable locally.
	if err := c.publisher.PublishTransactionEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"op", op, "id", id, "error", err)
	}
}
