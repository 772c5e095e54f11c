// Package worker turns queued transaction events into ledger rows.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
)

// Appender is the ledger sink, normally the Google Sheets client.
type Appender interface {
	AppendEvent(ctx context.Context, ev *amqp.TransactionEvent) error
}

// LedgerWorker appends every consumed event to the ledger. It performs no
// reads and keeps no state, so redelivered events simply produce
// duplicate rows.
type LedgerWorker struct {
	appender Appender
}

func NewLedgerWorker(appender Appender) *LedgerWorker {
	return &LedgerWorker{appender: appender}
}

// HandleEvent processes one delivery. Returning an error requeues it.
func (w *LedgerWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	switch ev.Op {
	case amqp.OpCreate, amqp.OpUpdate, amqp.OpDelete:
	default:
		// Unknown ops are dropped, not requeued: a newer producer may emit
		// ops this worker does not know, and requeueing would loop forever.
		slog.WarnContext(ctx, "Skipping unknown event op", "op", ev.Op, "id", ev.ID)
		return nil
	}

	if err := w.appender.AppendEvent(ctx, ev); err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}
	return nil
}
