package worker

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/amqp"
)

type fakeAppender struct {
	events []*amqp.TransactionEvent
	err    error
}

func (f *fakeAppender) AppendEvent(_ context.Context, ev *amqp.TransactionEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func TestHandleEventAppends(t *testing.T) {
	fa := &fakeAppender{}
	w := NewLedgerWorker(fa)

	for _, op := range []string{amqp.OpCreate, amqp.OpUpdate, amqp.OpDelete} {
		ev := &amqp.TransactionEvent{Op: op, ID: "tx-1"}
		if err := w.HandleEvent(context.Background(), ev); err != nil {
			t.Fatalf("HandleEvent(%s): %v", op, err)
		}
	}
	if len(fa.events) != 3 {
		t.Errorf("appended %d rows, want 3", len(fa.events))
	}
}

func TestHandleEventUnknownOpDropped(t *testing.T) {
	fa := &fakeAppender{}
	w := NewLedgerWorker(fa)

	ev := &amqp.TransactionEvent{Op: "merge", ID: "tx-1"}
	if err := w.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("unknown op should not error (would requeue forever): %v", err)
	}
	if len(fa.events) != 0 {
		t.Errorf("unknown op should not reach the ledger, got %d rows", len(fa.events))
	}
}

func TestHandleEventPropagatesAppendFailure(t *testing.T) {
	fa := &fakeAppender{err: errors.New("quota exceeded")}
	w := NewLedgerWorker(fa)

	ev := &amqp.TransactionEvent{Op: amqp.OpCreate, ID: "tx-1"}
	if err := w.HandleEvent(context.Background(), ev); err == nil {
		t.Error("append failure must surface so the delivery is requeued")
	}
}
