package services

import (
	"context"
	"log/slog"
	"sync"

	"fintrack/internal/auth"
	"fintrack/internal/store"
)

// Registry hands out one coordinator per owner and reacts to identity
// events: a sign-in warms the owner's report, a sign-out tears it down.
type Registry struct {
	store     store.Store
	publisher EventPublisher

	mu     sync.Mutex
	coords map[string]*Coordinator
}

func NewRegistry(s store.Store, publisher EventPublisher) *Registry {
	return &Registry{
		store:     s,
		publisher: publisher,
		coords:    make(map[string]*Coordinator),
	}
}

// CoordinatorFor returns the owner's coordinator, creating and binding it
// on first use.
func (r *Registry) CoordinatorFor(ownerID string) *Coordinator {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.coords[ownerID]
	if !ok {
		c = NewCoordinator(r.store, r.publisher)
		c.SetOwner(ownerID)
		r.coords[ownerID] = c
	}
	return c
}

// Release resets and drops the owner's coordinator. An in-flight load for
// that owner lands on a bumped generation and is discarded.
func (r *Registry) Release(ownerID string) {
	r.mu.Lock()
	c, ok := r.coords[ownerID]
	if ok {
		delete(r.coords, ownerID)
	}
	r.mu.Unlock()

	if ok {
		c.Reset()
	}
}

// Run consumes identity events until ctx is cancelled or the channel
// closes. Intended to be started once per process.
func (r *Registry) Run(ctx context.Context, events <-chan auth.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.SignedOut {
				slog.InfoContext(ctx, "Releasing report coordinator", "owner_id", ev.Identity.UserID)
				r.Release(ev.Identity.UserID)
				continue
			}
			c := r.CoordinatorFor(ev.Identity.UserID)
			go func(userID string) {
				if err := c.Load(ctx); err != nil {
					slog.ErrorContext(ctx, "Warm-up report load failed",
						"owner_id", userID, "error", err)
				}
			}(ev.Identity.UserID)
		}
	}
}
