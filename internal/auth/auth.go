// Package auth handles account registration, credential checks and
// token-based sessions. Session tokens live in an in-process TTL cache,
// so restarting the server signs everyone out.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/cache"
	"fintrack/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrNoSession          = errors.New("no active session")
)

// Identity is the authenticated principal attached to a session token.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// Event reports a sign-in or sign-out to registered watchers.
type Event struct {
	Identity  Identity
	SignedOut bool
}

// Service owns users and sessions. Watchers receive an Event on every
// sign-in and sign-out, which the coordinator registry uses to start and
// stop per-user report loading.
type Service struct {
	users    store.UserStore
	sessions *cache.LRUCache[Identity]

	mu       sync.Mutex
	watchers []chan Event
}

func NewService(users store.UserStore, sessionTTL time.Duration, manager *cache.Manager) *Service {
	sessions := cache.NewLRUCache[Identity](10_000, sessionTTL)
	if manager != nil {
		manager.Register(sessions)
	}
	return &Service{users: users, sessions: sessions}
}

// Watch returns a channel that receives identity events. The channel is
// buffered; a watcher that falls behind drops events rather than blocking
// the auth path. Subscriptions last for the life of the service: there is
// no unsubscribe, so Watch is meant for process-lifetime consumers like
// the report registry.
func (s *Service) Watch() <-chan Event {
	ch := make(chan Event, 16)
	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()
	return ch
}

func (s *Service) notify(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Register creates an account and signs it in, returning the session token.
func (s *Service) Register(ctx context.Context, email, name, password string) (string, Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") || len(email) < 3 {
		return "", Identity{}, ErrInvalidEmail
	}
	if len(password) < 6 {
		return "", Identity{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", Identity{}, fmt.Errorf("hash password: %w", err)
	}

	u := store.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if store.ErrorCode(err) == store.CodePreconditionFailed {
			return "", Identity{}, ErrEmailTaken
		}
		return "", Identity{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User registered", "user_id", u.ID, "email", email)
	token, id := s.openSession(u)
	return token, id, nil
}

// Login verifies credentials and returns a fresh session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		if store.ErrorCode(err) == store.CodeNotFound {
			// Burn a comparison so missing accounts cost the same as bad
			// passwords.
			_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000"), []byte(password))
			return "", Identity{}, ErrInvalidCredentials
		}
		return "", Identity{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return "", Identity{}, ErrInvalidCredentials
	}

	slog.InfoContext(ctx, "User logged in", "user_id", u.ID)
	token, id := s.openSession(u)
	return token, id, nil
}

func (s *Service) openSession(u store.User) (string, Identity) {
	id := Identity{UserID: u.ID, Email: u.Email, Name: u.Name}
	token := uuid.NewString()
	s.sessions.Set(token, id)
	s.notify(Event{Identity: id})
	return token, id
}

// Logout invalidates the token. Unknown tokens report ErrNoSession.
func (s *Service) Logout(ctx context.Context, token string) error {
	id, ok := s.sessions.Get(token)
	if !ok {
		return ErrNoSession
	}
	s.sessions.Delete(token)
	s.notify(Event{Identity: id, SignedOut: true})
	slog.InfoContext(ctx, "User logged out", "user_id", id.UserID)
	return nil
}

// IdentityFor resolves a session token. Expired tokens behave like
// unknown ones.
func (s *Service) IdentityFor(token string) (Identity, bool) {
	return s.sessions.Get(token)
}
