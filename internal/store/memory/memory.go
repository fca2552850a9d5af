package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vovakirdan/messenger-server/internal/store"
)

// MemoryStore implements store.Store on process memory. A single RWMutex
// guards users, tokens and channels together.
type MemoryStore struct {
	mu     sync.RWMutex
	state  *state
	closed bool
}

type state struct {
	users    map[string]*store.User
	tokens   map[string]string
	channels map[string][]store.Message
}

func newState() *state {
	return &state{
		users:    map[string]*store.User{store.AdminUsername: {Username: store.AdminUsername}},
		tokens:   make(map[string]string),
		channels: make(map[string][]store.Message),
	}
}

// New creates a store holding only the seeded admin user.
func New() *MemoryStore {
	return &MemoryStore{state: newState()}
}

// View runs fn under the shared lock.
func (s *MemoryStore) View(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("view: %w", errClosed)
	}
	return fn(&memTx{s: s})
}

// Update runs fn under the exclusive lock.
func (s *MemoryStore) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("update: %w", errClosed)
	}
	return fn(&memTx{s: s, writable: true})
}

// Close drops the state. Later calls to View and Update fail.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.state = nil
	return nil
}
