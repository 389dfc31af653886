/*
Package credentials persists the credentials of the last connected user so that a session can
be restored without asking the application for a token again.

A Store is written on every successful connect and on updates of the current user, and
cleared when the client disconnects with flushPersistence. Backends: MemoryStore for tests
and ephemeral sessions, FileStore for desktop and CLI usage, PostgresStore for server-side
clients sharing a database.
*/
package credentials

import (
	"context"
	"sync"
)

// Config is the persisted state of a user session.
type Config struct {
	UserID      string `json:"user_id"`
	UserToken   string `json:"user_token"`
	UserName    string `json:"user_name"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// IsValid reports whether the config identifies a user with a token.
func (c *Config) IsValid() bool {
	return c != nil && c.UserID != "" && c.UserToken != ""
}

// Store persists a single Config.
type Store interface {
	// Get returns the stored Config, or nil when nothing is stored.
	Get(ctx context.Context) (*Config, error)

	// Put replaces the stored Config.
	Put(ctx context.Context, cfg Config) error

	// Clear removes the stored Config.
	Clear(ctx context.Context) error
}

// MemoryStore keeps the Config in process memory.
type MemoryStore struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(context.Context) (*Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cfg == nil {
		return nil, nil
	}
	c := *s.cfg
	return &c, nil
}

func (s *MemoryStore) Put(_ context.Context, cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg = &cfg
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg = nil
	return nil
}
