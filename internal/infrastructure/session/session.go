// Package session persists opaque Telegram session strings keyed by account id.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// NoSession is the wire convention for "start fresh". It is never persisted
// and never handed to the protocol layer.
const NoSession = "no-session"

// KeyPrefix namespaces session keys in the backing store.
const KeyPrefix = "session:"

// ErrEmptyAccountID is returned for operations without an account id.
var ErrEmptyAccountID = errors.New("account id is required")

// Normalize maps empty, blank and sentinel sessions to the empty string.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == NoSession {
		return ""
	}
	return s
}

// Key returns the canonical storage key of an account's session.
func Key(accountID string) string {
	return KeyPrefix + accountID
}

// Backend is a durable string key-value store.
type Backend interface {
	Load(ctx context.Context, key string) (string, bool, error)
	Save(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Store maps account ids to session strings. Writes are serialized per
// account id; reads wait only for an in-flight write of the same account.
type Store struct {
	backend Backend
	locks   keyedLocks
	logger  zerolog.Logger
}

// NewStore creates a session store over backend
func NewStore(backend Backend, logger zerolog.Logger) *Store {
	return &Store{
		backend: backend,
		locks:   keyedLocks{entries: make(map[string]*lockEntry)},
		logger:  logger.With().Str("component", "session_store").Logger(),
	}
}

// Get returns the stored session of an account. ok is false when no usable
// session exists.
func (s *Store) Get(ctx context.Context, accountID string) (string, bool, error) {
	if accountID == "" {
		return "", false, ErrEmptyAccountID
	}

	unlock := s.locks.rlock(accountID)
	defer unlock()

	raw, found, err := s.backend.Load(ctx, Key(accountID))
	if err != nil {
		return "", false, fmt.Errorf("failed to load session: %w", err)
	}
	if !found {
		return "", false, nil
	}

	value := Normalize(raw)
	return value, value != "", nil
}

// Put stores a session. Empty or sentinel sessions are ignored so that a
// valid session is never overwritten with emptiness.
func (s *Store) Put(ctx context.Context, accountID, value string) error {
	if accountID == "" {
		return ErrEmptyAccountID
	}

	value = Normalize(value)
	if value == "" {
		s.logger.Debug().Str("account_id", accountID).Msg("ignoring empty session write")
		return nil
	}

	unlock := s.locks.lock(accountID)
	defer unlock()

	if err := s.backend.Save(ctx, Key(accountID), value); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Debug().Str("account_id", accountID).Msg("session stored")
	return nil
}

// Clear removes an account's session. Clearing a missing session is not an error.
func (s *Store) Clear(ctx context.Context, accountID string) error {
	if accountID == "" {
		return ErrEmptyAccountID
	}

	unlock := s.locks.lock(accountID)
	defer unlock()

	if err := s.backend.Delete(ctx, Key(accountID)); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	s.logger.Info().Str("account_id", accountID).Msg("session cleared")
	return nil
}

// Exists reports whether a usable session is stored for the account.
func (s *Store) Exists(ctx context.Context, accountID string) (bool, error) {
	_, ok, err := s.Get(ctx, accountID)
	return ok, err
}

type lockEntry struct {
	mu   sync.RWMutex
	refs int
}

// keyedLocks hands out one RWMutex per key and forgets it once unused.
type keyedLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

func (k *keyedLocks) acquire(key string) *lockEntry {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.entries[key]
	if !ok {
		e = &lockEntry{}
		k.entries[key] = e
	}
	e.refs++
	return e
}

func (k *keyedLocks) release(key string, e *lockEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

func (k *keyedLocks) lock(key string) func() {
	e := k.acquire(key)
	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.release(key, e)
	}
}

func (k *keyedLocks) rlock(key string) func() {
	e := k.acquire(key)
	e.mu.RLock()
	return func() {
		e.mu.RUnlock()
		k.release(key, e)
	}
}
