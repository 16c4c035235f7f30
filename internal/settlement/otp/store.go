package otp

import (
	"context"
	"sync"
	"time"

	"medrefBack/internal/models"
)

// Store keeps signing sessions keyed by an opaque session reference. The
// protocol never depends on a process-wide map: swapping the durable backend
// must not touch the protocol logic.
type Store interface {
	Save(ctx context.Context, key string, session models.OTPSession, ttl time.Duration) error
	Get(ctx context.Context, key string) (models.OTPSession, error)
	// Delete removes the session and reports whether it existed. A false
	// result means another verification already consumed it.
	Delete(ctx context.Context, key string) (bool, error)
	// DeleteExpired drops sessions past their expiry. Backends with native
	// TTL may report zero work.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// MemoryStore is the in-process backend used in tests and single-node setups.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]models.OTPSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]models.OTPSession)}
}

func (s *MemoryStore) Save(_ context.Context, key string, session models.OTPSession, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[key] = session
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (models.OTPSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[key]
	if !ok {
		return models.OTPSession{}, models.ErrOTPNotFound
	}
	return session, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[key]
	delete(s.sessions, key)
	return ok, nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, key)
			removed++
		}
	}
	return removed, nil
}
