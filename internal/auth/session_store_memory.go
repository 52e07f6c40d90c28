package auth

import (
	"context"
	"sync"
)

// NewInMemorySessionStore returns a SessionStore backed by an in-memory map.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string]memorySession)}
}

type memorySession struct {
	identity Identity
	token    string
}

// InMemorySessionStore implements SessionStore for tests and local development.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]memorySession
}

// Register makes a user known to the store with no active session.
func (s *InMemorySessionStore) Register(identity Identity) {
	s.mu.Lock()
	s.sessions[identity.UserID] = memorySession{identity: identity}
	s.mu.Unlock()
}

// LoadSession returns the identity and current refresh token of a registered user.
func (s *InMemorySessionStore) LoadSession(_ context.Context, userID string) (Identity, string, error) {
	s.mu.RLock()
	session, ok := s.sessions[userID]
	s.mu.RUnlock()
	if !ok {
		return Identity{}, "", ErrSessionNotFound
	}
	return session.identity, session.token, nil
}

// SaveRefreshToken replaces the user's current refresh token.
func (s *InMemorySessionStore) SaveRefreshToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[userID]
	if !ok {
		return ErrSessionNotFound
	}
	session.token = token
	s.sessions[userID] = session
	return nil
}

// RotateRefreshToken swaps the stored token for next when it still equals current.
func (s *InMemorySessionStore) RotateRefreshToken(_ context.Context, userID, current, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[userID]
	if !ok {
		return false, ErrSessionNotFound
	}
	if current == "" || session.token != current {
		return false, nil
	}
	session.token = next
	s.sessions[userID] = session
	return true, nil
}

// Token reports the stored refresh token for a user. Useful for tests.
func (s *InMemorySessionStore) Token(userID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[userID].token
}
