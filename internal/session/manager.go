// Package session tracks the connections of the preview server.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"sort"
	"sync"
	"time"
)

// Session describes one preview connection
type Session struct {
	ID         string    `json:"id"`
	Remote     string    `json:"remote"`
	CreatedAt  time.Time `json:"created_at"`
	LastAccess time.Time `json:"last_access"`
	Events     int64     `json:"events"`
}

// Manager handles session lifecycle
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
}

// NewManager creates a new session manager. Sessions idle for longer than
// ttl are dropped by Cleanup.
func NewManager(ttl time.Duration) *Manager {
	if ttl == 0 {
		ttl = 30 * time.Minute
	}

	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create registers a new session for a remote address
func (m *Manager) Create(remote string) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	now := m.now()
	sess := &Session{
		ID:         id,
		Remote:     remote,
		CreatedAt:  now,
		LastAccess: now,
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	return sess, nil
}

// Get returns a snapshot of a session
func (m *Manager) Get(id string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Touch records one handled event for a session
func (m *Manager) Touch(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return false
	}
	sess.Events++
	sess.LastAccess = m.now()
	return true
}

// Delete removes a session
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len returns the number of open sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// List returns snapshots of all sessions, oldest first
func (m *Manager) List() []Session {
	m.mu.RLock()
	out := make([]Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, *sess)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Cleanup removes sessions idle for longer than the TTL and returns how many
// were removed
func (m *Manager) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	cutoff := m.now().Add(-m.ttl)
	for id, sess := range m.sessions {
		if sess.LastAccess.Before(cutoff) {
			delete(m.sessions, id)
			count++
		}
	}
	return count
}

// generateSessionID creates a random 128-bit session ID
func generateSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
