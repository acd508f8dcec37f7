// Package session tracks signed-in users and their active report across
// requests. Sessions are server-side state keyed by an opaque cookie token;
// nothing user-identifying leaves the process.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/store"
)

var ErrNotFound = errors.New("session not found or expired")

// Session is one signed-in browser.
type Session struct {
	Token    string
	User     store.User
	ReportID string // active report, set on first use
	Expires  time.Time
}

type Manager struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session
	now      func() time.Time
}

func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{
		ttl:      ttl,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create opens a session for the user and returns its token.
func (m *Manager) Create(user store.User) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &Session{
		Token:   uuid.NewString(),
		User:    user,
		Expires: m.now().Add(m.ttl),
	}
	m.sessions[s.Token] = s
	m.evictExpired()
	return s
}

// Get returns a copy of the live session for a token.
func (m *Manager) Get(token string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok || m.now().After(s.Expires) {
		delete(m.sessions, token)
		return Session{}, ErrNotFound
	}
	return *s, nil
}

// BindReport records the session's active report. The first binding wins;
// later calls return the already-bound id so concurrent tabs share one
// report.
func (m *Manager) BindReport(token, reportID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok || m.now().After(s.Expires) {
		delete(m.sessions, token)
		return "", ErrNotFound
	}
	if s.ReportID != "" {
		return s.ReportID, nil
	}
	s.ReportID = reportID
	return reportID, nil
}

// Destroy drops a session. Unknown tokens are a no-op.
func (m *Manager) Destroy(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

// evictExpired drops dead sessions. Called with the lock held, piggybacking
// on Create so there is no background sweeper.
func (m *Manager) evictExpired() {
	now := m.now()
	for token, s := range m.sessions {
		if now.After(s.Expires) {
			delete(m.sessions, token)
		}
	}
}
