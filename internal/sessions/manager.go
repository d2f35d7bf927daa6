// Package sessions keeps one application controller per profile.
package sessions

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/terra-clan/certificate-studio/internal/app"
	"github.com/terra-clan/certificate-studio/internal/storage"
)

// DefaultIdleTTL is how long an untouched controller is kept in memory
const DefaultIdleTTL = 30 * time.Minute

var ErrEmptyProfile = errors.New("profile id is required")

// Session is the in-memory state of one profile
type Session struct {
	ProfileID  string
	Controller *app.Controller
	View       *app.View
	CreatedAt  time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

// LastSeen returns the time of the last access
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Touch records an access at t
func (s *Session) Touch(t time.Time) {
	s.mu.Lock()
	s.lastSeen = t
	s.mu.Unlock()
}

// Config configures a Manager
type Config struct {
	IdleTTL    time.Duration
	AppOptions []app.Option
	Logger     *slog.Logger
}

// Manager creates controllers lazily and scopes their storage per profile
type Manager struct {
	backend  storage.Backend
	data     app.DataSource
	exporter app.Exporter
	cfg      Config
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager
func NewManager(backend storage.Backend, data app.DataSource, exporter app.Exporter, cfg Config) *Manager {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		backend:  backend,
		data:     data,
		exporter: exporter,
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session of profileID, creating it on first use. A
// session whose controller is not ready is initialized again; the init
// error is returned with the session so callers can render its message.
func (m *Manager) Get(ctx context.Context, profileID string) (*Session, error) {
	if profileID == "" {
		return nil, ErrEmptyProfile
	}

	s := m.lookup(profileID)
	if s == nil {
		s = m.create(profileID)
	}

	if !s.Controller.Ready() {
		if err := s.Controller.Init(ctx); err != nil {
			return s, err
		}
	}
	return s, nil
}

// lookup touches the session under the map lock so EvictIfIdle cannot
// drop it between the two
func (m *Manager) lookup(profileID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.sessions[profileID]
	if s != nil {
		s.Touch(m.now())
	}
	return s
}

func (m *Manager) create(profileID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[profileID]; ok {
		s.Touch(m.now())
		return s
	}

	view := app.NewView()
	logger := m.cfg.Logger.With("profile", profileID)
	opts := append([]app.Option{app.WithLogger(logger)}, m.cfg.AppOptions...)

	now := m.now()
	s := &Session{
		ProfileID:  profileID,
		Controller: app.NewController(m.data, m.backend.For(profileID), view, m.exporter, opts...),
		View:       view,
		CreatedAt:  now,
		lastSeen:   now,
	}
	m.sessions[profileID] = s

	logger.Debug("session created", "sessions", len(m.sessions))
	return s
}

// Expired returns sessions idle for longer than the TTL at now
func (m *Manager) Expired(now time.Time) []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Session
	for _, s := range m.sessions {
		if now.Sub(s.LastSeen()) > m.cfg.IdleTTL {
			out = append(out, s)
		}
	}
	return out
}

// Evict drops the in-memory session; durable storage is kept
func (m *Manager) Evict(profileID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[profileID]; !ok {
		return false
	}
	delete(m.sessions, profileID)
	return true
}

// EvictIfIdle drops the session only if it is still idle at now
func (m *Manager) EvictIfIdle(profileID string, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[profileID]
	if !ok || now.Sub(s.LastSeen()) <= m.cfg.IdleTTL {
		return false
	}
	delete(m.sessions, profileID)
	return true
}

// Reset forgets everything about a profile, including durable storage
func (m *Manager) Reset(ctx context.Context, profileID string) error {
	if profileID == "" {
		return ErrEmptyProfile
	}
	m.Evict(profileID)
	return m.backend.Clear(ctx, profileID)
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Range calls fn for each live session until it returns false
func (m *Manager) Range(fn func(*Session) bool) {
	m.mu.RLock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	m.mu.RUnlock()

	for _, s := range list {
		if !fn(s) {
			return
		}
	}
}

// RefreshAll re-runs the cascade of every live session after a data reload
func (m *Manager) RefreshAll(ctx context.Context) {
	m.Range(func(s *Session) bool {
		if err := s.Controller.Refresh(ctx); err != nil {
			m.cfg.Logger.Warn("failed to refresh session", "profile", s.ProfileID, "error", err)
		}
		return true
	})
}
