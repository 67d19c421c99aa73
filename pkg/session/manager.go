package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"maestro/pkg/config"
	"maestro/pkg/interview"
	"maestro/pkg/logx"
	"maestro/pkg/proto"
	"maestro/pkg/question"
)

var (
	// ErrNotFound means the session id is unknown or already expired.
	ErrNotFound = errors.New("session not found")

	// ErrCapacityExceeded means the registry is at its cap and no finished
	// or expired session could be reclaimed. Active sessions are never
	// evicted.
	ErrCapacityExceeded = errors.New("session capacity exceeded")
)

// Manager owns the session registry. A single mutex guards every registry
// operation; per-session state has its own lock.
//
// Cleanup is lazy: every Create and Get sweeps expired sessions first, so
// staleness is bounded by the gap between calls and no background timer is
// needed.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	cfg       config.Config
	bank      *question.Bank
	clock     func() time.Time
	logger    *logx.Logger
	onExpired func(n int)
}

// NewManager creates a manager over the given question bank.
func NewManager(cfg config.Config, bank *question.Bank) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		bank:     bank,
		clock:    time.Now,
		logger:   logx.NewLogger("session"),
	}
}

// OnExpired registers a callback invoked with the number of sessions each
// sweep removed by TTL. The callback runs under the registry lock and must
// not call back into the manager.
func (m *Manager) OnExpired(fn func(n int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpired = fn
}

// Create registers a new session. At capacity it sweeps first; if the
// registry is still full afterwards, creation fails with
// ErrCapacityExceeded.
func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	m.sweepLocked(now)

	if len(m.sessions) >= m.cfg.MaxSessions {
		m.logger.Warn("rejecting session create: %d active sessions at cap %d",
			len(m.sessions), m.cfg.MaxSessions)
		return nil, ErrCapacityExceeded
	}

	s := &Session{
		id:           uuid.New().String(),
		status:       proto.SessionActive,
		engine:       interview.NewEngine(m.cfg, m.bank),
		createdAt:    now,
		lastActivity: now,
	}
	m.sessions[s.id] = s
	m.logger.Info("created session %s (%d/%d)", s.id, len(m.sessions), m.cfg.MaxSessions)
	return s, nil
}

// Get returns the session by id, touching it so a sliding TTL extends.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	m.sweepLocked(now)

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(now)
	return s, nil
}

// Touch extends the session's activity timestamp without returning it.
func (m *Manager) Touch(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.touch(m.clock())
	return nil
}

// ExpireSweep removes sessions past TTL and returns how many were removed.
func (m *Manager) ExpireSweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(m.clock())
}

// Remove drops a session from the registry regardless of status.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len returns the number of registered sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// sweepLocked removes expired and finished sessions. Caller holds m.mu.
func (m *Manager) sweepLocked(now time.Time) int {
	removed, expired := 0, 0
	for id, s := range m.sessions {
		if s.Status().IsFinished() {
			delete(m.sessions, id)
			removed++
			continue
		}
		if s.expired(now, m.cfg.SessionTTL, m.cfg.SessionSlidingTTL) {
			s.SetStatus(proto.SessionExpired)
			if err := s.Engine().Abandon(); err != nil {
				m.logger.Debug("abandon on expiry for %s: %v", id, err)
			}
			delete(m.sessions, id)
			removed++
			expired++
		}
	}
	if expired > 0 && m.onExpired != nil {
		m.onExpired(expired)
	}
	if removed > 0 {
		m.logger.Info("swept %d expired session(s), %d remain", removed, len(m.sessions))
	}
	return removed
}
