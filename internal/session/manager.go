package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Amila1P/portfolio/internal/toggle"
	"github.com/google/uuid"
)

const (
	defaultTTL           = 30 * time.Minute
	defaultSweepInterval = time.Minute
)

// Options configures the sessions a Manager creates.
type Options struct {
	// Sections are the page regions observed for reveal.
	Sections []string
	// Threshold is the visible ratio that reveals a section.
	Threshold float64
	// Observe selects report-driven observation. When false every section
	// starts revealed.
	Observe bool
	// Toggles returns the page's toggle names and captions. It is called for
	// every new session so edited captions reach later page views.
	Toggles func() map[string]toggle.Labels

	TTL           time.Duration
	SweepInterval time.Duration

	// OnReveal is called once per session and section when the section is
	// first revealed.
	OnReveal func(sessionID, section string)

	Logger *slog.Logger
}

// Manager creates, looks up and expires sessions.
type Manager struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns an empty manager.
func NewManager(opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaultSweepInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session.
func (m *Manager) Create() *Session {
	id := uuid.NewString()

	var onReveal func(string)
	if m.opts.OnReveal != nil {
		onReveal = func(section string) { m.opts.OnReveal(id, section) }
	}
	s := newSession(id, m.now(), m.opts, onReveal)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s
}

// Get returns a live session and refreshes its idle timer. Expired sessions
// are closed and reported missing.
func (m *Manager) Get(id string) (*Session, bool) {
	now := m.now()

	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok && s.idleSince(now) > m.opts.TTL {
		delete(m.sessions, id)
		m.mu.Unlock()
		s.close()
		return nil, false
	}
	m.mu.Unlock()

	if !ok {
		return nil, false
	}
	s.touch(now)
	return s, true
}

// Close releases a session. Unknown ids are ignored.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.close()
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes every session idle for longer than the TTL and returns how
// many were closed.
func (m *Manager) Sweep(now time.Time) int {
	var expired []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		if s.idleSince(now) > m.opts.TTL {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.close()
	}
	return len(expired)
}

// Run sweeps periodically until ctx is done, then closes every session.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case <-ticker.C:
			if n := m.Sweep(m.now()); n > 0 {
				m.logger.Debug("Expired sessions", slog.Int("count", n))
			}
		}
	}
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.close()
	}
	m.logger.Debug("Closed sessions", slog.Int("count", len(all)))
}
