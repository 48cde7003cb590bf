// Package session keeps the per-visitor UI state of the portfolio page.
//
// A Session is the server-side counterpart of one rendered page: it owns a
// reveal trigger per section and the page's expand/collapse toggles. Nothing
// is shared between sessions. Closing a session releases its observers.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/Amila1P/portfolio/internal/reveal"
	"github.com/Amila1P/portfolio/internal/toggle"
)

var (
	// ErrUnknownSection is returned for a section the page does not observe.
	ErrUnknownSection = errors.New("session: unknown section")
	// ErrUnknownToggle is returned for a toggle the page does not have.
	ErrUnknownToggle = errors.New("session: unknown toggle")
)

// Session is one page view's UI state.
type Session struct {
	ID      string
	Created time.Time

	feed     *reveal.Feed
	triggers map[string]*reveal.Trigger
	toggles  map[string]*toggle.Toggle
	onReveal func(section string)

	// serialises Report so a latch is announced once
	reportMu sync.Mutex

	mu       sync.Mutex
	lastSeen time.Time
	closed   bool
}

func newSession(id string, now time.Time, opts Options, onReveal func(string)) *Session {
	s := &Session{
		ID:       id,
		Created:  now,
		lastSeen: now,
		feed:     reveal.NewFeed(),
		triggers: make(map[string]*reveal.Trigger, len(opts.Sections)),
		toggles:  make(map[string]*toggle.Toggle),
		onReveal: onReveal,
	}

	var obs reveal.Observer = s.feed
	if !opts.Observe {
		obs = reveal.Unavailable{}
	}
	for _, section := range opts.Sections {
		t := reveal.NewTrigger(obs, section, opts.Threshold)
		t.Start()
		s.triggers[section] = t
	}
	if opts.Toggles != nil {
		for name, labels := range opts.Toggles() {
			s.toggles[name] = toggle.New(labels)
		}
	}
	return s
}

// Report forwards a visibility ratio for section and returns whether the
// section is now revealed.
func (s *Session) Report(section string, ratio float64) (bool, error) {
	t, ok := s.triggers[section]
	if !ok {
		return false, ErrUnknownSection
	}

	s.reportMu.Lock()
	defer s.reportMu.Unlock()

	before := t.Visible()
	s.feed.Report(section, ratio)
	after := t.Visible()
	if !before && after && s.onReveal != nil {
		s.onReveal(section)
	}
	return after, nil
}

// Visible reports whether section has been revealed. Unknown sections are
// reported visible so they are never rendered hidden.
func (s *Session) Visible(section string) bool {
	t, ok := s.triggers[section]
	if !ok {
		return true
	}
	return t.Visible()
}

// Revealed returns the reveal state of every observed section.
func (s *Session) Revealed() map[string]bool {
	out := make(map[string]bool, len(s.triggers))
	for name, t := range s.triggers {
		out[name] = t.Visible()
	}
	return out
}

// Toggle returns the named toggle.
func (s *Session) Toggle(name string) (*toggle.Toggle, error) {
	t, ok := s.toggles[name]
	if !ok {
		return nil, ErrUnknownToggle
	}
	return t, nil
}

// Flip activates the named toggle and returns it.
func (s *Session) Flip(name string) (*toggle.Toggle, error) {
	t, err := s.Toggle(name)
	if err != nil {
		return nil, err
	}
	t.Flip()
	return t, nil
}

// Expanded reports the named toggle's value, false if it does not exist.
func (s *Session) Expanded(name string) bool {
	t, err := s.Toggle(name)
	if err != nil {
		return false
	}
	return t.Expanded()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// close stops every trigger and disconnects the feed. It is safe to call more
// than once.
func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	for _, t := range s.triggers {
		t.Close()
	}
	s.feed.Disconnect()
}

// Closed reports whether the session has been released.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
