// Package typing drives the hero section's typewriter effect.
//
// The effect is an explicit state machine over a fixed list of roles. Next is
// a pure transition function, so the algorithm can be stepped in tests without
// timers; Run drives it with a single timer that is re-armed after every
// transition.
package typing

import (
	"errors"
	"time"
)

var (
	// ErrNoRoles is returned when an animator is configured without roles.
	ErrNoRoles = errors.New("typing: role list is empty")
	// ErrEmptyRole is returned when one of the roles is the empty string.
	ErrEmptyRole = errors.New("typing: role is empty")
)

// Roles is an ordered, non-empty list of display strings. Build it with
// NewRoles so the invariant holds for the lifetime of an Animator.
type Roles struct {
	runes [][]rune
}

// NewRoles validates and copies the role list.
func NewRoles(roles ...string) (Roles, error) {
	if len(roles) == 0 {
		return Roles{}, ErrNoRoles
	}
	r := Roles{runes: make([][]rune, len(roles))}
	for i, role := range roles {
		if role == "" {
			return Roles{}, ErrEmptyRole
		}
		r.runes[i] = []rune(role)
	}
	return r, nil
}

// MustRoles is like NewRoles but panics on invalid input.
func MustRoles(roles ...string) Roles {
	r, err := NewRoles(roles...)
	if err != nil {
		panic(err)
	}
	return r
}

// Len returns the number of roles.
func (r Roles) Len() int { return len(r.runes) }

// Role returns the role at index i, taken modulo the list length.
func (r Roles) Role(i int) string { return string(r.at(i)) }

func (r Roles) at(i int) []rune {
	n := len(r.runes)
	return r.runes[((i%n)+n)%n]
}

// State is the animator's position: which role, how many of its characters
// are visible and whether they are being removed.
type State struct {
	Role     int  `json:"role"`
	Visible  int  `json:"visible"`
	Deleting bool `json:"deleting"`
}

// Phase names the four states of the machine.
type Phase int

const (
	Typing Phase = iota
	HoldFull
	Deleting
	HoldEmpty
)

func (p Phase) String() string {
	switch p {
	case Typing:
		return "typing"
	case HoldFull:
		return "hold-full"
	case Deleting:
		return "deleting"
	case HoldEmpty:
		return "hold-empty"
	default:
		return "unknown"
	}
}

// Phase reports which of the four states s is in.
func (r Roles) Phase(s State) Phase {
	full := len(r.at(s.Role))
	switch {
	case !s.Deleting && s.Visible < full:
		return Typing
	case !s.Deleting:
		return HoldFull
	case s.Visible > 0:
		return Deleting
	default:
		return HoldEmpty
	}
}

// Delays holds how long each phase is shown before the next transition.
type Delays struct {
	Type   time.Duration `koanf:"type"`
	Hold   time.Duration `koanf:"hold"`
	Delete time.Duration `koanf:"delete"`
	Pause  time.Duration `koanf:"pause"`
}

// DefaultDelays types at 100ms per character, holds the full word for 1.1s,
// deletes at 40ms per character and pauses 200ms before the next word.
var DefaultDelays = Delays{
	Type:   100 * time.Millisecond,
	Hold:   1100 * time.Millisecond,
	Delete: 40 * time.Millisecond,
	Pause:  200 * time.Millisecond,
}

// For returns the delay associated with phase p.
func (d Delays) For(p Phase) time.Duration {
	switch p {
	case Typing:
		return d.Type
	case HoldFull:
		return d.Hold
	case Deleting:
		return d.Delete
	default:
		return d.Pause
	}
}

// Frame is what the rendering layer consumes on every tick.
type Frame struct {
	Role     int    `json:"role"`
	Text     string `json:"text"`
	Deleting bool   `json:"deleting"`
	Phase    string `json:"phase"`
}

// Animator owns an immutable role list and the per-phase delays.
type Animator struct {
	roles  Roles
	delays Delays
}

// New returns an animator over roles. Zero delays fall back to DefaultDelays.
func New(roles Roles, delays Delays) *Animator {
	if roles.Len() == 0 {
		panic(ErrNoRoles)
	}
	if delays.Type <= 0 {
		delays.Type = DefaultDelays.Type
	}
	if delays.Hold <= 0 {
		delays.Hold = DefaultDelays.Hold
	}
	if delays.Delete <= 0 {
		delays.Delete = DefaultDelays.Delete
	}
	if delays.Pause <= 0 {
		delays.Pause = DefaultDelays.Pause
	}
	return &Animator{roles: roles, delays: delays}
}

// Roles returns the animator's role list.
func (a *Animator) Roles() Roles { return a.roles }

// Next returns the state that follows s and how long s stays on screen
// before it is replaced.
func (a *Animator) Next(s State) (State, time.Duration) {
	phase := a.roles.Phase(s)
	delay := a.delays.For(phase)

	switch phase {
	case Typing:
		s.Visible++
	case HoldFull:
		s.Deleting = true
	case Deleting:
		s.Visible--
	case HoldEmpty:
		s.Deleting = false
		s.Role = (s.Role + 1) % a.roles.Len()
	}
	return s, delay
}

// Text returns the visible prefix of the current role.
func (a *Animator) Text(s State) string {
	role := a.roles.at(s.Role)
	n := s.Visible
	if n < 0 {
		n = 0
	}
	if n > len(role) {
		n = len(role)
	}
	return string(role[:n])
}

// Frame renders s for the presentation layer.
func (a *Animator) Frame(s State) Frame {
	return Frame{
		Role:     s.Role % a.roles.Len(),
		Text:     a.Text(s),
		Deleting: s.Deleting,
		Phase:    a.roles.Phase(s).String(),
	}
}
