package typing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoles(t *testing.T) {
	tests := []struct {
		name    string
		roles   []string
		wantErr error
	}{
		{name: "empty list", roles: nil, wantErr: ErrNoRoles},
		{name: "empty role", roles: []string{"Web Developer", ""}, wantErr: ErrEmptyRole},
		{name: "single", roles: []string{"AB"}},
		{name: "several", roles: []string{"Full-Stack Developer", "Web Developer"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRoles(tt.roles...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.roles), r.Len())
		})
	}
}

func TestMustRolesPanicsOnEmpty(t *testing.T) {
	assert.Panics(t, func() { MustRoles() })
}

func TestNextSingleRoleScenario(t *testing.T) {
	a := New(MustRoles("AB"), Delays{})
	s := State{}

	s, d := a.Next(s)
	assert.Equal(t, State{Role: 0, Visible: 1}, s)
	assert.Equal(t, 100*time.Millisecond, d)
	assert.Equal(t, "A", a.Text(s))

	s, d = a.Next(s)
	assert.Equal(t, State{Role: 0, Visible: 2}, s)
	assert.Equal(t, 100*time.Millisecond, d)
	assert.Equal(t, "AB", a.Text(s))

	s, d = a.Next(s)
	assert.Equal(t, State{Role: 0, Visible: 2, Deleting: true}, s)
	assert.Equal(t, 1100*time.Millisecond, d)

	s, d = a.Next(s)
	assert.Equal(t, 40*time.Millisecond, d)
	s, d = a.Next(s)
	assert.Equal(t, 40*time.Millisecond, d)
	assert.Equal(t, State{Role: 0, Visible: 0, Deleting: true}, s)
	assert.Equal(t, "", a.Text(s))

	s, d = a.Next(s)
	assert.Equal(t, 200*time.Millisecond, d)
	assert.Equal(t, State{}, s)
}

func TestNextAdvancesToSecondRole(t *testing.T) {
	a := New(MustRoles("A", "BB"), Delays{})
	s := State{}

	// type "A", hold, delete, hold empty
	for i := 0; i < 4; i++ {
		s, _ = a.Next(s)
	}
	assert.Equal(t, State{Role: 1}, s)
	assert.Equal(t, Typing, a.Roles().Phase(s))

	s, _ = a.Next(s)
	assert.Equal(t, "B", a.Text(s))
	s, _ = a.Next(s)
	assert.Equal(t, "BB", a.Text(s))
}

func TestNextVisitsRolesInOrder(t *testing.T) {
	roles := []string{"Full-Stack Developer", "Web Developer", "Photographer"}
	a := New(MustRoles(roles...), Delays{})
	s := State{}

	for cycle := 1; cycle <= 7; cycle++ {
		start := s.Role
		full := len([]rune(roles[start]))
		// 2*full character steps plus the two holds
		for i := 0; i < 2*full+2; i++ {
			s, _ = a.Next(s)
		}
		assert.Equal(t, cycle%len(roles), s.Role, "cycle %d", cycle)
	}
}

func TestNextInvariantAndMonotonicity(t *testing.T) {
	a := New(MustRoles("héllo", "go", "x"), Delays{})
	s := State{}

	for i := 0; i < 500; i++ {
		full := len([]rune(a.Roles().Role(s.Role)))
		require.GreaterOrEqual(t, s.Visible, 0)
		require.LessOrEqual(t, s.Visible, full)

		phase := a.Roles().Phase(s)
		next, d := a.Next(s)
		require.Positive(t, d)

		switch phase {
		case Typing:
			assert.Equal(t, s.Visible+1, next.Visible)
		case Deleting:
			assert.Equal(t, s.Visible-1, next.Visible)
		case HoldFull:
			assert.True(t, next.Deleting)
			assert.Equal(t, s.Visible, next.Visible)
		case HoldEmpty:
			assert.False(t, next.Deleting)
			assert.Equal(t, (s.Role+1)%3, next.Role)
		}
		s = next
	}
}

func TestTextIsRuneAware(t *testing.T) {
	a := New(MustRoles("héllo"), Delays{})
	assert.Equal(t, "hé", a.Text(State{Visible: 2}))
}

func TestFrame(t *testing.T) {
	a := New(MustRoles("AB"), Delays{})
	f := a.Frame(State{Visible: 2, Deleting: true})
	assert.Equal(t, Frame{Role: 0, Text: "AB", Deleting: true, Phase: "deleting"}, f)
}

func TestDelaysFallBackToDefaults(t *testing.T) {
	a := New(MustRoles("A"), Delays{Hold: time.Second})
	_, d := a.Next(State{})
	assert.Equal(t, DefaultDelays.Type, d)
	_, d = a.Next(State{Visible: 1})
	assert.Equal(t, time.Second, d)
}

func TestRunEmitsUntilCancelled(t *testing.T) {
	a := New(MustRoles("AB"), Delays{
		Type:   time.Millisecond,
		Hold:   time.Millisecond,
		Delete: time.Millisecond,
		Pause:  time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	var (
		mu     sync.Mutex
		frames []Frame
	)
	done := make(chan error, 1)
	go func() {
		done <- a.Run(ctx, func(f Frame) {
			mu.Lock()
			frames = append(frames, f)
			n := len(frames)
			mu.Unlock()
			if n == 8 {
				cancel()
			}
		})
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, frames, 8)
	texts := make([]string, 0, len(frames))
	for _, f := range frames {
		texts = append(texts, f.Text)
	}
	assert.Equal(t, []string{"", "A", "AB", "AB", "A", "", "", "A"}, texts)
	assert.True(t, frames[3].Deleting)
	assert.False(t, frames[6].Deleting)
}

func TestRunReturnsImmediatelyWhenCancelled(t *testing.T) {
	a := New(MustRoles("AB"), Delays{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := a.Run(ctx, func(Frame) { calls++ })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
