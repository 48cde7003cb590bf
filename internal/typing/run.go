package typing

import (
	"context"
	"time"
)

// Run emits the initial frame and then one frame per transition until ctx is
// cancelled. Exactly one timer is outstanding at any time and it is stopped
// before Run returns, so emit is never called after Run has returned.
func (a *Animator) Run(ctx context.Context, emit func(Frame)) error {
	var s State
	emit(a.Frame(s))

	next, delay := a.Next(s)
	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		// A cancellation that raced the timer wins.
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s = next
		emit(a.Frame(s))

		next, delay = a.Next(s)
		timer.Reset(delay)
	}
}
