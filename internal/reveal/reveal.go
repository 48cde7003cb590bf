// Package reveal latches a "has been seen" flag the first time a page region
// scrolls into view.
//
// The visibility source is abstracted behind Observer. A Trigger only knows
// how to start and stop observation and how to react to a visibility ratio.
package reveal

import (
	"errors"
	"sync"
)

// DefaultThreshold is the fraction of a region that must be inside the
// viewport before it counts as seen.
const DefaultThreshold = 0.3

// ErrUnavailable is returned by observers that cannot watch visibility in the
// current environment.
var ErrUnavailable = errors.New("reveal: visibility observation unavailable")

// Observer notifies fn with the visible ratio of region, in [0,1], until
// Unobserve is called for that region.
type Observer interface {
	Observe(region string, threshold float64, fn func(ratio float64)) error
	Unobserve(region string)
}

// Unavailable is an Observer for environments without visibility events.
type Unavailable struct{}

func (Unavailable) Observe(string, float64, func(float64)) error { return ErrUnavailable }
func (Unavailable) Unobserve(string) {}

// Trigger is a one-shot latch over a single region. Once Visible reports true
// it never reports false again.
type Trigger struct {
	obs       Observer
	region    string
	threshold float64

	mu        sync.Mutex
	triggered bool
	observing bool
	closed    bool
}

// NewTrigger returns an unstarted trigger. A threshold outside (0,1] is
// replaced by DefaultThreshold.
func NewTrigger(obs Observer, region string, threshold float64) *Trigger {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Trigger{obs: obs, region: region, threshold: threshold}
}

// Region returns the observed region handle.
func (t *Trigger) Region() string { return t.region }

// Threshold returns the ratio at which the trigger latches.
func (t *Trigger) Threshold() float64 { return t.threshold }

// Start begins observation. When no observer is available the trigger
// latches immediately so content is never left hidden. It reports whether
// the trigger is observing afterwards.
func (t *Trigger) Start() bool {
	t.mu.Lock()
	if t.closed || t.triggered || t.observing {
		observing := t.observing
		t.mu.Unlock()
		return observing
	}
	if t.obs == nil {
		t.triggered = true
		t.mu.Unlock()
		return false
	}
	t.observing = true
	t.mu.Unlock()

	if err := t.obs.Observe(t.region, t.threshold, t.handle); err != nil {
		t.mu.Lock()
		t.observing = false
		if !t.closed {
			t.triggered = true
		}
		t.mu.Unlock()
		return false
	}

	// Close may have run while Observe was registering; its Unobserve came
	// too early to remove the registration.
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		t.obs.Unobserve(t.region)
		return false
	}
	return true
}

func (t *Trigger) handle(ratio float64) {
	t.mu.Lock()
	// Written so NaN never latches.
	if t.closed || t.triggered || !(ratio >= t.threshold) {
		t.mu.Unlock()
		return
	}
	t.triggered = true
	stop := t.observing
	t.observing = false
	t.mu.Unlock()

	if stop {
		t.obs.Unobserve(t.region)
	}
}

// Visible reports whether the region has been seen.
func (t *Trigger) Visible() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.triggered
}

// Observing reports whether the trigger is still waiting for its region.
func (t *Trigger) Observing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.observing
}

// Close stops observation. Events delivered after Close are ignored.
func (t *Trigger) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	stop := t.observing
	t.observing = false
	t.mu.Unlock()

	if stop {
		t.obs.Unobserve(t.region)
	}
}
