package reveal

import (
	"math"
	"sync"
)

// Feed is an Observer whose visibility events are pushed in from outside,
// typically from ratios the browser reports for each section.
type Feed struct {
	mu      sync.Mutex
	watches map[string]func(float64)
	closed  bool
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
	return &Feed{watches: make(map[string]func(float64))}
}

// Observe registers fn for region, replacing any earlier registration.
func (f *Feed) Observe(region string, _ float64, fn func(float64)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrUnavailable
	}
	f.watches[region] = fn
	return nil
}

// Unobserve drops the registration for region.
func (f *Feed) Unobserve(region string) {
	f.mu.Lock()
	delete(f.watches, region)
	f.mu.Unlock()
}

// Observed reports whether region currently has a registration.
func (f *Feed) Observed(region string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.watches[region]
	return ok
}

// Report delivers ratio to the callback registered for region. It returns
// false when nothing observes region or ratio is not a finite number. The
// callback runs without the feed's lock held, so it may call Unobserve.
func (f *Feed) Report(region string, ratio float64) bool {
	switch {
	case math.IsNaN(ratio) || math.IsInf(ratio, 0):
		return false
	case ratio < 0:
		ratio = 0
	case ratio > 1:
		ratio = 1
	}

	f.mu.Lock()
	fn, ok := f.watches[region]
	f.mu.Unlock()
	if !ok {
		return false
	}
	fn(ratio)
	return true
}

// Disconnect drops every registration. Later Observe calls fail with
// ErrUnavailable.
func (f *Feed) Disconnect() {
	f.mu.Lock()
	f.closed = true
	f.watches = make(map[string]func(float64))
	f.mu.Unlock()
}
