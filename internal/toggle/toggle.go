// Package toggle holds the expand/collapse flag behind "show more" buttons.
package toggle

import "sync"

// Labels are the button captions for each state.
type Labels struct {
	Collapsed string `yaml:"collapsed"`
	Expanded  string `yaml:"expanded"`
}

// DefaultLabels are used when a toggle is built without captions.
var DefaultLabels = Labels{Collapsed: "Show More", Expanded: "Show Less"}

// Toggle is a boolean flipped on each activation. It is safe for concurrent
// use.
type Toggle struct {
	labels Labels

	mu       sync.Mutex
	expanded bool
}

// New returns a collapsed toggle. Empty captions fall back to DefaultLabels.
func New(labels Labels) *Toggle {
	if labels.Collapsed == "" {
		labels.Collapsed = DefaultLabels.Collapsed
	}
	if labels.Expanded == "" {
		labels.Expanded = DefaultLabels.Expanded
	}
	return &Toggle{labels: labels}
}

// Flip inverts the flag and returns the new value.
func (t *Toggle) Flip() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expanded = !t.expanded
	return t.expanded
}

// Expanded reports the current value.
func (t *Toggle) Expanded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expanded
}

// Label returns the caption for the current value.
func (t *Toggle) Label() string {
	if t.Expanded() {
		return t.labels.Expanded
	}
	return t.labels.Collapsed
}
