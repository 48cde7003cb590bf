package reveal

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu         sync.Mutex
	fn         func(float64)
	threshold  float64
	observed   []string
	unobserved []string
	observeErr error
}

func (o *recordingObserver) Observe(region string, threshold float64, fn func(float64)) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.observeErr != nil {
		return o.observeErr
	}
	o.observed = append(o.observed, region)
	o.threshold = threshold
	o.fn = fn
	return nil
}

func (o *recordingObserver) Unobserve(region string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.unobserved = append(o.unobserved, region)
}

func (o *recordingObserver) emit(ratio float64) {
	o.mu.Lock()
	fn := o.fn
	o.mu.Unlock()
	fn(ratio)
}

func TestTriggerLatchesAtThreshold(t *testing.T) {
	obs := &recordingObserver{}
	trig := NewTrigger(obs, "about", 0.3)
	require.True(t, trig.Start())
	assert.Equal(t, []string{"about"}, obs.observed)
	assert.Equal(t, 0.3, obs.threshold)

	obs.emit(0.1)
	assert.False(t, trig.Visible())
	assert.True(t, trig.Observing())

	obs.emit(0.5)
	assert.True(t, trig.Visible())
	assert.False(t, trig.Observing())
	assert.Equal(t, []string{"about"}, obs.unobserved)

	obs.emit(0.0)
	assert.True(t, trig.Visible(), "latch must not reset")
	assert.Len(t, obs.unobserved, 1)
}

func TestTriggerExactThresholdCounts(t *testing.T) {
	obs := &recordingObserver{}
	trig := NewTrigger(obs, "about", 0.3)
	trig.Start()
	obs.emit(0.3)
	assert.True(t, trig.Visible())
}

func TestTriggerLatchIsIdempotent(t *testing.T) {
	obs := &recordingObserver{}
	trig := NewTrigger(obs, "projects", DefaultThreshold)
	trig.Start()
	obs.emit(1)

	for _, r := range []float64{0, 0.9, 0.1, 0, 1, 0} {
		obs.emit(r)
		assert.True(t, trig.Visible())
	}
	assert.Len(t, obs.unobserved, 1)
}

func TestTriggerDefaultThreshold(t *testing.T) {
	for _, th := range []float64{0, -1, 1.5} {
		assert.Equal(t, DefaultThreshold, NewTrigger(nil, "x", th).Threshold())
	}
	assert.Equal(t, 1.0, NewTrigger(nil, "x", 1).Threshold())
}

func TestTriggerFallsBackToVisible(t *testing.T) {
	t.Run("nil observer", func(t *testing.T) {
		trig := NewTrigger(nil, "about", 0.3)
		assert.False(t, trig.Start())
		assert.True(t, trig.Visible())
	})

	t.Run("unavailable observer", func(t *testing.T) {
		trig := NewTrigger(Unavailable{}, "about", 0.3)
		assert.False(t, trig.Start())
		assert.True(t, trig.Visible())
	})

	t.Run("observe error", func(t *testing.T) {
		obs := &recordingObserver{observeErr: errors.New("boom")}
		trig := NewTrigger(obs, "about", 0.3)
		assert.False(t, trig.Start())
		assert.True(t, trig.Visible())
	})
}

func TestTriggerCloseBeforeEvent(t *testing.T) {
	obs := &recordingObserver{}
	trig := NewTrigger(obs, "contact", 0.3)
	trig.Start()

	trig.Close()
	assert.Equal(t, []string{"contact"}, obs.unobserved)

	obs.emit(1)
	assert.False(t, trig.Visible(), "events after close are ignored")

	trig.Close()
	assert.Len(t, obs.unobserved, 1)
}

func TestTriggerCloseAfterLatchDoesNotUnobserveTwice(t *testing.T) {
	obs := &recordingObserver{}
	trig := NewTrigger(obs, "about", 0.3)
	trig.Start()
	obs.emit(0.8)
	trig.Close()
	assert.Len(t, obs.unobserved, 1)
	assert.True(t, trig.Visible())
}

func TestTriggerStartIsIdempotent(t *testing.T) {
	obs := &recordingObserver{}
	trig := NewTrigger(obs, "about", 0.3)
	assert.True(t, trig.Start())
	assert.True(t, trig.Start())
	assert.Len(t, obs.observed, 1)
}

func TestTriggerWithFeed(t *testing.T) {
	feed := NewFeed()
	trig := NewTrigger(feed, "articles", 0.3)
	require.True(t, trig.Start())
	assert.True(t, feed.Observed("articles"))

	assert.True(t, feed.Report("articles", 0.2))
	assert.False(t, trig.Visible())

	assert.True(t, feed.Report("articles", 0.5))
	assert.True(t, trig.Visible())
	assert.False(t, feed.Observed("articles"), "latching stops observation")

	assert.False(t, feed.Report("articles", 0.0))
	assert.True(t, trig.Visible())
}

func TestFeedClampsRatios(t *testing.T) {
	feed := NewFeed()
	var got []float64
	require.NoError(t, feed.Observe("a", 0.3, func(r float64) { got = append(got, r) }))

	feed.Report("a", -2)
	feed.Report("a", 7)
	feed.Report("a", 0.4)
	assert.Equal(t, []float64{0, 1, 0.4}, got)
}

func TestFeedDropsNonFiniteRatios(t *testing.T) {
	feed := NewFeed()
	called := false
	require.NoError(t, feed.Observe("a", 0.3, func(float64) { called = true }))

	for _, r := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		assert.False(t, feed.Report("a", r), "ratio %v", r)
	}
	assert.False(t, called)
	assert.True(t, feed.Observed("a"))
}

func TestTriggerIgnoresNonFiniteRatios(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  bool
	}{
		{"nan", math.NaN(), false},
		{"negative infinity", math.Inf(-1), false},
		// +Inf is above any threshold; feeds drop it before it gets here.
		{"positive infinity", math.Inf(1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &recordingObserver{}
			trig := NewTrigger(obs, "about", 0.3)
			require.True(t, trig.Start())

			obs.emit(tt.ratio)
			assert.Equal(t, tt.want, trig.Visible())
			assert.Equal(t, !tt.want, trig.Observing())
		})
	}
}

func TestTriggerWithFeedIgnoresNonFinite(t *testing.T) {
	feed := NewFeed()
	trig := NewTrigger(feed, "about", 0.3)
	require.True(t, trig.Start())

	for _, r := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		feed.Report("about", r)
	}
	assert.False(t, trig.Visible())
	assert.True(t, feed.Observed("about"))
}

// closingObserver closes its trigger while the registration is in flight.
type closingObserver struct {
	*Feed
	trig *Trigger
}

func (o *closingObserver) Observe(region string, threshold float64, fn func(float64)) error {
	o.trig.Close()
	return o.Feed.Observe(region, threshold, fn)
}

func TestTriggerCloseDuringStartReleasesRegistration(t *testing.T) {
	obs := &closingObserver{Feed: NewFeed()}
	trig := NewTrigger(obs, "about", 0.3)
	obs.trig = trig

	assert.False(t, trig.Start())
	assert.False(t, obs.Observed("about"))
	assert.False(t, trig.Observing())
	assert.False(t, trig.Visible())
}

func TestFeedDisconnect(t *testing.T) {
	feed := NewFeed()
	trig := NewTrigger(feed, "a", 0.3)
	trig.Start()

	feed.Disconnect()
	assert.False(t, feed.Report("a", 1))
	assert.False(t, trig.Visible())
	assert.ErrorIs(t, feed.Observe("b", 0.3, func(float64) {}), ErrUnavailable)
}
