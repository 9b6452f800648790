package ecg

import (
	"math"
	"time"
)

// Direction of a committed rate change.
type Direction int

const (
	Increase Direction = 1
	Decrease Direction = -1
)

func (d Direction) String() string {
	if d == Decrease {
		return "decrease"
	}
	return "increase"
}

// Change records a committed BPM move of at least the threshold.
type Change struct {
	Direction Direction
	Delta     float64 // signed To - From
	From      float64
	To        float64
	At        time.Duration
}

// Tracker compares smoothed estimates against the last committed BPM
// and fires once the delta reaches the threshold. Commit and fire are
// one step, so estimates hovering inside the band emit nothing.
type Tracker struct {
	threshold float64
	committed float64
	set       bool
}

func NewTracker(threshold float64) *Tracker {
	return &Tracker{threshold: threshold}
}

// Update feeds one estimate. The first estimate establishes the
// baseline without firing.
func (t *Tracker) Update(e Estimate) (Change, bool) {
	if !t.set {
		t.set = true
		t.committed = e.BPM
		return Change{}, false
	}
	delta := e.BPM - t.committed
	if math.Abs(delta) < t.threshold {
		return Change{}, false
	}
	c := Change{
		Direction: Increase,
		Delta:     delta,
		From:      t.committed,
		To:        e.BPM,
		At:        e.At,
	}
	if delta < 0 {
		c.Direction = Decrease
	}
	t.committed = e.BPM
	return c, true
}

// Committed returns the current baseline, if one is set.
func (t *Tracker) Committed() (float64, bool) {
	return t.committed, t.set
}
