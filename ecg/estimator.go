package ecg

import "time"

// Estimate is the heart rate derived from the latest beat. BPM is the
// smoothed value, Instant the raw 60/RR for the last interval, and
// Basis the number of intervals in the smoothing window.
type Estimate struct {
	BPM     float64
	Instant float64
	At      time.Duration
	Basis   int
}

// Estimator turns beat intervals into BPM estimates. Each interval
// yields instantaneous BPM = 60/dt; values inside the plausible band
// enter a fixed-size window whose mean is the smoothed estimate.
type Estimator struct {
	min, max float64

	window []float64
	head   int
	count  int
	sum    float64

	last Beat
	have bool
}

// NewEstimator builds an estimator smoothing over windowSize intervals
// and accepting rates in [minBPM, maxBPM].
func NewEstimator(windowSize int, minBPM, maxBPM float64) *Estimator {
	return &Estimator{
		min:    minBPM,
		max:    maxBPM,
		window: make([]float64, windowSize),
	}
}

// Push consumes one beat. The first beat yields no estimate. An
// implausible interval yields no estimate and a *OutlierBPMError; the
// smoothing window is left untouched.
func (e *Estimator) Push(b Beat) (Estimate, bool, error) {
	if !e.have {
		e.have = true
		e.last = b
		return Estimate{}, false, nil
	}
	dt := b.At - e.last.At
	e.last = b

	var instant float64
	if dt > 0 {
		instant = 60 / dt.Seconds()
	}
	if instant < e.min || instant > e.max {
		return Estimate{}, false, &OutlierBPMError{At: b.At, BPM: instant, Min: e.min, Max: e.max}
	}

	if e.count == len(e.window) {
		e.sum -= e.window[e.head]
		e.head = (e.head + 1) % len(e.window)
		e.count--
	}
	e.window[(e.head+e.count)%len(e.window)] = instant
	e.count++
	e.sum += instant

	return Estimate{
		BPM:     e.sum / float64(e.count),
		Instant: instant,
		At:      b.At,
		Basis:   e.count,
	}, true, nil
}
