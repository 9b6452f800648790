package ecg

import (
	"math"
	"time"
)

// DetectorConfig sizes the detector's rolling windows.
type DetectorConfig struct {
	Refractory     time.Duration // minimum gap between accepted beats
	ThresholdK     float64       // threshold = window mean + k * stddev
	Window         time.Duration // stats window for the adaptive threshold
	EnvelopeWindow time.Duration // lookback for the amplitude envelope
	MinRange       float64       // envelope range below which detection squelches
	SampleRate     float64       // expected samples per second, sizes the ring
}

type phase int

const (
	phaseIdle phase = iota
	phaseRising
	phaseCooldown
)

// Detector finds R-peaks in a sample stream. A candidate opens when a
// sample clears both the adaptive threshold and the midpoint of the
// recent amplitude envelope, tracks the running maximum while the
// signal rises, and is confirmed by the first falling sample. The
// midpoint gate rejects P and T bumps that sit above the noise floor
// but well under the R amplitude. Candidates inside the refractory
// period of the last accepted beat are discarded. Work per sample is
// O(1) amortized.
type Detector struct {
	cfg DetectorConfig

	// stats ring over cfg.Window, evicted by timestamp
	ring  []Sample
	head  int
	count int
	sum   float64
	sumsq float64

	// monotonic wedges holding the max/min of the envelope lookback
	emax []Sample
	emin []Sample

	firstAt   time.Duration
	started   bool
	warmed    bool
	squelched bool

	phase    phase
	peak     Sample
	lastBeat time.Duration
	haveBeat bool
}

// NewDetector builds a detector. The config is assumed validated.
func NewDetector(cfg DetectorConfig) *Detector {
	capacity := int(cfg.Window.Seconds()*cfg.SampleRate) + 8
	if capacity < 16 {
		capacity = 16
	}
	return &Detector{
		cfg:  cfg,
		ring: make([]Sample, capacity),
	}
}

// Process consumes one sample. It returns a beat and true when an
// R-peak is confirmed. A *SignalQualityError is returned once at the
// start of each stretch of signal too flat to threshold; detection
// stays paused until the range recovers.
func (d *Detector) Process(s Sample) (Beat, bool, error) {
	if !d.started {
		d.started = true
		d.firstAt = s.At
	}
	d.pushStats(s)
	d.pushEnvelope(s)

	// No verdict on quality until the lookback has filled once.
	if !d.warmed {
		if s.At-d.firstAt < d.cfg.EnvelopeWindow {
			return Beat{}, false, nil
		}
		d.warmed = true
	}

	if r := d.envelopeRange(); r < d.cfg.MinRange {
		if d.squelched {
			return Beat{}, false, nil
		}
		d.squelched = true
		d.phase = phaseIdle
		return Beat{}, false, &SignalQualityError{At: s.At, Range: r, Min: d.cfg.MinRange}
	}
	d.squelched = false

	switch d.phase {
	case phaseIdle:
		if s.Value > d.Threshold() && s.Value > d.envelopeMid() {
			d.phase = phaseRising
			d.peak = s
		}
	case phaseRising:
		if s.Value >= d.peak.Value {
			if s.Value > d.peak.Value {
				d.peak = s
			}
			break
		}
		// First falling sample confirms the candidate.
		d.phase = phaseCooldown
		if !d.haveBeat || d.peak.At-d.lastBeat >= d.cfg.Refractory {
			d.haveBeat = true
			d.lastBeat = d.peak.At
			return Beat{At: d.peak.At, Amplitude: d.peak.Value}, true, nil
		}
	case phaseCooldown:
		if s.Value < d.Threshold() {
			d.phase = phaseIdle
		}
	}
	return Beat{}, false, nil
}

// Threshold returns the current statistical detection threshold.
func (d *Detector) Threshold() float64 {
	if d.count == 0 {
		return math.Inf(1)
	}
	n := float64(d.count)
	mean := d.sum / n
	variance := d.sumsq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean + d.cfg.ThresholdK*math.Sqrt(variance)
}

func (d *Detector) pushStats(s Sample) {
	cut := s.At - d.cfg.Window
	for d.count > 0 && d.ring[d.head].At <= cut {
		d.evictOldest()
	}
	if d.count == len(d.ring) {
		d.evictOldest()
	}
	d.ring[(d.head+d.count)%len(d.ring)] = s
	d.count++
	d.sum += s.Value
	d.sumsq += s.Value * s.Value
}

func (d *Detector) evictOldest() {
	v := d.ring[d.head].Value
	d.sum -= v
	d.sumsq -= v * v
	d.head = (d.head + 1) % len(d.ring)
	d.count--
}

// pushEnvelope maintains two monotonic wedges so the exact min and max
// of the envelope lookback are available in O(1).
func (d *Detector) pushEnvelope(s Sample) {
	cut := s.At - d.cfg.EnvelopeWindow
	for len(d.emax) > 0 && d.emax[0].At <= cut {
		d.emax = d.emax[1:]
	}
	for len(d.emin) > 0 && d.emin[0].At <= cut {
		d.emin = d.emin[1:]
	}
	for len(d.emax) > 0 && d.emax[len(d.emax)-1].Value <= s.Value {
		d.emax = d.emax[:len(d.emax)-1]
	}
	for len(d.emin) > 0 && d.emin[len(d.emin)-1].Value >= s.Value {
		d.emin = d.emin[:len(d.emin)-1]
	}
	d.emax = append(d.emax, s)
	d.emin = append(d.emin, s)
}

func (d *Detector) envelopeRange() float64 {
	if len(d.emax) == 0 {
		return 0
	}
	return d.emax[0].Value - d.emin[0].Value
}

// envelopeMid is the floating center between the tracked peak level
// and noise floor.
func (d *Detector) envelopeMid() float64 {
	if len(d.emax) == 0 {
		return 0
	}
	return d.emin[0].Value + (d.emax[0].Value-d.emin[0].Value)*0.5
}
