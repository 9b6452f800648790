package ecg

import (
	"io"
	"math"
	"time"
)

// SimOptions configures the synthetic ECG generator.
type SimOptions struct {
	SampleRate float64       // samples per second
	BPM        float64       // starting heart rate
	RampTo     float64       // target rate; 0 disables the ramp
	RampOver   time.Duration // time to reach RampTo
	Noise      float64       // noise amplitude, 0 for a clean trace
	Duration   time.Duration // stream length; 0 runs forever
}

// Simulator produces a deterministic ECG-shaped trace: gaussian
// P-QRS-T bumps per cycle, slow baseline wander, and cheap repeatable
// noise. With a ramp it sweeps the heart rate linearly, which is how
// rate-change fixtures are regenerated.
type Simulator struct {
	o     SimOptions
	n     int
	phase float64
}

func NewSimulator(o SimOptions) *Simulator {
	return &Simulator{o: o}
}

// Next returns the next sample. Finite simulators end with io.EOF.
func (s *Simulator) Next() (Sample, error) {
	t := float64(s.n) / s.o.SampleRate
	at := time.Duration(t * float64(time.Second))
	if s.o.Duration > 0 && at >= s.o.Duration {
		return Sample{}, io.EOF
	}

	bpm := s.o.BPM
	if s.o.RampTo > 0 && s.o.RampOver > 0 {
		f := t / s.o.RampOver.Seconds()
		if f > 1 {
			f = 1
		}
		bpm += (s.o.RampTo - s.o.BPM) * f
	}

	s.phase += (bpm / 60) / s.o.SampleRate
	if s.phase >= 1 {
		s.phase -= 1
	}

	v := 0.05 * math.Sin(2*math.Pi*0.25*t) // respiration-like wander
	v += 0.08 * gauss(s.phase, 0.18, 0.03) // P
	v += -0.12 * gauss(s.phase, 0.30, 0.01)
	v += 1.00 * gauss(s.phase, 0.32, 0.008) // R
	v += -0.25 * gauss(s.phase, 0.35, 0.012)
	v += 0.25 * gauss(s.phase, 0.60, 0.06) // T
	if s.o.Noise > 0 {
		v += s.o.Noise * (2*fract(math.Sin(12345.678*t)*9876.543) - 1)
	}

	s.n++
	return Sample{At: at, Value: v}, nil
}

func gauss(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return math.Exp(-0.5 * z * z)
}

func fract(x float64) float64 { return x - math.Floor(x) }

var _ Source = (*Simulator)(nil)
