package ecg

import (
	"errors"
	"fmt"
	"time"
)

// ErrSourceClosed is returned by live sources after Close, or after
// their context has been cancelled.
var ErrSourceClosed = errors.New("ecg: source closed")

// SignalQualityError reports a stretch of signal too flat to set a
// detection threshold on. The detector pauses until the signal
// recovers; the error is advisory, not fatal.
type SignalQualityError struct {
	At    time.Duration
	Range float64 // amplitude range seen over the lookback window
	Min   float64 // configured minimum range
}

func (e *SignalQualityError) Error() string {
	return fmt.Sprintf("signal quality low at %v: amplitude range %.3f below %.3f", e.At, e.Range, e.Min)
}

// OutlierBPMError reports an instantaneous rate outside the plausible
// band. The value is dropped from smoothing; processing continues.
type OutlierBPMError struct {
	At  time.Duration
	BPM float64
	Min float64
	Max float64
}

func (e *OutlierBPMError) Error() string {
	return fmt.Sprintf("implausible rate %.1f bpm at %v (accepting %.0f..%.0f)", e.BPM, e.At, e.Min, e.Max)
}
