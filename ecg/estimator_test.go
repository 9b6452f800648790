package ecg

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestEstimatorFirstBeatHasNoEstimate(t *testing.T) {
	e := NewEstimator(3, 30, 220)

	est, ok, err := e.Push(Beat{At: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Errorf("expected no estimate from a single beat, got %+v", est)
	}
}

func TestEstimatorInstantaneousRate(t *testing.T) {
	e := NewEstimator(3, 30, 220)

	e.Push(Beat{At: 0})
	est, ok, err := e.Push(Beat{At: 600 * time.Millisecond})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected an estimate after the second beat")
	}
	if math.Abs(est.Instant-100) > 1e-9 {
		t.Errorf("instant = %v, want 100", est.Instant)
	}
	if math.Abs(est.BPM-100) > 1e-9 {
		t.Errorf("smoothed = %v, want 100", est.BPM)
	}
	if est.Basis != 1 {
		t.Errorf("basis = %d, want 1", est.Basis)
	}

	est, ok, err = e.Push(Beat{At: 1200 * time.Millisecond})
	if err != nil || !ok {
		t.Fatalf("expected an estimate, ok=%v err=%v", ok, err)
	}
	if math.Abs(est.BPM-100) > 1e-9 {
		t.Errorf("smoothed = %v, want 100", est.BPM)
	}
	if est.Basis != 2 {
		t.Errorf("basis = %d, want 2", est.Basis)
	}
}

func TestEstimatorSmoothingWindowRolls(t *testing.T) {
	e := NewEstimator(2, 30, 220)

	e.Push(Beat{At: 0})
	e.Push(Beat{At: 1 * time.Second}) // 60
	est, _, _ := e.Push(Beat{At: 1500 * time.Millisecond}) // 120
	if math.Abs(est.BPM-90) > 1e-9 {
		t.Errorf("mean of [60 120] = %v, want 90", est.BPM)
	}

	est, _, _ = e.Push(Beat{At: 2 * time.Second}) // 120, evicts 60
	if math.Abs(est.BPM-120) > 1e-9 {
		t.Errorf("mean of [120 120] = %v, want 120", est.BPM)
	}
	if est.Basis != 2 {
		t.Errorf("basis = %d, want 2", est.Basis)
	}
}

func TestEstimatorRejectsImplausibleRate(t *testing.T) {
	e := NewEstimator(3, 30, 220)

	e.Push(Beat{At: 0})
	e.Push(Beat{At: 600 * time.Millisecond}) // 100

	// 100ms interval reads as 600 BPM, far outside the band.
	est, ok, err := e.Push(Beat{At: 700 * time.Millisecond})
	if ok {
		t.Errorf("outlier produced an estimate: %+v", est)
	}
	var outlier *OutlierBPMError
	if !errors.As(err, &outlier) {
		t.Fatalf("expected *OutlierBPMError, got %v", err)
	}
	if math.Abs(outlier.BPM-600) > 1e-6 {
		t.Errorf("outlier bpm = %v, want 600", outlier.BPM)
	}

	// The next interval is measured from the rejected beat; the
	// smoothing window is unchanged by the outlier.
	est, ok, err = e.Push(Beat{At: 1300 * time.Millisecond})
	if err != nil || !ok {
		t.Fatalf("expected recovery estimate, ok=%v err=%v", ok, err)
	}
	if math.Abs(est.BPM-100) > 1e-9 {
		t.Errorf("smoothed = %v, want 100", est.BPM)
	}
	if est.Basis != 2 {
		t.Errorf("basis = %d, want 2 (outlier must not enter the window)", est.Basis)
	}
}

func TestEstimatorZeroIntervalIsOutlier(t *testing.T) {
	e := NewEstimator(3, 30, 220)

	e.Push(Beat{At: time.Second})
	_, ok, err := e.Push(Beat{At: time.Second})
	if ok {
		t.Error("duplicate timestamp produced an estimate")
	}
	var outlier *OutlierBPMError
	if !errors.As(err, &outlier) {
		t.Fatalf("expected *OutlierBPMError, got %v", err)
	}
}
