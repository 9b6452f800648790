package ecg

import (
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"time"
)

func drain(t *testing.T, src Source) []Sample {
	t.Helper()
	var samples []Sample
	for {
		s, err := src.Next()
		if errors.Is(err, io.EOF) {
			return samples
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		samples = append(samples, s)
	}
}

func TestCSVSourceReadsNamedColumns(t *testing.T) {
	data := "Time_s,ECG\n0.000,0.1\n0.004,0.5\n0.008,-0.2\n"
	src, err := NewCSVSource(strings.NewReader(data), "Time_s", "ECG", 1000)
	if err != nil {
		t.Fatalf("NewCSVSource: %v", err)
	}

	samples := drain(t, src)
	if len(samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(samples))
	}
	wantAt := []time.Duration{0, 4 * time.Millisecond, 8 * time.Millisecond}
	wantV := []float64{0.1, 0.5, -0.2}
	for i, s := range samples {
		if s.At != wantAt[i] {
			t.Errorf("sample %d at %v, want %v", i, s.At, wantAt[i])
		}
		if math.Abs(s.Value-wantV[i]) > 1e-12 {
			t.Errorf("sample %d value %v, want %v", i, s.Value, wantV[i])
		}
	}
}

func TestCSVSourceRebasesToZero(t *testing.T) {
	// Recordings that start mid-session still replay from t=0.
	data := "Time_s,ECG\n12.500,0.1\n12.504,0.2\n"
	src, err := NewCSVSource(strings.NewReader(data), "Time_s", "ECG", 1000)
	if err != nil {
		t.Fatalf("NewCSVSource: %v", err)
	}

	samples := drain(t, src)
	if samples[0].At != 0 {
		t.Errorf("first sample at %v, want 0", samples[0].At)
	}
	if samples[1].At != 4*time.Millisecond {
		t.Errorf("second sample at %v, want 4ms", samples[1].At)
	}
}

func TestCSVSourceTimeColumnFallback(t *testing.T) {
	// No time column: timestamps come from the row index over the
	// configured sample rate.
	data := "ECG\n0.1\n0.2\n0.3\n"
	src, err := NewCSVSource(strings.NewReader(data), "Time_s", "ECG", 250)
	if err != nil {
		t.Fatalf("NewCSVSource: %v", err)
	}

	samples := drain(t, src)
	if len(samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(samples))
	}
	for i, s := range samples {
		want := time.Duration(float64(i) / 250 * float64(time.Second))
		if s.At != want {
			t.Errorf("sample %d at %v, want %v", i, s.At, want)
		}
	}
}

func TestCSVSourceAmplitudeColumnFallback(t *testing.T) {
	// No column named ECG: the first column is the amplitude.
	data := "signal,extra\n0.7,9\n0.8,9\n"
	src, err := NewCSVSource(strings.NewReader(data), "Time_s", "ECG", 100)
	if err != nil {
		t.Fatalf("NewCSVSource: %v", err)
	}

	samples := drain(t, src)
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(samples))
	}
	if samples[0].Value != 0.7 || samples[1].Value != 0.8 {
		t.Errorf("values = %v, %v; want 0.7, 0.8", samples[0].Value, samples[1].Value)
	}
}

func TestCSVSourceSkipsMalformedRows(t *testing.T) {
	data := "Time_s,ECG\n0.000,0.1\nnot,a number\n0.008,oops\n0.012,0.4\n"
	src, err := NewCSVSource(strings.NewReader(data), "Time_s", "ECG", 1000)
	if err != nil {
		t.Fatalf("NewCSVSource: %v", err)
	}

	samples := drain(t, src)
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2 (bad rows skipped): %+v", len(samples), samples)
	}
	if samples[1].Value != 0.4 {
		t.Errorf("second value = %v, want 0.4", samples[1].Value)
	}
}

func TestCSVSourceEmptyHeaderFails(t *testing.T) {
	if _, err := NewCSVSource(strings.NewReader(""), "Time_s", "ECG", 1000); err == nil {
		t.Fatal("expected an error for an empty file")
	}
}
