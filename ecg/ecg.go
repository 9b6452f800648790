package ecg

import "time"

// Sample is one ECG amplitude reading. At is elapsed time since the
// start of the stream, not wall clock, so recorded input replays the
// same way every run.
type Sample struct {
	At    time.Duration
	Value float64
}

// Beat is one detected R-peak.
type Beat struct {
	At        time.Duration
	Amplitude float64
}

// Source delivers samples in timestamp order, one per call.
// Recorded sources return io.EOF when the data ends; live sources
// return ErrSourceClosed once they have been shut down.
type Source interface {
	Next() (Sample, error)
}

// Stats counts what a source has seen. Overruns is the number of
// samples discarded because a bounded queue overflowed.
type Stats struct {
	Samples  uint64
	Overruns uint64
}
