package ecg

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// CSVSource reads a recorded trace: comma-separated, header row, one
// sample per row. Column names are configuration-driven. When the time
// column is missing, timestamps fall back to row index over the
// configured sample rate; when the amplitude column is missing, the
// first column is used.
type CSVSource struct {
	r       *csv.Reader
	c       io.Closer
	timeIdx int // -1 = synthesize from index
	ecgIdx  int
	rate    float64
	index   int
	t0      time.Duration
	t0set   bool
}

// NewCSVSource wraps a reader. The header row is consumed here.
func NewCSVSource(r io.Reader, timeCol, ecgCol string, sampleRate float64) (*CSVSource, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	s := &CSVSource{r: cr, timeIdx: -1, ecgIdx: 0, rate: sampleRate}
	for i, name := range header {
		switch name {
		case timeCol:
			s.timeIdx = i
		case ecgCol:
			s.ecgIdx = i
		}
	}
	return s, nil
}

// OpenCSV opens a recorded trace file.
func OpenCSV(path string, timeCol, ecgCol string, sampleRate float64) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	s, err := NewCSVSource(f, timeCol, ecgCol, sampleRate)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.c = f
	return s, nil
}

// Next returns the next sample. Rows that do not parse are skipped.
// Timestamps are rebased so the first sample is at zero.
func (s *CSVSource) Next() (Sample, error) {
	for {
		rec, err := s.r.Read()
		if err == io.EOF {
			return Sample{}, io.EOF
		}
		if err != nil {
			return Sample{}, fmt.Errorf("read csv row: %w", err)
		}
		if s.ecgIdx >= len(rec) {
			continue
		}
		value, err := strconv.ParseFloat(rec[s.ecgIdx], 64)
		if err != nil {
			continue
		}

		var at time.Duration
		if s.timeIdx >= 0 {
			if s.timeIdx >= len(rec) {
				continue
			}
			sec, err := strconv.ParseFloat(rec[s.timeIdx], 64)
			if err != nil {
				continue
			}
			at = time.Duration(sec * float64(time.Second))
		} else {
			at = time.Duration(float64(s.index) / s.rate * float64(time.Second))
		}
		s.index++

		if !s.t0set {
			s.t0set = true
			s.t0 = at
		}
		return Sample{At: at - s.t0, Value: value}, nil
	}
}

// Close closes the underlying file, if any.
func (s *CSVSource) Close() error {
	if s.c != nil {
		return s.c.Close()
	}
	return nil
}

var _ Source = (*CSVSource)(nil)
