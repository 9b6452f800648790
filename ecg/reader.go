package ecg

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ReaderSource adapts a line-delimited text feed, one amplitude per
// line, the format serial bridges print. Lines that are blank or do
// not parse are skipped. Samples are stamped with arrival time, so
// this is a live source.
type ReaderSource struct {
	sc    *bufio.Scanner
	c     io.Closer
	epoch time.Time

	mu     sync.Mutex
	closed bool
}

// NewReaderSource wraps r. If r is an io.Closer (a pipe, a socket),
// Close tears it down to unblock a pending Next.
func NewReaderSource(r io.Reader) *ReaderSource {
	s := &ReaderSource{
		sc:    bufio.NewScanner(r),
		epoch: time.Now(),
	}
	if c, ok := r.(io.Closer); ok {
		s.c = c
	}
	return s
}

// Next blocks until a line parses as a float. The end of the feed is
// io.EOF; after Close it is ErrSourceClosed.
func (s *ReaderSource) Next() (Sample, error) {
	for s.sc.Scan() {
		line := strings.TrimSpace(s.sc.Text())
		if line == "" {
			continue
		}
		value, err := strconv.ParseFloat(line, 64)
		if err != nil {
			continue
		}
		return Sample{At: time.Since(s.epoch), Value: value}, nil
	}
	if s.isClosed() {
		return Sample{}, ErrSourceClosed
	}
	if err := s.sc.Err(); err != nil {
		return Sample{}, fmt.Errorf("read sample feed: %w", err)
	}
	return Sample{}, io.EOF
}

// Close stops the feed.
func (s *ReaderSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	if s.c != nil {
		return s.c.Close()
	}
	return nil
}

func (s *ReaderSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

var (
	_ Source    = (*ReaderSource)(nil)
	_ io.Closer = (*ReaderSource)(nil)
)
