package stream

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"ecg-midi/ecg"
	"ecg-midi/logging"
)

// Source adapts a NATS subject carrying float32 little-endian sample
// batches into an ecg.Source. The subscription callback pushes into a
// bounded ring and never blocks; on overflow the oldest samples are
// dropped and counted. Next is the pull side, for a single consumer.
type Source struct {
	sub  *nats.Subscription
	log  *zap.Logger
	rate float64

	mu       sync.Mutex
	buf      []ecg.Sample
	head     int
	count    int
	closed   bool
	samples  uint64
	overruns uint64

	notify chan struct{}
	epoch  time.Time
}

// Subscribe attaches to subject. queueSize bounds the ring;
// sampleRate spaces timestamps within one batch, since the wire
// carries no per-sample times.
func Subscribe(nc *nats.Conn, subject string, queueSize int, sampleRate float64, log *zap.Logger) (*Source, error) {
	s := newSource(queueSize, sampleRate, log)
	sub, err := nc.Subscribe(subject, s.onBatch)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	s.sub = sub
	return s, nil
}

func newSource(queueSize int, sampleRate float64, log *zap.Logger) *Source {
	return &Source{
		log:    logging.Or(log),
		rate:   sampleRate,
		buf:    make([]ecg.Sample, queueSize),
		notify: make(chan struct{}, 1),
		epoch:  time.Now(),
	}
}

// onBatch decodes one message worth of samples. Batch samples share an
// arrival time, so earlier ones are back-dated by the sample interval.
func (s *Source) onBatch(msg *nats.Msg) {
	n := len(msg.Data) / 4
	if n == 0 {
		return
	}
	arrived := time.Since(s.epoch)
	interval := time.Duration(float64(time.Second) / s.rate)

	s.mu.Lock()
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(msg.Data[i*4:])
		v := float64(math.Float32frombits(bits))
		at := arrived - time.Duration(n-1-i)*interval
		s.push(ecg.Sample{At: at, Value: v})
	}
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// push drops the oldest sample when the ring is full. Callers hold mu.
func (s *Source) push(smp ecg.Sample) {
	if s.closed {
		return
	}
	if s.count == len(s.buf) {
		s.head = (s.head + 1) % len(s.buf)
		s.count--
		s.overruns++
		if logging.Every(250, "stream.overrun") {
			s.log.Warn("sample queue overflow, dropping oldest",
				zap.Uint64("overruns", s.overruns))
		}
	}
	s.buf[(s.head+s.count)%len(s.buf)] = smp
	s.count++
	s.samples++
}

// Next blocks until a sample is queued or the source is closed. Close
// wins over queued samples: a stopped bridge must not keep emitting
// from the backlog.
func (s *Source) Next() (ecg.Sample, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return ecg.Sample{}, ecg.ErrSourceClosed
		}
		if s.count > 0 {
			smp := s.buf[s.head]
			s.head = (s.head + 1) % len(s.buf)
			s.count--
			s.mu.Unlock()
			return smp, nil
		}
		s.mu.Unlock()
		<-s.notify
	}
}

// Close unsubscribes and wakes a pending Next.
func (s *Source) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	var err error
	if s.sub != nil {
		err = s.sub.Unsubscribe()
	}
	select {
	case s.notify <- struct{}{}:
	default:
	}
	return err
}

// Stats snapshots the source counters.
func (s *Source) Stats() ecg.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ecg.Stats{Samples: s.samples, Overruns: s.overruns}
}

var (
	_ ecg.Source = (*Source)(nil)
	_ io.Closer  = (*Source)(nil)
)
