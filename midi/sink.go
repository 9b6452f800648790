package midi

import (
	"fmt"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go.uber.org/zap"

	"ecg-midi/logging"
)

// Sink accepts the pipeline's terminal events.
type Sink interface {
	Send(Event) error
	Close() error
}

// SinkUnavailableError means the sink kept rejecting events. Live runs
// treat it as fatal; recorded runs only count skips.
type SinkUnavailableError struct {
	Consecutive int
	Err         error
}

func (e *SinkUnavailableError) Error() string {
	return fmt.Sprintf("midi sink unavailable after %d consecutive failures: %v", e.Consecutive, e.Err)
}

func (e *SinkUnavailableError) Unwrap() error { return e.Err }

// PortSink sends events to a hardware or virtual MIDI output port.
type PortSink struct {
	port drivers.Out
	send func(gomidi.Message) error
}

// NewPortSink finds the port matching fragment and opens it.
func NewPortSink(fragment string) (*PortSink, error) {
	port, err := FindOutPort(fragment)
	if err != nil {
		return nil, err
	}
	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	return &PortSink{port: port, send: send}, nil
}

// Port returns the matched port name.
func (s *PortSink) Port() string {
	return s.port.String()
}

func (s *PortSink) Send(e Event) error {
	switch e.Type {
	case NoteOn:
		return s.send(gomidi.NoteOn(e.Channel, e.Note, e.Velocity))
	case NoteOff:
		return s.send(gomidi.NoteOff(e.Channel, e.Note))
	case CC:
		return s.send(gomidi.ControlChange(e.Channel, e.Note, e.Velocity))
	}
	return fmt.Errorf("unknown event type 0x%02X", e.Type)
}

// Close releases the driver and with it the port handle.
func (s *PortSink) Close() error {
	gomidi.CloseDriver()
	return nil
}

// FuncSink adapts a function into a Sink. Tests and dry runs use it.
type FuncSink func(Event) error

func (f FuncSink) Send(e Event) error { return f(e) }

func (FuncSink) Close() error { return nil }

// SendTestNote plays middle C and releases it after hold. Run it once
// after opening a port to confirm the virtual routing is audible
// before any signal streams.
func SendTestNote(s Sink, channel uint8, hold time.Duration) error {
	if err := s.Send(Event{Type: NoteOn, Channel: channel, Note: 60, Velocity: 100}); err != nil {
		return err
	}
	time.Sleep(hold)
	return s.Send(Event{Type: NoteOff, Channel: channel, Note: 60})
}

// SendAll delivers events in order, counting failures instead of
// stopping. Recorded runs report the skips and carry on.
func SendAll(events []Event, s Sink, log *zap.Logger) (skipped int) {
	log = logging.Or(log)
	for _, e := range events {
		if err := s.Send(e); err != nil {
			skipped++
			log.Warn("event skipped", zap.String("event", e.String()), zap.Error(err))
		}
	}
	return skipped
}

var (
	_ Sink = (*PortSink)(nil)
	_ Sink = (FuncSink)(nil)
)
