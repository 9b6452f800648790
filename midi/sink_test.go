package midi

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestFuncSinkForwards(t *testing.T) {
	var got []Event
	s := FuncSink(func(e Event) error {
		got = append(got, e)
		return nil
	})

	e := Event{Type: NoteOn, Note: 64, Velocity: 90}
	if err := s.Send(e); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(got) != 1 || got[0] != e {
		t.Errorf("sink saw %v, want [%v]", got, e)
	}
}

func TestSendAllCountsFailuresAndContinues(t *testing.T) {
	events := []Event{
		{Type: NoteOn, Note: 60},
		{Type: NoteOff, Note: 60},
		{Type: CC, Note: 113, Velocity: 5},
	}

	calls := 0
	s := FuncSink(func(e Event) error {
		calls++
		if e.Type == NoteOff {
			return errors.New("port gone")
		}
		return nil
	})

	skipped := SendAll(events, s, nil)
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
	if calls != 3 {
		t.Errorf("sink called %d times, want 3 (failures must not stop delivery)", calls)
	}
}

func TestSinkUnavailableErrorWraps(t *testing.T) {
	cause := errors.New("device unplugged")
	err := &SinkUnavailableError{Consecutive: 8, Err: cause}

	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
	msg := err.Error()
	if !strings.Contains(msg, "8") || !strings.Contains(msg, "device unplugged") {
		t.Errorf("message %q missing count or cause", msg)
	}
}

func TestEventStringNamesKind(t *testing.T) {
	checks := map[string]Event{
		"note_on":        {Type: NoteOn, Channel: 0, Note: 60, Velocity: 100, At: time.Second},
		"note_off":       {Type: NoteOff, Channel: 0, Note: 60},
		"control_change": {Type: CC, Channel: 0, Note: 113, Velocity: 64},
	}
	for want, e := range checks {
		if s := e.String(); !strings.Contains(s, want) {
			t.Errorf("String() = %q, want it to mention %q", s, want)
		}
	}
}
