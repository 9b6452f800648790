package midi

import (
	"fmt"
	"time"
)

// MIDI message types
const (
	NoteOn  uint8 = 0x90
	NoteOff uint8 = 0x80
	CC      uint8 = 0xB0
)

// Event is one MIDI message with its position in the stream. At is
// elapsed time since stream start, matching ecg.Sample timestamps.
// For CC events Note holds the controller number and Velocity the
// controller value.
type Event struct {
	At       time.Duration
	Type     uint8 // NoteOn, NoteOff, CC
	Channel  uint8 // wire channel, 0-15
	Note     uint8
	Velocity uint8
}

func (e Event) String() string {
	switch e.Type {
	case NoteOn:
		return fmt.Sprintf("note_on ch=%d note=%d vel=%d at=%v", e.Channel+1, e.Note, e.Velocity, e.At)
	case NoteOff:
		return fmt.Sprintf("note_off ch=%d note=%d at=%v", e.Channel+1, e.Note, e.At)
	case CC:
		return fmt.Sprintf("control_change ch=%d cc=%d val=%d at=%v", e.Channel+1, e.Note, e.Velocity, e.At)
	}
	return fmt.Sprintf("unknown type=0x%02X at=%v", e.Type, e.At)
}
