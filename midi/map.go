package midi

import (
	"math"
	"time"

	"ecg-midi/ecg"
)

// Policy selects what a rate change turns into.
type Policy string

const (
	PolicyPlay     Policy = "play"     // quantized notes
	PolicyModulate Policy = "modulate" // control-change glides
)

// Trigger selects what fires a note under the play policy.
type Trigger string

const (
	TriggerChange Trigger = "change" // committed BPM changes
	TriggerBeat   Trigger = "beat"   // every detected beat
)

// MapperOptions carries the mapping parameters. Values are assumed
// validated; Channel is the 0-based wire channel.
type MapperOptions struct {
	Policy  Policy
	Trigger Trigger
	Channel uint8

	BasePitch      uint8
	PitchMin       uint8
	PitchMax       uint8
	BPMPerSemitone float64
	VelocityMin    uint8
	VelocityMax    uint8
	NoteDuration   time.Duration
	NoteGlide      float64 // fraction of the pitch distance per step

	Controller     uint8
	CCMinStep      uint8
	CCGlide        float64 // fraction of the value distance per step
	CCStepInterval time.Duration

	BPMMin float64 // plausible band, normalizes velocity and CC curves
	BPMMax float64
}

// Mapper turns rate changes (or beats) into MIDI events. It holds only
// the current sounding note, the last controller value, and the
// reference BPM pitch offsets are measured from. Event timestamps are
// kept nondecreasing.
type Mapper struct {
	o MapperOptions

	refBPM float64
	refSet bool

	lastNote int
	noteSet  bool

	sounding uint8
	offAt    time.Duration
	haveOff  bool

	lastCC int

	clock time.Duration
}

func NewMapper(o MapperOptions) *Mapper {
	return &Mapper{o: o}
}

// MapChange maps a committed rate change. Under the play policy this
// fires only when the trigger is "change"; under modulate it always
// emits a control-change glide.
func (m *Mapper) MapChange(c ecg.Change) []Event {
	if m.o.Policy == PolicyModulate {
		return m.modulate(c.To, c.At)
	}
	if m.o.Trigger != TriggerChange {
		return nil
	}
	return m.play(c.To, c.At)
}

// MapBeat maps one detected beat when the play policy triggers per
// beat. bpm is the latest smoothed estimate, 0 when none exists yet;
// beats before the first estimate sound at the base pitch.
func (m *Mapper) MapBeat(b ecg.Beat, bpm float64) []Event {
	if m.o.Policy != PolicyPlay || m.o.Trigger != TriggerBeat {
		return nil
	}
	return m.play(bpm, b.At)
}

// Due releases the pending note_off once its deadline has passed. Call
// it with every sample timestamp so note lengths do not depend on when
// the next beat happens to arrive.
func (m *Mapper) Due(now time.Duration) []Event {
	if !m.haveOff || m.offAt > now {
		return nil
	}
	m.haveOff = false
	return []Event{{At: m.stamp(m.offAt), Type: NoteOff, Channel: m.o.Channel, Note: m.sounding}}
}

// Flush releases whatever is still sounding. Call on shutdown.
func (m *Mapper) Flush() []Event {
	if !m.haveOff {
		return nil
	}
	m.haveOff = false
	return []Event{{At: m.stamp(m.offAt), Type: NoteOff, Channel: m.o.Channel, Note: m.sounding}}
}

// play emits note_off for the previous note (when still sounding),
// then note_on at a pitch glided toward the BPM target. The first
// known rate becomes the reference the pitch offset is measured from.
func (m *Mapper) play(bpm float64, at time.Duration) []Event {
	target := int(m.o.BasePitch)
	velocity := m.o.VelocityMin
	if bpm > 0 {
		bpm = m.clampBPM(bpm)
		if !m.refSet {
			m.refSet = true
			m.refBPM = bpm
		}
		target += int(math.Round((bpm - m.refBPM) / m.o.BPMPerSemitone))
		velocity = m.velocity(bpm)
	}
	if target < int(m.o.PitchMin) {
		target = int(m.o.PitchMin)
	}
	if target > int(m.o.PitchMax) {
		target = int(m.o.PitchMax)
	}

	note := target
	if m.noteSet {
		distance := target - m.lastNote
		step := int(math.Round(float64(distance) * m.o.NoteGlide))
		if step == 0 && distance != 0 {
			if distance > 0 {
				step = 1
			} else {
				step = -1
			}
		}
		note = m.lastNote + step
	}
	m.lastNote = note
	m.noteSet = true

	var events []Event
	if m.haveOff {
		// Cut the previous note short.
		m.haveOff = false
		events = append(events, Event{At: m.stamp(at), Type: NoteOff, Channel: m.o.Channel, Note: m.sounding})
	}
	events = append(events, Event{
		At:       m.stamp(at),
		Type:     NoteOn,
		Channel:  m.o.Channel,
		Note:     uint8(note),
		Velocity: velocity,
	})
	m.sounding = uint8(note)
	m.offAt = at + m.o.NoteDuration
	m.haveOff = true
	return events
}

// modulate emits a run of control-change values stepping from the last
// sent value toward the BPM target. Steps shrink with the remaining
// distance; values closer than the minimum step are suppressed.
func (m *Mapper) modulate(bpm float64, at time.Duration) []Event {
	norm := m.norm(bpm)
	target := int(math.Round(norm * 127))

	var events []Event
	cur := m.lastCC
	i := 0
	for cur != target {
		step := int(math.Abs(float64(target-cur)) * m.o.CCGlide)
		if step < 1 {
			step = 1
		}
		if cur < target {
			cur += step
			if cur > target {
				cur = target
			}
		} else {
			cur -= step
			if cur < target {
				cur = target
			}
		}
		if abs(cur-m.lastCC) < int(m.o.CCMinStep) {
			continue
		}
		events = append(events, Event{
			At:       m.stamp(at + time.Duration(i)*m.o.CCStepInterval),
			Type:     CC,
			Channel:  m.o.Channel,
			Note:     m.o.Controller,
			Velocity: uint8(cur),
		})
		m.lastCC = cur
		i++
	}
	return events
}

func (m *Mapper) velocity(bpm float64) uint8 {
	norm := m.norm(bpm)
	v := float64(m.o.VelocityMin) + float64(m.o.VelocityMax-m.o.VelocityMin)*math.Sqrt(norm)
	return uint8(v)
}

func (m *Mapper) norm(bpm float64) float64 {
	return (m.clampBPM(bpm) - m.o.BPMMin) / (m.o.BPMMax - m.o.BPMMin)
}

func (m *Mapper) clampBPM(bpm float64) float64 {
	if bpm < m.o.BPMMin {
		return m.o.BPMMin
	}
	if bpm > m.o.BPMMax {
		return m.o.BPMMax
	}
	return bpm
}

// stamp keeps emitted timestamps nondecreasing even when a glide run
// overlaps the next trigger.
func (m *Mapper) stamp(at time.Duration) time.Duration {
	if at < m.clock {
		at = m.clock
	}
	m.clock = at
	return at
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
