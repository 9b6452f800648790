package stream

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"ecg-midi/ecg"
)

// RateMsg is the JSON shape other consumers subscribe to.
type RateMsg struct {
	Subject string  `json:"subject"`
	Ts      int64   `json:"ts"`
	BPM     float64 `json:"bpm"`
	Delta   float64 `json:"delta"`
}

// Publisher re-publishes committed rate changes so listeners besides
// the MIDI sink can follow the heart rate.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

func NewPublisher(nc *nats.Conn, subject string) *Publisher {
	return &Publisher{nc: nc, subject: subject}
}

// Publish sends one change. Marshal cannot fail on RateMsg; publish
// errors surface to the caller to log.
func (p *Publisher) Publish(c ecg.Change) error {
	msg := RateMsg{
		Subject: p.subject,
		Ts:      time.Now().UnixMilli(),
		BPM:     c.To,
		Delta:   c.Delta,
	}
	b, _ := json.Marshal(msg)
	return p.nc.Publish(p.subject, b)
}
