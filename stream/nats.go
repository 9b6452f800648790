package stream

import (
	"time"

	"github.com/nats-io/nats.go"
)

// Connect dials NATS with settled options: short dial timeout,
// unlimited reconnects with a small backoff.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(
		url,
		nats.Name("ecg-midi"),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
}
