package midi

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ecg-midi/logging"
)

// Replay delivers a rendered event list against the wall clock,
// mapping event timestamps onto time since the call. Sink failures are
// counted and skipped, not fatal. Returns early only on cancellation.
func Replay(ctx context.Context, events []Event, s Sink, log *zap.Logger) (skipped int, err error) {
	log = logging.Or(log)
	start := time.Now()

	for _, e := range events {
		wait := e.At - time.Since(start)
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return skipped, ctx.Err()
			case <-timer.C:
			}
		}
		if err := s.Send(e); err != nil {
			skipped++
			log.Warn("event skipped", zap.String("event", e.String()), zap.Error(err))
		}
	}
	return skipped, nil
}
