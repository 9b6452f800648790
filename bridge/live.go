package bridge

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"ecg-midi/ecg"
	"ecg-midi/midi"
)

// LiveOptions tunes the live runner.
type LiveOptions struct {
	// FailLimit is the number of consecutive sink failures tolerated
	// before the run aborts. 0 disables the cap.
	FailLimit int
	// CCLimiter paces control-change deliveries so glides stay
	// audible as sweeps. nil sends them back to back.
	CCLimiter *rate.Limiter
}

// RunLive pulls samples until the source ends or ctx is cancelled.
// Samples never queue inside the runner; the source's bounded buffer
// is the only slack, so a stalled sink sheds load there instead of
// blocking acquisition. On a clean stop the pending note is released.
func RunLive(ctx context.Context, p *Pipeline, src ecg.Source, snk midi.Sink, o LiveOptions) error {
	if c, ok := src.(io.Closer); ok {
		go func() {
			<-ctx.Done()
			c.Close()
		}()
	}

	consecutive := 0
	for {
		s, err := src.Next()
		if err != nil {
			if errors.Is(err, ecg.ErrSourceClosed) || errors.Is(err, io.EOF) {
				for _, e := range p.Flush() {
					snk.Send(e) // best effort, the run is over
				}
				return nil
			}
			return err
		}

		for _, e := range p.Step(s) {
			if e.Type == midi.CC && o.CCLimiter != nil {
				if err := o.CCLimiter.Wait(ctx); err != nil {
					continue
				}
			}
			if err := snk.Send(e); err != nil {
				consecutive++
				p.log.Warn("midi send failed",
					zap.String("event", e.String()),
					zap.Int("consecutive", consecutive),
					zap.Error(err))
				if o.FailLimit > 0 && consecutive >= o.FailLimit {
					return &midi.SinkUnavailableError{Consecutive: consecutive, Err: err}
				}
				continue
			}
			consecutive = 0
		}
	}
}
