package bridge

import (
	"errors"
	"io"

	"go.uber.org/zap"

	"ecg-midi/config"
	"ecg-midi/ecg"
	"ecg-midi/logging"
	"ecg-midi/midi"
)

// Result summarizes one pipeline run. Events is populated only by
// recorded runs, which render the full list before delivery.
type Result struct {
	Samples      int
	Beats        int
	Changes      int
	Outliers     int
	QualityDrops int
	Events       []midi.Event
}

// Pipeline wires detector, estimator, tracker and mapper into one
// sample-at-a-time pass. Each stage owns its own state, so independent
// pipelines never interfere.
type Pipeline struct {
	det    *ecg.Detector
	est    *ecg.Estimator
	trk    *ecg.Tracker
	mapper *midi.Mapper
	log    *zap.Logger

	onChange func(ecg.Change)
	lastBPM  float64

	samples      int
	beats        int
	changes      int
	outliers     int
	qualityDrops int
}

// New builds a pipeline from a validated config.
func New(cfg *config.Config, log *zap.Logger) *Pipeline {
	return &Pipeline{
		det: ecg.NewDetector(ecg.DetectorConfig{
			Refractory:     cfg.Refractory(),
			ThresholdK:     cfg.ThresholdFactor,
			Window:         cfg.AnalysisWindow(),
			EnvelopeWindow: cfg.EnvelopeWindow(),
			MinRange:       cfg.MinAmplitudeRange,
			SampleRate:     cfg.SampleRateHz,
		}),
		est: ecg.NewEstimator(cfg.SmoothingWindowSize, cfg.PlausibleBPMMin, cfg.PlausibleBPMMax),
		trk: ecg.NewTracker(cfg.BPMThreshold),
		mapper: midi.NewMapper(midi.MapperOptions{
			Policy:         midi.Policy(cfg.MappingPolicy),
			Trigger:        midi.Trigger(cfg.PlayTrigger),
			Channel:        uint8(cfg.MIDIChannel - 1),
			BasePitch:      uint8(cfg.BasePitch),
			PitchMin:       uint8(cfg.PitchMin),
			PitchMax:       uint8(cfg.PitchMax),
			BPMPerSemitone: cfg.BPMPerSemitone,
			VelocityMin:    uint8(cfg.VelocityMin),
			VelocityMax:    uint8(cfg.VelocityMax),
			NoteDuration:   cfg.NoteDuration(),
			NoteGlide:      cfg.NoteGlide,
			Controller:     uint8(cfg.CCController),
			CCMinStep:      uint8(cfg.CCMinStep),
			CCGlide:        cfg.CCGlide,
			CCStepInterval: cfg.CCStepInterval(),
			BPMMin:         cfg.PlausibleBPMMin,
			BPMMax:         cfg.PlausibleBPMMax,
		}),
		log: logging.Or(log),
	}
}

// SetOnChange registers a hook called for every committed rate change,
// on top of whatever the mapper emits.
func (p *Pipeline) SetOnChange(fn func(ecg.Change)) {
	p.onChange = fn
}

// Step feeds one sample through every stage and returns the MIDI
// events it produced, in timestamp order. Signal-quality drops and
// outlier rates are logged and counted here; they never stop the run.
func (p *Pipeline) Step(s ecg.Sample) []midi.Event {
	p.samples++
	events := p.mapper.Due(s.At)

	beat, ok, err := p.det.Process(s)
	if err != nil {
		var q *ecg.SignalQualityError
		if errors.As(err, &q) {
			p.qualityDrops++
			p.log.Warn("signal quality low, detection paused",
				zap.Duration("at", q.At),
				zap.Float64("range", q.Range),
				zap.Float64("min", q.Min))
		}
	}
	if !ok {
		return events
	}

	p.beats++
	p.log.Debug("beat",
		zap.Duration("at", beat.At),
		zap.Float64("amplitude", beat.Amplitude),
		zap.Float64("threshold", p.det.Threshold()))

	est, ok, err := p.est.Push(beat)
	if err != nil {
		var o *ecg.OutlierBPMError
		if errors.As(err, &o) {
			p.outliers++
			p.log.Warn("implausible rate discarded",
				zap.Duration("at", o.At),
				zap.Float64("bpm", o.BPM))
		}
	}
	if ok {
		p.lastBPM = est.BPM
		if change, fired := p.trk.Update(est); fired {
			p.changes++
			p.log.Info("rate change committed",
				zap.String("direction", change.Direction.String()),
				zap.Float64("from", change.From),
				zap.Float64("to", change.To),
				zap.Duration("at", change.At))
			if p.onChange != nil {
				p.onChange(change)
			}
			events = append(events, p.mapper.MapChange(change)...)
		}
	}
	events = append(events, p.mapper.MapBeat(beat, p.lastBPM)...)
	return events
}

// Flush releases anything the mapper still holds open.
func (p *Pipeline) Flush() []midi.Event {
	return p.mapper.Flush()
}

// Result snapshots the counters so far.
func (p *Pipeline) Result() Result {
	return Result{
		Samples:      p.samples,
		Beats:        p.beats,
		Changes:      p.changes,
		Outliers:     p.outliers,
		QualityDrops: p.qualityDrops,
	}
}

// Run drains a recorded source in one synchronous pass and renders the
// complete event list. The output is a pure function of the samples
// and the config: the same input replays to the same events.
func (p *Pipeline) Run(src ecg.Source) (*Result, error) {
	var events []midi.Event
	for {
		s, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, ecg.ErrSourceClosed) {
				break
			}
			return nil, err
		}
		events = append(events, p.Step(s)...)
	}
	events = append(events, p.Flush()...)

	r := p.Result()
	r.Events = events
	return &r, nil
}
