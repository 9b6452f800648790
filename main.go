package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"ecg-midi/bridge"
	"ecg-midi/config"
	"ecg-midi/ecg"
	"ecg-midi/logging"
	"ecg-midi/midi"
	"ecg-midi/stream"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file (default ~/.config/ecg-midi/config.json)")
		csvPath    = flag.String("csv", "", "recorded ECG CSV file (recorded mode)")
		live       = flag.Bool("live", false, "subscribe to NATS for live samples")
		stdinFeed  = flag.Bool("stdin", false, "read one amplitude per line from stdin (live mode)")
		sim        = flag.Bool("sim", false, "run the synthetic ECG generator (recorded mode)")

		simBPM    = flag.Float64("sim-bpm", 72, "simulator starting heart rate")
		simRampTo = flag.Float64("sim-ramp-to", 0, "simulator target heart rate (0 = steady)")
		simRamp   = flag.Duration("sim-ramp-over", 30*time.Second, "time to reach the ramp target")
		simNoise  = flag.Float64("sim-noise", 0.02, "simulator noise amplitude")
		simLength = flag.Duration("sim-length", time.Minute, "simulator run length")

		natsURL   = flag.String("nats", "", "NATS url (overrides config)")
		subject   = flag.String("subject", "", "sample subject (overrides config)")
		publish   = flag.String("publish", "", "re-publish rate changes on this subject")
		port      = flag.String("port", "", "MIDI output port name fragment (overrides config)")
		channel   = flag.Int("channel", 0, "MIDI channel 1-16 (overrides config)")
		policy    = flag.String("policy", "", "mapping policy: play or modulate (overrides config)")
		trigger   = flag.String("trigger", "", "play trigger: change or beat (overrides config)")
		threshold = flag.Float64("threshold", 0, "BPM change threshold (overrides config)")
		rateHz    = flag.Float64("rate", 0, "sample rate in Hz (overrides config)")

		dry      = flag.Bool("dry", false, "print events instead of opening a MIDI port")
		realtime = flag.Bool("realtime", false, "recorded mode: deliver events against the wall clock")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	log := logging.New(*verbose)
	defer log.Sync()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "nats":
			cfg.NATSURL = *natsURL
		case "subject":
			cfg.Subject = *subject
		case "publish":
			cfg.PublishSubject = *publish
		case "port":
			cfg.MIDIPort = *port
		case "channel":
			cfg.MIDIChannel = *channel
		case "policy":
			cfg.MappingPolicy = *policy
		case "trigger":
			cfg.PlayTrigger = *trigger
		case "threshold":
			cfg.BPMThreshold = *threshold
		case "rate":
			cfg.SampleRateHz = *rateHz
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	modes := 0
	for _, on := range []bool{*csvPath != "", *live, *stdinFeed, *sim} {
		if on {
			modes++
		}
	}
	if modes != 1 {
		fmt.Fprintln(os.Stderr, "pick exactly one of -csv, -live, -stdin, -sim")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p := bridge.New(cfg, log)

	switch {
	case *csvPath != "":
		src, err := ecg.OpenCSV(*csvPath, cfg.TimeColumn, cfg.ECGColumn, cfg.SampleRateHz)
		if err != nil {
			log.Fatal("open recording", zap.Error(err))
		}
		defer src.Close()
		runRecorded(ctx, p, src, cfg, log, *dry, *realtime)

	case *sim:
		src := ecg.NewSimulator(ecg.SimOptions{
			SampleRate: cfg.SampleRateHz,
			BPM:        *simBPM,
			RampTo:     *simRampTo,
			RampOver:   *simRamp,
			Noise:      *simNoise,
			Duration:   *simLength,
		})
		runRecorded(ctx, p, src, cfg, log, *dry, *realtime)

	case *live:
		nc, err := stream.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatal("connect nats", zap.Error(err))
		}
		defer nc.Drain()
		src, err := stream.Subscribe(nc, cfg.Subject, cfg.QueueSize, cfg.SampleRateHz, log)
		if err != nil {
			log.Fatal("subscribe", zap.Error(err))
		}
		if cfg.PublishSubject != "" {
			pub := stream.NewPublisher(nc, cfg.PublishSubject)
			p.SetOnChange(func(c ecg.Change) {
				if err := pub.Publish(c); err != nil {
					log.Warn("publish rate change", zap.Error(err))
				}
			})
		}
		runLive(ctx, p, src, cfg, log, *dry)

	case *stdinFeed:
		runLive(ctx, p, ecg.NewReaderSource(os.Stdin), cfg, log, *dry)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}

// openSink returns the configured MIDI port, or a printing sink for
// dry runs so the bridge works without any virtual port installed.
func openSink(cfg *config.Config, log *zap.Logger, dry bool) midi.Sink {
	if dry {
		return midi.FuncSink(func(e midi.Event) error {
			fmt.Println(e)
			return nil
		})
	}
	snk, err := midi.NewPortSink(cfg.MIDIPort)
	if err != nil {
		log.Fatal("open midi output", zap.Error(err))
	}
	log.Info("midi output open", zap.String("port", snk.Port()))
	return snk
}

func runRecorded(ctx context.Context, p *bridge.Pipeline, src ecg.Source, cfg *config.Config, log *zap.Logger, dry, realtime bool) {
	res, err := p.Run(src)
	if err != nil {
		log.Fatal("pipeline failed", zap.Error(err))
	}
	log.Info("recording processed",
		zap.Int("samples", res.Samples),
		zap.Int("beats", res.Beats),
		zap.Int("changes", res.Changes),
		zap.Int("outliers", res.Outliers),
		zap.Int("quality_drops", res.QualityDrops),
		zap.Int("events", len(res.Events)))

	snk := openSink(cfg, log, dry)
	defer snk.Close()

	var skipped int
	if realtime {
		skipped, err = midi.Replay(ctx, res.Events, snk, log)
		if err != nil {
			log.Info("replay interrupted", zap.Error(err))
		}
	} else {
		skipped = midi.SendAll(res.Events, snk, log)
	}
	if skipped > 0 {
		log.Warn("events skipped by sink", zap.Int("skipped", skipped))
	}
}

func runLive(ctx context.Context, p *bridge.Pipeline, src ecg.Source, cfg *config.Config, log *zap.Logger, dry bool) {
	snk := openSink(cfg, log, dry)
	defer snk.Close()

	if !dry {
		if err := midi.SendTestNote(snk, uint8(cfg.MIDIChannel-1), 500*time.Millisecond); err != nil {
			log.Warn("test note failed", zap.Error(err))
		} else {
			log.Info("test note sent, routing confirmed")
		}
	}

	err := bridge.RunLive(ctx, p, src, snk, bridge.LiveOptions{
		FailLimit: cfg.SinkFailureLimit,
		CCLimiter: rate.NewLimiter(rate.Every(cfg.CCStepInterval()), 1),
	})
	if err != nil {
		log.Fatal("live bridge failed", zap.Error(err))
	}

	res := p.Result()
	log.Info("live bridge stopped",
		zap.Int("samples", res.Samples),
		zap.Int("beats", res.Beats),
		zap.Int("changes", res.Changes),
		zap.Int("outliers", res.Outliers),
		zap.Int("quality_drops", res.QualityDrops))
	if st, ok := src.(interface{ Stats() ecg.Stats }); ok {
		if s := st.Stats(); s.Overruns > 0 {
			log.Warn("samples dropped under load", zap.Uint64("overruns", s.Overruns))
		}
	}
}
