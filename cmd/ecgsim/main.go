package main

import (
	"context"
	"encoding/binary"
	"encoding/csv"
	"errors"
	"flag"
	"io"
	"math"
	"os"
	"os/signal"
	"strconv"
	"time"

	"go.uber.org/zap"

	"ecg-midi/ecg"
	"ecg-midi/logging"
	"ecg-midi/stream"
)

// ecgsim renders a synthetic ECG trace, either as a CSV recording the
// bridge can replay or as a live NATS feed the bridge can subscribe to.
// A heart-rate ramp regenerates rate-change fixtures.
func main() {
	var (
		fs       = flag.Float64("fs", 1000, "sampling rate Hz")
		hr       = flag.Float64("hr", 72, "starting heart rate bpm")
		rampTo   = flag.Float64("ramp-to", 0, "target heart rate (0 = steady)")
		rampOver = flag.Duration("ramp-over", 30*time.Second, "time to reach the ramp target")
		noise    = flag.Float64("noise", 0.02, "noise amplitude")
		length   = flag.Duration("length", time.Minute, "trace length (0 = until interrupt, live only)")

		out     = flag.String("o", "", "write CSV here (default stdout)")
		timeCol = flag.String("time-column", "Time_s", "CSV time column name")
		ecgCol  = flag.String("ecg-column", "ECG", "CSV amplitude column name")

		publish = flag.Bool("publish", false, "publish to NATS instead of writing CSV")
		natsURL = flag.String("nats", "nats://127.0.0.1:4222", "NATS url")
		subject = flag.String("subject", "ecg.wave", "subject")
		batch   = flag.Int("batch", 10, "samples per message")
	)
	flag.Parse()

	log := logging.New(false)
	defer log.Sync()

	if *length <= 0 && !*publish {
		log.Fatal("csv output needs a positive -length")
	}

	sim := ecg.NewSimulator(ecg.SimOptions{
		SampleRate: *fs,
		BPM:        *hr,
		RampTo:     *rampTo,
		RampOver:   *rampOver,
		Noise:      *noise,
		Duration:   *length,
	})

	if *publish {
		publishLive(sim, *natsURL, *subject, *fs, *batch, log)
		return
	}
	writeCSV(sim, *out, *timeCol, *ecgCol, log)
}

func writeCSV(sim *ecg.Simulator, path, timeCol, ecgCol string, log *zap.Logger) {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			log.Fatal("create output", zap.Error(err))
		}
		defer f.Close()
		w = f
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{timeCol, ecgCol}); err != nil {
		log.Fatal("write header", zap.Error(err))
	}

	rows := 0
	for {
		s, err := sim.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		rec := []string{
			strconv.FormatFloat(s.At.Seconds(), 'f', 6, 64),
			strconv.FormatFloat(s.Value, 'f', 6, 64),
		}
		if err := cw.Write(rec); err != nil {
			log.Fatal("write row", zap.Error(err))
		}
		rows++
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		log.Fatal("flush output", zap.Error(err))
	}
	log.Info("trace written", zap.Int("rows", rows), zap.String("path", path))
}

// publishLive paces the generator at the sample interval and ships
// float32 little-endian batches, the wire format the bridge's live
// source expects.
func publishLive(sim *ecg.Simulator, url, subject string, fs float64, batch int, log *zap.Logger) {
	nc, err := stream.Connect(url)
	if err != nil {
		log.Fatal("connect nats", zap.Error(err))
	}
	defer nc.Drain()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	period := time.Duration(float64(time.Second) / fs)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	buffer := make([]float32, 0, batch)
	sent := 0

	for {
		select {
		case <-ctx.Done():
			log.Info("publisher stopping", zap.Int("samples", sent))
			return

		case <-ticker.C:
			s, err := sim.Next()
			if errors.Is(err, io.EOF) {
				log.Info("trace complete", zap.Int("samples", sent))
				return
			}
			buffer = append(buffer, float32(s.Value))
			sent++

			if len(buffer) >= batch {
				out := make([]byte, 4*len(buffer))
				for i, v := range buffer {
					binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
				}
				if err := nc.Publish(subject, out); err != nil {
					log.Warn("publish batch", zap.Error(err))
				}
				buffer = buffer[:0]
			}
		}
	}
}
