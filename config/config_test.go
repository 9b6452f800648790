package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero refractory", func(c *Config) { c.RefractoryPeriodMS = 0 }},
		{"negative refractory", func(c *Config) { c.RefractoryPeriodMS = -10 }},
		{"zero threshold factor", func(c *Config) { c.ThresholdFactor = 0 }},
		{"short analysis window", func(c *Config) { c.AnalysisWindowMS = 400 }},
		{"zero envelope window", func(c *Config) { c.EnvelopeWindowMS = 0 }},
		{"envelope beyond analysis", func(c *Config) { c.EnvelopeWindowMS = c.AnalysisWindowMS + 1 }},
		{"zero amplitude range", func(c *Config) { c.MinAmplitudeRange = 0 }},
		{"zero sample rate", func(c *Config) { c.SampleRateHz = 0 }},
		{"zero smoothing window", func(c *Config) { c.SmoothingWindowSize = 0 }},
		{"inverted bpm band", func(c *Config) { c.PlausibleBPMMin = 220; c.PlausibleBPMMax = 30 }},
		{"zero bpm floor", func(c *Config) { c.PlausibleBPMMin = 0 }},
		{"negative change threshold", func(c *Config) { c.BPMThreshold = -2 }},
		{"unknown policy", func(c *Config) { c.MappingPolicy = "arpeggiate" }},
		{"unknown trigger", func(c *Config) { c.PlayTrigger = "never" }},
		{"base pitch out of range", func(c *Config) { c.BasePitch = 200 }},
		{"inverted pitch span", func(c *Config) { c.PitchMin = 84; c.PitchMax = 48 }},
		{"zero bpm per semitone", func(c *Config) { c.BPMPerSemitone = 0 }},
		{"inverted velocity range", func(c *Config) { c.VelocityMin = 90; c.VelocityMax = 70 }},
		{"zero velocity floor", func(c *Config) { c.VelocityMin = 0 }},
		{"zero note duration", func(c *Config) { c.NoteDurationMS = 0 }},
		{"zero note glide", func(c *Config) { c.NoteGlide = 0 }},
		{"note glide above one", func(c *Config) { c.NoteGlide = 1.5 }},
		{"controller out of range", func(c *Config) { c.CCController = 128 }},
		{"zero cc step", func(c *Config) { c.CCMinStep = 0 }},
		{"zero cc glide", func(c *Config) { c.CCGlide = 0 }},
		{"zero cc interval", func(c *Config) { c.CCStepMS = 0 }},
		{"channel zero", func(c *Config) { c.MIDIChannel = 0 }},
		{"channel seventeen", func(c *Config) { c.MIDIChannel = 17 }},
		{"empty port", func(c *Config) { c.MIDIPort = "" }},
		{"empty time column", func(c *Config) { c.TimeColumn = "" }},
		{"empty ecg column", func(c *Config) { c.ECGColumn = "" }},
		{"empty nats url", func(c *Config) { c.NATSURL = "" }},
		{"empty subject", func(c *Config) { c.Subject = "" }},
		{"zero queue size", func(c *Config) { c.QueueSize = 0 }},
		{"zero failure limit", func(c *Config) { c.SinkFailureLimit = 0 }},
	}

	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected a validation error", tc.name)
		}
	}
}

func TestValidateCollectsEveryViolation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BPMThreshold = 0
	cfg.SmoothingWindowSize = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected an error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "bpm_threshold") || !strings.Contains(msg, "smoothing_window_size") {
		t.Errorf("error %q should report both violations", msg)
	}
}

func TestLoadFileMissingYieldsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing file must not be an error: %v", err)
	}
	if cfg.BPMThreshold != DefaultConfig().BPMThreshold {
		t.Errorf("missing file should yield defaults, got %+v", cfg)
	}
}

func TestLoadFilePartialJSONKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"bpm_threshold": 5, "mapping_policy": "modulate"}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BPMThreshold != 5 {
		t.Errorf("bpm_threshold = %v, want 5", cfg.BPMThreshold)
	}
	if cfg.MappingPolicy != "modulate" {
		t.Errorf("mapping_policy = %q, want modulate", cfg.MappingPolicy)
	}
	// Unset fields keep their defaults.
	if cfg.RefractoryPeriodMS != 300 {
		t.Errorf("refractory_period_ms = %d, want default 300", cfg.RefractoryPeriodMS)
	}
	if cfg.MIDIPort != "ECG_MIDI" {
		t.Errorf("midi_port = %q, want default", cfg.MIDIPort)
	}
}

func TestLoadFileMalformedFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.BasePitch = 72
	cfg.MIDIPort = "loopMIDI Port"
	if err := cfg.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.BasePitch != 72 {
		t.Errorf("base_pitch = %d, want 72", loaded.BasePitch)
	}
	if loaded.MIDIPort != "loopMIDI Port" {
		t.Errorf("midi_port = %q, want the saved name", loaded.MIDIPort)
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Refractory().Milliseconds() != int64(cfg.RefractoryPeriodMS) {
		t.Errorf("Refractory() = %v, want %dms", cfg.Refractory(), cfg.RefractoryPeriodMS)
	}
	if cfg.CCStepInterval().Milliseconds() != int64(cfg.CCStepMS) {
		t.Errorf("CCStepInterval() = %v, want %dms", cfg.CCStepInterval(), cfg.CCStepMS)
	}
}
