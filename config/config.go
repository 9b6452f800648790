package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the main configuration structure. Durations are stored as
// integer milliseconds so the JSON stays hand-editable.
type Config struct {
	// Detection
	RefractoryPeriodMS int     `json:"refractory_period_ms"`
	ThresholdFactor    float64 `json:"threshold_factor"`
	AnalysisWindowMS   int     `json:"analysis_window_ms"`
	EnvelopeWindowMS   int     `json:"envelope_window_ms"`
	MinAmplitudeRange  float64 `json:"min_amplitude_range"`
	SampleRateHz       float64 `json:"sample_rate_hz"`

	// Rate estimation
	SmoothingWindowSize int     `json:"smoothing_window_size"`
	PlausibleBPMMin     float64 `json:"plausible_bpm_min"`
	PlausibleBPMMax     float64 `json:"plausible_bpm_max"`
	BPMThreshold        float64 `json:"bpm_threshold"`

	// Mapping
	MappingPolicy  string  `json:"mapping_policy"`
	PlayTrigger    string  `json:"play_trigger"`
	BasePitch      int     `json:"base_pitch"`
	PitchMin       int     `json:"pitch_min"`
	PitchMax       int     `json:"pitch_max"`
	BPMPerSemitone float64 `json:"bpm_per_semitone"`
	VelocityMin    int     `json:"velocity_min"`
	VelocityMax    int     `json:"velocity_max"`
	NoteDurationMS int     `json:"note_duration_ms"`
	NoteGlide      float64 `json:"note_glide"`
	CCController   int     `json:"cc_controller"`
	CCMinStep      int     `json:"cc_min_step"`
	CCGlide        float64 `json:"cc_glide"`
	CCStepMS       int     `json:"cc_step_interval_ms"`
	MIDIChannel    int     `json:"midi_channel"`
	MIDIPort       string  `json:"midi_port"`

	// Input
	TimeColumn string `json:"time_column"`
	ECGColumn  string `json:"ecg_column"`

	// Live transport
	NATSURL          string `json:"nats_url"`
	Subject          string `json:"subject"`
	PublishSubject   string `json:"publish_subject,omitempty"`
	QueueSize        int    `json:"queue_size"`
	SinkFailureLimit int    `json:"sink_failure_limit"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		RefractoryPeriodMS: 300,
		ThresholdFactor:    0.3,
		AnalysisWindowMS:   5000,
		EnvelopeWindowMS:   2000,
		MinAmplitudeRange:  0.2,
		SampleRateHz:       1000,

		SmoothingWindowSize: 3,
		PlausibleBPMMin:     30,
		PlausibleBPMMax:     220,
		BPMThreshold:        2,

		MappingPolicy:  "play",
		PlayTrigger:    "change",
		BasePitch:      60,
		PitchMin:       48,
		PitchMax:       84,
		BPMPerSemitone: 2,
		VelocityMin:    50,
		VelocityMax:    70,
		NoteDurationMS: 100,
		NoteGlide:      0.2,
		CCController:   113,
		CCMinStep:      1,
		CCGlide:        0.1,
		CCStepMS:       10,
		MIDIChannel:    1,
		MIDIPort:       "ECG_MIDI",

		TimeColumn: "Time_s",
		ECGColumn:  "ECG",

		NATSURL:          "nats://127.0.0.1:4222",
		Subject:          "ecg.wave",
		QueueSize:        4096,
		SinkFailureLimit: 8,
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ecg-midi"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default path, or returns defaults if
// not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the config from an explicit path. A missing file
// yields defaults; a malformed one is an error.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate collects every violation so a bad config fails startup with
// the full list, not just the first problem.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.RefractoryPeriodMS <= 0 {
		bad("refractory_period_ms must be positive, got %d", c.RefractoryPeriodMS)
	}
	if c.ThresholdFactor <= 0 {
		bad("threshold_factor must be positive, got %g", c.ThresholdFactor)
	}
	if c.AnalysisWindowMS < 2*c.RefractoryPeriodMS {
		bad("analysis_window_ms must cover at least two refractory periods, got %d", c.AnalysisWindowMS)
	}
	if c.EnvelopeWindowMS <= 0 || c.EnvelopeWindowMS > c.AnalysisWindowMS {
		bad("envelope_window_ms must be in 1..analysis_window_ms, got %d", c.EnvelopeWindowMS)
	}
	if c.MinAmplitudeRange <= 0 {
		bad("min_amplitude_range must be positive, got %g", c.MinAmplitudeRange)
	}
	if c.SampleRateHz <= 0 {
		bad("sample_rate_hz must be positive, got %g", c.SampleRateHz)
	}
	if c.SmoothingWindowSize < 1 {
		bad("smoothing_window_size must be at least 1, got %d", c.SmoothingWindowSize)
	}
	if c.PlausibleBPMMin <= 0 || c.PlausibleBPMMin >= c.PlausibleBPMMax {
		bad("plausible bpm range must satisfy 0 < min < max, got %g..%g", c.PlausibleBPMMin, c.PlausibleBPMMax)
	}
	if c.BPMThreshold <= 0 {
		bad("bpm_threshold must be positive, got %g", c.BPMThreshold)
	}

	switch c.MappingPolicy {
	case "play", "modulate":
	default:
		bad("mapping_policy must be play or modulate, got %q", c.MappingPolicy)
	}
	switch c.PlayTrigger {
	case "change", "beat":
	default:
		bad("play_trigger must be change or beat, got %q", c.PlayTrigger)
	}
	if c.BasePitch < 0 || c.BasePitch > 127 {
		bad("base_pitch must be in 0..127, got %d", c.BasePitch)
	}
	if c.PitchMin < 0 || c.PitchMin >= c.PitchMax || c.PitchMax > 127 {
		bad("pitch range must satisfy 0 <= min < max <= 127, got %d..%d", c.PitchMin, c.PitchMax)
	}
	if c.BPMPerSemitone <= 0 {
		bad("bpm_per_semitone must be positive, got %g", c.BPMPerSemitone)
	}
	if c.VelocityMin < 1 || c.VelocityMin > c.VelocityMax || c.VelocityMax > 127 {
		bad("velocity range must satisfy 1 <= min <= max <= 127, got %d..%d", c.VelocityMin, c.VelocityMax)
	}
	if c.NoteDurationMS <= 0 {
		bad("note_duration_ms must be positive, got %d", c.NoteDurationMS)
	}
	if c.NoteGlide <= 0 || c.NoteGlide > 1 {
		bad("note_glide must be in (0, 1], got %g", c.NoteGlide)
	}
	if c.CCController < 0 || c.CCController > 127 {
		bad("cc_controller must be in 0..127, got %d", c.CCController)
	}
	if c.CCMinStep < 1 || c.CCMinStep > 127 {
		bad("cc_min_step must be in 1..127, got %d", c.CCMinStep)
	}
	if c.CCGlide <= 0 || c.CCGlide > 1 {
		bad("cc_glide must be in (0, 1], got %g", c.CCGlide)
	}
	if c.CCStepMS <= 0 {
		bad("cc_step_interval_ms must be positive, got %d", c.CCStepMS)
	}
	if c.MIDIChannel < 1 || c.MIDIChannel > 16 {
		bad("midi_channel must be in 1..16, got %d", c.MIDIChannel)
	}
	if c.MIDIPort == "" {
		bad("midi_port must not be empty")
	}
	if c.TimeColumn == "" {
		bad("time_column must not be empty")
	}
	if c.ECGColumn == "" {
		bad("ecg_column must not be empty")
	}
	if c.NATSURL == "" {
		bad("nats_url must not be empty")
	}
	if c.Subject == "" {
		bad("subject must not be empty")
	}
	if c.QueueSize < 1 {
		bad("queue_size must be at least 1, got %d", c.QueueSize)
	}
	if c.SinkFailureLimit < 1 {
		bad("sink_failure_limit must be at least 1, got %d", c.SinkFailureLimit)
	}

	return errors.Join(errs...)
}

// Duration accessors for the millisecond fields.

func (c *Config) Refractory() time.Duration {
	return time.Duration(c.RefractoryPeriodMS) * time.Millisecond
}

func (c *Config) AnalysisWindow() time.Duration {
	return time.Duration(c.AnalysisWindowMS) * time.Millisecond
}

func (c *Config) EnvelopeWindow() time.Duration {
	return time.Duration(c.EnvelopeWindowMS) * time.Millisecond
}

func (c *Config) NoteDuration() time.Duration {
	return time.Duration(c.NoteDurationMS) * time.Millisecond
}

func (c *Config) CCStepInterval() time.Duration {
	return time.Duration(c.CCStepMS) * time.Millisecond
}
