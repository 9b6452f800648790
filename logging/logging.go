package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger: console encoding on stderr.
// verbose lowers the level from Info to Debug.
func New(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// Or returns log, or a no-op logger when log is nil. Constructors use it
// so callers can pass nil without sprinkling nil checks on every log line.
func Or(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

var (
	everyMu  sync.Mutex
	counters = make(map[string]int)
)

// Every reports true on every nth call for the given key.
// Use it to thin log lines on per-sample paths.
func Every(n int, key string) bool {
	if n <= 1 {
		return true
	}
	everyMu.Lock()
	counters[key]++
	count := counters[key]
	everyMu.Unlock()
	return count%n == 0
}
