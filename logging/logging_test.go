package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewBuildsUsableLogger(t *testing.T) {
	log := New(false)
	if log == nil {
		t.Fatal("nil logger")
	}
	defer log.Sync()

	if log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug enabled without -v")
	}
	if !log.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info must be enabled by default")
	}

	verbose := New(true)
	defer verbose.Sync()
	if !verbose.Core().Enabled(zapcore.DebugLevel) {
		t.Error("verbose logger must enable debug")
	}
}

func TestOrToleratesNil(t *testing.T) {
	if Or(nil) == nil {
		t.Fatal("Or(nil) must return a usable logger")
	}
	Or(nil).Info("must not panic")

	log := New(false)
	if Or(log) != log {
		t.Error("Or must pass a real logger through")
	}
}

func TestEveryThins(t *testing.T) {
	hits := 0
	for i := 0; i < 10; i++ {
		if Every(5, "test.key") {
			hits++
		}
	}
	if hits != 2 {
		t.Errorf("got %d hits in 10 calls at every 5, want 2", hits)
	}

	if !Every(1, "test.always") || !Every(0, "test.always") {
		t.Error("n <= 1 must always report true")
	}
}
