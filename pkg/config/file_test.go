package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/torqlabs/vcu/pkg/utils/ptr"
)

func TestNewFileCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	min, max := f.ThrottleSpecRange()
	if min != 0.5 || max != 4.5 {
		t.Fatalf("default throttle spec range [%v, %v], want [0.5, 4.5]", min, max)
	}
	if got := f.ThrottleTolerance(); got != 0.10 {
		t.Fatalf("default tolerance %v, want 0.10", got)
	}
	if got := f.LoopInterval(); got != 10*time.Millisecond {
		t.Fatalf("default loop interval %v, want 10ms", got)
	}
	if got := f.DefaultCalibrationDuration(); got != 10*time.Second {
		t.Fatalf("default calibration duration %v, want 10s", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	f.SetThrottleTolerance(0.05)
	f.SetAllowNonRootAccess(true)
	if err := f.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	g, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile after save: %v", err)
	}
	if got := g.ThrottleTolerance(); got != 0.05 {
		t.Fatalf("tolerance %v after reload, want 0.05", got)
	}
	if !g.AllowNonRootAccess() {
		t.Fatal("allowNonRootAccess not persisted")
	}
}

func TestUnsetFieldsFallBackToDefaults(t *testing.T) {
	f := NewFileFromConfig(&RawFileConfig{
		ThrottleTolerance: ptr.To(0.2),
	}, "")

	if got := f.ThrottleTolerance(); got != 0.2 {
		t.Fatalf("explicit tolerance %v, want 0.2", got)
	}

	// Everything else is unset and must read as the default.
	min, max := f.ThrottleSpecRange()
	if min != 0.5 || max != 4.5 {
		t.Fatalf("spec range [%v, %v], want defaults [0.5, 4.5]", min, max)
	}
	if got := f.CANInterface(); got != "can0" {
		t.Fatalf("can interface %q, want default can0", got)
	}
	if got := f.WheelPulsesPerRev(); got != 16.0 {
		t.Fatalf("pulses per rev %v, want default 16", got)
	}
}

func TestSetToleranceDoesNotMutateDefaults(t *testing.T) {
	f := NewFileFromConfig(nil, "")
	f.SetThrottleTolerance(0.42)

	g := NewFileFromConfig(nil, "")
	if got := g.ThrottleTolerance(); got != 0.10 {
		t.Fatalf("defaults mutated: tolerance %v, want 0.10", got)
	}
}
