package daemon

import (
	"path/filepath"
	"testing"

	"github.com/torqlabs/vcu/pkg/sensor"
)

func testChannelPair(t *testing.T) []*sensor.Channel {
	t.Helper()

	tps0, err := sensor.NewChannel(ChannelTPS0, 0.5, 4.5)
	if err != nil {
		t.Fatalf("NewChannel: %v", err)
	}
	tps1, err := sensor.NewChannel(ChannelTPS1, 0.5, 4.5)
	if err != nil {
		t.Fatalf("NewChannel: %v", err)
	}
	return []*sensor.Channel{tps0, tps1}
}

func TestPersistAndLoadCalibrationStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.json")

	saved := testChannelPair(t)
	if err := saved[0].RestoreCalibration(1.0, 3.0); err != nil {
		t.Fatalf("RestoreCalibration: %v", err)
	}
	if err := saved[1].RestoreCalibration(1.1, 3.2); err != nil {
		t.Fatalf("RestoreCalibration: %v", err)
	}

	if err := persistCalibrationStore(path, saved); err != nil {
		t.Fatalf("persistCalibrationStore: %v", err)
	}

	restored := testChannelPair(t)
	if err := loadCalibrationStore(path, restored); err != nil {
		t.Fatalf("loadCalibrationStore: %v", err)
	}

	for i, ch := range restored {
		if !ch.Calibrated() {
			t.Fatalf("channel %s not calibrated after restore", ch.Name())
		}
		wantMin, wantMax := saved[i].CalibRange()
		gotMin, gotMax := ch.CalibRange()
		if gotMin != wantMin || gotMax != wantMax {
			t.Fatalf("channel %s bounds [%v, %v], want [%v, %v]", ch.Name(), gotMin, gotMax, wantMin, wantMax)
		}
	}
}

func TestLoadCalibrationStoreMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")

	chans := testChannelPair(t)
	if err := loadCalibrationStore(path, chans); err != nil {
		t.Fatalf("missing store should not be an error, got: %v", err)
	}
	for _, ch := range chans {
		if ch.Calibrated() {
			t.Fatalf("channel %s unexpectedly calibrated", ch.Name())
		}
	}
}

func TestPersistSkipsUncalibratedChannels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.json")

	saved := testChannelPair(t)
	if err := saved[0].RestoreCalibration(1.0, 3.0); err != nil {
		t.Fatalf("RestoreCalibration: %v", err)
	}
	// saved[1] stays uncalibrated.

	if err := persistCalibrationStore(path, saved); err != nil {
		t.Fatalf("persistCalibrationStore: %v", err)
	}

	restored := testChannelPair(t)
	if err := loadCalibrationStore(path, restored); err != nil {
		t.Fatalf("loadCalibrationStore: %v", err)
	}

	if !restored[0].Calibrated() {
		t.Fatal("calibrated channel should restore")
	}
	if restored[1].Calibrated() {
		t.Fatal("uncalibrated channel must not restore")
	}
}
