package canbus

import (
	"math"
	"testing"

	"github.com/torqlabs/vcu/pkg/throttle"
)

func TestThrottleFrameRoundTrip(t *testing.T) {
	f := EncodeThrottle(0.5, 4.5)
	if f.ID != ThrottleFrameID || f.Length != 4 {
		t.Fatalf("unexpected frame header: id=0x%X len=%d", f.ID, f.Length)
	}

	v0, v1, err := DecodeThrottle(f)
	if err != nil {
		t.Fatalf("DecodeThrottle: %v", err)
	}
	if math.Abs(v0-0.5) > voltScale || math.Abs(v1-4.5) > voltScale {
		t.Fatalf("round trip gave %g, %g", v0, v1)
	}
}

func TestThrottleFrameLayout(t *testing.T) {
	// 1.024 V is raw 1024 = 0x0400, little endian.
	f := EncodeThrottle(1.024, 0)
	if f.Data[0] != 0x00 || f.Data[1] != 0x04 {
		t.Fatalf("expected little endian 0x0400, got [%#x %#x]", f.Data[0], f.Data[1])
	}
}

func TestDecodeThrottleWrongID(t *testing.T) {
	f := EncodeBrake(2.0)
	if _, _, err := DecodeThrottle(f); err == nil {
		t.Fatal("expected error decoding a brake frame as throttle")
	}
}

func TestWheelSpeedsRoundTrip(t *testing.T) {
	in := [4]float64{16.0, 16.1, 15.9, 0}
	out, err := DecodeWheelSpeeds(EncodeWheelSpeeds(in))
	if err != nil {
		t.Fatalf("DecodeWheelSpeeds: %v", err)
	}
	for i := range in {
		if math.Abs(out[i]-in[i]) > freqScale {
			t.Fatalf("wheel %d: %g != %g", i, out[i], in[i])
		}
	}
}

func TestTorqueCommand(t *testing.T) {
	f := EncodeTorqueCommand(0.5, 0)
	frac, mask, err := DecodeTorqueCommand(f)
	if err != nil {
		t.Fatalf("DecodeTorqueCommand: %v", err)
	}
	if math.Abs(frac-0.5) > fracScale || mask != 0 {
		t.Fatalf("round trip gave %g mask %#x", frac, mask)
	}

	f = EncodeTorqueCommand(0, MaskOutOfRange|MaskDiscrepancy)
	frac, mask, err = DecodeTorqueCommand(f)
	if err != nil {
		t.Fatalf("DecodeTorqueCommand: %v", err)
	}
	if frac != 0 {
		t.Fatalf("fail-safe command must carry zero fraction, got %g", frac)
	}
	if mask != MaskOutOfRange|MaskDiscrepancy {
		t.Fatalf("unexpected mask %#x", mask)
	}
}

func TestPackScaledClamps(t *testing.T) {
	// Values outside the raw range must saturate, not wrap.
	f := EncodeThrottle(-1, 100)
	v0, v1, err := DecodeThrottle(f)
	if err != nil {
		t.Fatalf("DecodeThrottle: %v", err)
	}
	if v0 != 0 {
		t.Fatalf("negative voltage should clamp to 0, got %g", v0)
	}
	if v1 != 65535*voltScale {
		t.Fatalf("oversized voltage should saturate, got %g", v1)
	}
}

func TestFaultMask(t *testing.T) {
	faults := []throttle.Fault{
		{Kind: throttle.FaultOutOfRange, Channel: "tps0"},
		{Kind: throttle.FaultUncalibrated, Channel: "tps1"},
		{Kind: throttle.FaultDiscrepancy, Delta: 0.15},
		{Kind: throttle.FaultDegenerateCalibration, Channel: "tps0"},
	}
	want := MaskOutOfRange | MaskUncalibrated | MaskDiscrepancy | MaskDegenerateCalibration
	if got := FaultMask(faults); got != want {
		t.Fatalf("FaultMask = %#x, want %#x", got, want)
	}
	if got := FaultMask(nil); got != 0 {
		t.Fatalf("empty fault set should give zero mask, got %#x", got)
	}
}
