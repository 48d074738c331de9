package sensor

import (
	"errors"
	"math"
	"testing"
)

func mustChannel(t *testing.T, name string, min, max float64) *Channel {
	t.Helper()
	c, err := NewChannel(name, min, max)
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}
	return c
}

func TestNewChannelRejectsInvertedSpec(t *testing.T) {
	if _, err := NewChannel("tps0", 4.5, 0.5); err == nil {
		t.Fatal("expected error for inverted spec range")
	}
	if _, err := NewChannel("tps0", 2.5, 2.5); err == nil {
		t.Fatal("expected error for empty spec range")
	}
}

func TestChannelStartsUncalibratedWithInvertedBounds(t *testing.T) {
	c := mustChannel(t, "tps0", 0.5, 4.5)
	if c.Calibrated() {
		t.Fatal("new channel must not be calibrated")
	}
	min, max := c.CalibRange()
	if min != 4.5 || max != 0.5 {
		t.Fatalf("expected inverted default bounds [4.5, 0.5], got [%g, %g]", min, max)
	}
}

func TestPercentClamped(t *testing.T) {
	c := mustChannel(t, "tps0", 0.5, 4.5)
	if err := c.RestoreCalibration(1.0, 3.0); err != nil {
		t.Fatalf("RestoreCalibration failed: %v", err)
	}

	tests := []struct {
		name  string
		value float64
		clamp bool
		want  float64
	}{
		{"min of travel", 1.0, true, 0},
		{"mid travel", 2.0, true, 0.5},
		{"max of travel", 3.0, true, 1},
		{"under travel clamped", 0.5, true, 0},
		{"over travel clamped", 3.6, true, 1},
		{"under travel unclamped", 0.5, false, -0.25},
		{"over travel unclamped", 3.5, false, 1.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Percent(tt.value, tt.clamp)
			if err != nil {
				t.Fatalf("Percent failed: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Percent(%g) = %g, want %g", tt.value, got, tt.want)
			}
		})
	}
}

func TestPercentMonotone(t *testing.T) {
	c := mustChannel(t, "tps0", 0.5, 4.5)
	if err := c.RestoreCalibration(1.0, 3.0); err != nil {
		t.Fatalf("RestoreCalibration failed: %v", err)
	}

	prev := -1.0
	for v := 1.0; v <= 3.0; v += 0.05 {
		pct, err := c.Percent(v, true)
		if err != nil {
			t.Fatalf("Percent(%g) failed: %v", v, err)
		}
		if pct < 0 || pct > 1 {
			t.Fatalf("Percent(%g) = %g out of [0,1]", v, pct)
		}
		if pct < prev {
			t.Fatalf("Percent not monotone at %g: %g < %g", v, pct, prev)
		}
		prev = pct
	}
}

func TestPercentDegenerateSpan(t *testing.T) {
	c := mustChannel(t, "tps0", 0.5, 4.5)

	// Uncalibrated default bounds are inverted: span is negative.
	_, err := c.Percent(2.0, true)
	var dse *ErrDegenerateSpan
	if !errors.As(err, &dse) {
		t.Fatalf("expected ErrDegenerateSpan, got %v", err)
	}
	if dse.Channel != "tps0" {
		t.Fatalf("expected channel tps0 in error, got %s", dse.Channel)
	}
}

func TestWidenCalibration(t *testing.T) {
	c := mustChannel(t, "tps0", 0.5, 4.5)
	c.ResetCalibration()

	for _, v := range []float64{2.0, 0.7, 3.9, 1.2, 4.1} {
		c.SetRaw(v)
		c.WidenCalibration()
	}

	min, max := c.CalibRange()
	if min != 0.7 || max != 4.1 {
		t.Fatalf("expected bounds [0.7, 4.1], got [%g, %g]", min, max)
	}
}

func TestWidenIgnoresChannelWithNoSample(t *testing.T) {
	c := mustChannel(t, "tps0", 0.5, 4.5)
	c.ResetCalibration()
	c.WidenCalibration()

	min, max := c.CalibRange()
	if min != 4.5 || max != 0.5 {
		t.Fatalf("bounds moved without a sample: [%g, %g]", min, max)
	}
}

func TestCommitCalibration(t *testing.T) {
	c := mustChannel(t, "tps0", 0.5, 4.5)
	c.ResetCalibration()
	c.SetRaw(0.6)
	c.WidenCalibration()
	c.SetRaw(4.4)
	c.WidenCalibration()

	if err := c.CommitCalibration(0.5); err != nil {
		t.Fatalf("CommitCalibration failed: %v", err)
	}
	if !c.Calibrated() {
		t.Fatal("channel should be calibrated after commit")
	}
}

func TestCommitRejectsTooSmallSpan(t *testing.T) {
	c := mustChannel(t, "tps0", 0.5, 4.5)
	c.ResetCalibration()
	// Pedal never moved: a single repeated value gives zero span.
	c.SetRaw(2.0)
	c.WidenCalibration()
	c.WidenCalibration()

	err := c.CommitCalibration(0.5)
	var dse *ErrDegenerateSpan
	if !errors.As(err, &dse) {
		t.Fatalf("expected ErrDegenerateSpan, got %v", err)
	}
	if c.Calibrated() {
		t.Fatal("channel must stay uncalibrated after failed commit")
	}
}

func TestInSpec(t *testing.T) {
	c := mustChannel(t, "tps0", 0.5, 4.5)
	for _, v := range []float64{0.5, 2.0, 4.5} {
		if !c.InSpec(v) {
			t.Fatalf("%g should be in spec", v)
		}
	}
	for _, v := range []float64{0.49, 4.51, -1, 12} {
		if c.InSpec(v) {
			t.Fatalf("%g should be out of spec", v)
		}
	}
}
