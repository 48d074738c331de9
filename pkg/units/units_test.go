package units

import (
	"math"
	"testing"
)

func TestFrequencyToRPM(t *testing.T) {
	tests := []struct {
		name         string
		hz           float64
		pulsesPerRev float64
		want         float64
	}{
		{"one rotation per second", 16, 16, 60},
		{"stationary", 0, 16, 0},
		{"double rate", 32, 16, 120},
		{"different tooth count", 16, 8, 120},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FrequencyToRPM(tt.hz, tt.pulsesPerRev)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("FrequencyToRPM(%g, %g) = %g, want %g", tt.hz, tt.pulsesPerRev, got, tt.want)
			}
		})
	}
}

func TestRPMToMPH(t *testing.T) {
	// 60 RPM on an 18 inch wheel: pi * 18 * 60 * 60 / 63360.
	want := math.Pi * 18 * 60 * 60 / InchesPerMile
	got := RPMToMPH(60, 18)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("RPMToMPH(60, 18) = %v, want %v", got, want)
	}

	if got := RPMToMPH(0, 18); got != 0 {
		t.Fatalf("RPMToMPH(0, 18) = %v, want 0", got)
	}
}

func TestFrequencyThroughToMPH(t *testing.T) {
	// End to end with the default constants: 16 Hz -> 60 RPM -> about 3.21 MPH.
	rpm := FrequencyToRPM(16, DefaultPulsesPerRev)
	mph := RPMToMPH(rpm, DefaultWheelDiameterIn)
	if math.Abs(mph-3.2130) > 1e-3 {
		t.Fatalf("16 Hz on defaults = %v MPH, want about 3.213", mph)
	}
}
