// Package units holds the wheel-speed conversion helpers. These are pure
// arithmetic over calibration constants (tooth count, wheel diameter), not
// runtime-learned values.
package units

import "math"

const (
	// InchesPerMile converts wheel circumference travel to road miles.
	InchesPerMile = 63360.0

	// DefaultPulsesPerRev is the tooth count of the wheel speed sensor ring.
	DefaultPulsesPerRev = 16.0

	// DefaultWheelDiameterIn is the tire diameter in inches.
	DefaultWheelDiameterIn = 18.0
)

// FrequencyToRPM converts a wheel speed sensor pulse frequency (Hz) to
// rotations per minute. 16 pulses/rev at 16 Hz is exactly one rotation per
// second, i.e. 60 RPM.
func FrequencyToRPM(hz, pulsesPerRev float64) float64 {
	return hz / pulsesPerRev * 60.0
}

// RPMToMPH converts a wheel rotation rate to theoretical ground speed in
// miles per hour, assuming constant circumference and no slip.
func RPMToMPH(rpm, wheelDiameterIn float64) float64 {
	return math.Pi * wheelDiameterIn * rpm * 60.0 / InchesPerMile
}
