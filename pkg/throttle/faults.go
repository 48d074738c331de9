package throttle

import "fmt"

// FaultKind identifies one of the distinct plausibility fault conditions.
// All faults are non-fatal: they are collected per cycle and clear
// themselves on the next cycle once the condition no longer holds.
type FaultKind string

const (
	// FaultOutOfRange means a channel's raw sample violated its datasheet
	// range. A signal outside the operating range is a sensor failure.
	FaultOutOfRange FaultKind = "OutOfRange"

	// FaultUncalibrated means a channel has no committed calibration, so
	// pedal travel cannot be derived from it.
	FaultUncalibrated FaultKind = "Uncalibrated"

	// FaultDiscrepancy means the redundant channels disagree by more than
	// the configured fraction of full pedal travel.
	FaultDiscrepancy FaultKind = "Discrepancy"

	// FaultDegenerateCalibration means a channel's calibration span is too
	// small to normalize against.
	FaultDegenerateCalibration FaultKind = "DegenerateCalibration"
)

// Fault is one observed fault. Channel is set for per-channel kinds,
// Delta for discrepancy.
type Fault struct {
	Kind    FaultKind `json:"kind"`
	Channel string    `json:"channel,omitempty"`
	Delta   float64   `json:"delta,omitempty"`
	Sample  float64   `json:"sample,omitempty"`
}

func (f Fault) String() string {
	switch f.Kind {
	case FaultOutOfRange:
		return fmt.Sprintf("%s: channel %s sample %g outside spec range", f.Kind, f.Channel, f.Sample)
	case FaultUncalibrated:
		return fmt.Sprintf("%s: channel %s has no committed calibration", f.Kind, f.Channel)
	case FaultDiscrepancy:
		return fmt.Sprintf("%s: channels disagree by %.3f of pedal travel", f.Kind, f.Delta)
	case FaultDegenerateCalibration:
		return fmt.Sprintf("%s: channel %s calibration span too small", f.Kind, f.Channel)
	}
	return string(f.Kind)
}

// Result is the output of one evaluation cycle. With any fault present,
// Value is the fail-safe value. Each cycle's result is independent.
type Result struct {
	Value  float64 `json:"value"`
	Faults []Fault `json:"faults,omitempty"`
}

// Trusted reports whether the cycle produced a trusted pedal position.
func (r Result) Trusted() bool { return len(r.Faults) == 0 }

// Has reports whether the result carries a fault of the given kind.
func (r Result) Has(kind FaultKind) bool {
	for _, f := range r.Faults {
		if f.Kind == kind {
			return true
		}
	}
	return false
}
