// Package throttle implements the dual-channel throttle plausibility
// check. Two position sensors measure the same pedal; power may only be
// commanded when both are in spec, calibrated, and agree within the
// configured fraction of pedal travel. Any fault forces the fail-safe
// (zero torque) output. A single bad sensor must never command partial
// torque, so there is no degraded single-channel mode.
package throttle

import (
	"fmt"
	"math"

	"github.com/torqlabs/vcu/pkg/sensor"
)

// Evaluator validates a redundant channel group once per control cycle.
// It only reads the channels; it owns no state of its own beyond policy
// values, so consecutive results are independent.
type Evaluator struct {
	channels  []*sensor.Channel
	tolerance float64
	failSafe  float64
}

// NewEvaluator builds an evaluator over a redundant channel group.
// Throttle uses exactly two channels; the cross-check generalizes to the
// maximum pairwise difference for larger groups.
func NewEvaluator(channels []*sensor.Channel, tolerance, failSafe float64) (*Evaluator, error) {
	if len(channels) < 2 {
		return nil, fmt.Errorf("redundant group needs at least 2 channels, got %d", len(channels))
	}
	if tolerance <= 0 || tolerance >= 1 {
		return nil, fmt.Errorf("tolerance must be in (0, 1), got %g", tolerance)
	}
	return &Evaluator{
		channels:  channels,
		tolerance: tolerance,
		failSafe:  failSafe,
	}, nil
}

// Tolerance returns the configured discrepancy tolerance.
func (e *Evaluator) Tolerance() float64 { return e.tolerance }

// Evaluate runs one plausibility cycle: spec-range check, calibration
// gate, normalization, cross-check, then aggregation. It always returns a
// Result; faults are reported, never thrown.
func (e *Evaluator) Evaluate() Result {
	var faults []Fault

	// Per-channel normalized fractions. NaN marks a channel whose sample
	// cannot produce a trusted value this cycle.
	fractions := make([]float64, len(e.channels))

	for i, ch := range e.channels {
		fractions[i] = math.NaN()

		raw, _ := ch.Raw()

		// Range check against datasheet bounds, not calibration bounds.
		if !ch.InSpec(raw) {
			faults = append(faults, Fault{Kind: FaultOutOfRange, Channel: ch.Name(), Sample: raw})
			continue
		}

		if !ch.Calibrated() {
			faults = append(faults, Fault{Kind: FaultUncalibrated, Channel: ch.Name()})
			continue
		}

		pct, err := ch.Percent(raw, true)
		if err != nil {
			faults = append(faults, Fault{Kind: FaultDegenerateCalibration, Channel: ch.Name()})
			continue
		}
		fractions[i] = pct
	}

	// Cross-check only between channels that produced a valid fraction;
	// a channel already excluded above must not raise a second fault.
	if delta, ok := maxPairwiseDelta(fractions); ok && delta > e.tolerance {
		faults = append(faults, Fault{Kind: FaultDiscrepancy, Delta: delta})
	}

	return Result{
		Value:  aggregate(fractions, faults, e.failSafe),
		Faults: faults,
	}
}

// maxPairwiseDelta returns the largest absolute difference among valid
// fractions. ok is false unless every channel produced a fraction: a
// partial group is already faulted and a partial comparison proves
// nothing.
func maxPairwiseDelta(fractions []float64) (delta float64, ok bool) {
	for i, a := range fractions {
		if math.IsNaN(a) {
			return 0, false
		}
		for _, b := range fractions[:i] {
			if d := math.Abs(a - b); d > delta {
				delta = d
			}
		}
	}
	return delta, true
}

// aggregate is the output policy, kept separate from fault detection so
// it can be audited on its own: any fault forces the fail-safe value,
// otherwise the result is the mean of the per-channel fractions.
func aggregate(fractions []float64, faults []Fault, failSafe float64) float64 {
	if len(faults) > 0 {
		return failSafe
	}
	sum := 0.0
	for _, f := range fractions {
		sum += f
	}
	return sum / float64(len(fractions))
}
