package throttle

import (
	"math"
	"testing"

	"github.com/torqlabs/vcu/pkg/sensor"
)

// calibratedPair builds two throttle channels with the 0.5-4.5 V spec
// range and a committed 1.0-3.0 V pedal-travel calibration.
func calibratedPair(t *testing.T) (*sensor.Channel, *sensor.Channel) {
	t.Helper()
	a, err := sensor.NewChannel("tps0", 0.5, 4.5)
	if err != nil {
		t.Fatalf("NewChannel: %v", err)
	}
	b, err := sensor.NewChannel("tps1", 0.5, 4.5)
	if err != nil {
		t.Fatalf("NewChannel: %v", err)
	}
	if err := a.RestoreCalibration(1.0, 3.0); err != nil {
		t.Fatalf("RestoreCalibration: %v", err)
	}
	if err := b.RestoreCalibration(1.0, 3.0); err != nil {
		t.Fatalf("RestoreCalibration: %v", err)
	}
	return a, b
}

func newEvaluator(t *testing.T, a, b *sensor.Channel) *Evaluator {
	t.Helper()
	e, err := NewEvaluator([]*sensor.Channel{a, b}, 0.10, 0)
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	return e
}

func TestAgreementYieldsMean(t *testing.T) {
	a, b := calibratedPair(t)
	// 0.52 and 0.48 of travel on a 1.0-3.0 V calibration.
	a.SetRaw(1.0 + 0.52*2.0)
	b.SetRaw(1.0 + 0.48*2.0)

	res := newEvaluator(t, a, b).Evaluate()
	if !res.Trusted() {
		t.Fatalf("expected trusted result, got faults %v", res.Faults)
	}
	if math.Abs(res.Value-0.50) > 1e-9 {
		t.Fatalf("expected mean 0.50, got %g", res.Value)
	}
}

func TestOutOfRangeForcesFailSafe(t *testing.T) {
	a, b := calibratedPair(t)
	a.SetRaw(4.9) // above 4.5 V spec max
	b.SetRaw(2.0)

	res := newEvaluator(t, a, b).Evaluate()
	if res.Value != 0 {
		t.Fatalf("expected fail-safe 0, got %g", res.Value)
	}
	if !res.Has(FaultOutOfRange) {
		t.Fatalf("expected OutOfRange fault, got %v", res.Faults)
	}
	// The excluded channel must not also trigger a discrepancy fault.
	if res.Has(FaultDiscrepancy) {
		t.Fatalf("discrepancy must not be raised against an out-of-range channel: %v", res.Faults)
	}
}

func TestOutOfRangeBelowSpecMin(t *testing.T) {
	a, b := calibratedPair(t)
	a.SetRaw(0.2) // broken wire reads near ground
	b.SetRaw(2.0)

	res := newEvaluator(t, a, b).Evaluate()
	if res.Value != 0 || !res.Has(FaultOutOfRange) {
		t.Fatalf("expected fail-safe with OutOfRange, got %g %v", res.Value, res.Faults)
	}
}

func TestUncalibratedForcesFailSafe(t *testing.T) {
	a, _ := calibratedPair(t)
	b, err := sensor.NewChannel("tps1", 0.5, 4.5)
	if err != nil {
		t.Fatalf("NewChannel: %v", err)
	}
	a.SetRaw(2.0)
	b.SetRaw(2.0) // in range, but never calibrated

	res := newEvaluator(t, a, b).Evaluate()
	if res.Value != 0 {
		t.Fatalf("expected fail-safe 0, got %g", res.Value)
	}
	if !res.Has(FaultUncalibrated) {
		t.Fatalf("expected Uncalibrated fault, got %v", res.Faults)
	}
}

func TestDiscrepancyForcesFailSafe(t *testing.T) {
	a, b := calibratedPair(t)
	// 0.55 vs 0.40 of travel: delta 0.15 > 0.10 tolerance.
	a.SetRaw(1.0 + 0.55*2.0)
	b.SetRaw(1.0 + 0.40*2.0)

	res := newEvaluator(t, a, b).Evaluate()
	if res.Value != 0 {
		t.Fatalf("expected fail-safe 0, got %g", res.Value)
	}
	if !res.Has(FaultDiscrepancy) {
		t.Fatalf("expected Discrepancy fault, got %v", res.Faults)
	}
	for _, f := range res.Faults {
		if f.Kind == FaultDiscrepancy && math.Abs(f.Delta-0.15) > 1e-9 {
			t.Fatalf("expected delta 0.15, got %g", f.Delta)
		}
	}
}

func TestDisagreementWithinToleranceIsTrusted(t *testing.T) {
	a, b := calibratedPair(t)
	a.SetRaw(1.0 + 0.55*2.0)
	b.SetRaw(1.0 + 0.47*2.0) // delta 0.08 <= 0.10

	res := newEvaluator(t, a, b).Evaluate()
	if !res.Trusted() {
		t.Fatalf("expected trusted result, got faults %v", res.Faults)
	}
	if math.Abs(res.Value-0.51) > 1e-9 {
		t.Fatalf("expected mean 0.51, got %g", res.Value)
	}
}

func TestDegenerateCalibration(t *testing.T) {
	a, _ := calibratedPair(t)
	b, err := sensor.NewChannel("tps1", 0.5, 4.5)
	if err != nil {
		t.Fatalf("NewChannel: %v", err)
	}
	// A misconfigured zero minimum span lets a barely-moved pedal commit a
	// span too small to normalize against. The evaluator must surface that
	// as its own fault, not Inf/NaN.
	b.ResetCalibration()
	b.SetRaw(2.0)
	b.WidenCalibration()
	b.SetRaw(2.0 + 1e-12)
	b.WidenCalibration()
	if err := b.CommitCalibration(0); err != nil {
		t.Fatalf("CommitCalibration: %v", err)
	}

	a.SetRaw(2.0)
	b.SetRaw(2.0)
	res := newEvaluator(t, a, b).Evaluate()
	if res.Value != 0 {
		t.Fatalf("expected fail-safe 0, got %g", res.Value)
	}
	if !res.Has(FaultDegenerateCalibration) {
		t.Fatalf("expected DegenerateCalibration fault, got %v", res.Faults)
	}
}

func TestBothFaultsReported(t *testing.T) {
	a, err := sensor.NewChannel("tps0", 0.5, 4.5)
	if err != nil {
		t.Fatalf("NewChannel: %v", err)
	}
	b, err := sensor.NewChannel("tps1", 0.5, 4.5)
	if err != nil {
		t.Fatalf("NewChannel: %v", err)
	}
	a.SetRaw(5.0) // out of range
	b.SetRaw(2.0) // in range but uncalibrated

	res := newEvaluator(t, a, b).Evaluate()
	if !res.Has(FaultOutOfRange) || !res.Has(FaultUncalibrated) {
		t.Fatalf("expected both faults reported independently, got %v", res.Faults)
	}
	if res.Value != 0 {
		t.Fatalf("expected fail-safe 0, got %g", res.Value)
	}
}

func TestFaultsClearNextCycle(t *testing.T) {
	a, b := calibratedPair(t)
	e := newEvaluator(t, a, b)

	a.SetRaw(5.0)
	b.SetRaw(2.0)
	if res := e.Evaluate(); res.Trusted() {
		t.Fatal("expected faulted cycle")
	}

	// Sample returns to range: fault clears with no carried state.
	a.SetRaw(2.0)
	b.SetRaw(2.0)
	if res := e.Evaluate(); !res.Trusted() {
		t.Fatalf("expected clean cycle after recovery, got %v", res.Faults)
	}
}

func TestNewEvaluatorValidation(t *testing.T) {
	a, b := calibratedPair(t)
	if _, err := NewEvaluator([]*sensor.Channel{a}, 0.10, 0); err == nil {
		t.Fatal("expected error for single-channel group")
	}
	if _, err := NewEvaluator([]*sensor.Channel{a, b}, 0, 0); err == nil {
		t.Fatal("expected error for zero tolerance")
	}
}
