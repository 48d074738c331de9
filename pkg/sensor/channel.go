package sensor

import (
	"fmt"
	"sync"
)

// minSpan is the smallest calibration span Percent will divide by.
// Anything below this is treated as degenerate rather than producing
// Inf/NaN fractions.
const minSpan = 1e-9

// ErrDegenerateSpan is returned when a channel's calibration span is too
// small (or inverted) to normalize against.
type ErrDegenerateSpan struct {
	Channel string
	Span    float64
}

func (e *ErrDegenerateSpan) Error() string {
	return fmt.Sprintf("channel %s has degenerate calibration span %g", e.Channel, e.Span)
}

// Channel holds one physical transducer: its datasheet (spec) range, the
// calibration range learned at runtime, and the latest raw sample.
//
// Spec bounds are fixed at construction. Calibration bounds are mutated
// only by the calibration controller; the raw sample only by the sampling
// collaborator. Reads and writes are serialized per channel so the control
// loop, the ingest goroutine and HTTP handlers can share one instance.
type Channel struct {
	mu sync.RWMutex

	name     string
	specMin  float64
	specMax  float64
	calibMin float64
	calibMax float64

	calibrated bool
	lastValue  float64
	fresh      bool
}

// NewChannel creates a channel with datasheet bounds. The channel starts
// uncalibrated with its calibration bounds inverted (calibMin=specMax,
// calibMax=specMin) so the first calibration sample tightens both.
func NewChannel(name string, specMin, specMax float64) (*Channel, error) {
	if specMin >= specMax {
		return nil, fmt.Errorf("channel %s: spec range [%g, %g] is not increasing", name, specMin, specMax)
	}
	return &Channel{
		name:     name,
		specMin:  specMin,
		specMax:  specMax,
		calibMin: specMax,
		calibMax: specMin,
	}, nil
}

// Name returns the channel name.
func (c *Channel) Name() string { return c.name }

// SpecRange returns the datasheet bounds.
func (c *Channel) SpecRange() (min, max float64) {
	return c.specMin, c.specMax
}

// SetRaw deposits a fresh raw sample. Called by the sampling collaborator
// once per control cycle.
func (c *Channel) SetRaw(v float64) {
	c.mu.Lock()
	c.lastValue = v
	c.fresh = true
	c.mu.Unlock()
}

// Raw returns the most recent raw sample and whether one has ever been
// deposited.
func (c *Channel) Raw() (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastValue, c.fresh
}

// InSpec reports whether v lies within the datasheet range.
func (c *Channel) InSpec(v float64) bool {
	return v >= c.specMin && v <= c.specMax
}

// Calibrated reports whether a calibration run has committed for this
// channel.
func (c *Channel) Calibrated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calibrated
}

// CalibRange returns the current calibration bounds. While a run is in
// progress these are still converging and may be inverted.
func (c *Channel) CalibRange() (min, max float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calibMin, c.calibMax
}

// Percent normalizes v against the calibration bounds:
// (v - calibMin) / (calibMax - calibMin). With clamp the result is bounded
// to [0, 1]; without, over/under-travel shows up as <0 or >1 for
// diagnostics. A zero or near-zero span is an error, never Inf/NaN.
func (c *Channel) Percent(v float64, clamp bool) (float64, error) {
	c.mu.RLock()
	span := c.calibMax - c.calibMin
	min := c.calibMin
	c.mu.RUnlock()

	if span < minSpan {
		return 0, &ErrDegenerateSpan{Channel: c.name, Span: span}
	}

	pct := (v - min) / span
	if clamp {
		if pct > 1 {
			pct = 1
		} else if pct < 0 {
			pct = 0
		}
	}
	return pct, nil
}

// ResetCalibration inverts the calibration bounds and clears the
// calibrated flag. Called by the calibration controller on entry to a run.
func (c *Channel) ResetCalibration() {
	c.mu.Lock()
	c.calibMin = c.specMax
	c.calibMax = c.specMin
	c.calibrated = false
	c.mu.Unlock()
}

// WidenCalibration folds the latest raw sample into the calibration
// bounds. Monotone: bounds only ever widen during a run, no sample is
// discarded as an outlier, so the true physical extremes are captured.
func (c *Channel) WidenCalibration() {
	c.mu.Lock()
	if c.fresh {
		if c.lastValue < c.calibMin {
			c.calibMin = c.lastValue
		}
		if c.lastValue > c.calibMax {
			c.calibMax = c.lastValue
		}
	}
	c.mu.Unlock()
}

// CommitCalibration marks the channel calibrated if the accumulated span
// exceeds the required minimum. A too-small span leaves the channel
// uncalibrated and returns ErrDegenerateSpan.
func (c *Channel) CommitCalibration(requiredSpan float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	span := c.calibMax - c.calibMin
	if span <= requiredSpan {
		return &ErrDegenerateSpan{Channel: c.name, Span: span}
	}
	c.calibrated = true
	return nil
}

// RestoreCalibration installs previously committed bounds, e.g. loaded
// from the calibration store at startup.
func (c *Channel) RestoreCalibration(min, max float64) error {
	if max-min < minSpan {
		return &ErrDegenerateSpan{Channel: c.name, Span: max - min}
	}
	c.mu.Lock()
	c.calibMin = min
	c.calibMax = max
	c.calibrated = true
	c.mu.Unlock()
	return nil
}

// Snapshot is a point-in-time view of a channel for diagnostics.
type Snapshot struct {
	Name       string  `json:"name"`
	SpecMin    float64 `json:"specMin"`
	SpecMax    float64 `json:"specMax"`
	CalibMin   float64 `json:"calibMin"`
	CalibMax   float64 `json:"calibMax"`
	Calibrated bool    `json:"calibrated"`
	LastValue  float64 `json:"lastValue"`
	Fresh      bool    `json:"fresh"`
}

// Snapshot returns a consistent copy of the channel state.
func (c *Channel) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Name:       c.name,
		SpecMin:    c.specMin,
		SpecMax:    c.specMax,
		CalibMin:   c.calibMin,
		CalibMax:   c.calibMax,
		Calibrated: c.calibrated,
		LastValue:  c.lastValue,
		Fresh:      c.fresh,
	}
}
