// Package calibration runs the timed pedal-travel calibration over a set
// of sensor channels. A run records the min/max samples observed while
// the operator sweeps the pedal through its full travel, then commits
// them as the channels' calibration range. The run is incremental: the
// control loop calls Observe once per cycle, so calibration never blocks
// the scheduler.
package calibration

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/torqlabs/vcu/pkg/sensor"
)

var (
	// ErrRunInProgress is returned by Start while a run is active.
	ErrRunInProgress = errors.New("calibration already in progress")
	// ErrNotRunning is returned by Cancel when no run is active.
	ErrNotRunning = errors.New("calibration not running")
)

// savedCalib snapshots one channel's calibration before a run so Cancel
// can put it back.
type savedCalib struct {
	min, max   float64
	calibrated bool
}

// Controller owns the calibration state machine for one channel set. The
// channels themselves are owned by the control-cycle driver; the
// controller only mutates their calibration bounds.
type Controller struct {
	mu sync.Mutex

	channels []*sensor.Channel
	minSpan  float64

	phase     Phase
	startedAt time.Time
	duration  time.Duration
	saved     []savedCalib
	lastErr   string

	// now is a test seam.
	now func() time.Time
}

// NewController creates an idle controller over the given channels.
// minSpan is the smallest calibration span the commit check accepts.
func NewController(channels []*sensor.Channel, minSpan float64) *Controller {
	return &Controller{
		channels: channels,
		minSpan:  minSpan,
		phase:    PhaseIdle,
		now:      time.Now,
	}
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Start begins a timed run. Each target channel's calibration bounds are
// reset to the inverted spec range (the first observed sample defines
// both) and its calibrated flag cleared, which forces the plausibility
// evaluator to fail-safe for the whole run. The previous calibration is
// snapshotted so Cancel can restore it.
func (c *Controller) Start(duration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseIdle {
		return ErrRunInProgress
	}
	if duration <= 0 {
		return fmt.Errorf("calibration duration must be positive, got %s", duration)
	}

	c.saved = c.saved[:0]
	for _, ch := range c.channels {
		min, max := ch.CalibRange()
		c.saved = append(c.saved, savedCalib{min: min, max: max, calibrated: ch.Calibrated()})
		ch.ResetCalibration()
	}

	c.phase = PhaseRunning
	c.startedAt = c.now()
	c.duration = duration
	c.lastErr = ""

	logrus.WithFields(logrus.Fields{
		"duration": duration,
		"channels": len(c.channels),
	}).Info("calibration run started")

	return nil
}

// Observe advances the run by one control cycle: it folds each channel's
// latest sample into the accumulating bounds and, once the configured
// duration has elapsed, performs the commit check. finished is true on
// the tick that ends the run; err then carries any per-channel commit
// failures (those channels stay uncalibrated).
func (c *Controller) Observe() (finished bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseRunning {
		return false, nil
	}

	for _, ch := range c.channels {
		ch.WidenCalibration()
	}

	if c.now().Sub(c.startedAt) < c.duration {
		return false, nil
	}

	c.phase = PhaseCommitting

	var errs []error
	for _, ch := range c.channels {
		if cerr := ch.CommitCalibration(c.minSpan); cerr != nil {
			logrus.WithError(cerr).WithField("channel", ch.Name()).Error("calibration commit rejected")
			errs = append(errs, cerr)
		} else {
			min, max := ch.CalibRange()
			logrus.WithFields(logrus.Fields{
				"channel":  ch.Name(),
				"calibMin": min,
				"calibMax": max,
			}).Info("calibration committed")
		}
	}

	c.phase = PhaseIdle
	err = errors.Join(errs...)
	if err != nil {
		c.lastErr = err.Error()
	}
	return true, err
}

// Cancel aborts a run without committing. Channels get their
// pre-run calibration back, or remain uncalibrated if none existed.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseIdle {
		return ErrNotRunning
	}

	for i, ch := range c.channels {
		s := c.saved[i]
		if s.calibrated {
			if err := ch.RestoreCalibration(s.min, s.max); err != nil {
				logrus.WithError(err).WithField("channel", ch.Name()).Warn("could not restore previous calibration")
			}
		} else {
			ch.ResetCalibration()
		}
	}

	c.phase = PhaseIdle
	logrus.Info("calibration run canceled, previous calibration restored")
	return nil
}

// Status returns the current run state plus per-channel snapshots.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		Phase:     c.phase,
		LastError: c.lastErr,
	}
	if c.phase == PhaseRunning {
		st.StartedAt = c.startedAt
		st.Duration = c.duration
		if remain := c.duration - c.now().Sub(c.startedAt); remain > 0 {
			st.RemainingSeconds = int(remain.Seconds())
		}
	}
	for _, ch := range c.channels {
		st.Channels = append(st.Channels, ch.Snapshot())
	}
	return st
}
