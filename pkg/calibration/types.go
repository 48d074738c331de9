package calibration

import (
	"time"

	"github.com/torqlabs/vcu/pkg/sensor"
)

// Phase defines the calibration controller states.
type Phase string

const (
	// PhaseIdle means no calibration is in progress; channels keep their
	// prior calibration or the uncalibrated default.
	PhaseIdle Phase = "Idle"
	// PhaseRunning means min/max accumulation is in progress; target
	// channels read as uncalibrated until the run commits.
	PhaseRunning Phase = "Running"
	// PhaseCommitting is the sanity-check step between Running and Idle.
	// The controller passes through it within a single Observe tick; it
	// exists as a named phase so events can report it.
	PhaseCommitting Phase = "Committing"
)

// Status is the view of a calibration run exposed via HTTP and the CLI.
type Status struct {
	Phase            Phase             `json:"phase"`
	StartedAt        time.Time         `json:"startedAt,omitempty"`
	Duration         time.Duration     `json:"duration,omitempty"`
	RemainingSeconds int               `json:"remainingSeconds"`
	Channels         []sensor.Snapshot `json:"channels"`
	LastError        string            `json:"lastError,omitempty"`
}
