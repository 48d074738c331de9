package events

import "encoding/json"

// Event name constants
const (
	ThrottleFaultRaised  = "throttle.fault.raised"
	ThrottleFaultCleared = "throttle.fault.cleared"
	CalibrationPhase     = "calibration.phase"
	TelemetryCycle       = "telemetry.cycle"
)

// Event is a generic SSE event from the daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// ThrottleFaultEvent is the typed payload for throttle.fault.raised and
// throttle.fault.cleared.
type ThrottleFaultEvent struct {
	Kind    string  `json:"kind"`
	Channel string  `json:"channel,omitempty"`
	Delta   float64 `json:"delta,omitempty"`
	Message string  `json:"message,omitempty"`
	Ts      int64   `json:"ts"`
}

// CalibrationPhaseEvent is the typed payload for calibration.phase.
type CalibrationPhaseEvent struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Message string `json:"message,omitempty"`
	Ts      int64  `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is
// empty, it returns the zero value of T with a nil error.
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
