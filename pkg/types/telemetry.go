package types

import (
	"github.com/torqlabs/vcu/pkg/sensor"
	"github.com/torqlabs/vcu/pkg/throttle"
)

// ThrottleReport is one control cycle's validated throttle output.
// This struct is shared between the daemon, client, and telemetry
// consumers.
type ThrottleReport struct {
	Value   float64          `json:"value"`
	Trusted bool             `json:"trusted"`
	Faults  []throttle.Fault `json:"faults,omitempty"`
	Ts      int64            `json:"ts"`
}

// SpeedReport holds the derived wheel and vehicle speeds.
type SpeedReport struct {
	WheelRPM   map[string]float64 `json:"wheelRpm"`
	VehicleMPH float64            `json:"vehicleMph"`
	Ts         int64              `json:"ts"`
}

// ChannelsReport is the diagnostic view of every sensor channel.
type ChannelsReport struct {
	Channels []sensor.Snapshot `json:"channels"`
}

// TelemetryFrame bundles one cycle's reports for live streaming.
type TelemetryFrame struct {
	Throttle ThrottleReport `json:"throttle"`
	Speed    SpeedReport    `json:"speed"`
}
