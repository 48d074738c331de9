package config

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Config is the daemon configuration. Spec ranges and wheel constants
// come from the transducer datasheets and are fixed for a given harness;
// the tolerance can be adjusted at runtime for track testing.
type Config interface {
	// ThrottleSpecRange is the datasheet voltage range of both throttle
	// position sensors.
	ThrottleSpecRange() (min, max float64)
	// BrakeSpecRange is the datasheet voltage range of the brake pressure
	// sensor (diagnostics only; see pkg/daemon).
	BrakeSpecRange() (min, max float64)
	// ThrottleTolerance is the allowed pedal-travel deviation between the
	// redundant throttle sensors, as a fraction of full travel.
	ThrottleTolerance() float64
	// FailSafeValue is the throttle fraction reported when trust cannot be
	// established.
	FailSafeValue() float64
	// LoopInterval is the control cycle period.
	LoopInterval() time.Duration
	// DefaultCalibrationDuration is used when a calibration request does
	// not carry its own duration.
	DefaultCalibrationDuration() time.Duration
	// MinCalibrationSpan is the smallest voltage span a calibration run
	// may commit.
	MinCalibrationSpan() float64
	// WheelPulsesPerRev is the wheel speed sensor tooth count.
	WheelPulsesPerRev() float64
	// WheelDiameterInches is the tire diameter.
	WheelDiameterInches() float64
	// CANInterface is the socketcan interface name, empty to disable CAN.
	CANInterface() string
	// MQTTBroker is the telemetry broker URL, empty to disable publishing.
	MQTTBroker() string
	// CalibrationStorePath is where committed calibration bounds are
	// persisted across power cycles.
	CalibrationStorePath() string
	// AllowNonRootAccess loosens the unix socket permissions.
	AllowNonRootAccess() bool

	SetThrottleTolerance(float64)
	SetAllowNonRootAccess(bool)

	// LogrusFields returns the config as log fields.
	LogrusFields() logrus.Fields

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
