package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/torqlabs/vcu/pkg/utils/ptr"
)

var defaultFileConfig = &RawFileConfig{
	ThrottleSpecMin:          ptr.To(0.5),
	ThrottleSpecMax:          ptr.To(4.5),
	BrakeSpecMin:             ptr.To(0.5),
	BrakeSpecMax:             ptr.To(4.5),
	ThrottleTolerance:        ptr.To(0.10),
	FailSafeValue:            ptr.To(0.0),
	LoopIntervalMillis:       ptr.To(10),
	CalibrationSeconds:       ptr.To(10),
	MinCalibrationSpan:       ptr.To(0.5),
	WheelPulsesPerRev:        ptr.To(16.0),
	WheelDiameterInches:      ptr.To(18.0),
	CANInterface:             ptr.To("can0"),
	MQTTBroker:               ptr.To(""),
	CalibrationStorePath:     ptr.To("/var/lib/vcu/calibration.json"),
	AllowNonRootAccessConfig: ptr.To(false),
}

var _ Config = &File{}

// File is a JSON file backed Config.
type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

// RawFileConfig is the on-disk JSON shape. Pointer fields distinguish
// "unset, use default" from explicit values.
type RawFileConfig struct {
	ThrottleSpecMin          *float64 `json:"throttleSpecMin,omitempty"`
	ThrottleSpecMax          *float64 `json:"throttleSpecMax,omitempty"`
	BrakeSpecMin             *float64 `json:"brakeSpecMin,omitempty"`
	BrakeSpecMax             *float64 `json:"brakeSpecMax,omitempty"`
	ThrottleTolerance        *float64 `json:"throttleTolerance,omitempty"`
	FailSafeValue            *float64 `json:"failSafeValue,omitempty"`
	LoopIntervalMillis       *int     `json:"loopIntervalMillis,omitempty"`
	CalibrationSeconds       *int     `json:"calibrationSeconds,omitempty"`
	MinCalibrationSpan       *float64 `json:"minCalibrationSpan,omitempty"`
	WheelPulsesPerRev        *float64 `json:"wheelPulsesPerRev,omitempty"`
	WheelDiameterInches      *float64 `json:"wheelDiameterInches,omitempty"`
	CANInterface             *string  `json:"canInterface,omitempty"`
	MQTTBroker               *string  `json:"mqttBroker,omitempty"`
	CalibrationStorePath     *string  `json:"calibrationStorePath,omitempty"`
	AllowNonRootAccessConfig *bool    `json:"allowNonRootAccess,omitempty"`
}

// NewFile loads (or creates with defaults) a file backed config.
func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	if err := f.Load(); err != nil {
		return nil, err
	}
	return f, nil
}

// NewFileFromConfig wraps an already-parsed RawFileConfig, mainly for the
// client side and tests.
func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		def := *defaultFileConfig
		c = &def
	}
	return &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}
}

// NewRawFileConfigFromConfig snapshots a Config into its raw JSON shape.
func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	tMin, tMax := c.ThrottleSpecRange()
	bMin, bMax := c.BrakeSpecRange()

	return &RawFileConfig{
		ThrottleSpecMin:          ptr.To(tMin),
		ThrottleSpecMax:          ptr.To(tMax),
		BrakeSpecMin:             ptr.To(bMin),
		BrakeSpecMax:             ptr.To(bMax),
		ThrottleTolerance:        ptr.To(c.ThrottleTolerance()),
		FailSafeValue:            ptr.To(c.FailSafeValue()),
		LoopIntervalMillis:       ptr.To(int(c.LoopInterval() / time.Millisecond)),
		CalibrationSeconds:       ptr.To(int(c.DefaultCalibrationDuration() / time.Second)),
		MinCalibrationSpan:       ptr.To(c.MinCalibrationSpan()),
		WheelPulsesPerRev:        ptr.To(c.WheelPulsesPerRev()),
		WheelDiameterInches:      ptr.To(c.WheelDiameterInches()),
		CANInterface:             ptr.To(c.CANInterface()),
		MQTTBroker:               ptr.To(c.MQTTBroker()),
		CalibrationStorePath:     ptr.To(c.CalibrationStorePath()),
		AllowNonRootAccessConfig: ptr.To(c.AllowNonRootAccess()),
	}, nil
}

func floatOr(v, def *float64) float64 {
	if v != nil {
		return *v
	}
	return *def
}

func intOr(v, def *int) int {
	if v != nil {
		return *v
	}
	return *def
}

func stringOr(v, def *string) string {
	if v != nil {
		return *v
	}
	return *def
}

func boolOr(v, def *bool) bool {
	if v != nil {
		return *v
	}
	return *def
}

func (f *File) ThrottleSpecRange() (float64, float64) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return floatOr(f.c.ThrottleSpecMin, defaultFileConfig.ThrottleSpecMin),
		floatOr(f.c.ThrottleSpecMax, defaultFileConfig.ThrottleSpecMax)
}

func (f *File) BrakeSpecRange() (float64, float64) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return floatOr(f.c.BrakeSpecMin, defaultFileConfig.BrakeSpecMin),
		floatOr(f.c.BrakeSpecMax, defaultFileConfig.BrakeSpecMax)
}

func (f *File) ThrottleTolerance() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return floatOr(f.c.ThrottleTolerance, defaultFileConfig.ThrottleTolerance)
}

func (f *File) FailSafeValue() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return floatOr(f.c.FailSafeValue, defaultFileConfig.FailSafeValue)
}

func (f *File) LoopInterval() time.Duration {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return time.Duration(intOr(f.c.LoopIntervalMillis, defaultFileConfig.LoopIntervalMillis)) * time.Millisecond
}

func (f *File) DefaultCalibrationDuration() time.Duration {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return time.Duration(intOr(f.c.CalibrationSeconds, defaultFileConfig.CalibrationSeconds)) * time.Second
}

func (f *File) MinCalibrationSpan() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return floatOr(f.c.MinCalibrationSpan, defaultFileConfig.MinCalibrationSpan)
}

func (f *File) WheelPulsesPerRev() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return floatOr(f.c.WheelPulsesPerRev, defaultFileConfig.WheelPulsesPerRev)
}

func (f *File) WheelDiameterInches() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return floatOr(f.c.WheelDiameterInches, defaultFileConfig.WheelDiameterInches)
}

func (f *File) CANInterface() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return stringOr(f.c.CANInterface, defaultFileConfig.CANInterface)
}

func (f *File) MQTTBroker() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return stringOr(f.c.MQTTBroker, defaultFileConfig.MQTTBroker)
}

func (f *File) CalibrationStorePath() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return stringOr(f.c.CalibrationStorePath, defaultFileConfig.CalibrationStorePath)
}

func (f *File) AllowNonRootAccess() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return boolOr(f.c.AllowNonRootAccessConfig, defaultFileConfig.AllowNonRootAccessConfig)
}

func (f *File) SetThrottleTolerance(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.ThrottleTolerance = ptr.To(v)
}

func (f *File) SetAllowNonRootAccess(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.AllowNonRootAccessConfig = ptr.To(v)
}

func (f *File) LogrusFields() logrus.Fields {
	tMin, tMax := f.ThrottleSpecRange()
	return logrus.Fields{
		"throttleSpec":       [2]float64{tMin, tMax},
		"tolerance":          f.ThrottleTolerance(),
		"failSafe":           f.FailSafeValue(),
		"loopInterval":       f.LoopInterval().String(),
		"calibrationDefault": f.DefaultCalibrationDuration().String(),
		"minSpan":            f.MinCalibrationSpan(),
		"canInterface":       f.CANInterface(),
		"mqttBroker":         f.MQTTBroker(),
	}
}

// Load reads the config file, falling back to (and writing) defaults
// when it does not exist yet.
func (f *File) Load() error {
	f.mu.Lock()

	b, err := os.ReadFile(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.Warnf("config file %s does not exist, using defaults", f.filepath)
			def := *defaultFileConfig
			f.c = &def
			f.mu.Unlock()
			return f.Save()
		}
		f.mu.Unlock()
		return pkgerrors.Wrapf(err, "failed to read config file %s", f.filepath)
	}

	c := &RawFileConfig{}
	if err := json.Unmarshal(b, c); err != nil {
		f.mu.Unlock()
		return pkgerrors.Wrapf(err, "failed to parse config file %s", f.filepath)
	}
	f.c = c
	f.mu.Unlock()
	return nil
}

// Save writes the config file, creating parent directories as needed.
func (f *File) Save() error {
	f.mu.RLock()
	b, err := json.MarshalIndent(f.c, "", "  ")
	f.mu.RUnlock()
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal config")
	}

	if dir := filepath.Dir(f.filepath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return pkgerrors.Wrapf(err, "failed to create config dir %s", dir)
		}
	}

	if err := os.WriteFile(f.filepath, b, 0644); err != nil {
		return pkgerrors.Wrapf(err, "failed to write config file %s", f.filepath)
	}
	return nil
}
