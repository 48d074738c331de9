package daemon

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/torqlabs/vcu/pkg/sensor"
)

// storedBounds is one channel's committed calibration window.
type storedBounds struct {
	CalibMin float64 `json:"calibMin"`
	CalibMax float64 `json:"calibMax"`
}

// calibrationStore is the on-disk format. Only committed calibrations
// are persisted; an in-progress run is lost on restart by design of the
// commit step, not of the store.
type calibrationStore struct {
	SavedAt  time.Time               `json:"savedAt"`
	Channels map[string]storedBounds `json:"channels"`
}

// loadCalibrationStore restores committed calibration windows into the
// given channels. A missing file is not an error: the channels simply
// stay uncalibrated until a run commits.
func loadCalibrationStore(path string, channels []*sensor.Channel) error {
	if path == "" {
		return nil
	}

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logrus.WithField("path", path).Info("no calibration store found, channels start uncalibrated")
		return nil
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read calibration store %s", path)
	}

	var store calibrationStore
	if err := json.Unmarshal(b, &store); err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal calibration store %s", path)
	}

	for _, ch := range channels {
		bounds, ok := store.Channels[ch.Name()]
		if !ok {
			logrus.WithField("channel", ch.Name()).Warn("calibration store has no entry for channel")
			continue
		}
		if err := ch.RestoreCalibration(bounds.CalibMin, bounds.CalibMax); err != nil {
			logrus.WithError(err).WithField("channel", ch.Name()).Warn("stored calibration rejected")
			continue
		}
		logrus.WithFields(logrus.Fields{
			"channel":  ch.Name(),
			"calibMin": bounds.CalibMin,
			"calibMax": bounds.CalibMax,
		}).Info("calibration restored from store")
	}

	return nil
}

// persistCalibrationStore writes the committed calibration windows of
// all calibrated channels to disk.
func persistCalibrationStore(path string, channels []*sensor.Channel) error {
	if path == "" {
		return nil
	}

	store := calibrationStore{
		SavedAt:  time.Now(),
		Channels: make(map[string]storedBounds, len(channels)),
	}
	for _, ch := range channels {
		if !ch.Calibrated() {
			continue
		}
		min, max := ch.CalibRange()
		store.Channels[ch.Name()] = storedBounds{CalibMin: min, CalibMax: max}
	}

	b, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal calibration store")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return pkgerrors.Wrapf(err, "failed to create directory for calibration store %s", path)
	}

	if err := os.WriteFile(path, b, 0644); err != nil {
		return pkgerrors.Wrapf(err, "failed to write calibration store %s", path)
	}

	return nil
}
