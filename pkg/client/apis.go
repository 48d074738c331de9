package client

import (
	"encoding/json"
	"fmt"
	"strconv"

	pkgerrors "github.com/pkg/errors"

	"github.com/torqlabs/vcu/pkg/calibration"
	"github.com/torqlabs/vcu/pkg/config"
	"github.com/torqlabs/vcu/pkg/types"
)

// GetThrottle returns the latest validated throttle report.
func (c *Client) GetThrottle() (types.ThrottleReport, error) {
	var rep types.ThrottleReport
	ret, err := c.Get("/throttle")
	if err != nil {
		return rep, pkgerrors.Wrapf(err, "failed to get throttle report")
	}
	if err := json.Unmarshal([]byte(ret), &rep); err != nil {
		return rep, pkgerrors.Wrapf(err, "failed to unmarshal throttle report")
	}
	return rep, nil
}

// GetChannels returns a diagnostic snapshot of every sensor channel.
func (c *Client) GetChannels() (types.ChannelsReport, error) {
	var rep types.ChannelsReport
	ret, err := c.Get("/channels")
	if err != nil {
		return rep, pkgerrors.Wrapf(err, "failed to get channel snapshots")
	}
	if err := json.Unmarshal([]byte(ret), &rep); err != nil {
		return rep, pkgerrors.Wrapf(err, "failed to unmarshal channel snapshots")
	}
	return rep, nil
}

// GetSpeed returns the derived wheel and vehicle speeds.
func (c *Client) GetSpeed() (types.SpeedReport, error) {
	var rep types.SpeedReport
	ret, err := c.Get("/speed")
	if err != nil {
		return rep, pkgerrors.Wrapf(err, "failed to get speed report")
	}
	if err := json.Unmarshal([]byte(ret), &rep); err != nil {
		return rep, pkgerrors.Wrapf(err, "failed to unmarshal speed report")
	}
	return rep, nil
}

// StartCalibration starts a calibration run. seconds == 0 uses the
// daemon's configured default duration.
func (c *Client) StartCalibration(seconds int) (string, error) {
	payload, err := json.Marshal(map[string]int{"seconds": seconds})
	if err != nil {
		return "", err
	}
	return c.Post("/calibration", string(payload))
}

// CancelCalibration aborts a running calibration and restores the
// previous calibration.
func (c *Client) CancelCalibration() (string, error) {
	return c.Delete("/calibration")
}

// GetCalibrationStatus returns the calibration machine's current state.
func (c *Client) GetCalibrationStatus() (calibration.Status, error) {
	var st calibration.Status
	ret, err := c.Get("/calibration")
	if err != nil {
		return st, pkgerrors.Wrapf(err, "failed to get calibration status")
	}
	if err := json.Unmarshal([]byte(ret), &st); err != nil {
		return st, pkgerrors.Wrapf(err, "failed to unmarshal calibration status")
	}
	return st, nil
}

// GetConfig returns the daemon's current configuration.
func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	ret, err := c.Get("/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}
	raw := &config.RawFileConfig{}
	if err := json.Unmarshal([]byte(ret), raw); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config")
	}
	return raw, nil
}

// SetTolerance sets the throttle cross-check tolerance as a fraction
// in (0, 1).
func (c *Client) SetTolerance(t float64) (string, error) {
	return c.Put("/tolerance", strconv.FormatFloat(t, 'f', -1, 64))
}

// GetVersion returns the daemon version.
func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get daemon version")
	}
	var v string
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return "", fmt.Errorf("failed to unmarshal version: %w", err)
	}
	return v, nil
}
