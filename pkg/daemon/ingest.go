package daemon

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.einride.tech/can"

	"github.com/torqlabs/vcu/pkg/canbus"
)

// runIngest pulls frames off the CAN bus and feeds raw samples into the
// sensor channels until the context is cancelled. The control loop never
// blocks on the bus: it only reads whatever the ingest goroutine has
// most recently stored.
func runIngest(ctx context.Context) {
	logrus.Debugln("can ingest starts")
	defer logrus.Debugln("can ingest stopped")

	for {
		frame, err := canBus.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logrus.WithError(err).Error("can receive failed")
			time.Sleep(100 * time.Millisecond)
			continue
		}

		dispatchFrame(frame)
	}
}

func dispatchFrame(f can.Frame) {
	switch f.ID {
	case canbus.ThrottleFrameID:
		v0, v1, err := canbus.DecodeThrottle(f)
		if err != nil {
			logrus.WithError(err).Debug("malformed throttle frame")
			return
		}
		throttleChans[0].SetRaw(v0)
		throttleChans[1].SetRaw(v1)

	case canbus.BrakeFrameID:
		v, err := canbus.DecodeBrake(f)
		if err != nil {
			logrus.WithError(err).Debug("malformed brake frame")
			return
		}
		brakeChan.SetRaw(v)

	case canbus.WheelFrameID:
		hz, err := canbus.DecodeWheelSpeeds(f)
		if err != nil {
			logrus.WithError(err).Debug("malformed wheel speed frame")
			return
		}
		for i := range wheelChans {
			wheelChans[i].SetRaw(hz[i])
		}

	default:
		// Frames for other nodes share the bus; ignore them.
	}
}
