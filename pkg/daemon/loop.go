package daemon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/torqlabs/vcu/pkg/canbus"
	"github.com/torqlabs/vcu/pkg/events"
	"github.com/torqlabs/vcu/pkg/throttle"
	"github.com/torqlabs/vcu/pkg/types"
	"github.com/torqlabs/vcu/pkg/units"
)

var (
	// loopInnerLock serializes the control cycle against API handlers
	// that mutate the evaluator or calibration state.
	loopInnerLock = &sync.Mutex{}

	lastThrottleMu sync.RWMutex
	lastThrottle   types.ThrottleReport

	// prevFaults holds last cycle's faults so transitions (raised /
	// cleared) can be published exactly once.
	prevFaults []throttle.Fault

	loopCount uint64
)

// Telemetry is published every telemetryEveryN control cycles rather
// than every cycle: the loop runs at control-cycle rate (ms), while
// observers only need tens of Hz.
const telemetryEveryN = 10

func runControlLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		controlCycle(ctx)

		time.Sleep(conf.LoopInterval())
	}
}

// controlCycle is one pass of the periodic pipeline: advance the
// calibration machine, evaluate throttle plausibility, publish fault
// transitions, command torque, and emit telemetry.
func controlCycle(ctx context.Context) {
	loopInnerLock.Lock()
	defer loopInnerLock.Unlock()

	loopCount++

	finished, err := calibCtl.Observe()
	if finished {
		onCalibrationFinished(err)
	}

	res := evaluator.Evaluate()

	publishFaultTransitions(res.Faults)

	report := types.ThrottleReport{
		Value:   res.Value,
		Trusted: res.Trusted(),
		Faults:  res.Faults,
		Ts:      time.Now().Unix(),
	}
	setLastThrottle(report)

	if canBus != nil {
		frame := canbus.EncodeTorqueCommand(res.Value, canbus.FaultMask(res.Faults))
		if err := canBus.WriteFrame(ctx, frame); err != nil {
			logrus.WithError(err).Debug("torque command transmit failed")
		}
	}

	if loopCount%telemetryEveryN == 0 {
		publishTelemetry(report, speedReport())
	}
}

func onCalibrationFinished(err error) {
	if err != nil {
		logrus.WithError(err).Error("calibration commit rejected")
		sseHub.Publish(events.CalibrationPhase, events.CalibrationPhaseEvent{
			From:    "running",
			To:      "idle",
			Message: fmt.Sprintf("commit rejected: %v", err),
			Ts:      time.Now().Unix(),
		})
		return
	}

	logrus.Info("calibration committed")
	if err := persistCalibrationStore(conf.CalibrationStorePath(), throttleChans); err != nil {
		logrus.WithError(err).Error("failed to persist calibration store")
	}
	sseHub.Publish(events.CalibrationPhase, events.CalibrationPhaseEvent{
		From:    "running",
		To:      "idle",
		Message: "committed",
		Ts:      time.Now().Unix(),
	})
}

func faultKey(f throttle.Fault) string {
	return string(f.Kind) + "|" + f.Channel
}

// publishFaultTransitions compares this cycle's faults with the
// previous cycle's and publishes raised/cleared events for the
// difference. Persisting faults are not re-published every cycle.
func publishFaultTransitions(cur []throttle.Fault) {
	prev := make(map[string]throttle.Fault, len(prevFaults))
	for _, f := range prevFaults {
		prev[faultKey(f)] = f
	}
	seen := make(map[string]bool, len(cur))

	now := time.Now().Unix()
	for _, f := range cur {
		k := faultKey(f)
		seen[k] = true
		if _, ok := prev[k]; ok {
			continue
		}
		logrus.WithFields(logrus.Fields{
			"kind":    f.Kind,
			"channel": f.Channel,
		}).Warnf("throttle fault raised: %s", f)
		sseHub.Publish(events.ThrottleFaultRaised, events.ThrottleFaultEvent{
			Kind:    string(f.Kind),
			Channel: f.Channel,
			Delta:   f.Delta,
			Message: f.String(),
			Ts:      now,
		})
	}

	for k, f := range prev {
		if seen[k] {
			continue
		}
		logrus.WithFields(logrus.Fields{
			"kind":    f.Kind,
			"channel": f.Channel,
		}).Infof("throttle fault cleared: %s", f)
		sseHub.Publish(events.ThrottleFaultCleared, events.ThrottleFaultEvent{
			Kind:    string(f.Kind),
			Channel: f.Channel,
			Delta:   f.Delta,
			Message: f.String(),
			Ts:      now,
		})
	}

	prevFaults = cur
}

func setLastThrottle(r types.ThrottleReport) {
	lastThrottleMu.Lock()
	lastThrottle = r
	lastThrottleMu.Unlock()
}

func getLastThrottle() types.ThrottleReport {
	lastThrottleMu.RLock()
	defer lastThrottleMu.RUnlock()
	return lastThrottle
}

// speedReport converts each wheel channel's pulse frequency to RPM and
// averages the wheels into a vehicle speed. Wheels with no sample yet
// are excluded from the average.
func speedReport() types.SpeedReport {
	rep := types.SpeedReport{
		WheelRPM: make(map[string]float64, len(wheelChans)),
		Ts:       time.Now().Unix(),
	}

	var sum float64
	var n int
	for _, ch := range wheelChans {
		hz, ok := ch.Raw()
		if !ok {
			continue
		}
		rpm := units.FrequencyToRPM(hz, conf.WheelPulsesPerRev())
		rep.WheelRPM[ch.Name()] = rpm
		sum += rpm
		n++
	}

	if n > 0 {
		rep.VehicleMPH = units.RPMToMPH(sum/float64(n), conf.WheelDiameterInches())
	}

	return rep
}
