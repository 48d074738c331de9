package daemon

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/torqlabs/vcu/pkg/calibration"
	"github.com/torqlabs/vcu/pkg/config"
	"github.com/torqlabs/vcu/pkg/events"
	"github.com/torqlabs/vcu/pkg/sensor"
	"github.com/torqlabs/vcu/pkg/throttle"
	"github.com/torqlabs/vcu/pkg/types"
	"github.com/torqlabs/vcu/pkg/version"
)

func getThrottle(c *gin.Context) {
	rep := getLastThrottle()
	if rep.Ts == 0 {
		// No control cycle has run yet, evaluate on demand.
		loopInnerLock.Lock()
		res := evaluator.Evaluate()
		loopInnerLock.Unlock()
		rep = types.ThrottleReport{
			Value:   res.Value,
			Trusted: res.Trusted(),
			Faults:  res.Faults,
			Ts:      time.Now().Unix(),
		}
	}
	if rep.Faults == nil {
		rep.Faults = []throttle.Fault{}
	}
	c.IndentedJSON(http.StatusOK, rep)
}

func getChannels(c *gin.Context) {
	chans := allChannels()
	rep := types.ChannelsReport{Channels: make([]sensor.Snapshot, 0, len(chans))}
	for _, ch := range chans {
		rep.Channels = append(rep.Channels, ch.Snapshot())
	}
	c.IndentedJSON(http.StatusOK, rep)
}

func getSpeed(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, speedReport())
}

type startCalibrationRequest struct {
	// Seconds is the run duration; zero means the configured default.
	Seconds int `json:"seconds"`
}

func startCalibration(c *gin.Context) {
	var req startCalibrationRequest
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&req); err != nil {
			c.AbortWithError(http.StatusBadRequest, err)
			return
		}
	}

	if req.Seconds < 0 {
		err := fmt.Errorf("calibration duration must be non-negative, got %d", req.Seconds)
		c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	duration := conf.DefaultCalibrationDuration()
	if req.Seconds > 0 {
		duration = time.Duration(req.Seconds) * time.Second
	}

	loopInnerLock.Lock()
	err := calibCtl.Start(duration)
	loopInnerLock.Unlock()
	if err != nil {
		c.AbortWithError(http.StatusConflict, err)
		return
	}

	sseHub.Publish(events.CalibrationPhase, events.CalibrationPhaseEvent{
		From:    "idle",
		To:      "running",
		Message: fmt.Sprintf("calibration started for %s", duration),
		Ts:      time.Now().Unix(),
	})

	// Immediate single cycle, to avoid waiting for the next loop
	controlCycle(context.Background())

	logrus.Infof("calibration started for %s", duration)
	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("calibration started for %s", duration))
}

func cancelCalibration(c *gin.Context) {
	loopInnerLock.Lock()
	err := calibCtl.Cancel()
	loopInnerLock.Unlock()
	if err != nil {
		c.AbortWithError(http.StatusConflict, err)
		return
	}

	sseHub.Publish(events.CalibrationPhase, events.CalibrationPhaseEvent{
		From:    "running",
		To:      "idle",
		Message: "cancelled, previous calibration restored",
		Ts:      time.Now().Unix(),
	})

	// Immediate single cycle, to avoid waiting for the next loop
	controlCycle(context.Background())

	logrus.Info("calibration cancelled")
	c.IndentedJSON(http.StatusOK, "calibration cancelled, previous calibration restored")
}

func getCalibration(c *gin.Context) {
	var st calibration.Status
	loopInnerLock.Lock()
	st = calibCtl.Status()
	loopInnerLock.Unlock()
	c.IndentedJSON(http.StatusOK, st)
}

func getConfig(c *gin.Context) {
	raw, err := config.NewRawFileConfigFromConfig(conf)
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, raw)
}

func setTolerance(c *gin.Context) {
	var t float64
	if err := c.BindJSON(&t); err != nil {
		c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if t <= 0 || t >= 1 {
		err := fmt.Errorf("tolerance must be between 0 and 1 exclusive, got %v", t)
		c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	loopInnerLock.Lock()
	conf.SetThrottleTolerance(t)
	ev, err := throttle.NewEvaluator(throttleChans, t, conf.FailSafeValue())
	if err == nil {
		evaluator = ev
	}
	loopInnerLock.Unlock()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if err := conf.Save(); err != nil {
		logrus.Errorf("saving config failed: %v", err)
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// Immediate single cycle, to avoid waiting for the next loop
	controlCycle(context.Background())

	logrus.Infof("set throttle tolerance to %v", t)
	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set throttle tolerance to %v", t))
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

// getEvents streams daemon events (fault transitions, calibration phase
// changes) as server-sent events until the client disconnects.
func getEvents(c *gin.Context) {
	sub := sseHub.Subscribe()
	defer sseHub.Unsubscribe(sub)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-sub:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
