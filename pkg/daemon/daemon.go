// Package daemon runs the vehicle control unit: it owns the canonical
// sensor channel set, the periodic control cycle, the calibration
// controller, and the HTTP API on the unix socket.
package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/torqlabs/vcu/pkg/calibration"
	"github.com/torqlabs/vcu/pkg/canbus"
	"github.com/torqlabs/vcu/pkg/config"
	"github.com/torqlabs/vcu/pkg/events"
	"github.com/torqlabs/vcu/pkg/sensor"
	"github.com/torqlabs/vcu/pkg/throttle"
)

// Wheel speed sensors report pulse frequency; anything above this is
// electrically impossible for the tooth ring and treated as out of spec.
const maxWheelHz = 2000.0

// Channel names, also used as keys in the calibration store and
// telemetry payloads.
const (
	ChannelTPS0 = "tps0"
	ChannelTPS1 = "tps1"
	ChannelBPS0 = "bps0"
)

var wheelNames = [4]string{"wss_fl", "wss_fr", "wss_rl", "wss_rr"}

var (
	conf   config.Config
	sseHub *events.EventHub

	throttleChans []*sensor.Channel
	brakeChan     *sensor.Channel
	wheelChans    [4]*sensor.Channel

	evaluator *throttle.Evaluator
	calibCtl  *calibration.Controller

	// canBus is nil when no CAN interface is configured (bench mode:
	// samples only arrive via the HTTP test endpoints).
	canBus *canbus.Bus
)

// buildSensors creates the canonical channel set from the configured
// spec ranges and wires the evaluator and calibration controller over it.
// The channels live for the whole process; nothing ever destroys them.
func buildSensors() error {
	tMin, tMax := conf.ThrottleSpecRange()
	bMin, bMax := conf.BrakeSpecRange()

	tps0, err := sensor.NewChannel(ChannelTPS0, tMin, tMax)
	if err != nil {
		return err
	}
	tps1, err := sensor.NewChannel(ChannelTPS1, tMin, tMax)
	if err != nil {
		return err
	}
	throttleChans = []*sensor.Channel{tps0, tps1}

	brakeChan, err = sensor.NewChannel(ChannelBPS0, bMin, bMax)
	if err != nil {
		return err
	}

	for i, name := range wheelNames {
		wheelChans[i], err = sensor.NewChannel(name, 0, maxWheelHz)
		if err != nil {
			return err
		}
	}

	evaluator, err = throttle.NewEvaluator(throttleChans, conf.ThrottleTolerance(), conf.FailSafeValue())
	if err != nil {
		return err
	}

	calibCtl = calibration.NewController(throttleChans, conf.MinCalibrationSpan())
	return nil
}

// allChannels returns every channel for diagnostics endpoints.
func allChannels() []*sensor.Channel {
	chans := make([]*sensor.Channel, 0, 3+len(wheelChans))
	chans = append(chans, throttleChans...)
	chans = append(chans, brakeChan)
	chans = append(chans, wheelChans[:]...)
	return chans
}

func setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/throttle", getThrottle)
	router.GET("/channels", getChannels)
	router.GET("/speed", getSpeed)
	router.POST("/calibration", startCalibration)
	router.DELETE("/calibration", cancelCalibration)
	router.GET("/calibration", getCalibration)
	router.GET("/config", getConfig)
	router.PUT("/tolerance", setTolerance)
	router.GET("/events", getEvents)
	router.GET("/telemetry/live", getTelemetryLive)
	router.GET("/version", getVersion)

	return router
}

// Run starts the daemon and blocks until SIGINT/SIGTERM.
func Run(configPath string, unixSocketPath string, allowNonRoot bool) error {
	var err error
	conf, err = config.NewFile(configPath)
	if err != nil {
		logrus.Fatalf("failed to parse config during startup: %v", err)
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	if err := buildSensors(); err != nil {
		logrus.Fatalf("failed to build sensor set: %v", err)
	}

	sseHub = events.NewEventHub()

	if err := loadCalibrationStore(conf.CalibrationStorePath(), throttleChans); err != nil {
		logrus.WithError(err).Warn("could not load calibration store, channels start uncalibrated")
	}

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			if err := conf.Load(); err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			logrus.Infof("config reloaded")
		}
	}()

	router := setupRoutes()
	srv := &http.Server{
		Handler: router,
	}

	// Create the socket to listen on:
	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		logrus.Fatal(err)
	}

	if conf.AllowNonRootAccess() || allowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", unixSocketPath)
		if err := os.Chmod(unixSocketPath, 0777); err != nil {
			logrus.Fatal(err)
		}
	}

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if iface := conf.CANInterface(); iface != "" {
		canBus, err = canbus.Dial(ctx, iface)
		if err != nil {
			logrus.WithError(err).Errorf("failed to open CAN interface %s, running without bus", iface)
			canBus = nil
		} else {
			go runIngest(ctx)
		}
	} else {
		logrus.Warn("no CAN interface configured, running without bus")
	}

	setupTelemetry()

	go func() {
		logrus.Debugln("control loop starts")

		runControlLoop(ctx)

		logrus.Debugln("control loop stopped")
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	cancel()

	// Command zero torque on the way out so the MCU is never left holding
	// the last trusted value.
	if canBus != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
		frame := canbus.EncodeTorqueCommand(conf.FailSafeValue(), 0)
		if err := canBus.WriteFrame(shutdownCtx, frame); err != nil {
			logrus.WithError(err).Error("failed to transmit final zero-torque command")
		}
		shutdownCancel()
	}

	logrus.Info("shutting down http server")
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := srv.Shutdown(httpCtx); err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	httpCancel()

	stopTelemetry()

	if canBus != nil {
		logrus.Info("closing can bus")
		if err := canBus.Close(); err != nil {
			logrus.Errorf("failed to close can bus: %v", err)
		}
	}

	logrus.Info("exiting")
	return nil
}
