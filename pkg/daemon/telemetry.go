package daemon

import (
	"encoding/json"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/torqlabs/vcu/pkg/events"
	"github.com/torqlabs/vcu/pkg/types"
)

// MQTT topics carrying periodic telemetry.
const (
	topicThrottle = "vcu/throttle"
	topicSpeed    = "vcu/speed"
)

var mqttClient mqtt.Client

// setupTelemetry connects to the configured MQTT broker. Telemetry is
// optional: with no broker configured the daemon runs without it and
// publishTelemetry becomes a no-op.
func setupTelemetry() {
	broker := conf.MQTTBroker()
	if broker == "" {
		logrus.Debug("no mqtt broker configured, telemetry disabled")
		return
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("vcu-daemon").
		SetAutoReconnect(true).
		SetConnectRetry(true)
	opts.OnConnect = func(_ mqtt.Client) {
		logrus.Infof("connected to mqtt broker at %s", broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logrus.WithError(err).Warn("mqtt connection lost")
	}

	mqttClient = mqtt.NewClient(opts)
	// ConnectRetry keeps trying in the background; don't block startup
	// on an unreachable broker.
	mqttClient.Connect()
}

func stopTelemetry() {
	if mqttClient == nil {
		return
	}
	mqttClient.Disconnect(250)
	mqttClient = nil
}

// publishTelemetry fans a cycle's reports out to MQTT and to websocket
// subscribers via the event hub.
func publishTelemetry(throttleRep types.ThrottleReport, speedRep types.SpeedReport) {
	sseHub.Publish(events.TelemetryCycle, types.TelemetryFrame{
		Throttle: throttleRep,
		Speed:    speedRep,
	})

	if mqttClient == nil || !mqttClient.IsConnected() {
		return
	}

	if b, err := json.Marshal(throttleRep); err == nil {
		mqttClient.Publish(topicThrottle, 0, false, b)
	}
	if b, err := json.Marshal(speedRep); err == nil {
		mqttClient.Publish(topicSpeed, 0, false, b)
	}
}
