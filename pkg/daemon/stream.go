package daemon

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/torqlabs/vcu/pkg/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Served on a local unix socket only.
		return true
	},
}

// getTelemetryLive upgrades to a websocket and forwards telemetry
// frames from the event hub until the client goes away.
func getTelemetryLive(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer ws.Close()

	sub := sseHub.Subscribe()
	defer sseHub.Unsubscribe(sub)

	// Drain client reads so close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logrus.WithError(err).Debug("websocket read failed")
				}
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if ev.Name != events.TelemetryCycle {
				continue
			}
			if err := ws.WriteMessage(websocket.TextMessage, ev.Data); err != nil {
				logrus.WithError(err).Debug("websocket write failed")
				return
			}
		}
	}
}
