package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yourusername/trackhound/internal/app"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// EventsHandler streams the typed engine events over a WebSocket so external
// observers (UIs, progress views) can re-pull snapshots as items transition.
type EventsHandler struct {
	bus    *app.Bus
	logger *zap.Logger
}

// NewEventsHandler creates a new events WebSocket handler
func NewEventsHandler(bus *app.Bus, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{bus: bus, logger: logger}
}

// eventEnvelope tags the concrete event variant for wire consumers.
type eventEnvelope struct {
	Type    string    `json:"type"`
	Payload app.Event `json:"payload"`
}

// HandleWebSocket handles GET /api/v1/events
func (h *EventsHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()

	h.logger.Info("Events client connected",
		zap.String("remote_addr", c.Request.RemoteAddr))

	// Drain reads so close frames are processed; the stream is write-only.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-done:
			h.logger.Info("Events client disconnected",
				zap.String("remote_addr", c.Request.RemoteAddr))
			return
		case <-ping.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(eventEnvelope{Type: eventType(evt), Payload: evt}); err != nil {
				h.logger.Debug("Failed to write event", zap.Error(err))
				return
			}
		}
	}
}

func eventType(evt app.Event) string {
	switch evt.(type) {
	case app.ItemStateChanged:
		return "item_state_changed"
	case app.JobProgressChanged:
		return "job_progress_changed"
	case app.SearchProgress:
		return "search_progress"
	default:
		return "unknown"
	}
}
