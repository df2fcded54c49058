package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirphl/smm-panel/app/services"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

const sseHeartbeat = 25 * time.Second

type EventsHandler struct {
	bus       services.EventBus
	heartbeat time.Duration
	logger    *zap.Logger
}

func NewEventsHandler(bus services.EventBus, logger *zap.Logger) *EventsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventsHandler{bus: bus, heartbeat: sseHeartbeat, logger: logger}
}

// Stream pushes order and balance events to the caller as server-sent events
// @Summary Live Events
// @Tags Events
// @Produce text/event-stream
// @Security BearerAuth
// @Success 200 {string} string "event stream"
// @Router /api/v1/events [get]
func (h *EventsHandler) Stream(c fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return unauthorized(c, "MISSING_USER_ID")
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	events, cancel := h.bus.Subscribe(uid)
	logger := h.logger.With(zap.Uint("user_id", uid))

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()

		// the first flush commits the headers
		fmt.Fprint(w, ": connected\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case ev, open := <-events:
				if !open {
					return
				}
				data, err := json.Marshal(ev)
				if err != nil {
					logger.Warn("encode event failed", zap.String("type", ev.Type), zap.Error(err))
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			case <-ticker.C:
				fmt.Fprint(w, ": ping\n\n")
			}
			if err := w.Flush(); err != nil {
				logger.Debug("event stream closed", zap.Error(err))
				return
			}
		}
	})
}
