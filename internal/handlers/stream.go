// internal/handlers/stream.go
package handlers

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/javajoker/trade-registry/internal/events"
	"github.com/javajoker/trade-registry/internal/utils"
)

const streamHeartbeat = 25 * time.Second

type StreamHandler struct {
	hub     *events.Hub
	clients prometheus.Gauge
}

func NewStreamHandler(hub *events.Hub, clients prometheus.Gauge) *StreamHandler {
	return &StreamHandler{hub: hub, clients: clients}
}

// GET /stream
//
// Server-sent events carrying RequestCreated / RequestUpdated. Province
// users only receive events for their own province.
func (h *StreamHandler) Stream(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	scope := provinceScope(c, actor)

	ctx := c.Request.Context()
	ch := h.hub.Subscribe(ctx)
	if h.clients != nil {
		h.clients.Inc()
		defer h.clients.Dec()
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Unix())
			return true
		case evt, ok := <-ch:
			if !ok {
				return false
			}
			if scope != nil && evt.Request.ProvinceID != *scope {
				return true
			}
			c.SSEvent(string(evt.Kind), evt)
			return true
		}
	})
}
