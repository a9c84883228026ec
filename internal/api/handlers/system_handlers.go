package handlers

import (
	"io"
	"net/http"

	"github.com/chaimanaouali/SmartCourses/internal/core/recognition"
	"github.com/chaimanaouali/SmartCourses/internal/db/repository"
	"github.com/chaimanaouali/SmartCourses/internal/server/sse"
	"github.com/chaimanaouali/SmartCourses/internal/utils"

	"github.com/gin-gonic/gin"
)

// SystemHandler serves the status and SSE stream endpoints.
type SystemHandler struct {
	repo    repository.Repository
	service *recognition.Service
	pool    *recognition.WorkerPool
	hub     *sse.Hub
}

// NewSystemHandler creates a new system handler.
func NewSystemHandler(repo repository.Repository, service *recognition.Service,
	pool *recognition.WorkerPool, hub *sse.Hub) *SystemHandler {
	return &SystemHandler{repo: repo, service: service, pool: pool, hub: hub}
}

// RegisterRoutes registers the system endpoints.
func (h *SystemHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/system/status", h.GetStatus)
	router.GET("/events/stream", h.StreamEvents)
}

// GetStatus reports host statistics, recognition counters and the
// active backend list.
func (h *SystemHandler) GetStatus(c *gin.Context) {
	stats, err := h.repo.GetStatistics()
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"system":     utils.GetSystemStats(h.pool),
		"statistics": stats,
		"backends":   h.service.Backends(),
	})
}

// StreamEvents subscribes the client to the SSE stream of recognition
// events. The connection stays open until the client disconnects.
func (h *SystemHandler) StreamEvents(c *gin.Context) {
	client := make(sse.Client, 10)
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case message, ok := <-client:
			if !ok {
				return false
			}
			c.SSEvent("recognition", string(message))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
