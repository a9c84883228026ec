package handlers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/chaimanaouali/SmartCourses/config"
	"github.com/chaimanaouali/SmartCourses/internal/api/middleware"
	"github.com/chaimanaouali/SmartCourses/internal/core/models"
	"github.com/chaimanaouali/SmartCourses/internal/core/recognition"
	"github.com/chaimanaouali/SmartCourses/internal/db/repository"
	"github.com/chaimanaouali/SmartCourses/internal/integrations/camera"
	"github.com/chaimanaouali/SmartCourses/internal/integrations/mqtt"
	"github.com/chaimanaouali/SmartCourses/internal/server/sse"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// CameraHandler serves the live camera session and snapshot endpoints.
type CameraHandler struct {
	cfg       *config.Config
	repo      repository.Repository
	manager   *camera.Manager
	hub       *sse.Hub
	publisher *mqtt.Client
}

// NewCameraHandler creates a new camera handler.
func NewCameraHandler(cfg *config.Config, repo repository.Repository, manager *camera.Manager,
	hub *sse.Hub, publisher *mqtt.Client) *CameraHandler {
	return &CameraHandler{
		cfg:       cfg,
		repo:      repo,
		manager:   manager,
		hub:       hub,
		publisher: publisher,
	}
}

// RegisterRoutes registers the camera endpoints.
func (h *CameraHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/camera/live/start", h.StartLive)
	router.POST("/camera/live/stop", h.StopLive)
	router.GET("/camera/live", h.LiveStatus)
	router.POST("/camera/capture", h.Capture)
}

// StartLive begins a live recognition session on the capture device.
func (h *CameraHandler) StartLive(c *gin.Context) {
	sessionID, err := h.manager.Start(h.onFrame)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":   middleware.Translate(c, "camera.session_conflict"),
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    middleware.Translate(c, "camera.session_started"),
		"session_id": sessionID,
	})
}

// StopLive ends the live session identified by the session_id query
// parameter or JSON field.
func (h *CameraHandler) StopLive(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		var body struct {
			SessionID string `json:"session_id"`
		}
		if err := c.ShouldBindJSON(&body); err == nil {
			sessionID = body.SessionID
		}
	}

	if err := h.manager.Stop(sessionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   middleware.Translate(c, "camera.session_unknown"),
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": middleware.Translate(c, "camera.session_stopped")})
}

// LiveStatus reports whether a live session is running.
func (h *CameraHandler) LiveStatus(c *gin.Context) {
	sessionID, active := h.manager.Active()
	resp := gin.H{"active": active}
	if active {
		resp["session_id"] = sessionID
	}
	c.JSON(http.StatusOK, resp)
}

// Capture grabs a single frame, stores it in the snapshot directory
// and returns both the served URL and an inline data URI.
func (h *CameraHandler) Capture(c *gin.Context) {
	data, err := h.manager.Snapshot()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   middleware.Translate(c, "camera.capture_failed"),
			"details": err.Error(),
		})
		return
	}

	filename := fmt.Sprintf("%s_%s.jpg", time.Now().Format("20060102_150405"), uuid.New().String()[:8])
	fullPath := filepath.Join(h.cfg.Server.SnapshotDir, filename)
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		log.WithError(err).Warn("Failed to store captured snapshot")
		filename = ""
	}

	resp := gin.H{
		"image": "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data),
	}
	if filename != "" {
		resp["snapshot_url"] = h.cfg.Server.SnapshotURL + "/" + filename
	}
	c.JSON(http.StatusOK, resp)
}

// onFrame handles each live recognition pass: matched results get a
// snapshot file and everything is persisted and broadcast.
func (h *CameraHandler) onFrame(result *recognition.Result, err error) {
	if err != nil {
		log.WithError(err).Debug("Live recognition pass failed")
		return
	}

	event := &models.RecognitionEvent{
		Timestamp:   time.Now(),
		Source:      "camera",
		Backend:     result.Backend,
		MatchedUser: result.Username,
		Confidence:  result.Confidence,
	}

	if result.Matched {
		if path, err := h.saveSnapshot(); err != nil {
			log.WithError(err).Warn("Failed to save snapshot for camera match")
		} else {
			event.SnapshotPath = path
		}
	}

	if err := h.repo.SaveEvent(event); err != nil {
		log.Errorf("Failed to persist camera recognition event: %v", err)
	}

	if h.hub != nil {
		h.hub.BroadcastRecognition("camera", result)
	}
	if h.publisher != nil {
		h.publisher.PublishRecognition("camera", result)
	}
}

// saveSnapshot writes the current camera frame into the snapshot
// directory and returns the stored file's relative path.
func (h *CameraHandler) saveSnapshot() (string, error) {
	data, err := h.manager.Snapshot()
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%s_%s.jpg", time.Now().Format("20060102_150405"), uuid.New().String()[:8])
	fullPath := filepath.Join(h.cfg.Server.SnapshotDir, filename)
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", err
	}
	return filename, nil
}
