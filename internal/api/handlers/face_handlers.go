package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/chaimanaouali/SmartCourses/config"
	"github.com/chaimanaouali/SmartCourses/internal/api/middleware"
	"github.com/chaimanaouali/SmartCourses/internal/core/models"
	"github.com/chaimanaouali/SmartCourses/internal/core/recognition"
	"github.com/chaimanaouali/SmartCourses/internal/db/repository"
	"github.com/chaimanaouali/SmartCourses/internal/integrations/mqtt"
	"github.com/chaimanaouali/SmartCourses/internal/server/sse"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// FaceHandler serves the face registration, recognition and login
// endpoints.
type FaceHandler struct {
	cfg       *config.Config
	repo      repository.Repository
	service   *recognition.Service
	pool      *recognition.WorkerPool
	hub       *sse.Hub
	publisher *mqtt.Client
}

// NewFaceHandler creates a new face handler.
func NewFaceHandler(cfg *config.Config, repo repository.Repository, service *recognition.Service,
	pool *recognition.WorkerPool, hub *sse.Hub, publisher *mqtt.Client) *FaceHandler {
	return &FaceHandler{
		cfg:       cfg,
		repo:      repo,
		service:   service,
		pool:      pool,
		hub:       hub,
		publisher: publisher,
	}
}

// RegisterRoutes registers the face endpoints.
func (h *FaceHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/face/register", h.RegisterFace)
	router.POST("/face/recognize", h.RecognizeFace)
	router.POST("/face/login", h.FaceLogin)
	router.POST("/face/engagement", h.DetectEngagement)
}

// imagePayload is the JSON alternative to a multipart upload: the
// image arrives as a base64 data URI, the way browser camera captures
// submit frames.
type imagePayload struct {
	Image    string `json:"image" binding:"required"`
	Username string `json:"username"`
}

// imageFromRequest extracts the image input from either a multipart
// "file" field or a JSON body with a data-URI "image" field. The
// returned value feeds the recognition service's decoder directly.
func imageFromRequest(c *gin.Context) (interface{}, string, error) {
	if file, _, err := c.Request.FormFile("file"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, "", err
		}
		return data, c.PostForm("username"), nil
	}

	var payload imagePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		return nil, "", recognition.ErrUnsupportedInput
	}
	return payload.Image, payload.Username, nil
}

// RegisterFace stores the face from the uploaded image against the
// named user, creating the user on first registration.
func (h *FaceHandler) RegisterFace(c *gin.Context) {
	input, username, err := imageFromRequest(c)
	if err != nil {
		errorResponse(c, err)
		return
	}
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	user, err := h.repo.GetUserByUsername(username)
	if err != nil {
		errorResponse(c, err)
		return
	}
	if user == nil {
		user = &models.User{Username: username}
		if err := h.repo.SaveUser(user); err != nil {
			errorResponse(c, err)
			return
		}
		log.Infof("Created new user '%s' during face registration", username)
	}

	enc, err := h.service.RegisterFace(input, user.ID, username)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  middleware.Translate(c, "face.registered"),
		"username": username,
		"model":    enc.Model,
	})
}

// RecognizeFace runs the uploaded image through the cascade and
// records the attempt as a recognition event.
func (h *FaceHandler) RecognizeFace(c *gin.Context) {
	input, _, err := imageFromRequest(c)
	if err != nil {
		errorResponse(c, err)
		return
	}

	result, err := h.recognize(c.Request.Context(), input, "upload")
	if err != nil {
		errorResponse(c, err)
		return
	}

	h.respondResult(c, result)
}

// FaceLogin recognizes the submitted image and, on a match, binds the
// matched user to the session.
func (h *FaceHandler) FaceLogin(c *gin.Context) {
	input, _, err := imageFromRequest(c)
	if err != nil {
		errorResponse(c, err)
		return
	}

	result, err := h.recognize(c.Request.Context(), input, "login")
	if err != nil {
		errorResponse(c, err)
		return
	}

	if !result.Matched {
		c.JSON(http.StatusUnauthorized, gin.H{
			"message": middleware.Translate(c, "face.login_failed"),
			"matched": false,
		})
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", result.UserID)
	session.Set("username", result.Username)
	if err := session.Save(); err != nil {
		log.Errorf("Failed to save session after face login: %v", err)
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    middleware.Translate(c, "face.login_success"),
		"matched":    true,
		"username":   result.Username,
		"confidence": result.Confidence,
		"backend":    result.Backend,
	})
}

// DetectEngagement reports face presence without touching identities.
func (h *FaceHandler) DetectEngagement(c *gin.Context) {
	input, _, err := imageFromRequest(c)
	if err != nil {
		errorResponse(c, err)
		return
	}

	engagement, err := h.service.DetectEngagement(input)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, engagement)
}

// recognize runs a recognition pass through the worker pool, persists
// the event and notifies SSE and MQTT subscribers. Notification
// failures never affect the returned result.
func (h *FaceHandler) recognize(ctx context.Context, input interface{}, source string) (*recognition.Result, error) {
	result, err := h.pool.Recognize(ctx, input, source)
	if err != nil {
		return nil, err
	}

	event := &models.RecognitionEvent{
		Timestamp:   time.Now(),
		Source:      source,
		Backend:     result.Backend,
		MatchedUser: result.Username,
		Confidence:  result.Confidence,
	}
	if err := h.repo.SaveEvent(event); err != nil {
		log.Errorf("Failed to persist recognition event: %v", err)
	}

	if h.hub != nil {
		h.hub.BroadcastRecognition(source, result)
	}
	if h.publisher != nil {
		h.publisher.PublishRecognition(source, result)
	}
	return result, nil
}

func (h *FaceHandler) respondResult(c *gin.Context, result *recognition.Result) {
	if !result.Matched {
		c.JSON(http.StatusOK, gin.H{
			"message": middleware.Translate(c, "face.not_recognized"),
			"matched": false,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    middleware.Translate(c, "face.recognized"),
		"matched":    true,
		"username":   result.Username,
		"confidence": result.Confidence,
		"backend":    result.Backend,
	})
}
