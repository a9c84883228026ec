package handlers

import (
	"net/http"
	"strconv"

	"github.com/chaimanaouali/SmartCourses/internal/api/middleware"
	"github.com/chaimanaouali/SmartCourses/internal/db/repository"

	"github.com/gin-gonic/gin"
)

// IdentityHandler serves the registered-face inventory endpoints.
type IdentityHandler struct {
	repo repository.Repository
}

// NewIdentityHandler creates a new identity handler.
func NewIdentityHandler(repo repository.Repository) *IdentityHandler {
	return &IdentityHandler{repo: repo}
}

// RegisterRoutes registers the identity endpoints.
func (h *IdentityHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/identities", h.ListIdentities)
	router.GET("/identities/:id", h.GetIdentity)
	router.DELETE("/identities/:id/encoding", h.DeleteEncoding)
	router.PUT("/identities/:id/encoding-username", h.UpdateEncodingUsername)
	router.GET("/events", h.ListEvents)
}

type identityView struct {
	ID             uint   `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email,omitempty"`
	FaceRegistered bool   `json:"face_registered"`
	RegisteredAt   string `json:"registered_at,omitempty"`
}

// ListIdentities returns all users with their face registration state.
func (h *IdentityHandler) ListIdentities(c *gin.Context) {
	limit, offset := pagination(c)

	users, total, err := h.repo.GetUsers(limit, offset)
	if err != nil {
		errorResponse(c, err)
		return
	}

	views := make([]identityView, 0, len(users))
	for i := range users {
		u := &users[i]
		view := identityView{
			ID:             u.ID,
			Username:       u.Username,
			Email:          u.Email,
			FaceRegistered: len(u.Profile.FaceEncoding) > 0,
		}
		if u.Profile.RegisteredAt != nil {
			view.RegisteredAt = u.Profile.RegisteredAt.Format("2006-01-02T15:04:05Z07:00")
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{
		"identities": views,
		"total":      total,
		"limit":      limit,
		"offset":     offset,
	})
}

// GetIdentity returns a single user's registration state.
func (h *IdentityHandler) GetIdentity(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	user, err := h.repo.GetUserByID(id)
	if err != nil {
		errorResponse(c, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": middleware.Translate(c, "errors.user_not_found")})
		return
	}

	view := identityView{
		ID:             user.ID,
		Username:       user.Username,
		Email:          user.Email,
		FaceRegistered: len(user.Profile.FaceEncoding) > 0,
	}
	if user.Profile.RegisteredAt != nil {
		view.RegisteredAt = user.Profile.RegisteredAt.Format("2006-01-02T15:04:05Z07:00")
	}
	c.JSON(http.StatusOK, view)
}

// DeleteEncoding removes a user's registered face without deleting
// the user.
func (h *IdentityHandler) DeleteEncoding(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	user, err := h.repo.GetUserByID(id)
	if err != nil {
		errorResponse(c, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": middleware.Translate(c, "errors.user_not_found")})
		return
	}

	if err := h.repo.DeleteEncoding(id); err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": middleware.Translate(c, "face.encoding_deleted")})
}

// UpdateEncodingUsername rewrites the username stored inside a deep
// encoding after an account rename, so the classifier label keeps
// matching the stored record.
func (h *IdentityHandler) UpdateEncodingUsername(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var body struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	user, err := h.repo.GetUserByID(id)
	if err != nil {
		errorResponse(c, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": middleware.Translate(c, "errors.user_not_found")})
		return
	}

	if err := h.repo.UpdateEncodingUsername(id, body.Username); err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": middleware.Translate(c, "face.encoding_updated")})
}

// ListEvents returns recognition events newest-first.
func (h *IdentityHandler) ListEvents(c *gin.Context) {
	limit, offset := pagination(c)

	events, total, err := h.repo.GetEvents(limit, offset)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	return uint(id), err
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
