package handlers

import (
	"errors"
	"net/http"

	"github.com/chaimanaouali/SmartCourses/internal/api/middleware"
	"github.com/chaimanaouali/SmartCourses/internal/core/recognition"

	"github.com/gin-gonic/gin"
)

// errorResponse maps a recognition error onto an HTTP status and a
// localized message key, so every endpoint reports the taxonomy the
// same way.
func errorResponse(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	key := "errors.internal"

	switch {
	case errors.Is(err, recognition.ErrEmptyImage):
		status, key = http.StatusBadRequest, "errors.empty_image"
	case errors.Is(err, recognition.ErrCorruptImage):
		status, key = http.StatusBadRequest, "errors.corrupt_image"
	case errors.Is(err, recognition.ErrUnsupportedInput):
		status, key = http.StatusBadRequest, "errors.unsupported_input"
	case errors.Is(err, recognition.ErrNoFaceDetected):
		status, key = http.StatusUnprocessableEntity, "errors.no_face"
	case errors.Is(err, recognition.ErrMultipleFaces):
		status, key = http.StatusUnprocessableEntity, "errors.multiple_faces"
	case errors.Is(err, recognition.ErrNoBackendAvailable), errors.Is(err, recognition.ErrModelUnavailable):
		status, key = http.StatusServiceUnavailable, "errors.no_backend"
	case errors.Is(err, recognition.ErrNoStoredEncodings):
		status, key = http.StatusConflict, "errors.no_encodings"
	}

	c.JSON(status, gin.H{
		"error":   middleware.Translate(c, key),
		"details": err.Error(),
	})
}
