package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/feedbackd/internal/common"
	"github.com/gin-gonic/gin"
)

type messageResponse struct {
	Message string `json:"message"`
}

func abortWithMessage(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, messageResponse{Message: msg})
}

// writeError maps a service error onto a status and a client-safe message.
// Anything unrecognised is logged and reported as a 500.
func (s *HTTPServer) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrAlreadyExists):
		abortWithMessage(c, http.StatusBadRequest, "User already exists")
	case errors.Is(err, common.ErrInvalidCredentials):
		abortWithMessage(c, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, common.ErrNotFound):
		abortWithMessage(c, http.StatusNotFound, "Feedback not found")
	case errors.Is(err, common.ErrInvalidIdentifier):
		abortWithMessage(c, http.StatusBadRequest, "Invalid feedback id")
	case errors.Is(err, common.ErrVideoNotFound):
		abortWithMessage(c, http.StatusBadRequest, "Video file not found")
	case errors.Is(err, common.ErrAudioNotFound):
		abortWithMessage(c, http.StatusBadRequest, "Audio file not found")
	case isTooLarge(err):
		abortWithMessage(c, http.StatusRequestEntityTooLarge, "Request body too large")
	default:
		s.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		abortWithMessage(c, http.StatusInternalServerError, "Internal server error")
	}
}
