package handlers

import (
	"errors"
	"log"
	"net/http"

	"newgenmusic/auth"
	"newgenmusic/media"
	"newgenmusic/middleware"
	"newgenmusic/posts"

	"github.com/gin-gonic/gin"
)

// writeError writes the JSON error envelope every endpoint uses.
func writeError(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": kind, "message": message})
}

// handleServiceError maps service errors to HTTP responses
func handleServiceError(c *gin.Context, op string, err error) {
	switch {
	case posts.IsValidationError(err):
		writeError(c, http.StatusBadRequest, "validation", err.Error())

	case errors.Is(err, posts.ErrUnauthorized):
		writeError(c, http.StatusUnauthorized, "unauthorized", "Authentication required")

	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(c, http.StatusUnauthorized, "invalid_credentials", auth.ErrInvalidCredentials.Error())

	case errors.Is(err, auth.ErrForbidden):
		writeError(c, http.StatusForbidden, "forbidden", "Admin access required")

	case errors.Is(err, posts.ErrNotFound):
		writeError(c, http.StatusNotFound, "not_found", "Post not found")

	case errors.Is(err, media.ErrUploadFailed):
		log.Printf("[%s] %s: %v", op, middleware.RequestIDFrom(c), err)
		writeError(c, http.StatusBadGateway, "upload_failed", "Media upload failed")

	default:
		// Don't leak internal error details to clients
		log.Printf("[%s] %s: unexpected error: %v", op, middleware.RequestIDFrom(c), err)
		writeError(c, http.StatusInternalServerError, "internal", "An internal error occurred")
	}
}
