package handler

import (
	"errors"
	"net/http"

	"invoicing-backend/internal/apperr"

	"github.com/gin-gonic/gin"
)

// respondError maps the service error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var (
		verr *apperr.ValidationError
		cerr *apperr.ConflictError
		derr *apperr.DependencyNotReadyError
		uerr *apperr.UpstreamError
		perr *apperr.PartialFailureError
	)

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Error(), "fields": verr.Fields})
	case errors.As(err, &cerr):
		c.JSON(http.StatusConflict, gin.H{"error": cerr.Error()})
	case errors.As(err, &derr):
		c.Header("Retry-After", "2")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": derr.Error()})
	case errors.As(err, &perr):
		c.Header("Retry-After", "2")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": perr.Error(), "resource_id": perr.ResourceID})
	case errors.As(err, &uerr):
		c.JSON(http.StatusBadGateway, gin.H{"error": uerr.Error(), "processor_message": uerr.Message})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
