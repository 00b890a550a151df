package httpapi

import (
	"errors"
	"net/http"

	"whisperline/internal/calls"
	"whisperline/internal/ledger"
	"whisperline/internal/media"
	"whisperline/internal/payments"
	"whisperline/internal/users"
	"whisperline/pkg/logger"

	"github.com/gin-gonic/gin"
)

// writeError maps service errors onto HTTP statuses. Anything unmapped is
// a 500 with a generic body; the detail goes to the request log only.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, calls.ErrNotFound),
		errors.Is(err, users.ErrNotFound),
		errors.Is(err, ledger.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, calls.ErrPermissionDenied):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, calls.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrInsufficientFunds):
		c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{"error": "insufficient coins"})
	case errors.Is(err, calls.ErrInvalidState):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "invalid call state"})
	case errors.Is(err, calls.ErrUnavailable):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "whisper not available"})
	case errors.Is(err, calls.ErrCallInProgress):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "call already in progress"})
	case errors.Is(err, calls.ErrInvalidArgument),
		errors.Is(err, users.ErrInvalidArgument),
		errors.Is(err, ledger.ErrInvalidArgument),
		errors.Is(err, payments.ErrInvalidArgument),
		errors.Is(err, media.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid argument"})
	case errors.Is(err, media.ErrNotConfigured):
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "media provider not configured"})
	case errors.Is(err, payments.ErrPaymentProvider):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "payment provider error"})
	default:
		logger.FromGin(c).Error("internal error", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
