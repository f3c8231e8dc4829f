package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shopcore/internal/domain"
)

// fail translates domain errors into HTTP responses. Stock and
// transition conflicts map to 409 with a structured body so clients can
// render the reason; corrupted-state errors are logged and hidden.
func (h *handlers) fail(c *gin.Context, err error) {
	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":     "insufficient_stock",
			"productId": stockErr.ProductID,
			"requested": stockErr.Requested,
			"available": stockErr.Available,
		})
		return
	}

	var transitionErr *domain.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":     "invalid_transition",
			"orderId":   transitionErr.OrderID,
			"operation": transitionErr.Operation,
			"current":   transitionErr.Current,
		})
		return
	}

	var stateErr *domain.InvalidStateError
	if errors.As(err, &stateErr) {
		h.logger.Printf("[http] invalid state: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
