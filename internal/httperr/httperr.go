package httperr

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stockops/inventory-service/internal/apperr"
)

// Respond maps core error kinds onto HTTP statuses. Anything without a kind
// is an internal failure the client cannot fix.
func Respond(c *gin.Context, err error) {
	kind := apperr.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindInvalidStateTransition,
		apperr.KindInsufficientAvailable,
		apperr.KindInsufficientStock,
		apperr.KindPendingItemsRemain:
		status = http.StatusUnprocessableEntity
	}

	body := gin.H{"error": err.Error()}
	if kind != "" {
		body["kind"] = kind
	}
	c.JSON(status, body)
}
