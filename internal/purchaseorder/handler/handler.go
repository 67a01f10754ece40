package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stockops/inventory-service/internal/httperr"
	"github.com/stockops/inventory-service/internal/purchaseorder"
	"github.com/stockops/inventory-service/pkg/logger"
)

type PurchaseOrderHandler struct {
	uc     purchaseorder.UseCase
	logger logger.ZapLogger
}

func NewPurchaseOrderHandler(uc purchaseorder.UseCase, log logger.ZapLogger) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *PurchaseOrderHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/purchase-orders/:id", h.Get)
	rg.POST("/purchase-orders/:id/recompute", h.Recompute)
}

func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	po, err := h.uc.GetPurchaseOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, po)
}

// Recompute re-derives fulfillment status from item quantities. Normally the
// QC completion transaction does this; the endpoint exists for repair after
// out-of-band item edits.
func (h *PurchaseOrderHandler) Recompute(c *gin.Context) {
	po, err := h.uc.RecomputeStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, po)
}
