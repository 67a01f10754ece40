package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stockops/inventory-service/internal/auth"
	"github.com/stockops/inventory-service/internal/httperr"
	"github.com/stockops/inventory-service/internal/model"
	"github.com/stockops/inventory-service/internal/qualitycontrol"
	"github.com/stockops/inventory-service/internal/qualitycontrol/dto"
	"github.com/stockops/inventory-service/pkg/logger"
)

type QualityControlHandler struct {
	uc     qualitycontrol.UseCase
	logger logger.ZapLogger
}

func NewQualityControlHandler(uc qualitycontrol.UseCase, log logger.ZapLogger) *QualityControlHandler {
	return &QualityControlHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *QualityControlHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/qc", h.Create)
	rg.GET("/qc", h.List)
	rg.GET("/qc/:id", h.Get)
	rg.POST("/qc/:id/begin", h.Begin)
	rg.POST("/qc/:id/items", h.UpdateItems)
	rg.POST("/qc/:id/complete", h.Complete)
	rg.POST("/qc/:id/cancel", h.Cancel)
}

type createQCRequest struct {
	Type            string                `json:"type" binding:"required,oneof=RECEIVING RETURN RANDOM COMPLAINT"`
	WarehouseID     string                `json:"warehouse_id" binding:"required"`
	PurchaseOrderID *string               `json:"purchase_order_id"`
	ReturnID        *string               `json:"return_id"`
	Notes           string                `json:"notes"`
	Items           []createQCItemRequest `json:"items" binding:"required,min=1,dive"`
}

type createQCItemRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	Quantity  float64 `json:"quantity" binding:"required,gt=0"`
}

func (h *QualityControlHandler) Create(c *gin.Context) {
	var req createQCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := auth.ActorFromContext(c.Request.Context())
	input := &dto.CreateQCInput{
		Type:            model.QCType(req.Type),
		WarehouseID:     req.WarehouseID,
		PurchaseOrderID: req.PurchaseOrderID,
		ReturnID:        req.ReturnID,
		Notes:           req.Notes,
		ActorID:         actor.UserID,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, dto.CreateQCItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	qc, err := h.uc.CreateQualityControl(c.Request.Context(), input)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, qc)
}

func (h *QualityControlHandler) Get(c *gin.Context) {
	qc, err := h.uc.GetQualityControl(c.Request.Context(), c.Param("id"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, qc)
}

func (h *QualityControlHandler) List(c *gin.Context) {
	filters := &dto.QCFilters{
		Status:      c.Query("status"),
		Type:        c.Query("type"),
		WarehouseID: c.Query("warehouse_id"),
		Page:        queryInt(c, "page", 1),
		PageSize:    queryInt(c, "page_size", 20),
	}

	items, total, err := h.uc.ListQualityControls(c.Request.Context(), filters)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

func (h *QualityControlHandler) Begin(c *gin.Context) {
	actor := auth.ActorFromContext(c.Request.Context())
	qc, err := h.uc.BeginInspection(c.Request.Context(), c.Param("id"), actor.UserID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, qc)
}

type updateItemsRequest struct {
	Items []itemDispositionRequest `json:"items" binding:"required,min=1,dive"`
}

type itemDispositionRequest struct {
	ItemID          string  `json:"item_id" binding:"required"`
	PassedQuantity  float64 `json:"passed_quantity" binding:"min=0"`
	FailedQuantity  float64 `json:"failed_quantity" binding:"min=0"`
	PendingQuantity float64 `json:"pending_quantity" binding:"min=0"`
	Action          *string `json:"action" binding:"omitempty,oneof=ACCEPT REJECT RETURN_TO_SUPPLIER"`
	Notes           string  `json:"notes"`
}

func (h *QualityControlHandler) UpdateItems(c *gin.Context) {
	var req updateItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := auth.ActorFromContext(c.Request.Context())
	input := &dto.UpdateQCItemsInput{
		QCID:    c.Param("id"),
		ActorID: actor.UserID,
	}
	for _, item := range req.Items {
		line := dto.QCItemDisposition{
			ItemID:          item.ItemID,
			PassedQuantity:  item.PassedQuantity,
			FailedQuantity:  item.FailedQuantity,
			PendingQuantity: item.PendingQuantity,
			Notes:           item.Notes,
		}
		if item.Action != nil {
			action := model.QCAction(*item.Action)
			line.Action = &action
		}
		input.Items = append(input.Items, line)
	}

	qc, err := h.uc.UpdateItems(c.Request.Context(), input)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, qc)
}

func (h *QualityControlHandler) Complete(c *gin.Context) {
	actor := auth.ActorFromContext(c.Request.Context())
	qc, err := h.uc.CompleteQualityControl(c.Request.Context(), c.Param("id"), actor.UserID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, qc)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *QualityControlHandler) Cancel(c *gin.Context) {
	var req cancelRequest
	_ = c.ShouldBindJSON(&req)

	actor := auth.ActorFromContext(c.Request.Context())
	qc, err := h.uc.CancelQualityControl(c.Request.Context(), c.Param("id"), actor.UserID, req.Reason)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, qc)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}
