package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stockops/inventory-service/internal/auth"
	"github.com/stockops/inventory-service/internal/httperr"
	"github.com/stockops/inventory-service/internal/model"
	"github.com/stockops/inventory-service/internal/transfer"
	"github.com/stockops/inventory-service/internal/transfer/dto"
	"github.com/stockops/inventory-service/pkg/logger"
)

type TransferHandler struct {
	uc     transfer.UseCase
	logger logger.ZapLogger
}

func NewTransferHandler(uc transfer.UseCase, log logger.ZapLogger) *TransferHandler {
	return &TransferHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *TransferHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/transfers", h.Create)
	rg.GET("/transfers", h.List)
	rg.GET("/transfers/:id", h.Get)
	rg.POST("/transfers/:id/submit", h.Submit)
	rg.POST("/transfers/:id/approve", h.Approve)
	rg.POST("/transfers/:id/reject", h.Reject)
	rg.POST("/transfers/:id/cancel", h.Cancel)
	rg.POST("/transfers/:id/ship", h.Ship)
	rg.POST("/transfers/:id/receive", h.Receive)
}

type createTransferRequest struct {
	SourceLocationID        string                      `json:"source_location_id" binding:"required"`
	SourceLocationType      string                      `json:"source_location_type" binding:"required,oneof=WAREHOUSE STORE"`
	DestinationLocationID   string                      `json:"destination_location_id" binding:"required"`
	DestinationLocationType string                      `json:"destination_location_type" binding:"required,oneof=WAREHOUSE STORE"`
	Items                   []createTransferItemRequest `json:"items" binding:"required,min=1,dive"`
}

type createTransferItemRequest struct {
	ProductID         string  `json:"product_id" binding:"required"`
	Quantity          float64 `json:"quantity" binding:"required,gt=0"`
	TargetCostPrice   float64 `json:"target_cost_price"`
	TargetRetailPrice float64 `json:"target_retail_price"`
	BinID             *string `json:"bin_id"`
}

func (h *TransferHandler) Create(c *gin.Context) {
	var req createTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := auth.ActorFromContext(c.Request.Context())
	input := &dto.CreateTransferInput{
		SourceLocationID:        req.SourceLocationID,
		SourceLocationType:      model.LocationType(req.SourceLocationType),
		DestinationLocationID:   req.DestinationLocationID,
		DestinationLocationType: model.LocationType(req.DestinationLocationType),
		ActorID:                 actor.UserID,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, dto.CreateTransferItem{
			ProductID:         item.ProductID,
			Quantity:          item.Quantity,
			TargetCostPrice:   item.TargetCostPrice,
			TargetRetailPrice: item.TargetRetailPrice,
			BinID:             item.BinID,
		})
	}

	t, err := h.uc.CreateTransfer(c.Request.Context(), input)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *TransferHandler) Get(c *gin.Context) {
	t, err := h.uc.GetTransfer(c.Request.Context(), c.Param("id"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TransferHandler) List(c *gin.Context) {
	filters := &dto.TransferFilters{
		Status:                c.Query("status"),
		SourceLocationID:      c.Query("source_location_id"),
		DestinationLocationID: c.Query("destination_location_id"),
		Page:                  queryInt(c, "page", 1),
		PageSize:              queryInt(c, "page_size", 20),
	}

	items, total, err := h.uc.ListTransfers(c.Request.Context(), filters)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

func (h *TransferHandler) Submit(c *gin.Context) {
	actor := auth.ActorFromContext(c.Request.Context())
	t, err := h.uc.SubmitTransfer(c.Request.Context(), c.Param("id"), actor.UserID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TransferHandler) Approve(c *gin.Context) {
	actor := auth.ActorFromContext(c.Request.Context())
	t, err := h.uc.ReserveTransfer(c.Request.Context(), c.Param("id"), actor.UserID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *TransferHandler) Reject(c *gin.Context) {
	var req reasonRequest
	_ = c.ShouldBindJSON(&req)

	actor := auth.ActorFromContext(c.Request.Context())
	t, err := h.uc.RejectTransfer(c.Request.Context(), c.Param("id"), actor.UserID, req.Reason)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TransferHandler) Cancel(c *gin.Context) {
	var req reasonRequest
	_ = c.ShouldBindJSON(&req)

	actor := auth.ActorFromContext(c.Request.Context())
	t, err := h.uc.CancelTransfer(c.Request.Context(), c.Param("id"), actor.UserID, req.Reason)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TransferHandler) Ship(c *gin.Context) {
	actor := auth.ActorFromContext(c.Request.Context())
	t, err := h.uc.ShipTransfer(c.Request.Context(), c.Param("id"), actor.UserID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type receiveRequest struct {
	Items []receiveLineRequest `json:"items" binding:"required,min=1,dive"`
}

type receiveLineRequest struct {
	TransferItemID   string  `json:"transfer_item_id" binding:"required"`
	ReceivedQuantity float64 `json:"received_quantity" binding:"min=0"`
	BinID            *string `json:"bin_id"`
}

func (h *TransferHandler) Receive(c *gin.Context) {
	var req receiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := auth.ActorFromContext(c.Request.Context())
	input := &dto.ReceiveTransferInput{
		TransferID: c.Param("id"),
		ActorID:    actor.UserID,
	}
	for _, line := range req.Items {
		input.Items = append(input.Items, dto.ReceiptLine{
			TransferItemID:   line.TransferItemID,
			ReceivedQuantity: line.ReceivedQuantity,
			BinID:            line.BinID,
		})
	}

	t, err := h.uc.ReceiveTransfer(c.Request.Context(), input)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}
