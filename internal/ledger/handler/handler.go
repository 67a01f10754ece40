package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stockops/inventory-service/internal/auth"
	"github.com/stockops/inventory-service/internal/httperr"
	"github.com/stockops/inventory-service/internal/ledger"
	"github.com/stockops/inventory-service/internal/ledger/dto"
	"github.com/stockops/inventory-service/internal/model"
	"github.com/stockops/inventory-service/pkg/logger"
)

type LedgerHandler struct {
	uc     ledger.UseCase
	logger logger.ZapLogger
}

func NewLedgerHandler(uc ledger.UseCase, log logger.ZapLogger) *LedgerHandler {
	return &LedgerHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *LedgerHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/inventory", h.ListRecords)
	rg.GET("/inventory/record", h.GetRecord)
	rg.GET("/inventory/low-stock", h.ListLowStock)
	rg.GET("/inventory/movements", h.ListMovements)
	rg.POST("/inventory/adjust", h.Adjust)
}

type adjustRequest struct {
	ProductID    string  `json:"product_id" binding:"required"`
	LocationID   string  `json:"location_id" binding:"required"`
	LocationType string  `json:"location_type" binding:"required,oneof=WAREHOUSE STORE"`
	Type         string  `json:"type" binding:"required,oneof=add remove set"`
	Quantity     float64 `json:"quantity" binding:"min=0"`
	Reason       string  `json:"reason" binding:"required"`
	Notes        string  `json:"notes"`
}

func (h *LedgerHandler) Adjust(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := auth.ActorFromContext(c.Request.Context())
	rec, err := h.uc.AdjustInventory(c.Request.Context(), &dto.AdjustInventoryInput{
		ProductID:    req.ProductID,
		LocationID:   req.LocationID,
		LocationType: model.LocationType(req.LocationType),
		Type:         req.Type,
		Quantity:     req.Quantity,
		Reason:       req.Reason,
		Notes:        req.Notes,
		ActorID:      actor.UserID,
	})
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *LedgerHandler) GetRecord(c *gin.Context) {
	rec, err := h.uc.GetRecord(c.Request.Context(), c.Query("product_id"), c.Query("location_id"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *LedgerHandler) ListRecords(c *gin.Context) {
	filters := &dto.RecordFilters{
		ProductID: c.Query("product_id"),
		Status:    c.Query("status"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "page_size", 20),
	}
	if loc := c.Query("location_id"); loc != "" {
		filters.LocationID = &loc
	}

	items, total, err := h.uc.ListRecords(c.Request.Context(), filters)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

func (h *LedgerHandler) ListLowStock(c *gin.Context) {
	var locationID *string
	if loc := c.Query("location_id"); loc != "" {
		locationID = &loc
	}

	items, total, err := h.uc.ListLowStock(c.Request.Context(), locationID,
		queryInt(c, "page", 1), queryInt(c, "page_size", 20))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

func (h *LedgerHandler) ListMovements(c *gin.Context) {
	filters := &dto.MovementFilters{
		ProductID:    c.Query("product_id"),
		MovementType: c.Query("movement_type"),
		ReferenceID:  c.Query("reference_id"),
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "page_size", 20),
	}
	if loc := c.Query("location_id"); loc != "" {
		filters.LocationID = &loc
	}

	items, total, err := h.uc.ListMovements(c.Request.Context(), filters)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}
