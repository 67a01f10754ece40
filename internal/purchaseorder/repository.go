package purchaseorder

import (
	"context"

	"github.com/stockops/inventory-service/internal/model"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*model.PurchaseOrder, error)
	// RecomputeStatus re-derives the order's fulfillment status from its
	// items in one transaction and returns the refreshed order.
	RecomputeStatus(ctx context.Context, id string) (*model.PurchaseOrder, error)
}
