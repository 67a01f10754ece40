package purchaseorder

import (
	"context"

	"github.com/stockops/inventory-service/internal/model"
)

// UseCase is the reconciliation surface: purchase orders themselves are
// created and priced outside this core.
type UseCase interface {
	GetPurchaseOrder(ctx context.Context, id string) (*model.PurchaseOrder, error)
	RecomputeStatus(ctx context.Context, id string) (*model.PurchaseOrder, error)
}
