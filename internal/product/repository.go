package product

import (
	"context"

	"github.com/stockops/inventory-service/internal/model"
)

// Repository reads product master data owned by the external catalog.
// Prices and reorder points only; no write path exists in this service.
type Repository interface {
	FindByID(ctx context.Context, id string) (*model.Product, error)
	BatchGet(ctx context.Context, ids []string) (map[string]model.Product, error)
}
