package ledger

import (
	"context"

	"github.com/stockops/inventory-service/internal/ledger/dto"
	"github.com/stockops/inventory-service/internal/model"
)

type Repository interface {
	// GetRecord returns nil when no record exists for the pair.
	GetRecord(ctx context.Context, productID, locationID string) (*model.InventoryRecord, error)
	FindAll(ctx context.Context, filters *dto.RecordFilters) ([]model.InventoryRecord, int, error)
	ListLowStock(ctx context.Context, locationID *string, page, pageSize int) ([]dto.LowStockRow, int, error)

	// Adjust locks the (product, location) row, applies the mutation and
	// writes the movement audit row in one transaction.
	Adjust(ctx context.Context, cmd *dto.AdjustCommand) (*model.InventoryRecord, error)

	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error)
}
