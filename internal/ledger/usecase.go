package ledger

import (
	"context"

	"github.com/stockops/inventory-service/internal/ledger/dto"
	"github.com/stockops/inventory-service/internal/model"
)

type UseCase interface {
	GetRecord(ctx context.Context, productID, locationID string) (*model.InventoryRecord, error)
	ListRecords(ctx context.Context, filters *dto.RecordFilters) ([]model.InventoryRecord, int, error)
	ListLowStock(ctx context.Context, locationID *string, page, pageSize int) ([]dto.LowStockRow, int, error)
	AdjustInventory(ctx context.Context, input *dto.AdjustInventoryInput) (*model.InventoryRecord, error)
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error)
}
