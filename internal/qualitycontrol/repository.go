package qualitycontrol

import (
	"context"

	"github.com/stockops/inventory-service/internal/model"
	"github.com/stockops/inventory-service/internal/qualitycontrol/dto"
)

// Repository persists inspections. Mutating methods re-verify the expected
// status under the header row lock, mirroring the transfer repository.
type Repository interface {
	Create(ctx context.Context, qc *model.QualityControl) error
	GetByID(ctx context.Context, id string) (*model.QualityControl, error)
	FindAll(ctx context.Context, filters *dto.QCFilters) ([]model.QualityControl, int, error)

	UpdateStatus(ctx context.Context, qc *model.QualityControl, expected model.QCStatus) error
	UpdateItems(ctx context.Context, qc *model.QualityControl, expected model.QCStatus) error

	// Complete applies the disposition: admits passed units into the ledger,
	// records write-offs, reconciles the purchase order and closes the
	// return, all in one transaction. prices supplies the standard product
	// prices used when admission creates a ledger record.
	Complete(ctx context.Context, qc *model.QualityControl, expected model.QCStatus, prices map[string]model.Product) error
}
