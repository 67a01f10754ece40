package transfer

import (
	"context"

	"github.com/stockops/inventory-service/internal/model"
	"github.com/stockops/inventory-service/internal/transfer/dto"
)

// Repository persists transfers. The mutating methods take the expected
// current status and re-verify it under the header row lock, so two workers
// racing the same transition cannot both win; the loser gets Conflict.
type Repository interface {
	Create(ctx context.Context, t *model.Transfer) error
	GetByID(ctx context.Context, id string) (*model.Transfer, error)
	FindAll(ctx context.Context, filters *dto.TransferFilters) ([]model.Transfer, int, error)

	// UpdateStatus covers the transitions with no ledger effect (submit, ship).
	UpdateStatus(ctx context.Context, t *model.Transfer, expected model.TransferStatus) error

	// Reserve holds source stock for every item, all-or-nothing.
	Reserve(ctx context.Context, t *model.Transfer, expected model.TransferStatus) error

	// Release undoes the reservation (when one is held) while moving the
	// transfer to REJECTED or CANCELLED and marking items rejected.
	Release(ctx context.Context, t *model.Transfer, expected model.TransferStatus, releaseReservation bool) error

	// Complete commits reservations at the source, admits received stock at
	// the destination and records shrinkage, atomically for all items.
	Complete(ctx context.Context, t *model.Transfer, expected model.TransferStatus) error
}
