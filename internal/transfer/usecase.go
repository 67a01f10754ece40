package transfer

import (
	"context"

	"github.com/stockops/inventory-service/internal/model"
	"github.com/stockops/inventory-service/internal/transfer/dto"
)

type UseCase interface {
	CreateTransfer(ctx context.Context, input *dto.CreateTransferInput) (*model.Transfer, error)
	GetTransfer(ctx context.Context, id string) (*model.Transfer, error)
	ListTransfers(ctx context.Context, filters *dto.TransferFilters) ([]model.Transfer, int, error)
	SubmitTransfer(ctx context.Context, id, actorID string) (*model.Transfer, error)
	ReserveTransfer(ctx context.Context, id, actorID string) (*model.Transfer, error)
	RejectTransfer(ctx context.Context, id, actorID, reason string) (*model.Transfer, error)
	CancelTransfer(ctx context.Context, id, actorID, reason string) (*model.Transfer, error)
	ShipTransfer(ctx context.Context, id, actorID string) (*model.Transfer, error)
	ReceiveTransfer(ctx context.Context, input *dto.ReceiveTransferInput) (*model.Transfer, error)
}
