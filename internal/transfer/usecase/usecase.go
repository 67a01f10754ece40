package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stockops/inventory-service/internal/apperr"
	"github.com/stockops/inventory-service/internal/ledger"
	"github.com/stockops/inventory-service/internal/model"
	"github.com/stockops/inventory-service/internal/product"
	"github.com/stockops/inventory-service/internal/transfer"
	"github.com/stockops/inventory-service/internal/transfer/dto"
	"github.com/stockops/inventory-service/pkg/logger"
)

type transferUseCase struct {
	repo     transfer.Repository
	products product.Repository
	cache    ledger.RecordCache
	logger   logger.ZapLogger
}

func NewTransferUseCase(repo transfer.Repository, products product.Repository, cache ledger.RecordCache, log logger.ZapLogger) transfer.UseCase {
	return &transferUseCase{
		repo:     repo,
		products: products,
		cache:    cache,
		logger:   log,
	}
}

// invalidateRecords drops the cached ledger rows this transfer touched, so
// the read-through record cache cannot serve pre-mutation quantities for the
// rest of its TTL.
func (uc *transferUseCase) invalidateRecords(ctx context.Context, t *model.Transfer, includeDestination bool) {
	if uc.cache == nil {
		return
	}
	keys := make([]string, 0, 2*len(t.Items))
	for _, item := range t.Items {
		keys = append(keys, ledger.RecordCacheKey(item.ProductID, t.SourceLocationID))
		if includeDestination {
			keys = append(keys, ledger.RecordCacheKey(item.ProductID, t.DestinationLocationID))
		}
	}
	if err := uc.cache.Delete(ctx, keys...); err != nil {
		uc.logger.Warn("failed to invalidate inventory cache", zap.Error(err))
	}
}

func (uc *transferUseCase) CreateTransfer(ctx context.Context, input *dto.CreateTransferInput) (*model.Transfer, error) {
	if len(input.Items) == 0 {
		return nil, apperr.New(apperr.KindValidation, "transfer needs at least one item")
	}
	if input.SourceLocationID == input.DestinationLocationID {
		return nil, apperr.New(apperr.KindValidation, "source and destination must differ")
	}

	productIDs := make([]string, 0, len(input.Items))
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, apperr.New(apperr.KindValidation,
				"requested quantity must be positive for product %s", item.ProductID)
		}
		productIDs = append(productIDs, item.ProductID)
	}

	masters, err := uc.products.BatchGet(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	t := &model.Transfer{
		BaseModel: model.BaseModel{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		TransferType:          model.DeriveTransferType(input.SourceLocationType, input.DestinationLocationType),
		Status:                model.TransferDraft,
		SourceLocationID:      input.SourceLocationID,
		DestinationLocationID: input.DestinationLocationID,
		RequestedBy:           input.ActorID,
		RequestedAt:           now,
	}

	for _, in := range input.Items {
		master, ok := masters[in.ProductID]
		if !ok {
			return nil, apperr.NotFound("product", in.ProductID)
		}

		item := model.TransferItem{
			ID:                uuid.New().String(),
			TransferID:        t.ID,
			ProductID:         in.ProductID,
			RequestedQuantity: in.Quantity,
			SourceCostPrice:   master.CostPrice,
			SourceRetailPrice: master.RetailPrice,
			TargetCostPrice:   in.TargetCostPrice,
			TargetRetailPrice: in.TargetRetailPrice,
			Status:            model.TransferItemPending,
			BinID:             in.BinID,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if item.TargetCostPrice == 0 {
			item.TargetCostPrice = master.CostPrice
		}
		if item.TargetRetailPrice == 0 {
			item.TargetRetailPrice = master.RetailPrice
		}
		t.Items = append(t.Items, item)
	}

	t.RecomputeTotals()

	if err := uc.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	uc.logger.Info("transfer created",
		zap.String("transfer_id", t.ID),
		zap.String("reference_no", t.ReferenceNo),
		zap.Int("items", t.ItemCount),
	)
	return t, nil
}

func (uc *transferUseCase) GetTransfer(ctx context.Context, id string) (*model.Transfer, error) {
	return uc.repo.GetByID(ctx, id)
}

func (uc *transferUseCase) ListTransfers(ctx context.Context, filters *dto.TransferFilters) ([]model.Transfer, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *transferUseCase) SubmitTransfer(ctx context.Context, id, actorID string) (*model.Transfer, error) {
	t, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := t.Status
	if err := t.Transition(model.TransferPending); err != nil {
		return nil, err
	}
	t.UpdatedAt = time.Now()

	if err := uc.repo.UpdateStatus(ctx, t, from); err != nil {
		return nil, err
	}
	return t, nil
}

// ReserveTransfer approves the transfer and holds source stock for every
// item. A single item short on available quantity fails the whole approval
// and the transfer stays PENDING.
func (uc *transferUseCase) ReserveTransfer(ctx context.Context, id, actorID string) (*model.Transfer, error) {
	t, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := t.Status
	if err := t.Transition(model.TransferApproved); err != nil {
		return nil, err
	}

	now := time.Now()
	t.ApprovedBy = &actorID
	t.ApprovedAt = &now
	t.UpdatedAt = now

	if err := uc.repo.Reserve(ctx, t, from); err != nil {
		return nil, err
	}
	uc.invalidateRecords(ctx, t, false)

	uc.logger.Info("transfer reserved",
		zap.String("transfer_id", t.ID),
		zap.String("reference_no", t.ReferenceNo),
	)
	return t, nil
}

func (uc *transferUseCase) RejectTransfer(ctx context.Context, id, actorID, reason string) (*model.Transfer, error) {
	return uc.release(ctx, id, actorID, reason, model.TransferRejected)
}

func (uc *transferUseCase) CancelTransfer(ctx context.Context, id, actorID, reason string) (*model.Transfer, error) {
	return uc.release(ctx, id, actorID, reason, model.TransferCancelled)
}

func (uc *transferUseCase) release(ctx context.Context, id, actorID, reason string, to model.TransferStatus) (*model.Transfer, error) {
	t, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := t.Status
	held := t.HoldsReservation()
	if err := t.Transition(to); err != nil {
		return nil, err
	}

	now := time.Now()
	t.RejectedBy = &actorID
	t.RejectedAt = &now
	t.UpdatedAt = now
	if reason != "" {
		t.RejectionReason = &reason
	}
	for i := range t.Items {
		t.Items[i].Status = model.TransferItemRejected
		t.Items[i].UpdatedAt = now
	}

	if err := uc.repo.Release(ctx, t, from, held); err != nil {
		return nil, err
	}
	if held {
		uc.invalidateRecords(ctx, t, false)
	}

	uc.logger.Info("transfer closed without movement",
		zap.String("transfer_id", t.ID),
		zap.String("status", string(to)),
		zap.Bool("reservation_released", held),
	)
	return t, nil
}

func (uc *transferUseCase) ShipTransfer(ctx context.Context, id, actorID string) (*model.Transfer, error) {
	t, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Custody changes hands; the reservation stays in place until receipt.
	from := t.Status
	if err := t.Transition(model.TransferInTransit); err != nil {
		return nil, err
	}
	t.UpdatedAt = time.Now()

	if err := uc.repo.UpdateStatus(ctx, t, from); err != nil {
		return nil, err
	}
	return t, nil
}

func (uc *transferUseCase) ReceiveTransfer(ctx context.Context, input *dto.ReceiveTransferInput) (*model.Transfer, error) {
	t, err := uc.repo.GetByID(ctx, input.TransferID)
	if err != nil {
		return nil, err
	}

	from := t.Status
	if err := t.Transition(model.TransferCompleted); err != nil {
		return nil, err
	}

	byID := map[string]*model.TransferItem{}
	for i := range t.Items {
		byID[t.Items[i].ID] = &t.Items[i]
	}

	now := time.Now()
	for _, line := range input.Items {
		item, ok := byID[line.TransferItemID]
		if !ok {
			return nil, apperr.NotFound("transfer item", line.TransferItemID)
		}
		if line.ReceivedQuantity < 0 || line.ReceivedQuantity > item.RequestedQuantity {
			return nil, apperr.New(apperr.KindValidation,
				"received quantity %v out of range for product %s (requested %v)",
				line.ReceivedQuantity, item.ProductID, item.RequestedQuantity)
		}
		received := line.ReceivedQuantity
		item.ReceivedQuantity = &received
		item.Status = model.TransferItemCompleted
		if line.BinID != nil {
			item.BinID = line.BinID
		}
		item.UpdatedAt = now
	}

	// Every item must be accounted for on receipt.
	for i := range t.Items {
		if t.Items[i].ReceivedQuantity == nil {
			return nil, apperr.New(apperr.KindValidation,
				"missing receipt line for product %s", t.Items[i].ProductID)
		}
	}

	t.CompletedBy = &input.ActorID
	t.CompletedAt = &now
	t.UpdatedAt = now

	if err := uc.repo.Complete(ctx, t, from); err != nil {
		return nil, err
	}
	uc.invalidateRecords(ctx, t, true)

	var shrinkage float64
	for _, item := range t.Items {
		shrinkage += item.RequestedQuantity - *item.ReceivedQuantity
	}
	uc.logger.Info("transfer completed",
		zap.String("transfer_id", t.ID),
		zap.String("reference_no", t.ReferenceNo),
		zap.Float64("shrinkage", shrinkage),
	)
	return t, nil
}
