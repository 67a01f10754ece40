package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/stockops/inventory-service/internal/model"
	"github.com/stockops/inventory-service/internal/purchaseorder"
	"github.com/stockops/inventory-service/pkg/logger"
)

type poUseCase struct {
	repo   purchaseorder.Repository
	logger logger.ZapLogger
}

func NewPurchaseOrderUseCase(repo purchaseorder.Repository, log logger.ZapLogger) purchaseorder.UseCase {
	return &poUseCase{
		repo:   repo,
		logger: log,
	}
}

func (uc *poUseCase) GetPurchaseOrder(ctx context.Context, id string) (*model.PurchaseOrder, error) {
	return uc.repo.GetByID(ctx, id)
}

func (uc *poUseCase) RecomputeStatus(ctx context.Context, id string) (*model.PurchaseOrder, error) {
	po, err := uc.repo.RecomputeStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	uc.logger.Debug("purchase order status recomputed",
		zap.String("purchase_order_id", id),
		zap.String("status", string(po.Status)),
	)
	return po, nil
}
