package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stockops/inventory-service/internal/apperr"
	"github.com/stockops/inventory-service/internal/ledger"
	"github.com/stockops/inventory-service/internal/ledger/dto"
	"github.com/stockops/inventory-service/internal/model"
	"github.com/stockops/inventory-service/pkg/logger"
)

const recordCacheTTL = 30 * time.Second

type ledgerUseCase struct {
	repo   ledger.Repository
	cache  ledger.RecordCache
	logger logger.ZapLogger
}

func NewLedgerUseCase(repo ledger.Repository, cache ledger.RecordCache, log logger.ZapLogger) ledger.UseCase {
	return &ledgerUseCase{
		repo:   repo,
		cache:  cache,
		logger: log,
	}
}

func (uc *ledgerUseCase) GetRecord(ctx context.Context, productID, locationID string) (*model.InventoryRecord, error) {
	key := ledger.RecordCacheKey(productID, locationID)
	if uc.cache != nil {
		if cached, err := uc.cache.Get(ctx, key); err == nil && cached != "" {
			var rec model.InventoryRecord
			if err := json.Unmarshal([]byte(cached), &rec); err == nil {
				return &rec, nil
			}
		}
	}

	rec, err := uc.repo.GetRecord(ctx, productID, locationID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		// Zero record for a pair that never held stock.
		return &model.InventoryRecord{
			ProductID:  productID,
			LocationID: locationID,
			Status:     model.InventoryOutOfStock,
		}, nil
	}

	if uc.cache != nil {
		if payload, err := json.Marshal(rec); err == nil {
			if err := uc.cache.Set(ctx, key, string(payload), recordCacheTTL); err != nil {
				uc.logger.Warn("failed to cache inventory record", zap.Error(err))
			}
		}
	}
	return rec, nil
}

func (uc *ledgerUseCase) ListRecords(ctx context.Context, filters *dto.RecordFilters) ([]model.InventoryRecord, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *ledgerUseCase) ListLowStock(ctx context.Context, locationID *string, page, pageSize int) ([]dto.LowStockRow, int, error) {
	return uc.repo.ListLowStock(ctx, locationID, page, pageSize)
}

func (uc *ledgerUseCase) AdjustInventory(ctx context.Context, input *dto.AdjustInventoryInput) (*model.InventoryRecord, error) {
	var kind model.AdjustmentKind
	switch input.Type {
	case "add":
		kind = model.AdjustAdd
	case "remove":
		kind = model.AdjustRemove
	case "set":
		kind = model.AdjustSet
	default:
		return nil, apperr.New(apperr.KindValidation, "unknown adjustment type %q", input.Type)
	}
	if input.Quantity < 0 {
		return nil, apperr.New(apperr.KindValidation, "quantity must be non-negative")
	}

	// Row locks serialize writers; the redis lock just keeps hot-key retries
	// out of the database.
	if uc.cache != nil {
		lockKey := fmt.Sprintf("lock:inventory:%s:%s", input.ProductID, input.LocationID)
		lockValue := uuid.New().String()
		acquired := false
		for i := 0; i < 3; i++ {
			ok, err := uc.cache.AcquireLock(ctx, lockKey, lockValue, 5*time.Second)
			if err != nil {
				uc.logger.Error("failed to acquire lock redis error", zap.Error(err))
			}
			if ok {
				acquired = true
				break
			}
			time.Sleep(100 * time.Millisecond)
		}
		if !acquired {
			return nil, apperr.New(apperr.KindConflict, "inventory row busy, retry")
		}
		defer uc.cache.ReleaseLock(ctx, lockKey, lockValue)
	}

	notes := input.Reason
	if input.Notes != "" {
		notes = input.Reason + ": " + input.Notes
	}

	movementType := model.MovementAdjustment
	referenceType := input.ReferenceType
	if referenceType == "" {
		referenceType = "manual_adjustment"
	}
	if referenceType == "sale" {
		movementType = model.MovementSale
	}

	rec, err := uc.repo.Adjust(ctx, &dto.AdjustCommand{
		ProductID:     input.ProductID,
		LocationID:    input.LocationID,
		LocationType:  input.LocationType,
		Kind:          kind,
		Quantity:      input.Quantity,
		MovementType:  movementType,
		ReferenceType: referenceType,
		ReferenceID:   input.ReferenceID,
		Notes:         notes,
		ActorID:       input.ActorID,
	})
	if err != nil {
		return nil, err
	}

	uc.invalidateRecordCache(ctx, input.ProductID, input.LocationID)
	return rec, nil
}

func (uc *ledgerUseCase) ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error) {
	return uc.repo.ListMovements(ctx, filters)
}

func (uc *ledgerUseCase) invalidateRecordCache(ctx context.Context, productID, locationID string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Delete(ctx, ledger.RecordCacheKey(productID, locationID)); err != nil {
		uc.logger.Warn("failed to invalidate inventory cache", zap.Error(err))
	}
}
