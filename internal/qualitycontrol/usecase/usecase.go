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
	"github.com/stockops/inventory-service/internal/qualitycontrol"
	"github.com/stockops/inventory-service/internal/qualitycontrol/dto"
	"github.com/stockops/inventory-service/pkg/logger"
	"github.com/stockops/inventory-service/pkg/search"
)

const indexTimeout = 10 * time.Second

type qcUseCase struct {
	repo     qualitycontrol.Repository
	products product.Repository
	cache    ledger.RecordCache
	es       *search.Client
	logger   logger.ZapLogger
}

func NewQualityControlUseCase(repo qualitycontrol.Repository, products product.Repository, cache ledger.RecordCache, es *search.Client, log logger.ZapLogger) qualitycontrol.UseCase {
	return &qcUseCase{
		repo:     repo,
		products: products,
		cache:    cache,
		es:       es,
		logger:   log,
	}
}

// invalidateRecords drops the cached warehouse rows this inspection admitted
// into, so the read-through record cache cannot serve pre-admission
// quantities for the rest of its TTL.
func (uc *qcUseCase) invalidateRecords(ctx context.Context, qc *model.QualityControl) {
	if uc.cache == nil {
		return
	}
	keys := make([]string, 0, len(qc.Items))
	for _, item := range qc.Items {
		keys = append(keys, ledger.RecordCacheKey(item.ProductID, qc.WarehouseID))
	}
	if err := uc.cache.Delete(ctx, keys...); err != nil {
		uc.logger.Warn("failed to invalidate inventory cache", zap.Error(err))
	}
}

func (uc *qcUseCase) CreateQualityControl(ctx context.Context, input *dto.CreateQCInput) (*model.QualityControl, error) {
	switch input.Type {
	case model.QCReceiving:
		if input.PurchaseOrderID == nil || *input.PurchaseOrderID == "" {
			return nil, apperr.New(apperr.KindValidation, "receiving inspection requires a purchase order")
		}
	case model.QCReturn:
		if input.ReturnID == nil || *input.ReturnID == "" {
			return nil, apperr.New(apperr.KindValidation, "return inspection requires a return")
		}
	case model.QCRandom, model.QCComplaint:
	default:
		return nil, apperr.New(apperr.KindValidation, "unknown inspection type %q", input.Type)
	}
	if len(input.Items) == 0 {
		return nil, apperr.New(apperr.KindValidation, "inspection needs at least one item")
	}

	now := time.Now()
	qc := &model.QualityControl{
		BaseModel: model.BaseModel{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Type:            input.Type,
		Status:          model.QCPending,
		WarehouseID:     input.WarehouseID,
		PurchaseOrderID: input.PurchaseOrderID,
		ReturnID:        input.ReturnID,
		Notes:           input.Notes,
	}

	for _, in := range input.Items {
		if in.Quantity <= 0 {
			return nil, apperr.New(apperr.KindValidation,
				"inspected quantity must be positive for product %s", in.ProductID)
		}
		qc.Items = append(qc.Items, model.QualityControlItem{
			ID:              uuid.New().String(),
			QCID:            qc.ID,
			ProductID:       in.ProductID,
			Quantity:        in.Quantity,
			PendingQuantity: in.Quantity, // Everything starts undispositioned
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	if err := uc.repo.Create(ctx, qc); err != nil {
		return nil, err
	}

	uc.logger.Info("quality control created",
		zap.String("qc_id", qc.ID),
		zap.String("reference_no", qc.ReferenceNo),
		zap.String("type", string(qc.Type)),
	)
	return qc, nil
}

func (uc *qcUseCase) GetQualityControl(ctx context.Context, id string) (*model.QualityControl, error) {
	return uc.repo.GetByID(ctx, id)
}

func (uc *qcUseCase) ListQualityControls(ctx context.Context, filters *dto.QCFilters) ([]model.QualityControl, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *qcUseCase) BeginInspection(ctx context.Context, id, inspectorID string) (*model.QualityControl, error) {
	qc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := qc.Status
	if err := qc.Transition(model.QCInProgress); err != nil {
		return nil, err
	}

	now := time.Now()
	qc.InspectorID = &inspectorID
	qc.InspectedAt = &now
	qc.UpdatedAt = now

	if err := uc.repo.UpdateStatus(ctx, qc, from); err != nil {
		return nil, err
	}
	return qc, nil
}

func (uc *qcUseCase) UpdateItems(ctx context.Context, input *dto.UpdateQCItemsInput) (*model.QualityControl, error) {
	qc, err := uc.repo.GetByID(ctx, input.QCID)
	if err != nil {
		return nil, err
	}
	if qc.Status != model.QCInProgress {
		return nil, apperr.New(apperr.KindInvalidStateTransition,
			"quality control %s is %s, dispositions require IN_PROGRESS", qc.ReferenceNo, qc.Status)
	}

	byID := map[string]*model.QualityControlItem{}
	for i := range qc.Items {
		byID[qc.Items[i].ID] = &qc.Items[i]
	}

	now := time.Now()
	for _, line := range input.Items {
		item, ok := byID[line.ItemID]
		if !ok {
			return nil, apperr.NotFound("quality control item", line.ItemID)
		}
		// Return inspections always need an explicit disposition so the
		// accept gate on completion has something to read.
		if qc.Type == model.QCReturn && line.Action == nil {
			return nil, apperr.New(apperr.KindValidation,
				"return inspections require an action for product %s", item.ProductID)
		}
		if err := item.SetDisposition(line.PassedQuantity, line.FailedQuantity, line.PendingQuantity, line.Action); err != nil {
			return nil, err
		}
		if line.Notes != "" {
			item.Notes = line.Notes
		}
		item.UpdatedAt = now
	}
	qc.UpdatedAt = now

	if err := uc.repo.UpdateItems(ctx, qc, model.QCInProgress); err != nil {
		return nil, err
	}
	return qc, nil
}

func (uc *qcUseCase) CompleteQualityControl(ctx context.Context, id, actorID string) (*model.QualityControl, error) {
	qc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := qc.Status
	if err := qc.Transition(model.QCCompleted); err != nil {
		return nil, err
	}
	if qc.PendingRemaining() {
		return nil, apperr.New(apperr.KindPendingItemsRemain,
			"quality control %s still has undispositioned units", qc.ReferenceNo)
	}

	productIDs := make([]string, 0, len(qc.Items))
	for _, item := range qc.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	prices, err := uc.products.BatchGet(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	// Admission prices come from master data; a silent miss would admit
	// passed units at zero cost.
	for _, item := range qc.Items {
		if _, ok := prices[item.ProductID]; !ok {
			return nil, apperr.NotFound("product", item.ProductID)
		}
	}

	now := time.Now()
	if qc.InspectorID == nil {
		qc.InspectorID = &actorID
	}
	qc.CompletedAt = &now
	qc.UpdatedAt = now

	if err := uc.repo.Complete(ctx, qc, from, prices); err != nil {
		return nil, err
	}
	uc.invalidateRecords(ctx, qc)

	var passed, failed float64
	for _, item := range qc.Items {
		passed += item.PassedQuantity
		failed += item.FailedQuantity
	}
	uc.logger.Info("quality control completed",
		zap.String("qc_id", qc.ID),
		zap.String("reference_no", qc.ReferenceNo),
		zap.Float64("passed", passed),
		zap.Float64("failed", failed),
	)

	go func() {
		idxCtx, cancel := context.WithTimeout(context.Background(), indexTimeout)
		defer cancel()
		uc.indexCompletion(idxCtx, qc, passed, failed)
	}()

	return qc, nil
}

func (uc *qcUseCase) CancelQualityControl(ctx context.Context, id, actorID, reason string) (*model.QualityControl, error) {
	qc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Nothing was admitted, so cancellation has no ledger effect.
	from := qc.Status
	if err := qc.Transition(model.QCCancelled); err != nil {
		return nil, err
	}
	now := time.Now()
	if reason != "" {
		if qc.Notes != "" {
			qc.Notes += "; "
		}
		qc.Notes += "cancelled: " + reason
	}
	qc.UpdatedAt = now

	if err := uc.repo.UpdateStatus(ctx, qc, from); err != nil {
		return nil, err
	}
	return qc, nil
}

// indexCompletion pushes a summary doc into the search index so completed
// inspections are findable by the ops dashboard. Best-effort: the ledger
// transaction already committed.
func (uc *qcUseCase) indexCompletion(ctx context.Context, qc *model.QualityControl, passed, failed float64) {
	if uc.es == nil {
		return
	}
	const indexName = "quality-controls"

	mapping := `{
		"mappings": {
			"properties": {
				"reference_no": { "type": "keyword" },
				"type": { "type": "keyword" },
				"warehouse_id": { "type": "keyword" },
				"passed": { "type": "double" },
				"failed": { "type": "double" },
				"completed_at": { "type": "date" }
			}
		}
	}`
	_ = uc.es.CreateIndex(ctx, indexName, mapping)

	doc := map[string]interface{}{
		"reference_no": qc.ReferenceNo,
		"type":         qc.Type,
		"warehouse_id": qc.WarehouseID,
		"passed":       passed,
		"failed":       failed,
		"completed_at": qc.CompletedAt,
	}
	if err := uc.es.Index(ctx, indexName, qc.ID, doc); err != nil {
		uc.logger.Error("failed to index quality control", zap.Error(err))
	}
}
