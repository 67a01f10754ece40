package usecase_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stockops/inventory-service/internal/apperr"
	"github.com/stockops/inventory-service/internal/ledger"
	"github.com/stockops/inventory-service/internal/model"
	"github.com/stockops/inventory-service/internal/qualitycontrol"
	"github.com/stockops/inventory-service/internal/qualitycontrol/dto"
	"github.com/stockops/inventory-service/internal/qualitycontrol/usecase"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...zap.Field) {}
func (nopLogger) Info(string, ...zap.Field)  {}
func (nopLogger) Warn(string, ...zap.Field)  {}
func (nopLogger) Error(string, ...zap.Field) {}
func (nopLogger) Fatal(string, ...zap.Field) {}
func (nopLogger) Sync() error                { return nil }

type fakeProductRepo struct {
	products map[string]model.Product
}

func (r *fakeProductRepo) FindByID(_ context.Context, id string) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, apperr.NotFound("product", id)
	}
	return &p, nil
}

func (r *fakeProductRepo) BatchGet(_ context.Context, ids []string) (map[string]model.Product, error) {
	out := make(map[string]model.Product)
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type fakeRecordCache struct {
	deleted []string
}

func (c *fakeRecordCache) Get(_ context.Context, _ string) (string, error) { return "", nil }
func (c *fakeRecordCache) Set(_ context.Context, _, _ string, _ time.Duration) error {
	return nil
}
func (c *fakeRecordCache) Delete(_ context.Context, keys ...string) error {
	c.deleted = append(c.deleted, keys...)
	return nil
}
func (c *fakeRecordCache) AcquireLock(_ context.Context, _, _ string, _ time.Duration) (bool, error) {
	return true, nil
}
func (c *fakeRecordCache) ReleaseLock(_ context.Context, _, _ string) error { return nil }

type writeOff struct {
	productID string
	quantity  float64
}

// fakeQCRepo keeps inspections, warehouse stock and purchase orders in memory
// and applies the same completion effects as the persistence layer: passed
// units admitted via model.Apply, failed units recorded as write-offs, the
// linked purchase order reconciled and the linked return closed.
type fakeQCRepo struct {
	qcs       map[string]*model.QualityControl
	stock     map[string]*model.InventoryRecord
	orders    map[string]*model.PurchaseOrder
	returns   map[string]model.ReturnStatus
	writeOffs []writeOff
	seq       int
}

func newFakeQCRepo() *fakeQCRepo {
	return &fakeQCRepo{
		qcs:     make(map[string]*model.QualityControl),
		stock:   make(map[string]*model.InventoryRecord),
		orders:  make(map[string]*model.PurchaseOrder),
		returns: make(map[string]model.ReturnStatus),
	}
}

func stockKey(productID, locationID string) string {
	return productID + "|" + locationID
}

func (r *fakeQCRepo) record(productID, locationID string) *model.InventoryRecord {
	return r.stock[stockKey(productID, locationID)]
}

func cloneQC(qc *model.QualityControl) *model.QualityControl {
	cp := *qc
	cp.Items = append([]model.QualityControlItem(nil), qc.Items...)
	return &cp
}

func (r *fakeQCRepo) Create(_ context.Context, qc *model.QualityControl) error {
	r.seq++
	qc.ReferenceNo = fmt.Sprintf("QC-20260901-%04d", r.seq)
	r.qcs[qc.ID] = cloneQC(qc)
	return nil
}

func (r *fakeQCRepo) GetByID(_ context.Context, id string) (*model.QualityControl, error) {
	qc, ok := r.qcs[id]
	if !ok {
		return nil, apperr.NotFound("quality control", id)
	}
	return cloneQC(qc), nil
}

func (r *fakeQCRepo) FindAll(_ context.Context, _ *dto.QCFilters) ([]model.QualityControl, int, error) {
	out := make([]model.QualityControl, 0, len(r.qcs))
	for _, qc := range r.qcs {
		out = append(out, *cloneQC(qc))
	}
	return out, len(out), nil
}

func (r *fakeQCRepo) verify(id string, expected model.QCStatus) error {
	stored, ok := r.qcs[id]
	if !ok {
		return apperr.NotFound("quality control", id)
	}
	if stored.Status != expected {
		return apperr.New(apperr.KindConflict,
			"quality control %s is %s, expected %s", id, stored.Status, expected)
	}
	return nil
}

func (r *fakeQCRepo) UpdateStatus(_ context.Context, qc *model.QualityControl, expected model.QCStatus) error {
	if err := r.verify(qc.ID, expected); err != nil {
		return err
	}
	r.qcs[qc.ID] = cloneQC(qc)
	return nil
}

func (r *fakeQCRepo) UpdateItems(_ context.Context, qc *model.QualityControl, expected model.QCStatus) error {
	if err := r.verify(qc.ID, expected); err != nil {
		return err
	}
	r.qcs[qc.ID] = cloneQC(qc)
	return nil
}

func (r *fakeQCRepo) Complete(_ context.Context, qc *model.QualityControl, expected model.QCStatus, prices map[string]model.Product) error {
	if err := r.verify(qc.ID, expected); err != nil {
		return err
	}

	for i := range qc.Items {
		item := &qc.Items[i]
		if qc.AdmitsToLedger(item) {
			key := stockKey(item.ProductID, qc.WarehouseID)
			rec, ok := r.stock[key]
			if !ok {
				master := prices[item.ProductID]
				rec = &model.InventoryRecord{
					ProductID:    item.ProductID,
					LocationID:   qc.WarehouseID,
					LocationType: model.LocationWarehouse,
					CostPrice:    master.CostPrice,
					RetailPrice:  master.RetailPrice,
				}
				r.stock[key] = rec
			}
			if err := rec.Apply(model.AdjustAdd, item.PassedQuantity); err != nil {
				return err
			}
		}
		if item.FailedQuantity > 0 {
			r.writeOffs = append(r.writeOffs, writeOff{
				productID: item.ProductID,
				quantity:  item.FailedQuantity,
			})
		}
	}

	if qc.Type == model.QCReceiving && qc.PurchaseOrderID != nil {
		po, ok := r.orders[*qc.PurchaseOrderID]
		if !ok {
			return apperr.NotFound("purchase order", *qc.PurchaseOrderID)
		}
		for i := range qc.Items {
			item := &qc.Items[i]
			if item.PassedQuantity <= 0 {
				continue
			}
			for j := range po.Items {
				if po.Items[j].ProductID == item.ProductID {
					po.Items[j].ReceivedQuantity += item.PassedQuantity
				}
			}
		}
		po.Status = model.DerivePOStatus(po.Status, po.Items)
	}

	if qc.Type == model.QCReturn && qc.ReturnID != nil {
		r.returns[*qc.ReturnID] = model.ReturnCompleted
	}

	r.qcs[qc.ID] = cloneQC(qc)
	return nil
}

const (
	warehouseID = "wh-1"
	productID   = "prod-1"
)

func newFixture() (qualitycontrol.UseCase, *fakeQCRepo) {
	repo := newFakeQCRepo()
	products := &fakeProductRepo{products: map[string]model.Product{
		productID: {BaseModel: model.BaseModel{ID: productID}, SKU: "SKU-1", CostPrice: 3, RetailPrice: 7},
		"prod-2":  {BaseModel: model.BaseModel{ID: "prod-2"}, SKU: "SKU-2", CostPrice: 2, RetailPrice: 5},
	}}
	return usecase.NewQualityControlUseCase(repo, products, nil, nil, nopLogger{}), repo
}

func newFixtureWithCache() (qualitycontrol.UseCase, *fakeQCRepo, *fakeRecordCache) {
	repo := newFakeQCRepo()
	products := &fakeProductRepo{products: map[string]model.Product{
		productID: {BaseModel: model.BaseModel{ID: productID}, SKU: "SKU-1", CostPrice: 3, RetailPrice: 7},
	}}
	cache := &fakeRecordCache{}
	return usecase.NewQualityControlUseCase(repo, products, cache, nil, nopLogger{}), repo, cache
}

func strPtr(s string) *string { return &s }

func actionPtr(a model.QCAction) *model.QCAction { return &a }

func (r *fakeQCRepo) seedOrder(id string, items ...model.PurchaseOrderItem) {
	r.orders[id] = &model.PurchaseOrder{
		BaseModel: model.BaseModel{ID: id},
		OrderNo:   "PO-" + id,
		Status:    model.POPending,
		Items:     items,
	}
}

func createInProgressQC(t *testing.T, uc qualitycontrol.UseCase, input *dto.CreateQCInput) *model.QualityControl {
	t.Helper()
	ctx := context.Background()

	qc, err := uc.CreateQualityControl(ctx, input)
	require.NoError(t, err)
	require.Equal(t, model.QCPending, qc.Status)

	qc, err = uc.BeginInspection(ctx, qc.ID, "inspector-1")
	require.NoError(t, err)
	require.Equal(t, model.QCInProgress, qc.Status)
	return qc
}

func receivingInput(poID string, quantity float64) *dto.CreateQCInput {
	return &dto.CreateQCInput{
		Type:            model.QCReceiving,
		WarehouseID:     warehouseID,
		PurchaseOrderID: strPtr(poID),
		ActorID:         "user-1",
		Items: []dto.CreateQCItem{
			{ProductID: productID, Quantity: quantity},
		},
	}
}

func TestCreateQualityControlValidation(t *testing.T) {
	uc, _ := newFixture()
	ctx := context.Background()

	tests := []struct {
		name  string
		input *dto.CreateQCInput
	}{
		{
			name: "receiving without purchase order",
			input: &dto.CreateQCInput{
				Type:        model.QCReceiving,
				WarehouseID: warehouseID,
				Items:       []dto.CreateQCItem{{ProductID: productID, Quantity: 10}},
			},
		},
		{
			name: "return without return reference",
			input: &dto.CreateQCInput{
				Type:        model.QCReturn,
				WarehouseID: warehouseID,
				Items:       []dto.CreateQCItem{{ProductID: productID, Quantity: 10}},
			},
		},
		{
			name: "no items",
			input: &dto.CreateQCInput{
				Type:        model.QCRandom,
				WarehouseID: warehouseID,
			},
		},
		{
			name: "non-positive quantity",
			input: &dto.CreateQCInput{
				Type:        model.QCRandom,
				WarehouseID: warehouseID,
				Items:       []dto.CreateQCItem{{ProductID: productID, Quantity: 0}},
			},
		},
		{
			name: "unknown type",
			input: &dto.CreateQCInput{
				Type:        model.QCType("AUDIT"),
				WarehouseID: warehouseID,
				Items:       []dto.CreateQCItem{{ProductID: productID, Quantity: 10}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.CreateQualityControl(ctx, tt.input)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestCreateQualityControlStartsAllPending(t *testing.T) {
	uc, repo := newFixture()
	repo.seedOrder("po-1", model.PurchaseOrderItem{ProductID: productID, OrderedQuantity: 100})

	qc := createInProgressQC(t, uc, receivingInput("po-1", 50))

	require.Len(t, qc.Items, 1)
	assert.Equal(t, float64(50), qc.Items[0].PendingQuantity)
	assert.Equal(t, float64(0), qc.Items[0].PassedQuantity)
	assert.Regexp(t, `^QC-\d{8}-\d{4}$`, qc.ReferenceNo)
}

func TestUpdateItemsRequiresInProgress(t *testing.T) {
	uc, repo := newFixture()
	ctx := context.Background()
	repo.seedOrder("po-1", model.PurchaseOrderItem{ProductID: productID, OrderedQuantity: 100})

	qc, err := uc.CreateQualityControl(ctx, receivingInput("po-1", 50))
	require.NoError(t, err)

	_, err = uc.UpdateItems(ctx, &dto.UpdateQCItemsInput{
		QCID: qc.ID,
		Items: []dto.QCItemDisposition{
			{ItemID: qc.Items[0].ID, PassedQuantity: 50},
		},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidStateTransition, apperr.KindOf(err))
}

func TestCompleteBlocksOnPendingUnits(t *testing.T) {
	uc, repo := newFixture()
	ctx := context.Background()
	repo.seedOrder("po-1", model.PurchaseOrderItem{ProductID: productID, OrderedQuantity: 100})

	qc := createInProgressQC(t, uc, receivingInput("po-1", 50))

	// Partial disposition: 30 passed, 20 still waiting on the bench.
	_, err := uc.UpdateItems(ctx, &dto.UpdateQCItemsInput{
		QCID: qc.ID,
		Items: []dto.QCItemDisposition{
			{ItemID: qc.Items[0].ID, PassedQuantity: 30, PendingQuantity: 20},
		},
	})
	require.NoError(t, err)

	_, err = uc.CompleteQualityControl(ctx, qc.ID, "inspector-1")
	require.Error(t, err)
	assert.Equal(t, apperr.KindPendingItemsRemain, apperr.KindOf(err))

	// Nothing may be admitted by the failed attempt.
	assert.Nil(t, repo.record(productID, warehouseID))
	stored, err := uc.GetQualityControl(ctx, qc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QCInProgress, stored.Status)
}

func TestCompleteAdmitsPassedAndWritesOffFailed(t *testing.T) {
	uc, repo := newFixture()
	ctx := context.Background()
	repo.seedOrder("po-1", model.PurchaseOrderItem{ProductID: productID, OrderedQuantity: 100})

	qc := createInProgressQC(t, uc, receivingInput("po-1", 50))

	_, err := uc.UpdateItems(ctx, &dto.UpdateQCItemsInput{
		QCID: qc.ID,
		Items: []dto.QCItemDisposition{
			{
				ItemID:         qc.Items[0].ID,
				PassedQuantity: 45,
				FailedQuantity: 5,
				Action:         actionPtr(model.QCActionReject),
			},
		},
	})
	require.NoError(t, err)

	completed, err := uc.CompleteQualityControl(ctx, qc.ID, "inspector-1")
	require.NoError(t, err)
	assert.Equal(t, model.QCCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	// 45 admitted at standard prices, 5 written off without touching stock.
	rec := repo.record(productID, warehouseID)
	require.NotNil(t, rec)
	assert.Equal(t, float64(45), rec.Quantity)
	assert.Equal(t, float64(3), rec.CostPrice)
	require.Len(t, repo.writeOffs, 1)
	assert.Equal(t, float64(5), repo.writeOffs[0].quantity)

	// The purchase order reflects only the passed units.
	po := repo.orders["po-1"]
	assert.Equal(t, float64(45), po.Items[0].ReceivedQuantity)
	assert.Equal(t, model.POPartiallyReceived, po.Status)
}

func TestTwoInspectionsFulfilOrder(t *testing.T) {
	uc, repo := newFixture()
	ctx := context.Background()
	repo.seedOrder("po-1", model.PurchaseOrderItem{ProductID: productID, OrderedQuantity: 100})

	first := createInProgressQC(t, uc, receivingInput("po-1", 45))
	_, err := uc.UpdateItems(ctx, &dto.UpdateQCItemsInput{
		QCID: first.ID,
		Items: []dto.QCItemDisposition{
			{ItemID: first.Items[0].ID, PassedQuantity: 45},
		},
	})
	require.NoError(t, err)
	_, err = uc.CompleteQualityControl(ctx, first.ID, "inspector-1")
	require.NoError(t, err)
	assert.Equal(t, model.POPartiallyReceived, repo.orders["po-1"].Status)

	second := createInProgressQC(t, uc, receivingInput("po-1", 55))
	_, err = uc.UpdateItems(ctx, &dto.UpdateQCItemsInput{
		QCID: second.ID,
		Items: []dto.QCItemDisposition{
			{ItemID: second.Items[0].ID, PassedQuantity: 55},
		},
	})
	require.NoError(t, err)
	_, err = uc.CompleteQualityControl(ctx, second.ID, "inspector-1")
	require.NoError(t, err)

	po := repo.orders["po-1"]
	assert.Equal(t, model.POReceived, po.Status)
	assert.Equal(t, float64(100), po.Items[0].ReceivedQuantity)
	assert.Equal(t, float64(100), repo.record(productID, warehouseID).Quantity)
}

func TestReturnInspectionRequiresAction(t *testing.T) {
	uc, _ := newFixture()
	ctx := context.Background()

	qc := createInProgressQC(t, uc, &dto.CreateQCInput{
		Type:        model.QCReturn,
		WarehouseID: warehouseID,
		ReturnID:    strPtr("ret-1"),
		ActorID:     "user-1",
		Items:       []dto.CreateQCItem{{ProductID: productID, Quantity: 10}},
	})

	_, err := uc.UpdateItems(ctx, &dto.UpdateQCItemsInput{
		QCID: qc.ID,
		Items: []dto.QCItemDisposition{
			{ItemID: qc.Items[0].ID, PassedQuantity: 10},
		},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestReturnInspectionAdmissionGate(t *testing.T) {
	tests := []struct {
		name       string
		action     model.QCAction
		wantsStock bool
	}{
		{name: "accepted stock re-enters", action: model.QCActionAccept, wantsStock: true},
		{name: "return to supplier stays out", action: model.QCActionReturnToSupplier, wantsStock: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, repo := newFixture()
			ctx := context.Background()

			qc := createInProgressQC(t, uc, &dto.CreateQCInput{
				Type:        model.QCReturn,
				WarehouseID: warehouseID,
				ReturnID:    strPtr("ret-1"),
				ActorID:     "user-1",
				Items:       []dto.CreateQCItem{{ProductID: productID, Quantity: 10}},
			})

			_, err := uc.UpdateItems(ctx, &dto.UpdateQCItemsInput{
				QCID: qc.ID,
				Items: []dto.QCItemDisposition{
					{ItemID: qc.Items[0].ID, PassedQuantity: 10, Action: actionPtr(tt.action)},
				},
			})
			require.NoError(t, err)

			_, err = uc.CompleteQualityControl(ctx, qc.ID, "inspector-1")
			require.NoError(t, err)

			rec := repo.record(productID, warehouseID)
			if tt.wantsStock {
				require.NotNil(t, rec)
				assert.Equal(t, float64(10), rec.Quantity)
			} else {
				assert.Nil(t, rec)
			}
			assert.Equal(t, model.ReturnCompleted, repo.returns["ret-1"])
		})
	}
}

func TestCompleteInvalidatesRecordCache(t *testing.T) {
	uc, repo, cache := newFixtureWithCache()
	ctx := context.Background()
	repo.seedOrder("po-1", model.PurchaseOrderItem{ProductID: productID, OrderedQuantity: 100})

	qc := createInProgressQC(t, uc, receivingInput("po-1", 50))
	_, err := uc.UpdateItems(ctx, &dto.UpdateQCItemsInput{
		QCID: qc.ID,
		Items: []dto.QCItemDisposition{
			{ItemID: qc.Items[0].ID, PassedQuantity: 50},
		},
	})
	require.NoError(t, err)
	require.Empty(t, cache.deleted)

	_, err = uc.CompleteQualityControl(ctx, qc.ID, "inspector-1")
	require.NoError(t, err)

	// Admission mutates the warehouse row; its cached copy must go.
	assert.Equal(t,
		[]string{ledger.RecordCacheKey(productID, warehouseID)},
		cache.deleted)
}

func TestCompleteRequiresMasterDataForEveryItem(t *testing.T) {
	uc, repo := newFixture()
	ctx := context.Background()

	// prod-ghost has no master data, so admission would book zero prices.
	qc := createInProgressQC(t, uc, &dto.CreateQCInput{
		Type:        model.QCRandom,
		WarehouseID: warehouseID,
		ActorID:     "user-1",
		Items:       []dto.CreateQCItem{{ProductID: "prod-ghost", Quantity: 10}},
	})

	_, err := uc.UpdateItems(ctx, &dto.UpdateQCItemsInput{
		QCID: qc.ID,
		Items: []dto.QCItemDisposition{
			{ItemID: qc.Items[0].ID, PassedQuantity: 10},
		},
	})
	require.NoError(t, err)

	_, err = uc.CompleteQualityControl(ctx, qc.ID, "inspector-1")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	// The failed completion admits nothing and leaves the inspection open.
	assert.Nil(t, repo.record("prod-ghost", warehouseID))
	stored, err := uc.GetQualityControl(ctx, qc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QCInProgress, stored.Status)
}

func TestCancelQualityControl(t *testing.T) {
	uc, repo := newFixture()
	ctx := context.Background()
	repo.seedOrder("po-1", model.PurchaseOrderItem{ProductID: productID, OrderedQuantity: 100})

	qc := createInProgressQC(t, uc, receivingInput("po-1", 50))

	cancelled, err := uc.CancelQualityControl(ctx, qc.ID, "user-1", "wrong delivery")
	require.NoError(t, err)
	assert.Equal(t, model.QCCancelled, cancelled.Status)
	assert.Contains(t, cancelled.Notes, "wrong delivery")

	// Cancellation admits nothing and leaves the purchase order untouched.
	assert.Nil(t, repo.record(productID, warehouseID))
	assert.Equal(t, model.POPending, repo.orders["po-1"].Status)

	_, err = uc.CompleteQualityControl(ctx, qc.ID, "user-1")
	assert.Equal(t, apperr.KindInvalidStateTransition, apperr.KindOf(err))
}
