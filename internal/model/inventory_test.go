package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockops/inventory-service/internal/apperr"
	"github.com/stockops/inventory-service/internal/model"
)

func newRecord(quantity, reserved float64) *model.InventoryRecord {
	rec := &model.InventoryRecord{
		ProductID:        "prod-1",
		LocationID:       "wh-1",
		LocationType:     model.LocationWarehouse,
		Quantity:         quantity,
		ReservedQuantity: reserved,
	}
	rec.RecomputeStatus()
	return rec
}

func TestInventoryRecordApply(t *testing.T) {
	tests := []struct {
		name         string
		quantity     float64
		reserved     float64
		kind         model.AdjustmentKind
		delta        float64
		wantErr      apperr.Kind
		wantQuantity float64
		wantReserved float64
	}{
		{
			name:     "add increases quantity",
			quantity: 100, reserved: 0,
			kind: model.AdjustAdd, delta: 25,
			wantQuantity: 125, wantReserved: 0,
		},
		{
			name:     "remove decreases quantity",
			quantity: 100, reserved: 0,
			kind: model.AdjustRemove, delta: 40,
			wantQuantity: 60, wantReserved: 0,
		},
		{
			name:     "remove cannot dip into reserved stock",
			quantity: 100, reserved: 30,
			kind: model.AdjustRemove, delta: 80,
			wantErr: apperr.KindInsufficientStock,
		},
		{
			name:     "remove down to exactly reserved is allowed",
			quantity: 100, reserved: 30,
			kind: model.AdjustRemove, delta: 70,
			wantQuantity: 30, wantReserved: 30,
		},
		{
			name:     "set replaces quantity",
			quantity: 100, reserved: 0,
			kind: model.AdjustSet, delta: 12,
			wantQuantity: 12, wantReserved: 0,
		},
		{
			name:     "set below reserved fails",
			quantity: 100, reserved: 30,
			kind: model.AdjustSet, delta: 20,
			wantErr: apperr.KindInsufficientStock,
		},
		{
			name:     "reserve within available",
			quantity: 100, reserved: 0,
			kind: model.AdjustReserve, delta: 30,
			wantQuantity: 100, wantReserved: 30,
		},
		{
			name:     "reserve beyond available fails",
			quantity: 100, reserved: 30,
			kind: model.AdjustReserve, delta: 80,
			wantErr: apperr.KindInsufficientAvailable,
		},
		{
			name:     "release frees reservation",
			quantity: 100, reserved: 30,
			kind: model.AdjustReleaseReserve, delta: 30,
			wantQuantity: 100, wantReserved: 0,
		},
		{
			name:     "release clamps at zero",
			quantity: 100, reserved: 10,
			kind: model.AdjustReleaseReserve, delta: 25,
			wantQuantity: 100, wantReserved: 0,
		},
		{
			name:     "commit consumes quantity and reservation together",
			quantity: 100, reserved: 30,
			kind: model.AdjustCommitReserve, delta: 30,
			wantQuantity: 70, wantReserved: 0,
		},
		{
			name:     "commit beyond reservation fails",
			quantity: 100, reserved: 10,
			kind: model.AdjustCommitReserve, delta: 30,
			wantErr: apperr.KindInsufficientAvailable,
		},
		{
			name:     "negative delta rejected",
			quantity: 100, reserved: 0,
			kind: model.AdjustAdd, delta: -5,
			wantErr: apperr.KindValidation,
		},
		{
			name:     "unknown kind rejected",
			quantity: 100, reserved: 0,
			kind: model.AdjustmentKind("SHRINK"), delta: 5,
			wantErr: apperr.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newRecord(tt.quantity, tt.reserved)
			err := rec.Apply(tt.kind, tt.delta)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, apperr.KindOf(err))
				// Failed mutations must leave the record untouched.
				assert.Equal(t, tt.quantity, rec.Quantity)
				assert.Equal(t, tt.reserved, rec.ReservedQuantity)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantQuantity, rec.Quantity)
			assert.Equal(t, tt.wantReserved, rec.ReservedQuantity)
			assert.GreaterOrEqual(t, rec.Quantity, rec.ReservedQuantity)
		})
	}
}

func TestInventoryRecordDoubleReservation(t *testing.T) {
	// Two overlapping holds against the same row: the second must fail on
	// available quantity, not raw quantity.
	rec := newRecord(100, 0)

	require.NoError(t, rec.Apply(model.AdjustReserve, 30))
	assert.Equal(t, float64(70), rec.AvailableQuantity())

	err := rec.Apply(model.AdjustReserve, 80)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInsufficientAvailable, apperr.KindOf(err))
	assert.Equal(t, float64(100), rec.Quantity)
	assert.Equal(t, float64(30), rec.ReservedQuantity)

	require.NoError(t, rec.Apply(model.AdjustReserve, 70))
	assert.Equal(t, float64(0), rec.AvailableQuantity())
}

func TestRecomputeStatus(t *testing.T) {
	rec := newRecord(10, 0)
	assert.Equal(t, model.InventoryAvailable, rec.Status)

	require.NoError(t, rec.Apply(model.AdjustRemove, 10))
	assert.Equal(t, model.InventoryOutOfStock, rec.Status)

	require.NoError(t, rec.Apply(model.AdjustAdd, 1))
	assert.Equal(t, model.InventoryAvailable, rec.Status)
}
