package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockops/inventory-service/internal/model"
	"github.com/stockops/inventory-service/internal/transfer/repository"
)

func newMockRepo(t *testing.T) (*repository.PGRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "sqlmock")
	return repository.NewPGRepository(db), mock
}

func recordColumns() []string {
	return []string{
		"id", "product_id", "location_id", "location_type",
		"quantity", "reserved_quantity", "cost_price", "retail_price",
		"status", "updated_at",
	}
}

func lockedRow(productID, locationID string, quantity, reserved float64) *sqlmock.Rows {
	return sqlmock.NewRows(recordColumns()).AddRow(
		"rec-1", productID, locationID, "WAREHOUSE",
		quantity, reserved, 4.0, 9.0,
		"AVAILABLE", time.Now(),
	)
}

func inTransitTransfer(received float64) *model.Transfer {
	now := time.Now()
	actor := "receiver-1"
	t := &model.Transfer{
		BaseModel:             model.BaseModel{ID: "trf-1", CreatedAt: now, UpdatedAt: now},
		ReferenceNo:           "TRF-20260901-0001",
		TransferType:          model.TransferWarehouseToStore,
		Status:                model.TransferCompleted,
		SourceLocationID:      "wh-1",
		DestinationLocationID: "st-1",
		CompletedBy:           &actor,
		CompletedAt:           &now,
		Items: []model.TransferItem{
			{
				ID:                "item-1",
				TransferID:        "trf-1",
				ProductID:         "prod-1",
				RequestedQuantity: 30,
				ReceivedQuantity:  &received,
				TargetCostPrice:   4,
				TargetRetailPrice: 9,
				Status:            model.TransferItemCompleted,
				CreatedAt:         now,
				UpdatedAt:         now,
			},
		},
	}
	return t
}

// Completion touches the destination and the source row of each item. The
// ledger commands are sorted by (product, location), so for this receipt the
// store row ("st-1") must be locked before the warehouse row ("wh-1"); a
// transfer running the opposite direction sorts to the same order, which is
// what keeps counter-direction receipts from deadlocking each other.
func TestCompleteLocksRowsInProductLocationOrder(t *testing.T) {
	repo, mock := newMockRepo(t)
	trf := inTransitTransfer(30)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM transfers WHERE id = \$1 FOR UPDATE`).
		WithArgs("trf-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("IN_TRANSIT"))

	// Destination first: (prod-1, st-1) < (prod-1, wh-1).
	mock.ExpectQuery(`SELECT \* FROM inventory_records WHERE product_id = \$1 AND location_id = \$2 FOR UPDATE`).
		WithArgs("prod-1", "st-1").
		WillReturnRows(sqlmock.NewRows(recordColumns()))
	mock.ExpectExec(`INSERT INTO inventory_records`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO stock_movements`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery(`SELECT \* FROM inventory_records WHERE product_id = \$1 AND location_id = \$2 FOR UPDATE`).
		WithArgs("prod-1", "wh-1").
		WillReturnRows(lockedRow("prod-1", "wh-1", 100, 30))
	mock.ExpectExec(`INSERT INTO inventory_records`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO stock_movements`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(`UPDATE transfer_items`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE transfers`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Complete(context.Background(), trf, model.TransferInTransit)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A short receipt sheds the remaining reservation as loss on the same source
// row, right after the transfer_out command. Both source commands still run
// after the destination admission because of the (product, location) sort.
func TestCompleteShortReceiptKeepsOutBeforeLoss(t *testing.T) {
	repo, mock := newMockRepo(t)
	trf := inTransitTransfer(25)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM transfers WHERE id = \$1 FOR UPDATE`).
		WithArgs("trf-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("IN_TRANSIT"))

	mock.ExpectQuery(`SELECT \* FROM inventory_records WHERE product_id = \$1 AND location_id = \$2 FOR UPDATE`).
		WithArgs("prod-1", "st-1").
		WillReturnRows(sqlmock.NewRows(recordColumns()))
	mock.ExpectExec(`INSERT INTO inventory_records`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO stock_movements`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// transfer_out for the 25 received units.
	mock.ExpectQuery(`SELECT \* FROM inventory_records WHERE product_id = \$1 AND location_id = \$2 FOR UPDATE`).
		WithArgs("prod-1", "wh-1").
		WillReturnRows(lockedRow("prod-1", "wh-1", 100, 30))
	mock.ExpectExec(`INSERT INTO inventory_records`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO stock_movements`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// transfer_loss for the 5 missing units.
	mock.ExpectQuery(`SELECT \* FROM inventory_records WHERE product_id = \$1 AND location_id = \$2 FOR UPDATE`).
		WithArgs("prod-1", "wh-1").
		WillReturnRows(lockedRow("prod-1", "wh-1", 75, 5))
	mock.ExpectExec(`INSERT INTO inventory_records`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO stock_movements`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(`UPDATE transfer_items`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE transfers`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Complete(context.Background(), trf, model.TransferInTransit)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
