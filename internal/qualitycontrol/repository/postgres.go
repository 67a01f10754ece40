package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/stockops/inventory-service/internal/apperr"
	ledgerdto "github.com/stockops/inventory-service/internal/ledger/dto"
	ledgerrepo "github.com/stockops/inventory-service/internal/ledger/repository"
	"github.com/stockops/inventory-service/internal/model"
	porepo "github.com/stockops/inventory-service/internal/purchaseorder/repository"
	"github.com/stockops/inventory-service/internal/qualitycontrol/dto"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, qc *model.QualityControl) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ref, err := ledgerrepo.NextReferenceTx(ctx, tx, "QC", qc.CreatedAt)
	if err != nil {
		return err
	}
	qc.ReferenceNo = ref

	headerQuery := `
        INSERT INTO quality_controls (
            id, reference_no, type, status, warehouse_id,
            purchase_order_id, return_id, inspector_id,
            inspected_at, completed_at, notes,
            created_at, updated_at
        )
        VALUES (
            :id, :reference_no, :type, :status, :warehouse_id,
            :purchase_order_id, :return_id, :inspector_id,
            :inspected_at, :completed_at, :notes,
            :created_at, :updated_at
        )
    `
	if _, err := tx.NamedExecContext(ctx, headerQuery, qc); err != nil {
		return err
	}

	itemQuery := `
        INSERT INTO quality_control_items (
            id, qc_id, product_id, quantity,
            passed_quantity, failed_quantity, pending_quantity,
            action, notes, created_at, updated_at
        )
        VALUES (
            :id, :qc_id, :product_id, :quantity,
            :passed_quantity, :failed_quantity, :pending_quantity,
            :action, :notes, :created_at, :updated_at
        )
    `
	for i := range qc.Items {
		if _, err := tx.NamedExecContext(ctx, itemQuery, &qc.Items[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (*model.QualityControl, error) {
	var qc model.QualityControl
	err := r.DB.GetContext(ctx, &qc, `SELECT * FROM quality_controls WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("quality control", id)
		}
		return nil, err
	}

	err = r.DB.SelectContext(ctx, &qc.Items,
		`SELECT * FROM quality_control_items WHERE qc_id = $1 ORDER BY product_id`, id)
	if err != nil {
		return nil, err
	}
	return &qc, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.QCFilters) ([]model.QualityControl, int, error) {
	var items []model.QualityControl
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.Status != "" {
		conditions = append(conditions, "status = :status")
		args["status"] = f.Status
	}
	if f.Type != "" {
		conditions = append(conditions, "type = :type")
		args["type"] = f.Type
	}
	if f.WarehouseID != "" {
		conditions = append(conditions, "warehouse_id = :warehouse_id")
		args["warehouse_id"] = f.WarehouseID
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM quality_controls" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	query := "SELECT * FROM quality_controls" + whereClause + " ORDER BY created_at DESC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &items, args)
	return items, count, err
}

func lockHeaderTx(ctx context.Context, tx *sqlx.Tx, id string, expected model.QCStatus) error {
	var status model.QCStatus
	err := tx.GetContext(ctx, &status, `SELECT status FROM quality_controls WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("quality control", id)
		}
		return err
	}
	if status != expected {
		return apperr.New(apperr.KindConflict,
			"quality control %s changed concurrently: expected %s, found %s", id, expected, status)
	}
	return nil
}

func updateHeaderTx(ctx context.Context, tx *sqlx.Tx, qc *model.QualityControl) error {
	query := `
        UPDATE quality_controls SET
            status = :status,
            inspector_id = :inspector_id,
            inspected_at = :inspected_at,
            completed_at = :completed_at,
            notes = :notes,
            updated_at = :updated_at
        WHERE id = :id
    `
	_, err := tx.NamedExecContext(ctx, query, qc)
	return err
}

func updateItemTx(ctx context.Context, tx *sqlx.Tx, item *model.QualityControlItem) error {
	query := `
        UPDATE quality_control_items SET
            passed_quantity = :passed_quantity,
            failed_quantity = :failed_quantity,
            pending_quantity = :pending_quantity,
            action = :action,
            notes = :notes,
            updated_at = :updated_at
        WHERE id = :id
    `
	_, err := tx.NamedExecContext(ctx, query, item)
	return err
}

func (r *PGRepository) UpdateStatus(ctx context.Context, qc *model.QualityControl, expected model.QCStatus) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := lockHeaderTx(ctx, tx, qc.ID, expected); err != nil {
		return err
	}
	if err := updateHeaderTx(ctx, tx, qc); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PGRepository) UpdateItems(ctx context.Context, qc *model.QualityControl, expected model.QCStatus) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := lockHeaderTx(ctx, tx, qc.ID, expected); err != nil {
		return err
	}
	for i := range qc.Items {
		if err := updateItemTx(ctx, tx, &qc.Items[i]); err != nil {
			return err
		}
	}
	if err := updateHeaderTx(ctx, tx, qc); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PGRepository) Complete(ctx context.Context, qc *model.QualityControl, expected model.QCStatus, prices map[string]model.Product) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := lockHeaderTx(ctx, tx, qc.ID, expected); err != nil {
		return err
	}

	now := time.Now()
	actor := ""
	if qc.InspectorID != nil {
		actor = *qc.InspectorID
	}

	items := make([]model.QualityControlItem, len(qc.Items))
	copy(items, qc.Items)
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	for _, item := range items {
		if qc.AdmitsToLedger(&item) {
			master := prices[item.ProductID]
			_, err := ledgerrepo.ApplyAdjustmentTx(ctx, tx, &ledgerdto.AdjustCommand{
				ProductID:     item.ProductID,
				LocationID:    qc.WarehouseID,
				LocationType:  model.LocationWarehouse,
				Kind:          model.AdjustAdd,
				Quantity:      item.PassedQuantity,
				MovementType:  model.MovementQCAdmission,
				CostPrice:     master.CostPrice,
				RetailPrice:   master.RetailPrice,
				ReferenceType: "quality_control",
				ReferenceID:   qc.ID,
				Notes:         "admitted on " + qc.ReferenceNo,
				ActorID:       actor,
			})
			if err != nil {
				return err
			}
		}

		// Failed units never entered stock; the write-off row keeps the loss
		// in the audit trail with the snapshot untouched.
		if item.FailedQuantity > 0 {
			if err := insertWriteOffTx(ctx, tx, qc, &item, actor, now); err != nil {
				return err
			}
		}
	}

	if qc.Type == model.QCReceiving && qc.PurchaseOrderID != nil {
		if _, err := porepo.LockOrderTx(ctx, tx, *qc.PurchaseOrderID); err != nil {
			return err
		}
		for _, item := range items {
			if item.PassedQuantity <= 0 {
				continue
			}
			err := porepo.IncrementReceivedTx(ctx, tx, *qc.PurchaseOrderID, item.ProductID, item.PassedQuantity, now)
			if err != nil {
				return err
			}
		}
		if _, err := porepo.RecomputeStatusTx(ctx, tx, *qc.PurchaseOrderID); err != nil {
			return err
		}
	}

	if qc.Type == model.QCReturn && qc.ReturnID != nil {
		_, err := tx.ExecContext(ctx,
			`UPDATE returns SET status = $1, updated_at = $2 WHERE id = $3`,
			model.ReturnCompleted, now, *qc.ReturnID)
		if err != nil {
			return err
		}
	}

	for i := range qc.Items {
		if err := updateItemTx(ctx, tx, &qc.Items[i]); err != nil {
			return err
		}
	}
	if err := updateHeaderTx(ctx, tx, qc); err != nil {
		return err
	}
	return tx.Commit()
}

func insertWriteOffTx(ctx context.Context, tx *sqlx.Tx, qc *model.QualityControl, item *model.QualityControlItem, actor string, now time.Time) error {
	rec, err := ledgerrepo.LockRecordTx(ctx, tx, item.ProductID, qc.WarehouseID)
	if err != nil {
		return err
	}

	var quantity, reserved float64
	if rec != nil {
		quantity = rec.Quantity
		reserved = rec.ReservedQuantity
	}

	disposition := "unspecified"
	if item.Action != nil {
		disposition = string(*item.Action)
	}

	refType := "quality_control"
	refID := qc.ID
	movement := &model.StockMovement{
		ID:             uuid.New().String(),
		ProductID:      item.ProductID,
		LocationID:     qc.WarehouseID,
		MovementType:   model.MovementWriteOff,
		QuantityChange: -item.FailedQuantity,
		QuantityBefore: quantity,
		QuantityAfter:  quantity,
		ReservedBefore: reserved,
		ReservedAfter:  reserved,
		ReferenceType:  &refType,
		ReferenceID:    &refID,
		Notes:          fmt.Sprintf("%v units failed inspection %s (%s)", item.FailedQuantity, qc.ReferenceNo, disposition),
		CreatedAt:      now,
	}
	if actor != "" {
		movement.CreatedBy = &actor
	}
	return ledgerrepo.InsertMovementTx(ctx, tx, movement)
}
