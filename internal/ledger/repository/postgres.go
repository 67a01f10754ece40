package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/stockops/inventory-service/internal/apperr"
	"github.com/stockops/inventory-service/internal/ledger/dto"
	"github.com/stockops/inventory-service/internal/model"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetRecord(ctx context.Context, productID, locationID string) (*model.InventoryRecord, error) {
	var rec model.InventoryRecord
	query := `SELECT * FROM inventory_records WHERE product_id = $1 AND location_id = $2`
	err := r.DB.GetContext(ctx, &rec, query, productID, locationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Caller decides whether absence is an error
		}
		return nil, err
	}
	return &rec, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.RecordFilters) ([]model.InventoryRecord, int, error) {
	var items []model.InventoryRecord
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.ProductID != "" {
		conditions = append(conditions, "product_id = :product_id")
		args["product_id"] = f.ProductID
	}
	if f.LocationID != nil && *f.LocationID != "" {
		conditions = append(conditions, "location_id = :location_id")
		args["location_id"] = *f.LocationID
	}
	if f.Status != "" {
		conditions = append(conditions, "status = :status")
		args["status"] = f.Status
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM inventory_records" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	query := "SELECT * FROM inventory_records" + whereClause + " ORDER BY updated_at DESC"
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

func (r *PGRepository) ListLowStock(ctx context.Context, locationID *string, page, pageSize int) ([]dto.LowStockRow, int, error) {
	baseFrom := `
        FROM inventory_records ir
        JOIN products p ON p.id = ir.product_id
        WHERE (ir.quantity - ir.reserved_quantity) <= p.reorder_point AND p.reorder_point > 0`

	args := []interface{}{}
	if locationID != nil && *locationID != "" {
		baseFrom += ` AND ir.location_id = $1`
		args = append(args, *locationID)
	}

	var count int
	if err := r.DB.GetContext(ctx, &count, "SELECT count(*)"+baseFrom, args...); err != nil {
		return nil, 0, err
	}

	query := `
        SELECT ir.product_id, p.sku, p.name, ir.location_id,
               ir.quantity, ir.reserved_quantity,
               ir.quantity - ir.reserved_quantity AS available_quantity,
               p.reorder_point` + baseFrom + ` ORDER BY available_quantity ASC`
	if pageSize > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)
	}

	var items []dto.LowStockRow
	err := r.DB.SelectContext(ctx, &items, query, args...)
	return items, count, err
}

func (r *PGRepository) Adjust(ctx context.Context, cmd *dto.AdjustCommand) (*model.InventoryRecord, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rec, err := ApplyAdjustmentTx(ctx, tx, cmd)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, mapSQLError(err)
	}
	return rec, nil
}

func (r *PGRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.StockMovement, int, error) {
	var items []model.StockMovement
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.ProductID != "" {
		conditions = append(conditions, "product_id = :product_id")
		args["product_id"] = f.ProductID
	}
	if f.LocationID != nil && *f.LocationID != "" {
		conditions = append(conditions, "location_id = :location_id")
		args["location_id"] = *f.LocationID
	}
	if f.MovementType != "" {
		conditions = append(conditions, "movement_type = :movement_type")
		args["movement_type"] = f.MovementType
	}
	if f.ReferenceID != "" {
		conditions = append(conditions, "reference_id = :reference_id")
		args["reference_id"] = f.ReferenceID
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= :start_date")
		args["start_date"] = *f.StartDate
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at <= :end_date")
		args["end_date"] = *f.EndDate
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM stock_movements" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	query := "SELECT * FROM stock_movements" + whereClause + " ORDER BY created_at DESC"
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

// LockRecordTx loads the (product, location) row under FOR UPDATE so the
// reserved <= quantity invariant cannot be raced. Returns nil when absent.
func LockRecordTx(ctx context.Context, tx *sqlx.Tx, productID, locationID string) (*model.InventoryRecord, error) {
	var rec model.InventoryRecord
	query := `SELECT * FROM inventory_records WHERE product_id = $1 AND location_id = $2 FOR UPDATE`
	err := tx.GetContext(ctx, &rec, query, productID, locationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, mapSQLError(err)
	}
	return &rec, nil
}

// ApplyAdjustmentTx is the single mutation primitive of the ledger: lock the
// row, apply the domain math, upsert, and write the audit movement — all on
// the caller's transaction. Transfer and QC repositories compose several of
// these into one transaction; callers touching multiple rows must sort their
// commands by (product id, location id) first to keep lock acquisition order
// stable.
func ApplyAdjustmentTx(ctx context.Context, tx *sqlx.Tx, cmd *dto.AdjustCommand) (*model.InventoryRecord, error) {
	rec, err := LockRecordTx(ctx, tx, cmd.ProductID, cmd.LocationID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if rec == nil {
		// Only stock admission may create a record implicitly.
		if cmd.Kind != model.AdjustAdd && cmd.Kind != model.AdjustSet {
			return nil, apperr.NotFound("inventory record", cmd.ProductID+"@"+cmd.LocationID)
		}
		rec = &model.InventoryRecord{
			ID:           uuid.New().String(),
			ProductID:    cmd.ProductID,
			LocationID:   cmd.LocationID,
			LocationType: cmd.LocationType,
			CostPrice:    cmd.CostPrice,
			RetailPrice:  cmd.RetailPrice,
			Status:       model.InventoryAvailable,
		}
	}

	quantityBefore := rec.Quantity
	reservedBefore := rec.ReservedQuantity

	if err := rec.Apply(cmd.Kind, cmd.Quantity); err != nil {
		return nil, err
	}
	rec.UpdatedAt = now

	if err := upsertRecordTx(ctx, tx, rec); err != nil {
		return nil, mapSQLError(err)
	}

	change := rec.Quantity - quantityBefore
	movement := &model.StockMovement{
		ID:             uuid.New().String(),
		ProductID:      cmd.ProductID,
		LocationID:     cmd.LocationID,
		MovementType:   cmd.MovementType,
		QuantityChange: change,
		QuantityBefore: quantityBefore,
		QuantityAfter:  rec.Quantity,
		ReservedBefore: reservedBefore,
		ReservedAfter:  rec.ReservedQuantity,
		Notes:          cmd.Notes,
		CreatedAt:      now,
	}
	if cmd.ReferenceType != "" {
		movement.ReferenceType = &cmd.ReferenceType
	}
	if cmd.ReferenceID != "" {
		movement.ReferenceID = &cmd.ReferenceID
	}
	if cmd.ActorID != "" {
		movement.CreatedBy = &cmd.ActorID
	}

	if err := InsertMovementTx(ctx, tx, movement); err != nil {
		return nil, err
	}
	return rec, nil
}

func upsertRecordTx(ctx context.Context, tx *sqlx.Tx, rec *model.InventoryRecord) error {
	query := `
        INSERT INTO inventory_records (
            id, product_id, location_id, location_type,
            quantity, reserved_quantity, cost_price, retail_price,
            status, updated_at
        )
        VALUES (
            :id, :product_id, :location_id, :location_type,
            :quantity, :reserved_quantity, :cost_price, :retail_price,
            :status, :updated_at
        )
        ON CONFLICT (product_id, location_id)
        DO UPDATE SET
            quantity = EXCLUDED.quantity,
            reserved_quantity = EXCLUDED.reserved_quantity,
            status = EXCLUDED.status,
            updated_at = EXCLUDED.updated_at
    `
	_, err := tx.NamedExecContext(ctx, query, rec)
	return err
}

// InsertMovementTx writes one immutable audit row on the caller's
// transaction. Shrinkage and write-off rows go through here too; audit is
// part of the mutation, never a best-effort side channel.
func InsertMovementTx(ctx context.Context, tx *sqlx.Tx, m *model.StockMovement) error {
	query := `
        INSERT INTO stock_movements (
            id, product_id, location_id, movement_type,
            quantity_change, quantity_before, quantity_after,
            reserved_before, reserved_after,
            reference_type, reference_id, notes, created_by, created_at
        )
        VALUES (
            :id, :product_id, :location_id, :movement_type,
            :quantity_change, :quantity_before, :quantity_after,
            :reserved_before, :reserved_after,
            :reference_type, :reference_id, :notes, :created_by, :created_at
        )
    `
	_, err := tx.NamedExecContext(ctx, query, m)
	if err != nil {
		return mapSQLError(err)
	}
	return nil
}

// NextReferenceTx produces the next date-sequenced reference number for the
// given scope (e.g. "TRF", "QC") on the caller's transaction.
func NextReferenceTx(ctx context.Context, tx *sqlx.Tx, scope string, at time.Time) (string, error) {
	day := at.Format("20060102")
	var seq int
	query := `
        INSERT INTO reference_sequences (scope, day, last_value)
        VALUES ($1, $2, 1)
        ON CONFLICT (scope, day)
        DO UPDATE SET last_value = reference_sequences.last_value + 1
        RETURNING last_value
    `
	if err := tx.GetContext(ctx, &seq, query, scope, day); err != nil {
		return "", mapSQLError(err)
	}
	return fmt.Sprintf("%s-%s-%04d", scope, day, seq), nil
}

// mapSQLError surfaces serialization/deadlock failures as Conflict so callers
// know a retry is theirs to make.
func mapSQLError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return apperr.Wrap(apperr.KindConflict, err, "concurrent modification detected")
		}
	}
	return err
}
