package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/stockops/inventory-service/internal/apperr"
	"github.com/stockops/inventory-service/internal/model"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	err := r.DB.GetContext(ctx, &po, `SELECT * FROM purchase_orders WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("purchase order", id)
		}
		return nil, err
	}

	err = r.DB.SelectContext(ctx, &po.Items,
		`SELECT * FROM purchase_order_items WHERE purchase_order_id = $1 ORDER BY product_id`, id)
	if err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *PGRepository) RecomputeStatus(ctx context.Context, id string) (*model.PurchaseOrder, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := RecomputeStatusTx(ctx, tx, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// LockOrderTx locks the purchase order header on the caller's transaction.
func LockOrderTx(ctx context.Context, tx *sqlx.Tx, id string) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	err := tx.GetContext(ctx, &po, `SELECT * FROM purchase_orders WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("purchase order", id)
		}
		return nil, err
	}
	return &po, nil
}

// IncrementReceivedTx bumps an item's received quantity. Received quantities
// only ever grow; decrements have no business meaning here.
func IncrementReceivedTx(ctx context.Context, tx *sqlx.Tx, poID, productID string, qty float64, at time.Time) error {
	res, err := tx.ExecContext(ctx, `
        UPDATE purchase_order_items
        SET received_quantity = received_quantity + $1, updated_at = $2
        WHERE purchase_order_id = $3 AND product_id = $4
    `, qty, at, poID, productID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.NotFound("purchase order item", poID+"/"+productID)
	}
	return nil
}

// RecomputeStatusTx derives the order status from its items on the caller's
// transaction and persists it when it changed.
func RecomputeStatusTx(ctx context.Context, tx *sqlx.Tx, id string) (model.POStatus, error) {
	po, err := LockOrderTx(ctx, tx, id)
	if err != nil {
		return "", err
	}

	var items []model.PurchaseOrderItem
	err = tx.SelectContext(ctx, &items,
		`SELECT * FROM purchase_order_items WHERE purchase_order_id = $1`, id)
	if err != nil {
		return "", err
	}

	derived := model.DerivePOStatus(po.Status, items)
	if derived != po.Status {
		_, err = tx.ExecContext(ctx,
			`UPDATE purchase_orders SET status = $1, updated_at = $2 WHERE id = $3`,
			derived, time.Now(), id)
		if err != nil {
			return "", err
		}
	}
	return derived, nil
}
