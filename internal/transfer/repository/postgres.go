package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/stockops/inventory-service/internal/apperr"
	ledgerdto "github.com/stockops/inventory-service/internal/ledger/dto"
	ledgerrepo "github.com/stockops/inventory-service/internal/ledger/repository"
	"github.com/stockops/inventory-service/internal/model"
	"github.com/stockops/inventory-service/internal/transfer/dto"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, t *model.Transfer) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ref, err := ledgerrepo.NextReferenceTx(ctx, tx, "TRF", t.RequestedAt)
	if err != nil {
		return err
	}
	t.ReferenceNo = ref

	headerQuery := `
        INSERT INTO transfers (
            id, reference_no, transfer_type, status,
            source_location_id, destination_location_id,
            requested_by, requested_at, rejection_reason,
            item_count, total_cost, total_retail,
            created_at, updated_at
        )
        VALUES (
            :id, :reference_no, :transfer_type, :status,
            :source_location_id, :destination_location_id,
            :requested_by, :requested_at, :rejection_reason,
            :item_count, :total_cost, :total_retail,
            :created_at, :updated_at
        )
    `
	if _, err := tx.NamedExecContext(ctx, headerQuery, t); err != nil {
		return err
	}

	for i := range t.Items {
		if err := insertItemTx(ctx, tx, &t.Items[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertItemTx(ctx context.Context, tx *sqlx.Tx, item *model.TransferItem) error {
	query := `
        INSERT INTO transfer_items (
            id, transfer_id, product_id,
            requested_quantity, received_quantity,
            source_cost_price, source_retail_price,
            target_cost_price, target_retail_price,
            status, bin_id, created_at, updated_at
        )
        VALUES (
            :id, :transfer_id, :product_id,
            :requested_quantity, :received_quantity,
            :source_cost_price, :source_retail_price,
            :target_cost_price, :target_retail_price,
            :status, :bin_id, :created_at, :updated_at
        )
    `
	_, err := tx.NamedExecContext(ctx, query, item)
	return err
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (*model.Transfer, error) {
	var t model.Transfer
	err := r.DB.GetContext(ctx, &t, `SELECT * FROM transfers WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("transfer", id)
		}
		return nil, err
	}

	err = r.DB.SelectContext(ctx, &t.Items,
		`SELECT * FROM transfer_items WHERE transfer_id = $1 ORDER BY product_id`, id)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.TransferFilters) ([]model.Transfer, int, error) {
	var items []model.Transfer
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.Status != "" {
		conditions = append(conditions, "status = :status")
		args["status"] = f.Status
	}
	if f.SourceLocationID != "" {
		conditions = append(conditions, "source_location_id = :source_location_id")
		args["source_location_id"] = f.SourceLocationID
	}
	if f.DestinationLocationID != "" {
		conditions = append(conditions, "destination_location_id = :destination_location_id")
		args["destination_location_id"] = f.DestinationLocationID
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM transfers" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	query := "SELECT * FROM transfers" + whereClause + " ORDER BY requested_at DESC"
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

// lockHeaderTx locks the transfer header and verifies the caller's view of
// the status still holds. A stale view means someone else already moved the
// state machine.
func lockHeaderTx(ctx context.Context, tx *sqlx.Tx, id string, expected model.TransferStatus) error {
	var status model.TransferStatus
	err := tx.GetContext(ctx, &status, `SELECT status FROM transfers WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("transfer", id)
		}
		return err
	}
	if status != expected {
		return apperr.New(apperr.KindConflict,
			"transfer %s changed concurrently: expected %s, found %s", id, expected, status)
	}
	return nil
}

func updateHeaderTx(ctx context.Context, tx *sqlx.Tx, t *model.Transfer) error {
	query := `
        UPDATE transfers SET
            status = :status,
            approved_by = :approved_by, approved_at = :approved_at,
            rejected_by = :rejected_by, rejected_at = :rejected_at,
            completed_by = :completed_by, completed_at = :completed_at,
            rejection_reason = :rejection_reason,
            item_count = :item_count, total_cost = :total_cost, total_retail = :total_retail,
            updated_at = :updated_at
        WHERE id = :id
    `
	_, err := tx.NamedExecContext(ctx, query, t)
	return err
}

func updateItemTx(ctx context.Context, tx *sqlx.Tx, item *model.TransferItem) error {
	query := `
        UPDATE transfer_items SET
            received_quantity = :received_quantity,
            status = :status,
            bin_id = :bin_id,
            updated_at = :updated_at
        WHERE id = :id
    `
	_, err := tx.NamedExecContext(ctx, query, item)
	return err
}

func (r *PGRepository) UpdateStatus(ctx context.Context, t *model.Transfer, expected model.TransferStatus) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := lockHeaderTx(ctx, tx, t.ID, expected); err != nil {
		return err
	}
	if err := updateHeaderTx(ctx, tx, t); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PGRepository) Reserve(ctx context.Context, t *model.Transfer, expected model.TransferStatus) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := lockHeaderTx(ctx, tx, t.ID, expected); err != nil {
		return err
	}

	// Stable lock order across transfers touching overlapping products.
	items := sortedByProduct(t.Items)
	for _, item := range items {
		_, err := ledgerrepo.ApplyAdjustmentTx(ctx, tx, &ledgerdto.AdjustCommand{
			ProductID:     item.ProductID,
			LocationID:    t.SourceLocationID,
			Kind:          model.AdjustReserve,
			Quantity:      item.RequestedQuantity,
			MovementType:  model.MovementReserve,
			ReferenceType: "transfer",
			ReferenceID:   t.ID,
			Notes:         "reserved for " + t.ReferenceNo,
			ActorID:       actorOf(t.ApprovedBy),
		})
		if err != nil {
			// Any item failing aborts the whole approval; no partial
			// reservation survives the rollback.
			return err
		}
	}

	if err := updateHeaderTx(ctx, tx, t); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PGRepository) Release(ctx context.Context, t *model.Transfer, expected model.TransferStatus, releaseReservation bool) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := lockHeaderTx(ctx, tx, t.ID, expected); err != nil {
		return err
	}

	if releaseReservation {
		items := sortedByProduct(t.Items)
		for _, item := range items {
			_, err := ledgerrepo.ApplyAdjustmentTx(ctx, tx, &ledgerdto.AdjustCommand{
				ProductID:     item.ProductID,
				LocationID:    t.SourceLocationID,
				Kind:          model.AdjustReleaseReserve,
				Quantity:      item.RequestedQuantity,
				MovementType:  model.MovementRelease,
				ReferenceType: "transfer",
				ReferenceID:   t.ID,
				Notes:         "reservation released for " + t.ReferenceNo,
				ActorID:       actorOf(t.RejectedBy),
			})
			if err != nil {
				return err
			}
		}
	}

	for i := range t.Items {
		if err := updateItemTx(ctx, tx, &t.Items[i]); err != nil {
			return err
		}
	}
	if err := updateHeaderTx(ctx, tx, t); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PGRepository) Complete(ctx context.Context, t *model.Transfer, expected model.TransferStatus) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := lockHeaderTx(ctx, tx, t.ID, expected); err != nil {
		return err
	}

	for _, cmd := range completionCommands(t) {
		if _, err := ledgerrepo.ApplyAdjustmentTx(ctx, tx, cmd); err != nil {
			return err
		}
	}

	for i := range t.Items {
		if err := updateItemTx(ctx, tx, &t.Items[i]); err != nil {
			return err
		}
	}
	if err := updateHeaderTx(ctx, tx, t); err != nil {
		return err
	}
	return tx.Commit()
}

// completionCommands flattens the receipt into ledger commands sorted by
// (product, location). Completion touches two rows per item, so sorting by
// product alone still lets counter-direction transfers lock source and
// destination in opposite orders. The stable sort keeps the transfer_out
// command ahead of the same row's transfer_loss command.
func completionCommands(t *model.Transfer) []*ledgerdto.AdjustCommand {
	actor := actorOf(t.CompletedBy)
	cmds := make([]*ledgerdto.AdjustCommand, 0, 3*len(t.Items))

	for _, item := range t.Items {
		received := float64(0)
		if item.ReceivedQuantity != nil {
			received = *item.ReceivedQuantity
		}
		shortfall := item.RequestedQuantity - received

		// Commit the received part of the reservation at the source.
		if received > 0 {
			cmds = append(cmds, &ledgerdto.AdjustCommand{
				ProductID:     item.ProductID,
				LocationID:    t.SourceLocationID,
				Kind:          model.AdjustCommitReserve,
				Quantity:      received,
				MovementType:  model.MovementTransferOut,
				ReferenceType: "transfer",
				ReferenceID:   t.ID,
				Notes:         "shipped on " + t.ReferenceNo,
				ActorID:       actor,
			})
		}

		// The shortfall consumes the rest of the reservation as shrinkage;
		// it never re-credits the source and never reaches the destination.
		if shortfall > 0 {
			cmds = append(cmds, &ledgerdto.AdjustCommand{
				ProductID:     item.ProductID,
				LocationID:    t.SourceLocationID,
				Kind:          model.AdjustCommitReserve,
				Quantity:      shortfall,
				MovementType:  model.MovementTransferLoss,
				ReferenceType: "transfer",
				ReferenceID:   t.ID,
				Notes:         fmt.Sprintf("shrinkage of %v on %s", shortfall, t.ReferenceNo),
				ActorID:       actor,
			})
		}

		if received > 0 {
			cmds = append(cmds, &ledgerdto.AdjustCommand{
				ProductID:     item.ProductID,
				LocationID:    t.DestinationLocationID,
				LocationType:  destinationType(t.TransferType),
				Kind:          model.AdjustAdd,
				Quantity:      received,
				MovementType:  model.MovementTransferIn,
				CostPrice:     item.TargetCostPrice,
				RetailPrice:   item.TargetRetailPrice,
				ReferenceType: "transfer",
				ReferenceID:   t.ID,
				Notes:         "received on " + t.ReferenceNo,
				ActorID:       actor,
			})
		}
	}

	sort.SliceStable(cmds, func(i, j int) bool {
		if cmds[i].ProductID != cmds[j].ProductID {
			return cmds[i].ProductID < cmds[j].ProductID
		}
		return cmds[i].LocationID < cmds[j].LocationID
	})
	return cmds
}

func sortedByProduct(items []model.TransferItem) []model.TransferItem {
	sorted := make([]model.TransferItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ProductID < sorted[j].ProductID
	})
	return sorted
}

func destinationType(tt model.TransferType) model.LocationType {
	switch tt {
	case model.TransferWarehouseToWarehouse, model.TransferStoreToWarehouse:
		return model.LocationWarehouse
	default:
		return model.LocationStore
	}
}

func actorOf(actor *string) string {
	if actor == nil {
		return ""
	}
	return *actor
}
