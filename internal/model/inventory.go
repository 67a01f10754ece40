package model

import (
	"time"

	"github.com/stockops/inventory-service/internal/apperr"
)

type InventoryStatus string

const (
	InventoryAvailable  InventoryStatus = "AVAILABLE"
	InventoryOutOfStock InventoryStatus = "OUT_OF_STOCK"
	InventoryExpired    InventoryStatus = "EXPIRED"
)

// AdjustmentKind is the closed set of ledger mutations. Everything that
// changes stock anywhere in the system goes through one of these.
type AdjustmentKind string

const (
	AdjustAdd            AdjustmentKind = "ADD"
	AdjustRemove         AdjustmentKind = "REMOVE"
	AdjustSet            AdjustmentKind = "SET"
	AdjustReserve        AdjustmentKind = "RESERVE"
	AdjustReleaseReserve AdjustmentKind = "RELEASE_RESERVE"
	// AdjustCommitReserve decrements quantity and reserved quantity together,
	// consuming a reservation on transfer receipt.
	AdjustCommitReserve AdjustmentKind = "COMMIT_RESERVE"
)

// InventoryRecord is the authoritative stock row per (product, location).
type InventoryRecord struct {
	ID               string          `db:"id" json:"id"`
	ProductID        string          `db:"product_id" json:"product_id"`
	LocationID       string          `db:"location_id" json:"location_id"`
	LocationType     LocationType    `db:"location_type" json:"location_type"`
	Quantity         float64         `db:"quantity" json:"quantity"`
	ReservedQuantity float64         `db:"reserved_quantity" json:"reserved_quantity"`
	CostPrice        float64         `db:"cost_price" json:"cost_price"`
	RetailPrice      float64         `db:"retail_price" json:"retail_price"`
	Status           InventoryStatus `db:"status" json:"status"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

type LocationType string

const (
	LocationWarehouse LocationType = "WAREHOUSE"
	LocationStore     LocationType = "STORE"
)

// AvailableQuantity is what may be sold or newly reserved.
func (r *InventoryRecord) AvailableQuantity() float64 {
	return r.Quantity - r.ReservedQuantity
}

// Apply mutates the record according to kind, enforcing the ledger invariant
// 0 <= reserved_quantity <= quantity. It is pure domain math; persistence and
// locking belong to the repository, which must hold the row lock while
// calling this.
func (r *InventoryRecord) Apply(kind AdjustmentKind, delta float64) error {
	if delta < 0 {
		return apperr.New(apperr.KindValidation, "adjustment quantity must be non-negative, got %v", delta)
	}

	switch kind {
	case AdjustAdd:
		r.Quantity += delta
	case AdjustRemove:
		if r.Quantity-delta < r.ReservedQuantity {
			return apperr.New(apperr.KindInsufficientStock,
				"cannot remove %v from product %s at %s: quantity=%v reserved=%v",
				delta, r.ProductID, r.LocationID, r.Quantity, r.ReservedQuantity)
		}
		r.Quantity -= delta
	case AdjustSet:
		if delta < r.ReservedQuantity {
			return apperr.New(apperr.KindInsufficientStock,
				"cannot set quantity to %v below reserved %v for product %s at %s",
				delta, r.ReservedQuantity, r.ProductID, r.LocationID)
		}
		r.Quantity = delta
	case AdjustReserve:
		if r.ReservedQuantity+delta > r.Quantity {
			return apperr.New(apperr.KindInsufficientAvailable,
				"cannot reserve %v of product %s at %s: available=%v",
				delta, r.ProductID, r.LocationID, r.AvailableQuantity())
		}
		r.ReservedQuantity += delta
	case AdjustReleaseReserve:
		// Clamped at zero so a duplicate release is harmless.
		r.ReservedQuantity -= delta
		if r.ReservedQuantity < 0 {
			r.ReservedQuantity = 0
		}
	case AdjustCommitReserve:
		if delta > r.ReservedQuantity {
			return apperr.New(apperr.KindInsufficientAvailable,
				"cannot commit %v of product %s at %s: reserved=%v",
				delta, r.ProductID, r.LocationID, r.ReservedQuantity)
		}
		r.Quantity -= delta
		r.ReservedQuantity -= delta
	default:
		return apperr.New(apperr.KindValidation, "unknown adjustment kind %q", kind)
	}

	r.RecomputeStatus()
	return nil
}

// RecomputeStatus derives status from quantity after every mutation. EXPIRED
// is only ever set administratively and survives until stock moves again.
func (r *InventoryRecord) RecomputeStatus() {
	if r.Quantity <= 0 {
		r.Status = InventoryOutOfStock
		return
	}
	r.Status = InventoryAvailable
}

// MovementKind tags each audit row with the workflow that produced it.
type MovementKind string

const (
	MovementAdjustment   MovementKind = "adjustment"
	MovementSale         MovementKind = "sale"
	MovementReserve      MovementKind = "reserve"
	MovementRelease      MovementKind = "release"
	MovementTransferOut  MovementKind = "transfer_out"
	MovementTransferIn   MovementKind = "transfer_in"
	MovementTransferLoss MovementKind = "transfer_loss"
	MovementQCAdmission  MovementKind = "qc_admission"
	MovementWriteOff     MovementKind = "write_off"
)

// StockMovement is an immutable audit row written in the same transaction as
// the ledger mutation it records. Before/after fields snapshot the inventory
// row. Write-off rows are the one exception: the failed units never entered
// stock, so they carry the lost magnitude in QuantityChange with an unchanged
// snapshot.
type StockMovement struct {
	ID             string       `db:"id" json:"id"`
	ProductID      string       `db:"product_id" json:"product_id"`
	LocationID     string       `db:"location_id" json:"location_id"`
	MovementType   MovementKind `db:"movement_type" json:"movement_type"`
	QuantityChange float64      `db:"quantity_change" json:"quantity_change"`
	QuantityBefore float64      `db:"quantity_before" json:"quantity_before"`
	QuantityAfter  float64      `db:"quantity_after" json:"quantity_after"`
	ReservedBefore float64      `db:"reserved_before" json:"reserved_before"`
	ReservedAfter  float64      `db:"reserved_after" json:"reserved_after"`
	ReferenceType  *string      `db:"reference_type" json:"reference_type"`
	ReferenceID    *string      `db:"reference_id" json:"reference_id"`
	Notes          string       `db:"notes" json:"notes"`
	CreatedBy      *string      `db:"created_by" json:"created_by"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
}
