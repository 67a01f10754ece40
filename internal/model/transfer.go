package model

import (
	"time"

	"github.com/stockops/inventory-service/internal/apperr"
)

type TransferStatus string

const (
	TransferDraft     TransferStatus = "DRAFT"
	TransferPending   TransferStatus = "PENDING"
	TransferApproved  TransferStatus = "APPROVED"
	TransferInTransit TransferStatus = "IN_TRANSIT"
	TransferCompleted TransferStatus = "COMPLETED"
	TransferRejected  TransferStatus = "REJECTED"
	TransferCancelled TransferStatus = "CANCELLED"
)

type TransferType string

const (
	TransferWarehouseToWarehouse TransferType = "WAREHOUSE_TO_WAREHOUSE"
	TransferWarehouseToStore     TransferType = "WAREHOUSE_TO_STORE"
	TransferStoreToWarehouse     TransferType = "STORE_TO_WAREHOUSE"
	TransferStoreToStore         TransferType = "STORE_TO_STORE"
)

type TransferItemStatus string

const (
	TransferItemPending   TransferItemStatus = "PENDING"
	TransferItemCompleted TransferItemStatus = "COMPLETED"
	TransferItemRejected  TransferItemStatus = "REJECTED"
)

// Transfer moves reserved stock from a source location to a destination
// location through a reserve -> ship -> receive lifecycle.
type Transfer struct {
	BaseModel
	ReferenceNo           string         `db:"reference_no" json:"reference_no"`
	TransferType          TransferType   `db:"transfer_type" json:"transfer_type"`
	Status                TransferStatus `db:"status" json:"status"`
	SourceLocationID      string         `db:"source_location_id" json:"source_location_id"`
	DestinationLocationID string         `db:"destination_location_id" json:"destination_location_id"`
	RequestedBy           string         `db:"requested_by" json:"requested_by"`
	ApprovedBy            *string        `db:"approved_by" json:"approved_by"`
	RejectedBy            *string        `db:"rejected_by" json:"rejected_by"`
	CompletedBy           *string        `db:"completed_by" json:"completed_by"`
	RequestedAt           time.Time      `db:"requested_at" json:"requested_at"`
	ApprovedAt            *time.Time     `db:"approved_at" json:"approved_at"`
	RejectedAt            *time.Time     `db:"rejected_at" json:"rejected_at"`
	CompletedAt           *time.Time     `db:"completed_at" json:"completed_at"`
	RejectionReason       *string        `db:"rejection_reason" json:"rejection_reason"`
	// Denormalized from items for reporting, recomputed on every item write.
	ItemCount   int     `db:"item_count" json:"item_count"`
	TotalCost   float64 `db:"total_cost" json:"total_cost"`
	TotalRetail float64 `db:"total_retail" json:"total_retail"`

	Items []TransferItem `db:"-" json:"items"`
}

type TransferItem struct {
	ID                string             `db:"id" json:"id"`
	TransferID        string             `db:"transfer_id" json:"transfer_id"`
	ProductID         string             `db:"product_id" json:"product_id"`
	RequestedQuantity float64            `db:"requested_quantity" json:"requested_quantity"`
	ReceivedQuantity  *float64           `db:"received_quantity" json:"received_quantity"`
	SourceCostPrice   float64            `db:"source_cost_price" json:"source_cost_price"`
	SourceRetailPrice float64            `db:"source_retail_price" json:"source_retail_price"`
	TargetCostPrice   float64            `db:"target_cost_price" json:"target_cost_price"`
	TargetRetailPrice float64            `db:"target_retail_price" json:"target_retail_price"`
	Status            TransferItemStatus `db:"status" json:"status"`
	BinID             *string            `db:"bin_id" json:"bin_id"`
	CreatedAt         time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `db:"updated_at" json:"updated_at"`
}

var transferTransitions = map[TransferStatus][]TransferStatus{
	TransferDraft:     {TransferPending, TransferRejected, TransferCancelled},
	TransferPending:   {TransferApproved, TransferRejected, TransferCancelled},
	TransferApproved:  {TransferInTransit, TransferCancelled},
	TransferInTransit: {TransferCompleted, TransferCancelled},
}

// CanTransition reports whether the state machine allows from -> to.
func (t *Transfer) CanTransition(to TransferStatus) bool {
	for _, next := range transferTransitions[t.Status] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates and applies a status change. Ledger side effects are
// the orchestrator's job; this only guards legality.
func (t *Transfer) Transition(to TransferStatus) error {
	if !t.CanTransition(to) {
		return apperr.InvalidTransition("transfer "+t.ReferenceNo, string(t.Status), string(to))
	}
	t.Status = to
	return nil
}

// IsTerminal reports whether no further transitions exist.
func (t *Transfer) IsTerminal() bool {
	return len(transferTransitions[t.Status]) == 0
}

// HoldsReservation reports whether source stock is currently reserved for
// this transfer and must be released on rejection or cancellation.
func (t *Transfer) HoldsReservation() bool {
	return t.Status == TransferApproved || t.Status == TransferInTransit
}

// RecomputeTotals refreshes the denormalized aggregates from items. Totals
// are never a source of truth.
func (t *Transfer) RecomputeTotals() {
	t.ItemCount = len(t.Items)
	t.TotalCost = 0
	t.TotalRetail = 0
	for _, item := range t.Items {
		t.TotalCost += item.SourceCostPrice * item.RequestedQuantity
		t.TotalRetail += item.SourceRetailPrice * item.RequestedQuantity
	}
}

// DeriveTransferType maps the endpoint location types onto the transfer type
// enum.
func DeriveTransferType(source, destination LocationType) TransferType {
	switch {
	case source == LocationWarehouse && destination == LocationWarehouse:
		return TransferWarehouseToWarehouse
	case source == LocationWarehouse && destination == LocationStore:
		return TransferWarehouseToStore
	case source == LocationStore && destination == LocationWarehouse:
		return TransferStoreToWarehouse
	default:
		return TransferStoreToStore
	}
}
