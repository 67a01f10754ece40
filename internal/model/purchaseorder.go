package model

import "time"

type POStatus string

const (
	PODraft             POStatus = "DRAFT"
	POPending           POStatus = "PENDING"
	POPartiallyReceived POStatus = "PARTIALLY_RECEIVED"
	POReceived          POStatus = "RECEIVED"
	POCancelled         POStatus = "CANCELLED"
)

// PurchaseOrder creation and supplier management live outside this core; the
// engine only reconciles receipt quantities and derives fulfillment status.
type PurchaseOrder struct {
	BaseModel
	OrderNo    string   `db:"order_no" json:"order_no"`
	SupplierID string   `db:"supplier_id" json:"supplier_id"`
	Status     POStatus `db:"status" json:"status"`

	Items []PurchaseOrderItem `db:"-" json:"items"`
}

type PurchaseOrderItem struct {
	ID              string    `db:"id" json:"id"`
	PurchaseOrderID string    `db:"purchase_order_id" json:"purchase_order_id"`
	ProductID       string    `db:"product_id" json:"product_id"`
	OrderedQuantity float64   `db:"ordered_quantity" json:"ordered_quantity"`
	// ReceivedQuantity is monotonically non-decreasing, incremented only by
	// completed RECEIVING quality controls.
	ReceivedQuantity float64   `db:"received_quantity" json:"received_quantity"`
	UnitCost         float64   `db:"unit_cost" json:"unit_cost"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// DerivePOStatus recomputes fulfillment status from item quantities. DRAFT,
// PENDING and CANCELLED are left untouched until something is received.
func DerivePOStatus(current POStatus, items []PurchaseOrderItem) POStatus {
	if len(items) == 0 || current == POCancelled {
		return current
	}

	allReceived := true
	anyReceived := false
	for _, item := range items {
		if item.ReceivedQuantity < item.OrderedQuantity {
			allReceived = false
		}
		if item.ReceivedQuantity > 0 {
			anyReceived = true
		}
	}

	switch {
	case allReceived:
		return POReceived
	case anyReceived:
		return POPartiallyReceived
	default:
		return current
	}
}

// ReturnStatus mirrors the slice of the customer-return workflow this core
// touches: a RETURN-type inspection completing marks the return completed.
type ReturnStatus string

const (
	ReturnPending   ReturnStatus = "PENDING"
	ReturnCompleted ReturnStatus = "COMPLETED"
)
