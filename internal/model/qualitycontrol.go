package model

import (
	"time"

	"github.com/stockops/inventory-service/internal/apperr"
)

type QCType string

const (
	QCReceiving QCType = "RECEIVING"
	QCReturn    QCType = "RETURN"
	QCRandom    QCType = "RANDOM"
	QCComplaint QCType = "COMPLAINT"
)

type QCStatus string

const (
	QCPending    QCStatus = "PENDING"
	QCInProgress QCStatus = "IN_PROGRESS"
	QCCompleted  QCStatus = "COMPLETED"
	QCCancelled  QCStatus = "CANCELLED"
)

type QCAction string

const (
	QCActionAccept           QCAction = "ACCEPT"
	QCActionReject           QCAction = "REJECT"
	QCActionReturnToSupplier QCAction = "RETURN_TO_SUPPLIER"
)

// QualityControl is a batch inspection of physically received units. Passed
// units are admitted into the warehouse ledger on completion; failed units
// are written off.
type QualityControl struct {
	BaseModel
	ReferenceNo     string     `db:"reference_no" json:"reference_no"`
	Type            QCType     `db:"type" json:"type"`
	Status          QCStatus   `db:"status" json:"status"`
	WarehouseID     string     `db:"warehouse_id" json:"warehouse_id"`
	PurchaseOrderID *string    `db:"purchase_order_id" json:"purchase_order_id"`
	ReturnID        *string    `db:"return_id" json:"return_id"`
	InspectorID     *string    `db:"inspector_id" json:"inspector_id"`
	InspectedAt     *time.Time `db:"inspected_at" json:"inspected_at"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at"`
	Notes           string     `db:"notes" json:"notes"`

	Items []QualityControlItem `db:"-" json:"items"`
}

type QualityControlItem struct {
	ID              string    `db:"id" json:"id"`
	QCID            string    `db:"qc_id" json:"qc_id"`
	ProductID       string    `db:"product_id" json:"product_id"`
	Quantity        float64   `db:"quantity" json:"quantity"`
	PassedQuantity  float64   `db:"passed_quantity" json:"passed_quantity"`
	FailedQuantity  float64   `db:"failed_quantity" json:"failed_quantity"`
	PendingQuantity float64   `db:"pending_quantity" json:"pending_quantity"`
	Action          *QCAction `db:"action" json:"action"`
	Notes           string    `db:"notes" json:"notes"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

var qcTransitions = map[QCStatus][]QCStatus{
	QCPending:    {QCInProgress, QCCancelled},
	QCInProgress: {QCCompleted, QCCancelled},
}

func (qc *QualityControl) CanTransition(to QCStatus) bool {
	for _, next := range qcTransitions[qc.Status] {
		if next == to {
			return true
		}
	}
	return false
}

func (qc *QualityControl) Transition(to QCStatus) error {
	if !qc.CanTransition(to) {
		return apperr.InvalidTransition("quality control "+qc.ReferenceNo, string(qc.Status), string(to))
	}
	qc.Status = to
	return nil
}

// SetDisposition applies a partial inspection update, holding the invariant
// passed + failed + pending == quantity after every write.
func (item *QualityControlItem) SetDisposition(passed, failed, pending float64, action *QCAction) error {
	if passed < 0 || failed < 0 || pending < 0 {
		return apperr.New(apperr.KindValidation,
			"disposition quantities must be non-negative for product %s", item.ProductID)
	}
	if passed+failed+pending != item.Quantity {
		return apperr.New(apperr.KindValidation,
			"disposition must sum to inspected quantity %v for product %s, got %v",
			item.Quantity, item.ProductID, passed+failed+pending)
	}
	if action != nil {
		switch *action {
		case QCActionAccept, QCActionReject, QCActionReturnToSupplier:
		default:
			return apperr.New(apperr.KindValidation, "unknown disposition action %q", *action)
		}
	}
	if failed > 0 && action == nil {
		return apperr.New(apperr.KindValidation,
			"an action is required when failing units of product %s", item.ProductID)
	}

	item.PassedQuantity = passed
	item.FailedQuantity = failed
	item.PendingQuantity = pending
	if action != nil {
		item.Action = action
	}
	return nil
}

// PendingRemaining reports whether any item still has undispositioned units,
// which blocks completion.
func (qc *QualityControl) PendingRemaining() bool {
	for _, item := range qc.Items {
		if item.PendingQuantity > 0 {
			return true
		}
	}
	return false
}

// AdmitsToLedger reports whether the item's passed units enter inventory on
// completion. Return inspections only admit explicitly accepted stock.
func (qc *QualityControl) AdmitsToLedger(item *QualityControlItem) bool {
	if item.PassedQuantity <= 0 {
		return false
	}
	if qc.Type == QCReturn {
		return item.Action != nil && *item.Action == QCActionAccept
	}
	return true
}
