package dto

import "github.com/stockops/inventory-service/internal/model"

type CreateQCInput struct {
	Type            model.QCType
	WarehouseID     string
	PurchaseOrderID *string
	ReturnID        *string
	Notes           string
	ActorID         string
	Items           []CreateQCItem
}

type CreateQCItem struct {
	ProductID string
	Quantity  float64
}

type UpdateQCItemsInput struct {
	QCID    string
	ActorID string
	Items   []QCItemDisposition
}

type QCItemDisposition struct {
	ItemID          string
	PassedQuantity  float64
	FailedQuantity  float64
	PendingQuantity float64
	Action          *model.QCAction
	Notes           string
}
