package dto

import "github.com/stockops/inventory-service/internal/model"

type CreateTransferInput struct {
	SourceLocationID        string
	SourceLocationType      model.LocationType
	DestinationLocationID   string
	DestinationLocationType model.LocationType
	ActorID                 string
	Items                   []CreateTransferItem
}

type CreateTransferItem struct {
	ProductID string
	Quantity  float64
	// Target prices default to the source prices when zero.
	TargetCostPrice   float64
	TargetRetailPrice float64
	BinID             *string
}

type ReceiveTransferInput struct {
	TransferID string
	ActorID    string
	Items      []ReceiptLine
}

type ReceiptLine struct {
	TransferItemID   string
	ReceivedQuantity float64
	BinID            *string
}
