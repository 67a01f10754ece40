package dto

import "github.com/stockops/inventory-service/internal/model"

// AdjustInventoryInput is the external administrative adjustment operation.
// Type carries the caller-facing verb; the use case maps it onto an
// AdjustmentKind.
type AdjustInventoryInput struct {
	ProductID    string
	LocationID   string
	LocationType model.LocationType
	Type         string // "add", "remove", "set"
	Quantity     float64
	Reason       string
	Notes        string
	// ReferenceType/ReferenceID correlate the movement with its origin
	// ("sale", "manual_adjustment", ...). Empty means manual.
	ReferenceType string
	ReferenceID   string
	ActorID       string
}

// AdjustCommand is the repository-level mutation. Every workflow (manual
// adjustment, sale decrement, transfer, QC admission) funnels into this.
type AdjustCommand struct {
	ProductID    string
	LocationID   string
	LocationType model.LocationType
	Kind         model.AdjustmentKind
	Quantity     float64
	MovementType model.MovementKind
	// CostPrice/RetailPrice seed a record created on first admission.
	CostPrice     float64
	RetailPrice   float64
	ReferenceType string
	ReferenceID   string
	Notes         string
	ActorID       string
}
