package dto

import "time"

type RecordFilters struct {
	ProductID  string
	LocationID *string
	Status     string
	Page       int
	PageSize   int
}

type MovementFilters struct {
	ProductID    string
	LocationID   *string
	MovementType string
	ReferenceID  string
	StartDate    *time.Time
	EndDate      *time.Time
	Page         int
	PageSize     int
}

// LowStockRow joins the ledger with product master reorder points.
type LowStockRow struct {
	ProductID         string  `db:"product_id" json:"product_id"`
	SKU               string  `db:"sku" json:"sku"`
	Name              string  `db:"name" json:"name"`
	LocationID        string  `db:"location_id" json:"location_id"`
	Quantity          float64 `db:"quantity" json:"quantity"`
	ReservedQuantity  float64 `db:"reserved_quantity" json:"reserved_quantity"`
	AvailableQuantity float64 `db:"available_quantity" json:"available_quantity"`
	ReorderPoint      float64 `db:"reorder_point" json:"reorder_point"`
}
