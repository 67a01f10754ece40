package model

// Product master data is owned by an external catalog service; this core
// reads prices and reorder points only.
type Product struct {
	BaseModel
	SKU          string  `db:"sku" json:"sku"`
	Name         string  `db:"name" json:"name"`
	CostPrice    float64 `db:"cost_price" json:"cost_price"`
	RetailPrice  float64 `db:"retail_price" json:"retail_price"`
	ReorderPoint float64 `db:"reorder_point" json:"reorder_point"`
	IsActive     bool    `db:"is_active" json:"is_active"`
}
