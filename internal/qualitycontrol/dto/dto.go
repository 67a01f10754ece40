package dto

type QCFilters struct {
	Status      string
	Type        string
	WarehouseID string
	Page        int
	PageSize    int
}
