package dto

type TransferFilters struct {
	Status                string
	SourceLocationID      string
	DestinationLocationID string
	Page                  int
	PageSize              int
}
