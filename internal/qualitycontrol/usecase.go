package qualitycontrol

import (
	"context"

	"github.com/stockops/inventory-service/internal/model"
	"github.com/stockops/inventory-service/internal/qualitycontrol/dto"
)

type UseCase interface {
	CreateQualityControl(ctx context.Context, input *dto.CreateQCInput) (*model.QualityControl, error)
	GetQualityControl(ctx context.Context, id string) (*model.QualityControl, error)
	ListQualityControls(ctx context.Context, filters *dto.QCFilters) ([]model.QualityControl, int, error)
	BeginInspection(ctx context.Context, id, inspectorID string) (*model.QualityControl, error)
	UpdateItems(ctx context.Context, input *dto.UpdateQCItemsInput) (*model.QualityControl, error)
	CompleteQualityControl(ctx context.Context, id, actorID string) (*model.QualityControl, error)
	CancelQualityControl(ctx context.Context, id, actorID, reason string) (*model.QualityControl, error)
}
