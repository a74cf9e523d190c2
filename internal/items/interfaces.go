package items

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/okabe-lab/assetdesk-backend/pkg/db/models"
	"github.com/okabe-lab/assetdesk-backend/pkg/pagination"
)

// Repository defines persistence operations for items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.Item) (*models.Item, error)
	CreateInBatches(ctx context.Context, items []models.Item, batchSize int) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Item, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Item, error)
	List(ctx context.Context, params pagination.Params) (*ItemList, error)
	Update(ctx context.Context, item *models.Item) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}
