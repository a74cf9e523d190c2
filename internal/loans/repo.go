package loans

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/okabe-lab/assetdesk-backend/pkg/db/models"
	"github.com/okabe-lab/assetdesk-backend/pkg/enums"
	"github.com/okabe-lab/assetdesk-backend/pkg/pagination"
)

// Repository defines persistence operations for loan requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, loan *models.Loan) (*models.Loan, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Loan, error)
	LatestApproved(ctx context.Context, itemID, applicantID uuid.UUID) (*models.Loan, error)
	List(ctx context.Context, params pagination.Params) (*LoanList, error)
	ListRecentRequested(ctx context.Context, limit int) ([]LoanDTO, error)
	Update(ctx context.Context, loan *models.Loan) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a loans repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, loan *models.Loan) (*models.Loan, error) {
	if err := r.db.WithContext(ctx).Create(loan).Error; err != nil {
		return nil, err
	}
	return loan, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Preload("Item").
		Preload("Applicant").
		Where("id = ?", id).
		First(&loan).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// LatestApproved returns the authoritative approved loan for (item, applicant):
// the most recently created one. Older approved-but-completed loans stay in
// history and are never reopened.
func (r *repository) LatestApproved(ctx context.Context, itemID, applicantID uuid.UUID) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND applicant_id = ? AND status = ?", itemID, applicantID, enums.LoanStatusApproved).
		Order("created_at DESC").
		First(&loan).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params) (*LoanList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Preload("Item").
		Preload("Applicant").
		Order("created_at DESC, id DESC").
		Limit(limit + 1)
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Loan
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	list := &LoanList{Loans: make([]LoanDTO, 0, len(rows))}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	for i := range rows {
		list.Loans = append(list.Loans, *FromModel(&rows[i]))
	}
	return list, nil
}

func (r *repository) ListRecentRequested(ctx context.Context, limit int) ([]LoanDTO, error) {
	var rows []models.Loan
	err := r.db.WithContext(ctx).
		Preload("Item").
		Preload("Applicant").
		Where("status = ?", enums.LoanStatusRequested).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]LoanDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (r *repository) Update(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Save(loan).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Loan{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Loan{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
