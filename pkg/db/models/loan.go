package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/okabe-lab/assetdesk-backend/pkg/enums"
)

// Loan is a request by an applicant to borrow an item. start_at is filled by
// the pickup scan, end_at by the return scan; a loan with both set is
// completed and never reopened.
type Loan struct {
	ID          uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID      uuid.UUID        `gorm:"column:item_id;type:uuid;not null;index"`
	ApplicantID uuid.UUID        `gorm:"column:applicant_id;type:uuid;not null;index"`
	Status      enums.LoanStatus `gorm:"type:loan_status;not null;default:'requested'"`
	StartAt     *time.Time       `gorm:"column:start_at"`
	EndAt       *time.Time       `gorm:"column:end_at"`
	Item        *Item            `gorm:"foreignKey:ItemID"`
	Applicant   *User            `gorm:"foreignKey:ApplicantID"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// CanBeModified reports whether the applicant may still change the request.
func (l *Loan) CanBeModified() bool {
	return l != nil && l.Status == enums.LoanStatusRequested
}

// CanBeDeleted reports whether the applicant may still withdraw the request.
// Identical to CanBeModified today; kept separate so the policies can diverge.
func (l *Loan) CanBeDeleted() bool {
	return l != nil && l.Status == enums.LoanStatusRequested
}

// IsCompleted reports whether both possession timestamps are filled.
func (l *Loan) IsCompleted() bool {
	return l != nil && l.StartAt != nil && l.EndAt != nil
}
