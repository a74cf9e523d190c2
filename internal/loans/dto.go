package loans

import (
	"time"

	"github.com/google/uuid"

	"github.com/okabe-lab/assetdesk-backend/pkg/db/models"
	"github.com/okabe-lab/assetdesk-backend/pkg/enums"
)

// ApplicantSummary is the trimmed user shape embedded in loan payloads.
type ApplicantSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// ItemSummary is the trimmed item shape embedded in loan payloads.
type ItemSummary struct {
	ID     uuid.UUID        `json:"id"`
	Name   string           `json:"name"`
	Status enums.ItemStatus `json:"status"`
}

// LoanDTO is the transport shape for a loan request.
type LoanDTO struct {
	ID          uuid.UUID         `json:"id"`
	ItemID      uuid.UUID         `json:"item_id"`
	ApplicantID uuid.UUID         `json:"applicant_id"`
	Status      enums.LoanStatus  `json:"status"`
	StartAt     *time.Time        `json:"start_at,omitempty"`
	EndAt       *time.Time        `json:"end_at,omitempty"`
	Item        *ItemSummary      `json:"item,omitempty"`
	Applicant   *ApplicantSummary `json:"applicant,omitempty"`
	Completed   bool              `json:"completed"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// LoanList wraps the paginated loans plus the next page cursor.
type LoanList struct {
	Loans      []LoanDTO `json:"loans"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// SubmitLoanRequest is the payload accepted by the loan create endpoint.
type SubmitLoanRequest struct {
	ItemID uuid.UUID `json:"item_id" validate:"required"`
}

// ModifyLoanRequest retargets a still-pending request at another item.
type ModifyLoanRequest struct {
	ItemID uuid.UUID `json:"item_id" validate:"required"`
}

func FromModel(loan *models.Loan) *LoanDTO {
	if loan == nil {
		return nil
	}

	dto := &LoanDTO{
		ID:          loan.ID,
		ItemID:      loan.ItemID,
		ApplicantID: loan.ApplicantID,
		Status:      loan.Status,
		StartAt:     loan.StartAt,
		EndAt:       loan.EndAt,
		Completed:   loan.IsCompleted(),
		CreatedAt:   loan.CreatedAt,
		UpdatedAt:   loan.UpdatedAt,
	}
	if loan.Item != nil {
		dto.Item = &ItemSummary{ID: loan.Item.ID, Name: loan.Item.Name, Status: loan.Item.Status}
	}
	if loan.Applicant != nil {
		dto.Applicant = &ApplicantSummary{ID: loan.Applicant.ID, Name: loan.Applicant.Name, Email: loan.Applicant.Email}
	}
	return dto
}
