package loans

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/okabe-lab/assetdesk-backend/pkg/db/models"
	"github.com/okabe-lab/assetdesk-backend/pkg/enums"
	pkgerrors "github.com/okabe-lab/assetdesk-backend/pkg/errors"
	"github.com/okabe-lab/assetdesk-backend/pkg/pagination"
)

// Service defines the behavior needed by the loans controller.
type Service interface {
	Submit(ctx context.Context, applicantID uuid.UUID, req SubmitLoanRequest) (*LoanDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*LoanDTO, error)
	List(ctx context.Context, params pagination.Params) (*LoanList, error)
	Decide(ctx context.Context, id uuid.UUID, approve bool) (*LoanDTO, error)
	Modify(ctx context.Context, id uuid.UUID, req ModifyLoanRequest) (*LoanDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TxRunner abstracts transactional execution so tests can supply a pass-through.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// DecisionItemRepository is the slice of the items repository the loan
// lifecycle needs when an approval reserves the item.
type DecisionItemRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Item, error)
	Update(ctx context.Context, item *models.Item) error
}

type service struct {
	tx          TxRunner
	loanRepoFor func(tx *gorm.DB) Repository
	itemRepoFor func(tx *gorm.DB) DecisionItemRepository
}

// ServiceParams packages the dependencies for the loan lifecycle. Repo
// factories receive the active transaction, or nil for plain reads, and must
// return a usable repository either way.
type ServiceParams struct {
	TxRunner        TxRunner
	LoanRepoFactory func(tx *gorm.DB) Repository
	ItemRepoFactory func(tx *gorm.DB) DecisionItemRepository
}

// NewService builds the loan lifecycle service.
func NewService(params ServiceParams) (Service, error) {
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	loanRepoFor := params.LoanRepoFactory
	if loanRepoFor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "loan repository factory required")
	}
	itemRepoFor := params.ItemRepoFactory
	if itemRepoFor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "item repository factory required")
	}
	return &service{
		tx:          params.TxRunner,
		loanRepoFor: loanRepoFor,
		itemRepoFor: itemRepoFor,
	}, nil
}

// Submit opens a loan request in the requested state with empty timestamps.
func (s *service) Submit(ctx context.Context, applicantID uuid.UUID, req SubmitLoanRequest) (*LoanDTO, error) {
	var created *LoanDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.requireItem(ctx, tx, req.ItemID); err != nil {
			return err
		}

		loan := &models.Loan{
			ItemID:      req.ItemID,
			ApplicantID: applicantID,
			Status:      enums.LoanStatusRequested,
		}
		if _, err := s.loanRepoFor(tx).Create(ctx, loan); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create loan")
		}
		created = FromModel(loan)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*LoanDTO, error) {
	loan, err := s.loanRepoFor(nil).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find loan")
	}
	return FromModel(loan), nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*LoanList, error) {
	list, err := s.loanRepoFor(nil).List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list loans")
	}
	return list, nil
}

// Decide resolves a pending request. Approval also reserves the item inside
// the same transaction so the two writes cannot be observed apart.
func (s *service) Decide(ctx context.Context, id uuid.UUID, approve bool) (*LoanDTO, error) {
	var decided *LoanDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		loanRepo := s.loanRepoFor(tx)

		loan, err := loanRepo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find loan")
		}
		if loan.Status != enums.LoanStatusRequested {
			return pkgerrors.New(pkgerrors.CodeConflict, "loan has already been decided")
		}

		if approve {
			loan.Status = enums.LoanStatusApproved
		} else {
			loan.Status = enums.LoanStatusRejected
		}
		loan.Item = nil
		loan.Applicant = nil
		if err := loanRepo.Update(ctx, loan); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update loan")
		}

		if approve {
			itemRepo := s.itemRepoFor(tx)
			item, err := itemRepo.FindByIDForUpdate(ctx, loan.ItemID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock item")
			}
			item.Status = enums.ItemStatusReserved
			if err := itemRepo.Update(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserve item")
			}
		}

		decided = FromModel(loan)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decided, nil
}

// Modify retargets a request that is still pending.
func (s *service) Modify(ctx context.Context, id uuid.UUID, req ModifyLoanRequest) (*LoanDTO, error) {
	var modified *LoanDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		loanRepo := s.loanRepoFor(tx)

		loan, err := loanRepo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find loan")
		}
		if !loan.CanBeModified() {
			return pkgerrors.New(pkgerrors.CodeConflict, "loan can no longer be modified")
		}
		if err := s.requireItem(ctx, tx, req.ItemID); err != nil {
			return err
		}

		loan.ItemID = req.ItemID
		loan.Item = nil
		loan.Applicant = nil
		if err := loanRepo.Update(ctx, loan); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update loan")
		}
		modified = FromModel(loan)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return modified, nil
}

// Delete withdraws a request that is still pending.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		loanRepo := s.loanRepoFor(tx)

		loan, err := loanRepo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find loan")
		}
		if !loan.CanBeDeleted() {
			return pkgerrors.New(pkgerrors.CodeConflict, "loan can no longer be deleted")
		}
		if err := loanRepo.Delete(ctx, loan.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete loan")
		}
		return nil
	})
}

func (s *service) requireItem(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) error {
	if _, err := s.itemRepoFor(tx).FindByID(ctx, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "item does not exist").
				WithDetails(map[string]any{"field": "item_id"})
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check item")
	}
	return nil
}
