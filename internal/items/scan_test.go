package items

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/okabe-lab/assetdesk-backend/pkg/db/models"
	"github.com/okabe-lab/assetdesk-backend/pkg/enums"
	pkgerrors "github.com/okabe-lab/assetdesk-backend/pkg/errors"
)

type stubTxRunner struct{}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubScanItemRepo struct {
	item    *models.Item
	updates int
}

func (s *stubScanItemRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	if s.item == nil || s.item.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.item, nil
}

func (s *stubScanItemRepo) Update(ctx context.Context, item *models.Item) error {
	s.updates++
	return nil
}

type stubScanLoanRepo struct {
	loan    *models.Loan
	updates int
}

func (s *stubScanLoanRepo) LatestApproved(ctx context.Context, itemID, applicantID uuid.UUID) (*models.Loan, error) {
	if s.loan == nil || s.loan.ItemID != itemID || s.loan.ApplicantID != applicantID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.loan, nil
}

func (s *stubScanLoanRepo) Update(ctx context.Context, loan *models.Loan) error {
	s.updates++
	return nil
}

var scanTestNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newScanTestService(t *testing.T, item *models.Item, loan *models.Loan) (ScanService, *stubScanItemRepo, *stubScanLoanRepo) {
	t.Helper()
	itemRepo := &stubScanItemRepo{item: item}
	loanRepo := &stubScanLoanRepo{loan: loan}
	svc, err := NewScanService(ScanServiceParams{
		TxRunner: stubTxRunner{},
		ItemRepoFactory: func(tx *gorm.DB) ScanItemRepository {
			return itemRepo
		},
		LoanRepoFactory: func(tx *gorm.DB) ScanLoanRepository {
			return loanRepo
		},
		Now: func() time.Time { return scanTestNow },
	})
	if err != nil {
		t.Fatalf("new scan service: %v", err)
	}
	return svc, itemRepo, loanRepo
}

func newScanTestItem(status enums.ItemStatus) *models.Item {
	managerID := uuid.New()
	return &models.Item{
		ID:        uuid.New(),
		Name:      "oscilloscope",
		Status:    status,
		ManagerID: managerID,
		OwnerID:   managerID,
	}
}

func TestScanGoneByManagerMarksItemFound(t *testing.T) {
	item := newScanTestItem(enums.ItemStatusGone)
	svc, itemRepo, _ := newScanTestService(t, item, nil)

	result, err := svc.Scan(context.Background(), item.ID, item.ManagerID)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !result.Authorized || result.Message != "item found" {
		t.Fatalf("unexpected result %+v", result)
	}
	if item.Status != enums.ItemStatusNormal {
		t.Fatalf("expected status normal, got %s", item.Status)
	}
	if itemRepo.updates != 1 {
		t.Fatalf("expected one item update, got %d", itemRepo.updates)
	}
}

func TestScanNormalByManagerIsIdempotent(t *testing.T) {
	item := newScanTestItem(enums.ItemStatusNormal)
	svc, itemRepo, _ := newScanTestService(t, item, nil)

	result, err := svc.Scan(context.Background(), item.ID, item.ManagerID)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !result.Authorized {
		t.Fatalf("expected success, got %+v", result)
	}
	if item.Status != enums.ItemStatusNormal {
		t.Fatalf("status must not change, got %s", item.Status)
	}
	if itemRepo.updates != 0 {
		t.Fatalf("idempotent scan must not write, got %d updates", itemRepo.updates)
	}
}

func TestScanRegisteredByManagerClaimsItem(t *testing.T) {
	item := newScanTestItem(enums.ItemStatusRegistered)
	svc, itemRepo, _ := newScanTestService(t, item, nil)

	result, err := svc.Scan(context.Background(), item.ID, item.ManagerID)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !result.Authorized || result.Message != "item claimed" {
		t.Fatalf("unexpected result %+v", result)
	}
	if item.Status != enums.ItemStatusNormal {
		t.Fatalf("expected status normal, got %s", item.Status)
	}
	if itemRepo.updates != 1 {
		t.Fatalf("expected one item update, got %d", itemRepo.updates)
	}
}

func TestScanNonManagerDeniedWithoutMutation(t *testing.T) {
	for _, status := range []enums.ItemStatus{
		enums.ItemStatusGone,
		enums.ItemStatusNormal,
		enums.ItemStatusRegistered,
	} {
		t.Run(string(status), func(t *testing.T) {
			item := newScanTestItem(status)
			svc, itemRepo, _ := newScanTestService(t, item, nil)

			result, err := svc.Scan(context.Background(), item.ID, uuid.New())
			if err != nil {
				t.Fatalf("scan: %v", err)
			}
			if result.Authorized {
				t.Fatalf("expected denial, got %+v", result)
			}
			if result.Message != "unauthorized scan" {
				t.Fatalf("unexpected denial message %q", result.Message)
			}
			if item.Status != status {
				t.Fatalf("status must not change, got %s", item.Status)
			}
			if itemRepo.updates != 0 {
				t.Fatalf("denied scan must not write, got %d updates", itemRepo.updates)
			}
		})
	}
}

// A non-manager scanning a gone item historically resolved through the same
// branch as a non-manager scanning a normal item. This pins the equivalence
// so any future divergence is a deliberate decision.
func TestScanGoneNonManagerMatchesNormalBranch(t *testing.T) {
	actor := uuid.New()

	goneItem := newScanTestItem(enums.ItemStatusGone)
	goneSvc, goneRepo, _ := newScanTestService(t, goneItem, nil)
	goneResult, err := goneSvc.Scan(context.Background(), goneItem.ID, actor)
	if err != nil {
		t.Fatalf("gone scan: %v", err)
	}

	normalItem := newScanTestItem(enums.ItemStatusNormal)
	normalSvc, normalRepo, _ := newScanTestService(t, normalItem, nil)
	normalResult, err := normalSvc.Scan(context.Background(), normalItem.ID, actor)
	if err != nil {
		t.Fatalf("normal scan: %v", err)
	}

	if goneResult.Authorized != normalResult.Authorized || goneResult.Message != normalResult.Message {
		t.Fatalf("branches diverged: gone=%+v normal=%+v", goneResult, normalResult)
	}
	if goneRepo.updates != 0 || normalRepo.updates != 0 {
		t.Fatalf("neither branch may write")
	}
	if goneItem.Status != enums.ItemStatusGone {
		t.Fatalf("gone item must stay gone, got %s", goneItem.Status)
	}
}

func TestScanReservedPickupSetsStartAndOwner(t *testing.T) {
	item := newScanTestItem(enums.ItemStatusReserved)
	applicant := uuid.New()
	loan := &models.Loan{
		ID:          uuid.New(),
		ItemID:      item.ID,
		ApplicantID: applicant,
		Status:      enums.LoanStatusApproved,
	}
	svc, itemRepo, loanRepo := newScanTestService(t, item, loan)

	result, err := svc.Scan(context.Background(), item.ID, applicant)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !result.Authorized || result.Message != "item loaned" {
		t.Fatalf("unexpected result %+v", result)
	}
	if loan.StartAt == nil || !loan.StartAt.Equal(scanTestNow) {
		t.Fatalf("expected start_at %v, got %v", scanTestNow, loan.StartAt)
	}
	if item.OwnerID != applicant {
		t.Fatalf("expected owner to become applicant")
	}
	if item.Status != enums.ItemStatusReserved {
		t.Fatalf("pickup must not change status, got %s", item.Status)
	}
	if loanRepo.updates != 1 || itemRepo.updates != 1 {
		t.Fatalf("expected one loan and one item write, got %d/%d", loanRepo.updates, itemRepo.updates)
	}
}

func TestScanReservedReturnSetsEndAndRestoresOwner(t *testing.T) {
	item := newScanTestItem(enums.ItemStatusReserved)
	applicant := uuid.New()
	item.OwnerID = applicant
	start := scanTestNow.Add(-48 * time.Hour)
	loan := &models.Loan{
		ID:          uuid.New(),
		ItemID:      item.ID,
		ApplicantID: applicant,
		Status:      enums.LoanStatusApproved,
		StartAt:     &start,
	}
	svc, _, _ := newScanTestService(t, item, loan)

	result, err := svc.Scan(context.Background(), item.ID, applicant)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !result.Authorized || result.Message != "item returned" {
		t.Fatalf("unexpected result %+v", result)
	}
	if loan.EndAt == nil || !loan.EndAt.Equal(scanTestNow) {
		t.Fatalf("expected end_at %v, got %v", scanTestNow, loan.EndAt)
	}
	if item.OwnerID != item.ManagerID {
		t.Fatalf("expected owner to return to manager")
	}
}

func TestScanReservedCompletedLoanIsNotReopened(t *testing.T) {
	item := newScanTestItem(enums.ItemStatusReserved)
	applicant := uuid.New()
	start := scanTestNow.Add(-48 * time.Hour)
	end := scanTestNow.Add(-24 * time.Hour)
	loan := &models.Loan{
		ID:          uuid.New(),
		ItemID:      item.ID,
		ApplicantID: applicant,
		Status:      enums.LoanStatusApproved,
		StartAt:     &start,
		EndAt:       &end,
	}
	svc, itemRepo, loanRepo := newScanTestService(t, item, loan)

	result, err := svc.Scan(context.Background(), item.ID, applicant)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if result.Authorized {
		t.Fatalf("completed loan must deny, got %+v", result)
	}
	if result.Message != "unauthorized scan" {
		t.Fatalf("unexpected denial message %q", result.Message)
	}
	if loanRepo.updates != 0 || itemRepo.updates != 0 {
		t.Fatalf("denied scan must not write")
	}
}

func TestScanReservedManagerWithoutLoanGetsDiagnostic(t *testing.T) {
	item := newScanTestItem(enums.ItemStatusReserved)
	svc, _, _ := newScanTestService(t, item, nil)

	result, err := svc.Scan(context.Background(), item.ID, item.ManagerID)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if result.Authorized {
		t.Fatalf("expected denial, got %+v", result)
	}
	if result.Message == "unauthorized scan" {
		t.Fatalf("manager denial should carry the diagnostic message")
	}
}

func TestScanReservedStrangerDenied(t *testing.T) {
	item := newScanTestItem(enums.ItemStatusReserved)
	svc, _, _ := newScanTestService(t, item, nil)

	result, err := svc.Scan(context.Background(), item.ID, uuid.New())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if result.Authorized || result.Message != "unauthorized scan" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestScanUnknownItemIsNotFound(t *testing.T) {
	svc, _, _ := newScanTestService(t, nil, nil)

	_, err := svc.Scan(context.Background(), uuid.New(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}
