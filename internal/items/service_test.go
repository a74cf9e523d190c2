package items

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/okabe-lab/assetdesk-backend/pkg/db/models"
	"github.com/okabe-lab/assetdesk-backend/pkg/enums"
	pkgerrors "github.com/okabe-lab/assetdesk-backend/pkg/errors"
	"github.com/okabe-lab/assetdesk-backend/pkg/pagination"
)

type stubItemRepo struct {
	items   map[uuid.UUID]*models.Item
	created *models.Item
	updated *models.Item
	deleted []uuid.UUID
}

func newStubItemRepo(items ...*models.Item) *stubItemRepo {
	repo := &stubItemRepo{items: map[uuid.UUID]*models.Item{}}
	for _, item := range items {
		repo.items[item.ID] = item
	}
	return repo
}

func (s *stubItemRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubItemRepo) Create(ctx context.Context, item *models.Item) (*models.Item, error) {
	item.ID = uuid.New()
	s.items[item.ID] = item
	s.created = item
	return item, nil
}

func (s *stubItemRepo) CreateInBatches(ctx context.Context, items []models.Item, batchSize int) error {
	return nil
}

func (s *stubItemRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return item, nil
}

func (s *stubItemRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	return s.FindByID(ctx, id)
}

func (s *stubItemRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Item, error) {
	return nil, nil
}

func (s *stubItemRepo) List(ctx context.Context, params pagination.Params) (*ItemList, error) {
	list := &ItemList{}
	for _, item := range s.items {
		list.Items = append(list.Items, *FromModel(item))
	}
	return list, nil
}

func (s *stubItemRepo) Update(ctx context.Context, item *models.Item) error {
	s.updated = item
	s.items[item.ID] = item
	return nil
}

func (s *stubItemRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.items[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.items, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubItemRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(s.items)), nil
}

type stubLocationChecker struct {
	known map[uuid.UUID]bool
}

func (s stubLocationChecker) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.known[id], nil
}

type stubUserChecker struct {
	known map[uuid.UUID]bool
}

func (s stubUserChecker) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if !s.known[id] {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.User{ID: id}, nil
}

type itemServiceFixture struct {
	svc        Service
	repo       *stubItemRepo
	actorID    uuid.UUID
	locationID uuid.UUID
}

func newItemServiceFixture(t *testing.T, items ...*models.Item) *itemServiceFixture {
	t.Helper()
	actorID := uuid.New()
	locationID := uuid.New()

	users := stubUserChecker{known: map[uuid.UUID]bool{actorID: true}}
	for _, item := range items {
		users.known[item.ManagerID] = true
		users.known[item.OwnerID] = true
	}

	repo := newStubItemRepo(items...)
	svc, err := NewService(ServiceParams{
		Repo:         repo,
		LocationRepo: stubLocationChecker{known: map[uuid.UUID]bool{locationID: true}},
		UserRepo:     users,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &itemServiceFixture{svc: svc, repo: repo, actorID: actorID, locationID: locationID}
}

func TestCreateDefaultsManagerAndOwnerToActor(t *testing.T) {
	f := newItemServiceFixture(t)

	dto, err := f.svc.Create(context.Background(), f.actorID, CreateItemRequest{
		Name:         "  soldering station ",
		PurchaseDate: "2024-11-20",
		LocationID:   f.locationID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if dto.Name != "soldering station" {
		t.Fatalf("expected trimmed name, got %q", dto.Name)
	}
	if dto.Status != enums.ItemStatusRegistered {
		t.Fatalf("expected registered status, got %s", dto.Status)
	}
	if dto.ManagerID != f.actorID || dto.OwnerID != f.actorID {
		t.Fatalf("expected actor as manager and owner, got %+v", dto)
	}
	if dto.PurchaseDate.Format("2006-01-02") != "2024-11-20" {
		t.Fatalf("unexpected purchase date %s", dto.PurchaseDate)
	}
}

func TestCreateRejectsUnknownLocation(t *testing.T) {
	f := newItemServiceFixture(t)

	_, err := f.svc.Create(context.Background(), f.actorID, CreateItemRequest{
		Name:         "projector",
		PurchaseDate: "2024-11-20",
		LocationID:   uuid.New(),
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateRejectsUnknownManager(t *testing.T) {
	f := newItemServiceFixture(t)
	other := uuid.New()

	_, err := f.svc.Create(context.Background(), f.actorID, CreateItemRequest{
		Name:         "projector",
		PurchaseDate: "2024-11-20",
		LocationID:   f.locationID,
		ManagerID:    &other,
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateRejectsBadPurchaseDate(t *testing.T) {
	f := newItemServiceFixture(t)

	_, err := f.svc.Create(context.Background(), f.actorID, CreateItemRequest{
		Name:         "projector",
		PurchaseDate: "20/11/2024",
		LocationID:   f.locationID,
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateReplacesFields(t *testing.T) {
	managerID := uuid.New()
	item := &models.Item{
		ID:        uuid.New(),
		Name:      "projector",
		Status:    enums.ItemStatusRegistered,
		ManagerID: managerID,
		OwnerID:   managerID,
	}
	f := newItemServiceFixture(t, item)

	dto, err := f.svc.Update(context.Background(), item.ID, UpdateItemRequest{
		Name:         "projector (repaired)",
		PurchaseDate: "2023-01-15",
		Status:       "normal",
		ManagerID:    managerID,
		OwnerID:      managerID,
		LocationID:   f.locationID,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if dto.Name != "projector (repaired)" || dto.Status != enums.ItemStatusNormal {
		t.Fatalf("unexpected dto %+v", dto)
	}
	if f.repo.updated == nil {
		t.Fatal("expected repository update")
	}
}

func TestGetUnknownItemIsNotFound(t *testing.T) {
	f := newItemServiceFixture(t)

	_, err := f.svc.Get(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteRemovesItem(t *testing.T) {
	managerID := uuid.New()
	item := &models.Item{ID: uuid.New(), Name: "projector", ManagerID: managerID, OwnerID: managerID}
	f := newItemServiceFixture(t, item)

	if err := f.svc.Delete(context.Background(), item.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(f.repo.deleted) != 1 || f.repo.deleted[0] != item.ID {
		t.Fatalf("expected soft delete of %s, got %v", item.ID, f.repo.deleted)
	}

	err := f.svc.Delete(context.Background(), item.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
