package items

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/okabe-lab/assetdesk-backend/pkg/db/models"
	"github.com/okabe-lab/assetdesk-backend/pkg/enums"
	pkgerrors "github.com/okabe-lab/assetdesk-backend/pkg/errors"
	"github.com/okabe-lab/assetdesk-backend/pkg/pagination"
)

const purchaseDateLayout = "2006-01-02"

// Service defines the behavior needed by the items controller.
type Service interface {
	Create(ctx context.Context, actorID uuid.UUID, req CreateItemRequest) (*ItemDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ItemDTO, error)
	List(ctx context.Context, params pagination.Params) (*ItemList, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateItemRequest) (*ItemDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type locationChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type userChecker interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type service struct {
	repo      Repository
	locations locationChecker
	users     userChecker
}

// ServiceParams bundles the dependencies required to build an items service.
type ServiceParams struct {
	Repo         Repository
	LocationRepo locationChecker
	UserRepo     userChecker
}

// NewService constructs the items CRUD service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("items repository is required")
	}
	if params.LocationRepo == nil {
		return nil, fmt.Errorf("locations repository is required")
	}
	if params.UserRepo == nil {
		return nil, fmt.Errorf("users repository is required")
	}
	return &service{
		repo:      params.Repo,
		locations: params.LocationRepo,
		users:     params.UserRepo,
	}, nil
}

func (s *service) Create(ctx context.Context, actorID uuid.UUID, req CreateItemRequest) (*ItemDTO, error) {
	purchaseDate, err := parsePurchaseDate(req.PurchaseDate)
	if err != nil {
		return nil, err
	}

	status := enums.ItemStatusRegistered
	if strings.TrimSpace(req.Status) != "" {
		status, err = enums.ParseItemStatus(req.Status)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid item status")
		}
	}

	managerID := actorID
	if req.ManagerID != nil {
		managerID = *req.ManagerID
	}
	ownerID := actorID
	if req.OwnerID != nil {
		ownerID = *req.OwnerID
	}

	if err := s.checkReferences(ctx, managerID, ownerID, req.LocationID); err != nil {
		return nil, err
	}

	item := &models.Item{
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		PurchaseDate: purchaseDate,
		Status:       status,
		ManagerID:    managerID,
		OwnerID:      ownerID,
		LocationID:   req.LocationID,
	}

	created, err := s.repo.Create(ctx, item)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create item")
	}
	return s.Get(ctx, created.ID)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ItemDTO, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find item")
	}
	return FromModel(item), nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*ItemList, error) {
	list, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list items")
	}
	return list, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateItemRequest) (*ItemDTO, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find item")
	}

	purchaseDate, err := parsePurchaseDate(req.PurchaseDate)
	if err != nil {
		return nil, err
	}
	status, err := enums.ParseItemStatus(req.Status)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid item status")
	}
	if err := s.checkReferences(ctx, req.ManagerID, req.OwnerID, req.LocationID); err != nil {
		return nil, err
	}

	item.Name = strings.TrimSpace(req.Name)
	item.Description = req.Description
	item.PurchaseDate = purchaseDate
	item.Status = status
	item.ManagerID = req.ManagerID
	item.OwnerID = req.OwnerID
	item.LocationID = req.LocationID
	item.Manager = nil
	item.Owner = nil
	item.Location = nil

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update item")
	}
	return s.Get(ctx, item.ID)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete item")
	}
	return nil
}

func (s *service) checkReferences(ctx context.Context, managerID, ownerID, locationID uuid.UUID) error {
	exists, err := s.locations.Exists(ctx, locationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check location")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeValidation, "location does not exist").
			WithDetails(map[string]any{"field": "location_id"})
	}

	for field, id := range map[string]uuid.UUID{"manager_id": managerID, "owner_id": ownerID} {
		if _, err := s.users.FindByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "user does not exist").
					WithDetails(map[string]any{"field": field})
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user")
		}
	}
	return nil
}

func parsePurchaseDate(value string) (time.Time, error) {
	raw := strings.TrimSpace(value)
	if t, err := time.Parse(purchaseDateLayout, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid purchase date").
		WithDetails(map[string]any{"field": "purchase_date"})
}
