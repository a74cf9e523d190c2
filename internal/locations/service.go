package locations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/okabe-lab/assetdesk-backend/pkg/db"
	"github.com/okabe-lab/assetdesk-backend/pkg/db/models"
	pkgerrors "github.com/okabe-lab/assetdesk-backend/pkg/errors"
	"github.com/okabe-lab/assetdesk-backend/pkg/logger"
	"github.com/okabe-lab/assetdesk-backend/pkg/shadow"
)

// Service defines the behavior needed by the locations controller.
type Service interface {
	Create(ctx context.Context, req CreateLocationRequest) (*LocationDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*LocationDTO, error)
	List(ctx context.Context) ([]LocationDTO, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateLocationRequest) (*LocationDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ToggleAC(ctx context.Context, id uuid.UUID) (*ToggleResponse, error)
	ToggleDehumidifier(ctx context.Context, id uuid.UUID) (*ToggleResponse, error)
}

type shadowClient interface {
	GetReported(ctx context.Context, thingName, shadowName string) (shadow.Reading, error)
	UpdateDesired(ctx context.Context, thingName, shadowName string, desired map[string]any) error
}

type service struct {
	repo   Repository
	shadow shadowClient
	logg   *logger.Logger
}

// ServiceParams bundles the dependencies required to build a locations service.
type ServiceParams struct {
	Repo   Repository
	Shadow shadowClient
	Logger *logger.Logger
}

// NewService constructs the locations service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("locations repository is required")
	}
	if params.Shadow == nil {
		return nil, fmt.Errorf("shadow client is required")
	}
	return &service{
		repo:   params.Repo,
		shadow: params.Shadow,
		logg:   params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, req CreateLocationRequest) (*LocationDTO, error) {
	location := &models.Location{
		Name:             strings.TrimSpace(req.Name),
		Description:      req.Description,
		DeviceID:         strings.TrimSpace(req.DeviceID),
		ControllerShadow: strings.TrimSpace(req.ControllerShadow),
		SensorShadow:     strings.TrimSpace(req.SensorShadow),
	}

	created, err := s.repo.Create(ctx, location)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "location name already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create location")
	}
	return FromModel(created, s.readingsFor(ctx, created)), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*LocationDTO, error) {
	location, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(location, s.readingsFor(ctx, location)), nil
}

func (s *service) List(ctx context.Context) ([]LocationDTO, error) {
	locations, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list locations")
	}

	out := make([]LocationDTO, 0, len(locations))
	for i := range locations {
		out = append(out, *FromModel(&locations[i], s.readingsFor(ctx, &locations[i])))
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateLocationRequest) (*LocationDTO, error) {
	location, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	location.Name = strings.TrimSpace(req.Name)
	location.Description = req.Description
	location.DeviceID = strings.TrimSpace(req.DeviceID)
	location.ControllerShadow = strings.TrimSpace(req.ControllerShadow)
	location.SensorShadow = strings.TrimSpace(req.SensorShadow)

	if err := s.repo.Update(ctx, location); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "location name already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update location")
	}
	return FromModel(location, s.readingsFor(ctx, location)), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "location not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete location")
	}
	return nil
}

// ToggleAC flips the desired AC state on the controller shadow. Shadow
// failures here propagate to the caller, unlike passive reads.
func (s *service) ToggleAC(ctx context.Context, id uuid.UUID) (*ToggleResponse, error) {
	return s.toggle(ctx, id, "ac_is_enable", func(r shadow.Reading) bool { return r.ACIsEnable })
}

// ToggleDehumidifier flips the desired dehumidifier state on the controller shadow.
func (s *service) ToggleDehumidifier(ctx context.Context, id uuid.UUID) (*ToggleResponse, error) {
	return s.toggle(ctx, id, "dehumidifier_is_enable", func(r shadow.Reading) bool { return r.DehumidifierIsEnable })
}

func (s *service) toggle(ctx context.Context, id uuid.UUID, field string, current func(shadow.Reading) bool) (*ToggleResponse, error) {
	location, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	reported, err := s.shadow.GetReported(ctx, location.DeviceID, location.ControllerShadow)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read device shadow")
	}

	next := !current(reported)
	err = s.shadow.UpdateDesired(ctx, location.DeviceID, location.ControllerShadow, map[string]any{
		field: next,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write device shadow")
	}
	return &ToggleResponse{Enabled: next}, nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	location, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "location not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find location")
	}
	return location, nil
}

// readingsFor fetches live sensor data for display. Failures are logged and
// masked with zero-value defaults so a flaky device never breaks a listing.
func (s *service) readingsFor(ctx context.Context, location *models.Location) shadow.Reading {
	reading, err := s.shadow.GetReported(ctx, location.DeviceID, location.SensorShadow)
	if err != nil {
		if s.logg != nil {
			ctx = s.logg.WithLocationID(ctx, location.ID.String())
			ctx = s.logg.WithField(ctx, "error", err.Error())
			s.logg.Warn(ctx, "shadow.read_failed")
		}
		return shadow.DefaultReading()
	}
	return reading
}
