package locations

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/okabe-lab/assetdesk-backend/pkg/db/models"
	pkgerrors "github.com/okabe-lab/assetdesk-backend/pkg/errors"
	"github.com/okabe-lab/assetdesk-backend/pkg/shadow"
)

type stubLocationRepo struct {
	locations map[uuid.UUID]*models.Location
}

func newStubLocationRepo(locations ...*models.Location) *stubLocationRepo {
	repo := &stubLocationRepo{locations: map[uuid.UUID]*models.Location{}}
	for _, location := range locations {
		repo.locations[location.ID] = location
	}
	return repo
}

func (s *stubLocationRepo) Create(ctx context.Context, location *models.Location) (*models.Location, error) {
	if location.ID == uuid.Nil {
		location.ID = uuid.New()
	}
	s.locations[location.ID] = location
	return location, nil
}

func (s *stubLocationRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	location, ok := s.locations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return location, nil
}

func (s *stubLocationRepo) FindByName(ctx context.Context, name string) (*models.Location, error) {
	for _, location := range s.locations {
		if location.Name == name {
			return location, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubLocationRepo) ListAll(ctx context.Context) ([]models.Location, error) {
	out := make([]models.Location, 0, len(s.locations))
	for _, location := range s.locations {
		out = append(out, *location)
	}
	return out, nil
}

func (s *stubLocationRepo) Update(ctx context.Context, location *models.Location) error {
	s.locations[location.ID] = location
	return nil
}

func (s *stubLocationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.locations[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.locations, id)
	return nil
}

func (s *stubLocationRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, ok := s.locations[id]
	return ok, nil
}

func (s *stubLocationRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(s.locations)), nil
}

type stubShadowClient struct {
	reported  shadow.Reading
	readErr   error
	writeErr  error
	lastThing string
	lastName  string
	lastWrite map[string]any
}

func (s *stubShadowClient) GetReported(ctx context.Context, thingName, shadowName string) (shadow.Reading, error) {
	s.lastThing = thingName
	s.lastName = shadowName
	if s.readErr != nil {
		return shadow.Reading{}, s.readErr
	}
	return s.reported, nil
}

func (s *stubShadowClient) UpdateDesired(ctx context.Context, thingName, shadowName string, desired map[string]any) error {
	s.lastThing = thingName
	s.lastName = shadowName
	s.lastWrite = desired
	return s.writeErr
}

func newLocationTestService(t *testing.T, shadowStub *stubShadowClient, locations ...*models.Location) (Service, *stubLocationRepo) {
	t.Helper()
	repo := newStubLocationRepo(locations...)
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Shadow: shadowStub,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo
}

func newTestLocation() *models.Location {
	return &models.Location{
		ID:               uuid.New(),
		Name:             "cold storage",
		DeviceID:         "device-7",
		ControllerShadow: "controller",
		SensorShadow:     "sensor",
	}
}

func TestGetJoinsLiveReadings(t *testing.T) {
	location := newTestLocation()
	shadowStub := &stubShadowClient{
		reported: shadow.Reading{Temperature: 21.5, Humidity: 40, ACIsEnable: true},
	}
	svc, _ := newLocationTestService(t, shadowStub, location)

	dto, err := svc.Get(context.Background(), location.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if dto.Readings.Temperature != 21.5 || !dto.Readings.ACIsEnable {
		t.Fatalf("unexpected readings %+v", dto.Readings)
	}
	if shadowStub.lastName != "sensor" {
		t.Fatalf("readings must come from the sensor shadow, got %q", shadowStub.lastName)
	}
}

func TestGetMasksShadowReadFailure(t *testing.T) {
	location := newTestLocation()
	shadowStub := &stubShadowClient{readErr: errors.New("device offline")}
	svc, _ := newLocationTestService(t, shadowStub, location)

	dto, err := svc.Get(context.Background(), location.ID)
	if err != nil {
		t.Fatalf("shadow failure must not fail the read: %v", err)
	}
	if dto.Readings != shadow.DefaultReading() {
		t.Fatalf("expected default readings, got %+v", dto.Readings)
	}
}

func TestGetUnknownLocationIsNotFound(t *testing.T) {
	svc, _ := newLocationTestService(t, &stubShadowClient{})

	_, err := svc.Get(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestToggleACFlipsReportedState(t *testing.T) {
	location := newTestLocation()
	shadowStub := &stubShadowClient{reported: shadow.Reading{ACIsEnable: true}}
	svc, _ := newLocationTestService(t, shadowStub, location)

	resp, err := svc.ToggleAC(context.Background(), location.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if resp.Enabled {
		t.Fatalf("expected AC to be disabled")
	}
	if shadowStub.lastName != "controller" {
		t.Fatalf("toggles must hit the controller shadow, got %q", shadowStub.lastName)
	}
	if got, ok := shadowStub.lastWrite["ac_is_enable"].(bool); !ok || got {
		t.Fatalf("unexpected desired payload %+v", shadowStub.lastWrite)
	}
}

func TestToggleDehumidifierWriteFailurePropagates(t *testing.T) {
	location := newTestLocation()
	shadowStub := &stubShadowClient{writeErr: errors.New("shadow rejected update")}
	svc, _ := newLocationTestService(t, shadowStub, location)

	_, err := svc.ToggleDehumidifier(context.Background(), location.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestCreateTrimsFields(t *testing.T) {
	shadowStub := &stubShadowClient{}
	svc, repo := newLocationTestService(t, shadowStub)

	dto, err := svc.Create(context.Background(), CreateLocationRequest{
		Name:     "  shelf 9  ",
		DeviceID: " device-9 ",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if dto.Name != "shelf 9" || dto.DeviceID != "device-9" {
		t.Fatalf("expected trimmed fields, got %+v", dto)
	}
	if len(repo.locations) != 1 {
		t.Fatalf("expected one stored location")
	}
}
