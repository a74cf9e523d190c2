package locations

import (
	"time"

	"github.com/google/uuid"

	"github.com/okabe-lab/assetdesk-backend/pkg/db/models"
	"github.com/okabe-lab/assetdesk-backend/pkg/shadow"
)

// LocationDTO is the transport shape for a storage place. Readings come from
// the device shadow at request time and are never persisted.
type LocationDTO struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	DeviceID    string         `json:"device_id"`
	Readings    shadow.Reading `json:"readings"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CreateLocationRequest is the payload accepted by the location create endpoint.
type CreateLocationRequest struct {
	Name             string `json:"name" validate:"required,max=255"`
	Description      string `json:"description"`
	DeviceID         string `json:"device_id" validate:"required,max=255"`
	ControllerShadow string `json:"controller_shadow"`
	SensorShadow     string `json:"sensor_shadow"`
}

// UpdateLocationRequest is the payload accepted by the location update endpoint.
type UpdateLocationRequest struct {
	Name             string `json:"name" validate:"required,max=255"`
	Description      string `json:"description"`
	DeviceID         string `json:"device_id" validate:"required,max=255"`
	ControllerShadow string `json:"controller_shadow"`
	SensorShadow     string `json:"sensor_shadow"`
}

// ToggleResponse reports the desired state written by a toggle endpoint.
type ToggleResponse struct {
	Enabled bool `json:"enabled"`
}

func FromModel(location *models.Location, readings shadow.Reading) *LocationDTO {
	if location == nil {
		return nil
	}
	return &LocationDTO{
		ID:          location.ID,
		Name:        location.Name,
		Description: location.Description,
		DeviceID:    location.DeviceID,
		Readings:    readings,
		CreatedAt:   location.CreatedAt,
		UpdatedAt:   location.UpdatedAt,
	}
}
