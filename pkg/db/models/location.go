package models

import (
	"time"

	"github.com/google/uuid"
)

// Location is a storage place with an attached IoT device. Environmental
// readings come from the device shadow at request time and are never stored.
type Location struct {
	ID               uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name             string    `gorm:"type:text;not null;uniqueIndex"`
	Description      string    `gorm:"type:text;not null;default:''"`
	DeviceID         string    `gorm:"column:device_id;type:text;not null"`
	ControllerShadow string    `gorm:"column:controller_shadow;type:text;not null;default:''"`
	SensorShadow     string    `gorm:"column:sensor_shadow;type:text;not null;default:''"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
