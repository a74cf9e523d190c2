package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/okabe-lab/assetdesk-backend/pkg/enums"
	"gorm.io/gorm"
)

// Item is a tracked physical asset. DeletedAt soft-deletes the row; every
// default query path excludes deleted items.
type Item struct {
	ID           uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string           `gorm:"type:text;not null"`
	Description  string           `gorm:"type:text;not null;default:''"`
	PurchaseDate time.Time        `gorm:"column:purchase_date;type:date;not null"`
	Status       enums.ItemStatus `gorm:"type:item_status;not null;default:'registered'"`
	ManagerID    uuid.UUID        `gorm:"column:manager_id;type:uuid;not null"`
	OwnerID      uuid.UUID        `gorm:"column:owner_id;type:uuid;not null"`
	LocationID   uuid.UUID        `gorm:"column:location_id;type:uuid;not null"`
	Manager      *User            `gorm:"foreignKey:ManagerID"`
	Owner        *User            `gorm:"foreignKey:OwnerID"`
	Location     *Location        `gorm:"foreignKey:LocationID"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt    gorm.DeletedAt   `gorm:"column:deleted_at;index"`
}

// IsManagedBy reports whether the given user is accountable for this item.
func (i *Item) IsManagedBy(userID uuid.UUID) bool {
	return i != nil && i.ManagerID == userID
}
