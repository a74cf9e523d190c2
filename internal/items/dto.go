package items

import (
	"time"

	"github.com/google/uuid"

	"github.com/okabe-lab/assetdesk-backend/pkg/db/models"
	"github.com/okabe-lab/assetdesk-backend/pkg/enums"
)

// PersonSummary is the trimmed user shape embedded in item payloads.
type PersonSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// LocationSummary is the trimmed location shape embedded in item payloads.
type LocationSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// ItemDTO is the transport shape for a tracked item.
type ItemDTO struct {
	ID           uuid.UUID        `json:"id"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	PurchaseDate time.Time        `json:"purchase_date"`
	Status       enums.ItemStatus `json:"status"`
	Manager      *PersonSummary   `json:"manager,omitempty"`
	Owner        *PersonSummary   `json:"owner,omitempty"`
	Location     *LocationSummary `json:"location,omitempty"`
	ManagerID    uuid.UUID        `json:"manager_id"`
	OwnerID      uuid.UUID        `json:"owner_id"`
	LocationID   uuid.UUID        `json:"location_id"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ItemList wraps the paginated items plus the next page cursor.
type ItemList struct {
	Items      []ItemDTO `json:"items"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// CreateItemRequest is the payload accepted by the item create endpoint.
// Manager and owner default to the acting user when omitted.
type CreateItemRequest struct {
	Name         string     `json:"name" validate:"required,max=255"`
	Description  string     `json:"description"`
	PurchaseDate string     `json:"purchase_date" validate:"required"`
	Status       string     `json:"status" validate:"omitempty,oneof=registered normal reserved gone"`
	ManagerID    *uuid.UUID `json:"manager_id,omitempty"`
	OwnerID      *uuid.UUID `json:"owner_id,omitempty"`
	LocationID   uuid.UUID  `json:"location_id" validate:"required"`
}

// UpdateItemRequest is the payload accepted by the item update endpoint.
type UpdateItemRequest struct {
	Name         string    `json:"name" validate:"required,max=255"`
	Description  string    `json:"description"`
	PurchaseDate string    `json:"purchase_date" validate:"required"`
	Status       string    `json:"status" validate:"required,oneof=registered normal reserved gone"`
	ManagerID    uuid.UUID `json:"manager_id" validate:"required"`
	OwnerID      uuid.UUID `json:"owner_id" validate:"required"`
	LocationID   uuid.UUID `json:"location_id" validate:"required"`
}

// ScanRequest identifies the item asserted by a scan event. The actor comes
// from the authenticated session, never from the payload.
type ScanRequest struct {
	ItemID uuid.UUID `json:"item_id" validate:"required"`
}

// ScanResult is the outcome of a scan event. Denials are outcomes, not errors.
type ScanResult struct {
	Authorized bool   `json:"-"`
	Message    string `json:"message"`
}

func FromModel(item *models.Item) *ItemDTO {
	if item == nil {
		return nil
	}

	dto := &ItemDTO{
		ID:           item.ID,
		Name:         item.Name,
		Description:  item.Description,
		PurchaseDate: item.PurchaseDate,
		Status:       item.Status,
		ManagerID:    item.ManagerID,
		OwnerID:      item.OwnerID,
		LocationID:   item.LocationID,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
	if item.Manager != nil {
		dto.Manager = &PersonSummary{ID: item.Manager.ID, Name: item.Manager.Name, Email: item.Manager.Email}
	}
	if item.Owner != nil {
		dto.Owner = &PersonSummary{ID: item.Owner.ID, Name: item.Owner.Name, Email: item.Owner.Email}
	}
	if item.Location != nil {
		dto.Location = &LocationSummary{ID: item.Location.ID, Name: item.Location.Name}
	}
	return dto
}
