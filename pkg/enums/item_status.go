package enums

import "fmt"

// ItemStatus represents the canonical item_status enum in Postgres.
type ItemStatus string

const (
	ItemStatusRegistered ItemStatus = "registered"
	ItemStatusNormal     ItemStatus = "normal"
	ItemStatusReserved   ItemStatus = "reserved"
	ItemStatusGone       ItemStatus = "gone"
)

var validItemStatuses = []ItemStatus{
	ItemStatusRegistered,
	ItemStatusNormal,
	ItemStatusReserved,
	ItemStatusGone,
}

// String implements fmt.Stringer.
func (s ItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ItemStatus.
func (s ItemStatus) IsValid() bool {
	for _, candidate := range validItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseItemStatus converts raw input into an ItemStatus.
func ParseItemStatus(value string) (ItemStatus, error) {
	for _, candidate := range validItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item status %q", value)
}
