package models

import "time"

// Assignment links a collector to a region for a period of time.
// A nil ActiveTo marks the current assignment.
type Assignment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID     uint       `gorm:"not null;index" json:"user_id"`
	RegionID   uint       `gorm:"not null;index" json:"region_id"`
	ActiveFrom time.Time  `json:"active_from"`
	ActiveTo   *time.Time `json:"active_to"`

	Region Region `gorm:"foreignKey:RegionID" json:"region,omitempty"`
}
