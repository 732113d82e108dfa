package models

import (
	"time"

	"gorm.io/gorm"
)

// Region is a node of the service-area tree
type Region struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name     string `gorm:"type:varchar(255);not null" json:"name"`
	ParentID *uint  `gorm:"index" json:"parent_id"`

	// Relationships
	Children []Region `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}
