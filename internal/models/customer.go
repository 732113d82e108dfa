package models

import (
	"time"

	"gorm.io/gorm"
)

// CustomerStatus represents the subscription state of a customer
type CustomerStatus string

const (
	CustomerStatusActive    CustomerStatus = "ACTIVE"
	CustomerStatusInactive  CustomerStatus = "INACTIVE"
	CustomerStatusSuspended CustomerStatus = "SUSPENDED"
)

// Customer represents an ISP subscriber
type Customer struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	FullName string         `gorm:"type:varchar(255);not null" json:"full_name"`
	Username string         `gorm:"type:varchar(100);uniqueIndex" json:"username"`
	Phone    string         `gorm:"type:varchar(50)" json:"phone"`
	Address  string         `gorm:"type:text" json:"address"`
	RegionID uint           `gorm:"not null;index" json:"region_id"`
	PlanID   uint           `gorm:"not null;index" json:"plan_id"`
	Status   CustomerStatus `gorm:"type:varchar(20);default:'ACTIVE';index" json:"status"`

	// Relationships
	Region *Region `gorm:"foreignKey:RegionID" json:"region,omitempty"`
	Plan   *Plan   `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}
