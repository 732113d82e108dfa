package models

import (
	"time"

	"gorm.io/gorm"
)

// UserRole represents the back-office role of a user
type UserRole string

const (
	UserRoleAdmin     UserRole = "ADMIN"
	UserRoleManager   UserRole = "MANAGER"
	UserRoleCollector UserRole = "COLLECTOR"
)

// UserStatus represents whether a user may sign in and act
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusInactive  UserStatus = "INACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User represents a staff member: administrator, manager or field collector
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	FullName     string     `gorm:"type:varchar(255)" json:"full_name"`
	Username     string     `gorm:"type:varchar(100);uniqueIndex" json:"username"`
	Phone        string     `gorm:"type:varchar(50)" json:"phone"`
	PasswordHash string     `gorm:"type:varchar(255)" json:"-"`
	Role         UserRole   `gorm:"type:varchar(20);default:'COLLECTOR'" json:"role"`
	Status       UserStatus `gorm:"type:varchar(20);default:'ACTIVE'" json:"status"`

	// Relationships
	Assignments []Assignment `gorm:"foreignKey:UserID" json:"assignments,omitempty"`
}

// IsActive reports whether the user may act in the system
func (u User) IsActive() bool {
	return u.Status == UserStatusActive
}

// CanReconcile reports whether the user may approve closed cash sessions
func (u User) CanReconcile() bool {
	return u.IsActive() && (u.Role == UserRoleAdmin || u.Role == UserRoleManager)
}

// IsCollector reports whether the user is an active field collector
func (u User) IsCollector() bool {
	return u.IsActive() && u.Role == UserRoleCollector
}
