package models

import "time"

// BillingCycleStatus represents the state of a customer's billing period
type BillingCycleStatus string

const (
	BillingCycleStatusPending BillingCycleStatus = "PENDING"
	BillingCycleStatusBilled  BillingCycleStatus = "BILLED"
)

// BillingCycle marks that a customer is due (PENDING) or has been invoiced
// (BILLED) for a period. At most one row exists per customer and period.
type BillingCycle struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CustomerID uint               `gorm:"not null;uniqueIndex:idx_billing_cycles_customer_period,priority:1" json:"customer_id"`
	Period     string             `gorm:"type:varchar(7);not null;uniqueIndex:idx_billing_cycles_customer_period,priority:2;index:idx_billing_cycles_period_status,priority:1" json:"period"`
	Status     BillingCycleStatus `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_billing_cycles_period_status,priority:2" json:"status"`

	// Relationships
	Customer *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
}
