package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Plan represents an internet service package billed monthly
type Plan struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	MonthlyCharge decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"monthly_charge"`
	TaxRate       decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"tax_rate"`
	Company       string          `gorm:"type:varchar(255)" json:"company"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"purchase_price"`
	IsActive      bool            `gorm:"not null;default:false" json:"is_active"`
}
