package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashSessionStatus represents the reconciliation state of a cash session
type CashSessionStatus string

const (
	CashSessionStatusOpen     CashSessionStatus = "OPEN"
	CashSessionStatusClosed   CashSessionStatus = "CLOSED"
	CashSessionStatusApproved CashSessionStatus = "APPROVED"
)

// CashSession is a collector's working period in the field. ExpectedTotal is
// frozen when the session opens; CountedTotal and Variance are set on close.
// The partial unique index keeps at most one OPEN session per collector.
type CashSession struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CollectorID   uint                `gorm:"not null;index;uniqueIndex:idx_cash_sessions_one_open,priority:1,where:status = 'OPEN'" json:"collector_id"`
	Status        CashSessionStatus   `gorm:"type:varchar(20);not null;default:'OPEN';uniqueIndex:idx_cash_sessions_one_open,priority:2,where:status = 'OPEN'" json:"status"`
	OpenedAt      time.Time           `gorm:"not null;index" json:"opened_at"`
	ClosedAt      *time.Time          `json:"closed_at"`
	ExpectedTotal decimal.Decimal     `gorm:"type:decimal(15,2);not null;default:0" json:"expected_total"`
	CountedTotal  decimal.NullDecimal `gorm:"type:decimal(15,2)" json:"counted_total"`
	Variance      decimal.NullDecimal `gorm:"type:decimal(15,2)" json:"variance"`
	ApprovedAt    *time.Time          `json:"approved_at"`
	ApprovedByID  *uint               `json:"approved_by_id"`

	// Relationships
	Collector *User `gorm:"foreignKey:CollectorID" json:"collector,omitempty"`
}

// IsOpen reports whether the session still accepts payments
func (s CashSession) IsOpen() bool {
	return s.Status == CashSessionStatusOpen
}
