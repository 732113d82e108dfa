package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is an immutable receipt for cash applied to a single invoice.
// Rows are inserted once and never updated or deleted.
type Payment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ReceiptNo     string          `gorm:"type:varchar(40);not null;uniqueIndex" json:"receipt_no"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	CustomerID    uint            `gorm:"not null;index" json:"customer_id"`
	InvoiceID     uint            `gorm:"not null;index" json:"invoice_id"`
	CollectorID   uint            `gorm:"not null;index" json:"collector_id"`
	CashSessionID uint            `gorm:"not null;index" json:"cash_session_id"`
	ReceivedAt    time.Time       `gorm:"not null" json:"received_at"`

	// Relationships
	Customer *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Invoice  *Invoice  `gorm:"foreignKey:InvoiceID" json:"invoice,omitempty"`
}
