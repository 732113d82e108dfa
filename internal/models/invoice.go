package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the settlement state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDue       InvoiceStatus = "DUE"
	InvoiceStatusPartial   InvoiceStatus = "PARTIAL"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

const (
	InvoiceCategoryMonthly = "Monthly Bill"
	InvoiceCategoryFirst   = "First Bill"
)

// Invoice is an amount owed by a customer. Monthly and first-bill invoices
// carry a period and the billing cycle they settle; custom invoices carry
// neither.
type Invoice struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CustomerID     uint            `gorm:"not null;index:idx_invoices_customer_status,priority:1" json:"customer_id"`
	BillingCycleID *uint           `gorm:"uniqueIndex" json:"billing_cycle_id"`
	Period         *string         `gorm:"type:varchar(7);index" json:"period"`
	Category       string          `gorm:"type:varchar(100)" json:"category"`
	Notes          string          `gorm:"type:text" json:"notes"`
	Amount         decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"amount"`
	ExtraAmount    decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"extra_amount"`
	PaidAmount     decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"paid_amount"`
	Status         InvoiceStatus   `gorm:"type:varchar(20);not null;default:'DUE';index:idx_invoices_customer_status,priority:2" json:"status"`
	DueDate        time.Time       `gorm:"index" json:"due_date"`
	CreatorID      *uint           `json:"creator_id"`

	// Relationships
	Customer *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
}

// CollectibleInvoiceStatuses are the statuses that still accept payments
var CollectibleInvoiceStatuses = []InvoiceStatus{InvoiceStatusDue, InvoiceStatusPartial}

// Total returns the full amount owed on the invoice
func (i Invoice) Total() decimal.Decimal {
	return i.Amount.Add(i.ExtraAmount)
}

// Outstanding returns the unpaid balance, never negative
func (i Invoice) Outstanding() decimal.Decimal {
	balance := i.Total().Sub(i.PaidAmount)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// IsCollectible reports whether the invoice still accepts payments
func (i Invoice) IsCollectible() bool {
	return i.Status == InvoiceStatusDue || i.Status == InvoiceStatusPartial
}

// ApplyPayment adds amount to the paid total and recomputes the status
func (i *Invoice) ApplyPayment(amount decimal.Decimal) {
	i.PaidAmount = RoundMoney(i.PaidAmount.Add(amount))
	i.Status = DeriveInvoiceStatus(i.Total(), i.PaidAmount)
}

// DeriveInvoiceStatus computes the status implied by the paid amount
func DeriveInvoiceStatus(total, paid decimal.Decimal) InvoiceStatus {
	switch {
	case paid.LessThanOrEqual(decimal.Zero):
		return InvoiceStatusDue
	case paid.LessThan(total):
		return InvoiceStatusPartial
	default:
		return InvoiceStatusPaid
	}
}
