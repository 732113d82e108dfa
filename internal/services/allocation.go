package services

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"isp_billing_echo/internal/models"
)

// Allocation is the part of a payment applied to one invoice
type Allocation struct {
	InvoiceID uint
	Amount    decimal.Decimal
}

// AllocatePayment spreads amount across invoices oldest due date first,
// settling each outstanding balance before moving to the next. It returns the
// allocations and the amount left unapplied.
func AllocatePayment(amount decimal.Decimal, invoices []models.Invoice) ([]Allocation, decimal.Decimal) {
	ordered := slices.Clone(invoices)
	slices.SortStableFunc(ordered, func(a, b models.Invoice) int {
		if c := a.DueDate.Compare(b.DueDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	remaining := amount
	allocations := make([]Allocation, 0, len(ordered))
	for _, inv := range ordered {
		if !remaining.IsPositive() {
			break
		}
		outstanding := inv.Outstanding()
		if !outstanding.IsPositive() {
			continue
		}

		apply := decimal.Min(remaining, outstanding)
		allocations = append(allocations, Allocation{InvoiceID: inv.ID, Amount: apply})
		remaining = remaining.Sub(apply)
	}
	return allocations, remaining
}
