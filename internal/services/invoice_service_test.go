package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isp_billing_echo/internal/models"
)

func TestCreateCustomInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := f.customer(f.region("North"), f.plan("50"), models.CustomerStatusActive)
	admin := f.user(models.UserRoleAdmin)
	svc := NewInvoiceService(f.db, f.log).WithClock(fixedClock(testNow))

	invoice, err := svc.CreateCustomInvoice(ctx, CustomInvoiceRequest{
		CustomerID:  customer.ID,
		Category:    "Installation",
		Notes:       "router and cabling",
		Amount:      money("120.00"),
		ExtraAmount: money("15.00"),
		CreatorID:   admin.ID,
	})
	require.NoError(t, err)
	assert.Nil(t, invoice.Period)
	assert.Nil(t, invoice.BillingCycleID)
	assert.Equal(t, models.InvoiceStatusDue, invoice.Status)
	assert.True(t, invoice.Total().Equal(money("135")))
	assert.True(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC).Equal(invoice.DueDate))
	require.NotNil(t, invoice.CreatorID)
	assert.Equal(t, admin.ID, *invoice.CreatorID)

	_, err = svc.CreateCustomInvoice(ctx, CustomInvoiceRequest{CustomerID: customer.ID, Category: "Fee", Amount: money("0")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateCustomInvoice(ctx, CustomInvoiceRequest{CustomerID: 9999, Category: "Fee", Amount: money("5")})
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestCancelInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := f.customer(f.region("North"), f.plan("50"), models.CustomerStatusActive)
	svc := NewInvoiceService(f.db, f.log)

	unpaid := f.invoice(customer, "50.00", "0", testNow)
	partial := f.invoice(customer, "50.00", "10.00", testNow)

	cancelled, err := svc.CancelInvoice(ctx, unpaid.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusCancelled, cancelled.Status)
	assert.Equal(t, models.InvoiceStatusCancelled, f.reloadInvoice(unpaid.ID).Status)

	_, err = svc.CancelInvoice(ctx, partial.ID)
	assert.ErrorIs(t, err, ErrInvoiceNotCancellable)

	_, err = svc.CancelInvoice(ctx, unpaid.ID)
	assert.ErrorIs(t, err, ErrInvoiceNotCancellable)

	_, err = svc.CancelInvoice(ctx, 9999)
	assert.ErrorIs(t, err, ErrInvoiceNotFound)

	due, err := svc.DueInvoices(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, partial.ID, due[0].ID)

	all, err := svc.CustomerInvoices(ctx, customer.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
