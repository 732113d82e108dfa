package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isp_billing_echo/internal/models"
)

type collectionSetup struct {
	*fixture
	collector models.User
	customer  models.Customer
	session   models.CashSession
}

func newCollectionSetup(t *testing.T) *collectionSetup {
	f := newFixture(t)
	region := f.region("North")
	plan := f.plan("50.00")
	collector := f.collector(region)
	return &collectionSetup{
		fixture:   f,
		collector: collector,
		customer:  f.customer(region, plan, models.CustomerStatusActive),
		session:   f.openSession(collector, "0"),
	}
}

func (s *collectionSetup) request(amount string, invoiceIDs ...uint) CollectPaymentRequest {
	return CollectPaymentRequest{
		Amount:        money(amount),
		CustomerID:    s.customer.ID,
		InvoiceIDs:    invoiceIDs,
		CashSessionID: s.session.ID,
		CollectorID:   s.collector.ID,
	}
}

func (s *collectionSetup) paymentSum(invoiceID uint) string {
	var row struct{ Total decimal.Decimal }
	require.NoError(s.t, s.db.Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("invoice_id = ?", invoiceID).
		Scan(&row).Error)
	return models.RoundMoney(row.Total).StringFixed(2)
}

func TestCollectPaymentSettlesOldestFirst(t *testing.T) {
	s := newCollectionSetup(t)
	jan := s.invoice(s.customer, "50.00", "0", time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC))
	feb := s.invoice(s.customer, "30.00", "0", time.Date(2024, 2, 11, 0, 0, 0, 0, time.UTC))

	result, err := s.payments().CollectPayment(context.Background(), s.request("60.00", feb.ID, jan.ID))
	require.NoError(t, err)
	require.Len(t, result.Payments, 2)

	assert.Equal(t, jan.ID, result.Payments[0].InvoiceID)
	assert.True(t, result.Payments[0].Amount.Equal(money("50")))
	assert.Equal(t, feb.ID, result.Payments[1].InvoiceID)
	assert.True(t, result.Payments[1].Amount.Equal(money("10")))

	gotJan := s.reloadInvoice(jan.ID)
	assert.Equal(t, models.InvoiceStatusPaid, gotJan.Status)
	assert.True(t, gotJan.Outstanding().IsZero())

	gotFeb := s.reloadInvoice(feb.ID)
	assert.Equal(t, models.InvoiceStatusPartial, gotFeb.Status)
	assert.True(t, gotFeb.Outstanding().Equal(money("20")), "outstanding %s", gotFeb.Outstanding())

	// receipts always add up to what the invoice records as paid
	assert.Equal(t, gotJan.PaidAmount.StringFixed(2), s.paymentSum(jan.ID))
	assert.Equal(t, gotFeb.PaidAmount.StringFixed(2), s.paymentSum(feb.ID))

	for _, p := range result.Payments {
		assert.Equal(t, s.session.ID, p.CashSessionID)
		assert.Equal(t, s.collector.ID, p.CollectorID)
		assert.True(t, testNow.Equal(p.ReceivedAt))
	}
}

func TestCollectPaymentRejectsOverpayment(t *testing.T) {
	s := newCollectionSetup(t)
	inv := s.invoice(s.customer, "50.00", "30.00", time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC))

	_, err := s.payments().CollectPayment(context.Background(), s.request("25.00", inv.ID))
	require.ErrorIs(t, err, ErrOverpayment)

	var overpay *OverpaymentError
	require.ErrorAs(t, err, &overpay)
	assert.Equal(t, "5.00", overpay.Remaining)

	got := s.reloadInvoice(inv.ID)
	assert.Equal(t, models.InvoiceStatusPartial, got.Status)
	assert.True(t, got.PaidAmount.Equal(money("30")))
	assert.EqualValues(t, 0, s.count(&models.Payment{}, ""))
}

func TestCollectPaymentToleratesOneMinorUnit(t *testing.T) {
	s := newCollectionSetup(t)
	inv := s.invoice(s.customer, "30.00", "0", time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC))

	result, err := s.payments().CollectPayment(context.Background(), s.request("30.01", inv.ID))
	require.NoError(t, err)
	require.Len(t, result.Payments, 1)
	assert.True(t, result.Payments[0].Amount.Equal(money("30")))
	assert.Equal(t, models.InvoiceStatusPaid, s.reloadInvoice(inv.ID).Status)

	inv2 := s.invoice(s.customer, "30.00", "0", time.Date(2024, 2, 11, 0, 0, 0, 0, time.UTC))
	_, err = s.payments().CollectPayment(context.Background(), s.request("30.02", inv2.ID))
	assert.ErrorIs(t, err, ErrOverpayment)

	// the tolerated cent is not part of the session count
	closed, err := s.sessions().CloseSession(context.Background(), s.session.ID, s.collector.ID)
	require.NoError(t, err)
	require.True(t, closed.CountedTotal.Valid)
	assert.Equal(t, "30.00", closed.CountedTotal.Decimal.StringFixed(2))
}

func TestCollectPaymentRequiresOwnOpenSession(t *testing.T) {
	s := newCollectionSetup(t)
	inv := s.invoice(s.customer, "50.00", "0", time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC))
	other := s.fixture.collector()

	req := s.request("10.00", inv.ID)
	req.CollectorID = other.ID
	_, err := s.payments().CollectPayment(context.Background(), req)
	assert.ErrorIs(t, err, ErrSessionUnavailable)

	require.NoError(t, s.db.Model(&models.CashSession{}).Where("id = ?", s.session.ID).
		Update("status", models.CashSessionStatusClosed).Error)
	_, err = s.payments().CollectPayment(context.Background(), s.request("10.00", inv.ID))
	assert.ErrorIs(t, err, ErrSessionUnavailable)

	assert.EqualValues(t, 0, s.count(&models.Payment{}, ""))
	assert.True(t, s.reloadInvoice(inv.ID).PaidAmount.IsZero())
}

func TestCollectPaymentNoDueInvoices(t *testing.T) {
	s := newCollectionSetup(t)
	region := s.region("South")
	stranger := s.fixture.customer(region, s.plan("20.00"), models.CustomerStatusActive)

	paid := s.invoice(s.customer, "50.00", "50.00", time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC))
	foreign := s.invoice(stranger, "20.00", "0", time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name string
		ids  []uint
	}{
		{"already paid", []uint{paid.ID}},
		{"belongs to another customer", []uint{foreign.ID}},
		{"does not exist", []uint{9999}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.payments().CollectPayment(context.Background(), s.request("10.00", tt.ids...))
			assert.ErrorIs(t, err, ErrNoDueInvoices)
		})
	}
}

func TestCollectPaymentValidation(t *testing.T) {
	s := newCollectionSetup(t)
	inv := s.invoice(s.customer, "50.00", "0", time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name   string
		mutate func(r *CollectPaymentRequest)
	}{
		{"zero amount", func(r *CollectPaymentRequest) { r.Amount = money("0") }},
		{"negative amount", func(r *CollectPaymentRequest) { r.Amount = money("-5") }},
		{"sub-cent amount", func(r *CollectPaymentRequest) { r.Amount = money("10.005") }},
		{"no invoices", func(r *CollectPaymentRequest) { r.InvoiceIDs = nil }},
		{"zero invoice id", func(r *CollectPaymentRequest) { r.InvoiceIDs = []uint{0} }},
		{"missing customer", func(r *CollectPaymentRequest) { r.CustomerID = 0 }},
		{"missing session", func(r *CollectPaymentRequest) { r.CashSessionID = 0 }},
		{"missing collector", func(r *CollectPaymentRequest) { r.CollectorID = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := s.request("10.00", inv.ID)
			tt.mutate(&req)
			_, err := s.payments().CollectPayment(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
	assert.EqualValues(t, 0, s.count(&models.Payment{}, ""))
}

func TestCollectPaymentDuplicateInvoiceIDs(t *testing.T) {
	s := newCollectionSetup(t)
	inv := s.invoice(s.customer, "50.00", "0", time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC))

	result, err := s.payments().CollectPayment(context.Background(), s.request("50.00", inv.ID, inv.ID))
	require.NoError(t, err)
	assert.Len(t, result.Payments, 1)
	assert.Equal(t, models.InvoiceStatusPaid, s.reloadInvoice(inv.ID).Status)
}

func TestNewReceiptNo(t *testing.T) {
	at := time.UnixMilli(1718000000000)
	pattern := regexp.MustCompile(`^RCPT-1718000000000-[0-9A-F]{8}$`)

	first := newReceiptNo(at)
	second := newReceiptNo(at)
	assert.Regexp(t, pattern, first)
	assert.Regexp(t, pattern, second)
	assert.NotEqual(t, first, second)
}
