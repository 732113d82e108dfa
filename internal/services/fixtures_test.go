package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"isp_billing_echo/internal/models"
	"isp_billing_echo/internal/testutil"
)

var testNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	t   *testing.T
	db  *gorm.DB
	log *zap.Logger
	seq int
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, db: testutil.NewDB(t), log: zap.NewNop()}
}

func (f *fixture) next() int {
	f.seq++
	return f.seq
}

func (f *fixture) region(name string) models.Region {
	region := models.Region{Name: name}
	require.NoError(f.t, f.db.Create(&region).Error)
	return region
}

func (f *fixture) plan(charge string) models.Plan {
	plan := models.Plan{Name: fmt.Sprintf("Plan %d", f.next()), MonthlyCharge: money(charge), IsActive: true}
	require.NoError(f.t, f.db.Create(&plan).Error)
	return plan
}

func (f *fixture) customer(region models.Region, plan models.Plan, status models.CustomerStatus) models.Customer {
	n := f.next()
	customer := models.Customer{
		FullName: fmt.Sprintf("Customer %d", n),
		Username: fmt.Sprintf("cust%d", n),
		RegionID: region.ID,
		PlanID:   plan.ID,
		Status:   status,
	}
	require.NoError(f.t, f.db.Create(&customer).Error)
	return customer
}

func (f *fixture) user(role models.UserRole) models.User {
	n := f.next()
	user := models.User{
		FullName: fmt.Sprintf("User %d", n),
		Username: fmt.Sprintf("user%d", n),
		Role:     role,
		Status:   models.UserStatusActive,
	}
	require.NoError(f.t, f.db.Create(&user).Error)
	return user
}

func (f *fixture) collector(regions ...models.Region) models.User {
	user := f.user(models.UserRoleCollector)
	for _, region := range regions {
		require.NoError(f.t, f.db.Create(&models.Assignment{
			UserID:     user.ID,
			RegionID:   region.ID,
			ActiveFrom: testNow.AddDate(-1, 0, 0),
		}).Error)
	}
	return user
}

func (f *fixture) invoice(customer models.Customer, amount, paid string, due time.Time) models.Invoice {
	invoice := models.Invoice{
		CustomerID: customer.ID,
		Category:   models.InvoiceCategoryMonthly,
		Amount:     money(amount),
		PaidAmount: money(paid),
		DueDate:    due,
	}
	invoice.Status = models.DeriveInvoiceStatus(invoice.Total(), invoice.PaidAmount)
	require.NoError(f.t, f.db.Create(&invoice).Error)
	return invoice
}

func (f *fixture) openSession(collector models.User, expected string) models.CashSession {
	session := models.CashSession{
		CollectorID:   collector.ID,
		Status:        models.CashSessionStatusOpen,
		OpenedAt:      testNow,
		ExpectedTotal: money(expected),
	}
	require.NoError(f.t, f.db.Create(&session).Error)
	return session
}

func (f *fixture) reloadInvoice(id uint) models.Invoice {
	var invoice models.Invoice
	require.NoError(f.t, f.db.First(&invoice, id).Error)
	return invoice
}

func (f *fixture) reloadSession(id uint) models.CashSession {
	var session models.CashSession
	require.NoError(f.t, f.db.First(&session, id).Error)
	return session
}

func (f *fixture) count(model interface{}, query string, args ...interface{}) int64 {
	var n int64
	q := f.db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(f.t, q.Count(&n).Error)
	return n
}

func (f *fixture) billing() *BillingService {
	return NewBillingService(f.db, nil, f.log).WithClock(fixedClock(testNow))
}

func (f *fixture) payments() *PaymentService {
	return NewPaymentService(f.db, f.log).WithClock(fixedClock(testNow))
}

func (f *fixture) sessions() *CashSessionService {
	return NewCashSessionService(f.db, f.log).WithClock(fixedClock(testNow))
}
