package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isp_billing_echo/internal/models"
)

func (f *fixture) customerService() *CustomerService {
	return NewCustomerService(f.db, f.billing(), f.log)
}

func TestCustomerCreateBillsActiveCustomers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	region := f.region("North")
	plan := f.plan("45.00")
	svc := f.customerService()

	customer, invoice, err := svc.Create(ctx, CustomerInput{
		FullName: " Ada Lovelace ",
		Username: "ada",
		RegionID: region.ID,
		PlanID:   plan.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", customer.FullName)
	assert.Equal(t, models.CustomerStatusActive, customer.Status)
	require.NotNil(t, invoice)
	assert.Equal(t, models.InvoiceCategoryFirst, invoice.Category)
	assert.True(t, invoice.Amount.Equal(money("45")))
	assert.EqualValues(t, 1, f.count(&models.BillingCycle{}, "customer_id = ? AND status = ?", customer.ID, models.BillingCycleStatusBilled))

	dormant, invoice, err := svc.Create(ctx, CustomerInput{
		FullName: "Charles Babbage",
		Username: "charles",
		RegionID: region.ID,
		PlanID:   plan.ID,
		Status:   models.CustomerStatusInactive,
	})
	require.NoError(t, err)
	assert.Nil(t, invoice)
	assert.EqualValues(t, 0, f.count(&models.Invoice{}, "customer_id = ?", dormant.ID))
}

func TestCustomerCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	region := f.region("North")
	plan := f.plan("45.00")
	svc := f.customerService()

	_, _, err := svc.Create(ctx, CustomerInput{Username: "x", RegionID: region.ID, PlanID: plan.ID})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = svc.Create(ctx, CustomerInput{FullName: "X", Username: "x", RegionID: region.ID, PlanID: plan.ID, Status: "GONE"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = svc.Create(ctx, CustomerInput{FullName: "X", Username: "x", RegionID: 9999, PlanID: plan.ID})
	assert.ErrorIs(t, err, ErrRegionNotFound)

	_, _, err = svc.Create(ctx, CustomerInput{FullName: "X", Username: "x", RegionID: region.ID, PlanID: 9999})
	assert.ErrorIs(t, err, ErrPlanNotFound)

	_, _, err = svc.Create(ctx, CustomerInput{FullName: "X", Username: "dup", RegionID: region.ID, PlanID: plan.ID})
	require.NoError(t, err)
	_, _, err = svc.Create(ctx, CustomerInput{FullName: "Y", Username: "dup", RegionID: region.ID, PlanID: plan.ID})
	assert.True(t, IsConstraintViolation(err))
	assert.EqualValues(t, 1, f.count(&models.Invoice{}, ""), "rejected customer is not billed")
}

func TestCustomerUpdateKeepsInvoices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	region := f.region("North")
	basic := f.plan("45.00")
	premium := f.plan("90.00")
	svc := f.customerService()

	customer, invoice, err := svc.Create(ctx, CustomerInput{FullName: "Ada", Username: "ada", RegionID: region.ID, PlanID: basic.ID})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, customer.ID, CustomerInput{FullName: "Ada L.", Username: "ada", RegionID: region.ID, PlanID: premium.ID})
	require.NoError(t, err)
	assert.Equal(t, premium.ID, updated.PlanID)
	assert.Equal(t, models.CustomerStatusActive, updated.Status)

	assert.True(t, f.reloadInvoice(invoice.ID).Amount.Equal(money("45")))

	_, err = svc.Update(ctx, 9999, CustomerInput{FullName: "Nobody", Username: "nobody", RegionID: region.ID, PlanID: basic.ID})
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestCustomerDeleteGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	region := f.region("North")
	plan := f.plan("45.00")
	svc := f.customerService()

	invoiced := f.customer(region, plan, models.CustomerStatusActive)
	f.invoice(invoiced, "45.00", "0", time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC))

	err := svc.Delete(ctx, invoiced.ID)
	require.ErrorIs(t, err, ErrHasDependents)
	var dep *DependentsError
	require.ErrorAs(t, err, &dep)
	assert.Equal(t, "invoices", dep.Dependent)
	assert.EqualValues(t, 1, dep.Count)

	fresh := f.customer(region, plan, models.CustomerStatusActive)
	_, err = f.billing().CreateBillingCycles(ctx, "2024-03")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, fresh.ID))
	_, err = svc.Get(ctx, fresh.ID)
	assert.ErrorIs(t, err, ErrCustomerNotFound)
	assert.EqualValues(t, 0, f.count(&models.BillingCycle{}, "customer_id = ?", fresh.ID))

	assert.ErrorIs(t, svc.Delete(ctx, fresh.ID), ErrCustomerNotFound)
}

func TestCustomerListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	north := f.region("North")
	south := f.region("South")
	plan := f.plan("45.00")
	collector := f.collector(north)

	inNorth := f.customer(north, plan, models.CustomerStatusActive)
	f.customer(north, plan, models.CustomerStatusSuspended)
	f.customer(south, plan, models.CustomerStatusActive)

	svc := f.customerService()

	mine, err := svc.ListForCollector(ctx, collector.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, inNorth.ID, mine[0].ID)
	assert.NotNil(t, mine[0].Plan)

	active, err := svc.List(ctx, CustomerFilter{Status: models.CustomerStatusActive})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	byRegion, err := svc.List(ctx, CustomerFilter{RegionID: north.ID})
	require.NoError(t, err)
	assert.Len(t, byRegion, 2)

	found, err := svc.List(ctx, CustomerFilter{Search: inNorth.Username})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, inNorth.ID, found[0].ID)
}
