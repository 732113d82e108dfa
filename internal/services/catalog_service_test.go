package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isp_billing_echo/internal/models"
)

func TestPlanLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewPlanService(f.db, f.log)

	plan, err := svc.Create(ctx, PlanInput{Name: "Fiber 50", MonthlyCharge: money("49.999"), TaxRate: money("11")})
	require.NoError(t, err)
	assert.True(t, plan.IsActive)
	assert.True(t, plan.MonthlyCharge.Equal(money("50")), "charges are rounded to cents")

	inactive := false
	plan, err = svc.Update(ctx, plan.ID, PlanInput{Name: "Fiber 50", MonthlyCharge: money("55"), IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, plan.IsActive)

	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = svc.Create(ctx, PlanInput{Name: "Broken", MonthlyCharge: money("-1")})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Create(ctx, PlanInput{Name: "Broken", TaxRate: money("150")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	f.customer(f.region("North"), *plan, models.CustomerStatusActive)
	err = svc.Delete(ctx, plan.ID)
	assert.ErrorIs(t, err, ErrHasDependents)

	unused, err := svc.Create(ctx, PlanInput{Name: "Legacy", MonthlyCharge: money("10")})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, unused.ID))
	_, err = svc.Get(ctx, unused.ID)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestRegionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewRegionService(f.db, f.log)

	root, err := svc.Create(ctx, RegionInput{Name: "City"})
	require.NoError(t, err)
	assert.Nil(t, root.ParentID)

	zero := uint(0)
	other, err := svc.Create(ctx, RegionInput{Name: "Suburbs", ParentID: &zero})
	require.NoError(t, err)
	assert.Nil(t, other.ParentID, "zero parent means root")

	child, err := svc.Create(ctx, RegionInput{Name: "Downtown", ParentID: &root.ID})
	require.NoError(t, err)

	missing := uint(9999)
	_, err = svc.Create(ctx, RegionInput{Name: "Nowhere", ParentID: &missing})
	assert.ErrorIs(t, err, ErrRegionNotFound)

	_, err = svc.Update(ctx, root.ID, RegionInput{Name: "City", ParentID: &child.ID})
	assert.ErrorIs(t, err, ErrInvalidInput, "a region cannot move under its own child")
	_, err = svc.Update(ctx, root.ID, RegionInput{Name: "City", ParentID: &root.ID})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = svc.Delete(ctx, root.ID)
	require.ErrorIs(t, err, ErrHasDependents)

	f.customer(*child, f.plan("10"), models.CustomerStatusActive)
	err = svc.Delete(ctx, child.ID)
	var dep *DependentsError
	require.ErrorAs(t, err, &dep)
	assert.Equal(t, "customers", dep.Dependent)

	require.NoError(t, svc.Delete(ctx, other.ID))
	regions, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, regions, 2)
}

func TestUserAssignments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	north := f.region("North")
	south := f.region("South")
	east := f.region("East")
	svc := NewUserService(f.db, nil, f.log).WithClock(fixedClock(testNow))

	user, err := svc.Create(ctx, UserInput{
		FullName:  "Grace",
		Username:  "grace",
		Password:  "s3cret!",
		Role:      models.UserRoleCollector,
		RegionIDs: []uint{north.ID, south.ID},
	})
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", user.PasswordHash)
	assert.Equal(t, models.UserStatusActive, user.Status)

	_, err = svc.Update(ctx, user.ID, UserInput{
		FullName:  "Grace",
		Username:  "grace",
		Role:      models.UserRoleCollector,
		RegionIDs: []uint{south.ID, east.ID},
	})
	require.NoError(t, err)

	loaded, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	current := make([]uint, 0, len(loaded.Assignments))
	for _, a := range loaded.Assignments {
		current = append(current, a.RegionID)
	}
	assert.ElementsMatch(t, []uint{south.ID, east.ID}, current)
	assert.EqualValues(t, 1, f.count(&models.Assignment{}, "user_id = ? AND region_id = ? AND active_to IS NOT NULL", user.ID, north.ID), "dropped region kept as history")

	// password unchanged when omitted on update
	_, err = svc.Authenticate(ctx, "grace", "s3cret!")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "grace", "wrong")
	assert.ErrorIs(t, err, ErrForbidden)

	// promoting to manager clears current regions
	_, err = svc.Update(ctx, user.ID, UserInput{FullName: "Grace", Username: "grace", Role: models.UserRoleManager, RegionIDs: []uint{north.ID}})
	require.NoError(t, err)
	assert.EqualValues(t, 0, f.count(&models.Assignment{}, "user_id = ? AND active_to IS NULL", user.ID))

	_, err = svc.Create(ctx, UserInput{FullName: "X", Username: "x", Role: models.UserRoleCollector})
	assert.ErrorIs(t, err, ErrInvalidInput, "password required on create")

	_, err = svc.Create(ctx, UserInput{FullName: "X", Username: "x", Password: "longenough", Role: models.UserRoleCollector, RegionIDs: []uint{9999}})
	assert.ErrorIs(t, err, ErrRegionNotFound)
}

func TestUserDeleteGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewUserService(f.db, nil, f.log)

	busy := f.collector(f.region("North"))
	f.openSession(busy, "0")
	assert.ErrorIs(t, svc.Delete(ctx, busy.ID), ErrHasDependents)

	idle := f.collector(f.region("South"))
	require.NoError(t, svc.Delete(ctx, idle.ID))
	_, err := svc.Get(ctx, idle.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.EqualValues(t, 0, f.count(&models.Assignment{}, "user_id = ? AND active_to IS NULL", idle.ID))
}
