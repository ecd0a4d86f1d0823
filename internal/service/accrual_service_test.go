package service

import (
	"context"
	"testing"
	"time"

	"backend/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAccrualFixture() (AccrualService, *fakeUserRepo, *fakeAuditRepo) {
	users := newFakeUserRepo()
	audit := &fakeAuditRepo{}
	svc := NewAccrualService(users, audit, fakeTxManager{}, zap.NewNop())
	return svc, users, audit
}

func activeEmployee(users *fakeUserRepo) *model.User {
	u := &model.User{
		Role:      model.RoleEmployee,
		IsActive:  true,
		BalanceSL: decimal.NewFromInt(5),
		BalanceCL: decimal.NewFromInt(3),
		BalanceEL: decimal.NewFromInt(10),
	}
	users.add(u)
	return u
}

func TestMonthlyAccrual(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 1, 2, 0, 0, 0, time.UTC)

	t.Run("credits 1.5 earned leave days once per period", func(t *testing.T) {
		svc, users, audit := newAccrualFixture()
		emp := activeEmployee(users)
		inactive := &model.User{Role: model.RoleEmployee, IsActive: false, BalanceEL: decimal.NewFromInt(10)}
		users.add(inactive)

		result, err := svc.MonthlyAccrual(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, "2025-06", result.Period)
		assert.Equal(t, int64(1), result.EmployeesUpdated)
		assert.True(t, emp.BalanceEL.Equal(decimal.RequireFromString("11.5")))
		assert.True(t, inactive.BalanceEL.Equal(decimal.NewFromInt(10)))
		assert.Len(t, audit.byAction(model.ActionMonthlyAccrual), 1)

		// Re-running the same period is a no-op, no second audit entry.
		result, err = svc.MonthlyAccrual(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(0), result.EmployeesUpdated)
		assert.True(t, emp.BalanceEL.Equal(decimal.RequireFromString("11.5")))
		assert.Len(t, audit.byAction(model.ActionMonthlyAccrual), 1)
	})

	t.Run("a new period credits again", func(t *testing.T) {
		svc, users, _ := newAccrualFixture()
		emp := activeEmployee(users)

		_, err := svc.MonthlyAccrual(ctx, now)
		require.NoError(t, err)
		_, err = svc.MonthlyAccrual(ctx, now.AddDate(0, 1, 0))
		require.NoError(t, err)
		assert.True(t, emp.BalanceEL.Equal(decimal.NewFromInt(13)))
	})
}

func TestYearEndCarryForward(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.January, 1, 0, 30, 0, 0, time.UTC)

	svc, users, audit := newAccrualFixture()
	emp := activeEmployee(users)

	result, err := svc.YearEndCarryForward(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2026, result.Year)
	assert.Equal(t, int64(1), result.EmployeesUpdated)
	assert.True(t, emp.BalanceSL.Equal(decimal.NewFromInt(12)), "sick leave resets")
	assert.True(t, emp.BalanceCL.Equal(decimal.NewFromInt(12)), "casual leave resets")
	assert.True(t, emp.BalanceEL.Equal(decimal.NewFromInt(25)), "earned leave carries over plus the annual grant")
	assert.Len(t, audit.byAction(model.ActionCarryForward), 1)

	// Idempotent within the year.
	result, err = svc.YearEndCarryForward(ctx, now.AddDate(0, 3, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.EmployeesUpdated)
	assert.True(t, emp.BalanceEL.Equal(decimal.NewFromInt(25)))
	assert.Len(t, audit.byAction(model.ActionCarryForward), 1)
}

func TestBurnoutScan(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)

	svc, users, audit := newAccrualFixture()

	recent := now.AddDate(0, -1, 0)
	stale := now.AddDate(0, -8, 0)
	boundary := now.AddDate(0, -burnoutMonths, 0)

	rested := activeEmployee(users)
	rested.LastLeaveDate = &recent
	burned := activeEmployee(users)
	burned.Name = "Overworked"
	burned.LastLeaveDate = &stale
	neverLeft := activeEmployee(users)
	neverLeft.Name = "Joined long ago"
	neverLeft.JoiningDate = stale
	// Exactly six calendar months ago sits on the threshold, not past it.
	onTheLine := activeEmployee(users)
	onTheLine.Name = "On the line"
	onTheLine.LastLeaveDate = &boundary

	candidates, err := svc.BurnoutScan(ctx, now)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	names := []string{candidates[0].Name, candidates[1].Name}
	assert.Contains(t, names, "Overworked")
	assert.Contains(t, names, "Joined long ago")
	assert.Empty(t, audit.entries, "the scan is read-only")
}
