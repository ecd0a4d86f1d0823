package service

import (
	"context"
	"testing"

	"backend/internal/apperror"
	"backend/internal/model"
	"backend/internal/notify"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHolidayService(t *testing.T) {
	ctx := context.Background()

	newFixture := func() (HolidayService, *fakeHolidayRepo, *fakeAuditRepo, *recordingDispatcher) {
		holidays := &fakeHolidayRepo{}
		audit := &fakeAuditRepo{}
		bus := &recordingDispatcher{}
		svc := NewHolidayService(holidays, audit, fakeTxManager{}, bus, zap.NewNop())
		return svc, holidays, audit, bus
	}
	admin := Actor{ID: uuid.New(), Role: model.RoleAdmin}

	t.Run("admin adds and deletes holidays with audit entries", func(t *testing.T) {
		svc, _, audit, bus := newFixture()

		holiday, err := svc.Add(ctx, admin, AddHolidayRequest{Name: "Founders Day", Date: "2025-06-04"})
		require.NoError(t, err)
		assert.Equal(t, "2025-06-04", holiday.Date)
		assert.Len(t, audit.byAction(model.ActionAddHoliday), 1)

		// The addition is announced to everyone, not addressed to one user.
		events := bus.published()
		require.Len(t, events, 1)
		assert.Equal(t, notify.KindHoliday, events[0].Kind)
		assert.Empty(t, events[0].EmployeeID)

		require.NoError(t, svc.Delete(ctx, admin, holiday.ID))
		assert.Len(t, audit.byAction(model.ActionDeleteHoliday), 1)

		listed, err := svc.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, listed)
	})

	t.Run("bad date and missing id are rejected", func(t *testing.T) {
		svc, _, _, _ := newFixture()

		_, err := svc.Add(ctx, admin, AddHolidayRequest{Name: "X", Date: "04-06-2025"})
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

		err = svc.Delete(ctx, admin, uuid.NewString())
		assert.True(t, apperror.HasCode(err, apperror.CodeNotFound))
	})

	t.Run("non-admin cannot manage holidays", func(t *testing.T) {
		svc, _, _, _ := newFixture()
		manager := Actor{ID: uuid.New(), Role: model.RoleManager}

		_, err := svc.Add(ctx, manager, AddHolidayRequest{Name: "X", Date: "2025-06-04"})
		assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))
	})
}
