package service

import (
	"bytes"
	"context"
	"testing"

	"backend/internal/apperror"
	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func TestAuditService(t *testing.T) {
	ctx := context.Background()
	audit := &fakeAuditRepo{}
	svc := NewAuditService(audit, zap.NewNop())
	admin := Actor{ID: uuid.New(), Role: model.RoleAdmin}

	actorID := uuid.New()
	require.NoError(t, audit.Record(ctx, &model.AuditLog{
		ActorID:    &actorID,
		Action:     model.ActionSubmitLeave,
		TargetID:   uuid.NewString(),
		TargetType: model.TargetLeave,
		Details:    `{"leave_type":"Annual"}`,
	}))

	t.Run("admin reads recent entries", func(t *testing.T) {
		entries, total, err := svc.Recent(ctx, admin, 1, 20, "")
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, entries, 1)
		assert.Equal(t, model.ActionSubmitLeave, entries[0].Action)
	})

	t.Run("export produces a readable workbook", func(t *testing.T) {
		data, err := svc.Export(ctx, admin, "")
		require.NoError(t, err)
		require.NotEmpty(t, data)

		f, err := excelize.OpenReader(bytes.NewReader(data))
		require.NoError(t, err)
		defer f.Close()

		rows, err := f.GetRows("Audit Trail")
		require.NoError(t, err)
		require.Len(t, rows, 2, "header plus one entry")
		assert.Equal(t, model.ActionSubmitLeave, rows[1][2])
	})

	t.Run("non-admin is refused", func(t *testing.T) {
		manager := Actor{ID: uuid.New(), Role: model.RoleManager}
		_, _, err := svc.Recent(ctx, manager, 1, 20, "")
		assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))
		_, err = svc.Export(ctx, manager, "")
		assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))
	})
}
