package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"backend/internal/apperror"
	"backend/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestLeaveRepositoryHasOverlap(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewLeaveRepository(db)

	employeeID := uuid.New()
	start := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.June, 6, 0, 0, 0, 0, time.UTC)

	t.Run("true when an active request touches the range", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "leave_requests"`)).
			WithArgs(employeeID, model.LeaveStatusRejected, end, start).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		overlap, err := repo.HasOverlap(ctx, employeeID, start, end)
		require.NoError(t, err)
		assert.True(t, overlap)
	})

	t.Run("false when nothing overlaps", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "leave_requests"`)).
			WithArgs(employeeID, model.LeaveStatusRejected, end, start).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		overlap, err := repo.HasOverlap(ctx, employeeID, start, end)
		require.NoError(t, err)
		assert.False(t, overlap)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryCreateMapsExclusionViolation(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewLeaveRepository(db)

	leave := &model.LeaveRequest{
		EmployeeID: uuid.New(),
		LeaveType:  model.LeaveTypeAnnual,
		StartDate:  time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2025, time.June, 6, 0, 0, 0, 0, time.UTC),
		Reason:     "trip",
		TotalDays:  5,
		Status:     model.LeaveStatusPending,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "leave_requests"`).
		WillReturnError(&pgconn.PgError{Code: "23P01", ConstraintName: "leave_requests_no_overlap"})
	mock.ExpectRollback()

	err := repo.Create(ctx, leave)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryUpdateGuardsStatus(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewLeaveRepository(db)

	leave := &model.LeaveRequest{
		ID:         uuid.New(),
		EmployeeID: uuid.New(),
		LeaveType:  model.LeaveTypeAnnual,
		Status:     model.LeaveStatusApproved,
	}

	t.Run("matching status writes one row", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "leave_requests" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Update(ctx, leave, model.LeaveStatusPending))
	})

	t.Run("zero rows means a concurrent writer won", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "leave_requests" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := repo.Update(ctx, leave, model.LeaveStatusPending)
		assert.ErrorIs(t, err, ErrStaleRow)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryCountActiveOverlapByDepartment(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewLeaveRepository(db)

	start := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.June, 6, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(DISTINCT\(.+\)\) FROM "leave_requests" JOIN users`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountActiveOverlapByDepartment(ctx, "Engineering", start, end, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	require.NoError(t, mock.ExpectationsWereMet())
}
