package repository

import (
	"context"
	"errors"
	"time"

	"backend/internal/apperror"
	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATEs the ledger translates into domain conflicts.
const (
	pgExclusionViolation = "23P01"
	pgUniqueViolation    = "23505"
)

// ErrStaleRow is returned by status-guarded writes when the stored status no
// longer matches what the caller read: a concurrent writer moved the row on.
// Callers must re-read before retrying, never overwrite.
var ErrStaleRow = errors.New("row status changed since read")

// LeaveFilter narrows List results. Zero values mean "no filter"; a non-nil
// empty EmployeeIDs slice matches nothing (a manager with no reports).
type LeaveFilter struct {
	Status      string
	LeaveType   string
	EmployeeIDs []uuid.UUID
	Page        int
	Limit       int
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type TypeCount struct {
	LeaveType string `json:"leave_type"`
	Count     int64  `json:"count"`
}

// LeaveRepository is the durable ledger for leave requests. Create relies on
// the leave_requests_no_overlap exclusion constraint: a concurrent submission
// that slips past the service pre-check still fails here and surfaces as a
// ConflictError.
type LeaveRepository interface {
	Create(ctx context.Context, leave *model.LeaveRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.LeaveRequest, error)
	ListByEmployee(ctx context.Context, employeeID uuid.UUID) ([]model.LeaveRequest, error)
	ListPending(ctx context.Context, employeeIDs []uuid.UUID) ([]model.LeaveRequest, error)
	List(ctx context.Context, filter LeaveFilter) ([]model.LeaveRequest, int64, error)
	Update(ctx context.Context, leave *model.LeaveRequest, expectedStatus string) error
	Delete(ctx context.Context, id uuid.UUID, expectedStatus string) error
	DeleteByEmployee(ctx context.Context, employeeID uuid.UUID) error
	HasOverlap(ctx context.Context, employeeID uuid.UUID, start, end time.Time) (bool, error)
	CountActiveOverlapByDepartment(ctx context.Context, department string, start, end time.Time, excludeEmployee uuid.UUID) (int64, error)
	CountByStatus(ctx context.Context) ([]StatusCount, error)
	CountByType(ctx context.Context) ([]TypeCount, error)
}

type leaveRepository struct {
	db *gorm.DB
}

func NewLeaveRepository(db *gorm.DB) LeaveRepository {
	return &leaveRepository{db: db}
}

func (r *leaveRepository) Create(ctx context.Context, leave *model.LeaveRequest) error {
	if err := GetDB(ctx, r.db).Create(leave).Error; err != nil {
		if isOverlapViolation(err) {
			return apperror.Conflict("an overlapping leave request already exists for this employee")
		}
		return err
	}
	return nil
}

func (r *leaveRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.LeaveRequest, error) {
	var leave model.LeaveRequest
	err := GetDB(ctx, r.db).Preload("Employee").Preload("Reviewer").First(&leave, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &leave, nil
}

func (r *leaveRepository) ListByEmployee(ctx context.Context, employeeID uuid.UUID) ([]model.LeaveRequest, error) {
	var leaves []model.LeaveRequest
	err := GetDB(ctx, r.db).
		Preload("Reviewer").
		Where("employee_id = ?", employeeID).
		Order("created_at DESC").
		Find(&leaves).Error
	return leaves, err
}

func (r *leaveRepository) ListPending(ctx context.Context, employeeIDs []uuid.UUID) ([]model.LeaveRequest, error) {
	var leaves []model.LeaveRequest
	query := GetDB(ctx, r.db).
		Preload("Employee").
		Where("status = ?", model.LeaveStatusPending)
	if employeeIDs != nil {
		query = query.Where("employee_id IN ?", employeeIDs)
	}
	err := query.Order("created_at DESC").Find(&leaves).Error
	return leaves, err
}

func (r *leaveRepository) List(ctx context.Context, filter LeaveFilter) ([]model.LeaveRequest, int64, error) {
	base := GetDB(ctx, r.db).Model(&model.LeaveRequest{})
	if filter.Status != "" {
		base = base.Where("status = ?", filter.Status)
	}
	if filter.LeaveType != "" {
		base = base.Where("leave_type = ?", filter.LeaveType)
	}
	if filter.EmployeeIDs != nil {
		base = base.Where("employee_id IN ?", filter.EmployeeIDs)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	var leaves []model.LeaveRequest
	err := base.
		Preload("Employee").
		Preload("Reviewer").
		Order("created_at DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&leaves).Error
	return leaves, total, err
}

// Update persists the request only while its stored status still equals
// expectedStatus. Zero rows affected means a concurrent reviewer won the
// race; the transition must not be applied over theirs.
func (r *leaveRepository) Update(ctx context.Context, leave *model.LeaveRequest, expectedStatus string) error {
	res := GetDB(ctx, r.db).
		Model(&model.LeaveRequest{}).
		Where("id = ? AND status = ?", leave.ID, expectedStatus).
		Select("*").
		Omit("id", "created_at", "Employee", "Reviewer").
		Updates(leave)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleRow
	}
	return nil
}

// Delete removes the request only while it still holds expectedStatus, so a
// cancellation racing a review cannot delete an already-decided request.
func (r *leaveRepository) Delete(ctx context.Context, id uuid.UUID, expectedStatus string) error {
	res := GetDB(ctx, r.db).
		Where("id = ? AND status = ?", id, expectedStatus).
		Delete(&model.LeaveRequest{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleRow
	}
	return nil
}

func (r *leaveRepository) DeleteByEmployee(ctx context.Context, employeeID uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.LeaveRequest{}, "employee_id = ?", employeeID).Error
}

// HasOverlap reports whether the employee already holds a non-Rejected
// request touching [start, end]. A pre-check only; the exclusion constraint
// is what closes the race.
func (r *leaveRepository) HasOverlap(ctx context.Context, employeeID uuid.UUID, start, end time.Time) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).
		Model(&model.LeaveRequest{}).
		Where("employee_id = ?", employeeID).
		Where("status <> ?", model.LeaveStatusRejected).
		Where("start_date <= ? AND end_date >= ?", end, start).
		Count(&count).Error
	return count > 0, err
}

// CountActiveOverlapByDepartment counts colleagues in the department holding
// an active request overlapping the range, excluding the submitter.
func (r *leaveRepository) CountActiveOverlapByDepartment(ctx context.Context, department string, start, end time.Time, excludeEmployee uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).
		Model(&model.LeaveRequest{}).
		Joins("JOIN users ON users.id = leave_requests.employee_id").
		Where("users.department = ? AND users.deleted_at IS NULL", department).
		Where("leave_requests.employee_id <> ?", excludeEmployee).
		Where("leave_requests.status IN ?", model.ActiveLeaveStatuses).
		Where("leave_requests.start_date <= ? AND leave_requests.end_date >= ?", end, start).
		Distinct("leave_requests.employee_id").
		Count(&count).Error
	return count, err
}

func (r *leaveRepository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var counts []StatusCount
	err := GetDB(ctx, r.db).
		Model(&model.LeaveRequest{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&counts).Error
	return counts, err
}

func (r *leaveRepository) CountByType(ctx context.Context) ([]TypeCount, error) {
	var counts []TypeCount
	err := GetDB(ctx, r.db).
		Model(&model.LeaveRequest{}).
		Select("leave_type, COUNT(*) AS count").
		Group("leave_type").
		Scan(&counts).Error
	return counts, err
}

func isOverlapViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgExclusionViolation || pgErr.Code == pgUniqueViolation
	}
	return false
}
