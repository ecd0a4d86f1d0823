package repository

import (
	"context"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UserRepository defines data access for User entities, including the
// set-based balance updates the accrual engine runs.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, page, limit int) ([]model.User, int64, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uuid.UUID) error

	DepartmentEmployeeIDs(ctx context.Context, department string) ([]uuid.UUID, error)
	CountDepartmentEmployees(ctx context.Context, department string) (int64, error)

	CreditMonthlyAccrual(ctx context.Context, period string, amount decimal.Decimal) (int64, error)
	ApplyCarryForward(ctx context.Context, year int, resetSL, resetCL, creditEL decimal.Decimal) (int64, error)
	ListBurnoutCandidates(ctx context.Context, threshold time.Time) ([]model.User, error)
	TouchLastLeaveDate(ctx context.Context, employeeID uuid.UUID, date time.Time) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	var total int64
	if err := GetDB(ctx, r.db).Model(&model.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	var users []model.User
	err := GetDB(ctx, r.db).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error
	return users, total, err
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Save(user).Error
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.User{}, "id = ?", id).Error
}

func (r *userRepository) DepartmentEmployeeIDs(ctx context.Context, department string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := GetDB(ctx, r.db).
		Model(&model.User{}).
		Where("department = ?", department).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ids, nil
}

func (r *userRepository) CountDepartmentEmployees(ctx context.Context, department string) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).
		Model(&model.User{}).
		Where("department = ? AND role = ? AND is_active", department, model.RoleEmployee).
		Count(&count).Error
	return count, err
}

// CreditMonthlyAccrual adds the earned-leave credit to every active employee
// not yet credited for the period. One guarded UPDATE: a second invocation in
// the same period, concurrent or not, matches zero rows.
func (r *userRepository) CreditMonthlyAccrual(ctx context.Context, period string, amount decimal.Decimal) (int64, error) {
	result := GetDB(ctx, r.db).
		Model(&model.User{}).
		Where("role = ? AND is_active", model.RoleEmployee).
		Where("last_accrual_period IS DISTINCT FROM ?", period).
		Updates(map[string]interface{}{
			"balance_el":          gorm.Expr("balance_el + ?", amount),
			"last_accrual_period": period,
		})
	return result.RowsAffected, result.Error
}

// ApplyCarryForward resets SL/CL to their baselines and credits EL for the
// new year, guarded by the last carry-forward year marker.
func (r *userRepository) ApplyCarryForward(ctx context.Context, year int, resetSL, resetCL, creditEL decimal.Decimal) (int64, error) {
	result := GetDB(ctx, r.db).
		Model(&model.User{}).
		Where("role = ? AND is_active", model.RoleEmployee).
		Where("last_carry_forward_year < ?", year).
		Updates(map[string]interface{}{
			"balance_sl":              resetSL,
			"balance_cl":              resetCL,
			"balance_el":              gorm.Expr("balance_el + ?", creditEL),
			"last_carry_forward_year": year,
		})
	return result.RowsAffected, result.Error
}

// ListBurnoutCandidates returns active employees whose last leave (or
// joining date, when they never took leave) precedes the threshold.
func (r *userRepository) ListBurnoutCandidates(ctx context.Context, threshold time.Time) ([]model.User, error) {
	var users []model.User
	err := GetDB(ctx, r.db).
		Where("role = ? AND is_active", model.RoleEmployee).
		Where("(last_leave_date IS NOT NULL AND last_leave_date < ?) OR (last_leave_date IS NULL AND joining_date < ?)", threshold, threshold).
		Order("last_leave_date ASC NULLS FIRST").
		Find(&users).Error
	return users, err
}

// TouchLastLeaveDate records the start of an approved leave for burnout
// tracking, keeping the latest date.
func (r *userRepository) TouchLastLeaveDate(ctx context.Context, employeeID uuid.UUID, date time.Time) error {
	return GetDB(ctx, r.db).
		Model(&model.User{}).
		Where("id = ?", employeeID).
		Where("last_leave_date IS NULL OR last_leave_date < ?", date).
		Update("last_leave_date", date).Error
}
