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

// HolidayRepository backs the public holiday registry. Dates are unique;
// inserting a duplicate surfaces as a ConflictError.
type HolidayRepository interface {
	Create(ctx context.Context, holiday *model.Holiday) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Holiday, error)
	ListBetween(ctx context.Context, start, end time.Time) ([]model.Holiday, error)
	ListAll(ctx context.Context) ([]model.Holiday, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type holidayRepository struct {
	db *gorm.DB
}

func NewHolidayRepository(db *gorm.DB) HolidayRepository {
	return &holidayRepository{db: db}
}

func (r *holidayRepository) Create(ctx context.Context, holiday *model.Holiday) error {
	if err := GetDB(ctx, r.db).Create(holiday).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperror.Conflict("a holiday already exists on this date")
		}
		return err
	}
	return nil
}

func (r *holidayRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Holiday, error) {
	var holiday model.Holiday
	if err := GetDB(ctx, r.db).First(&holiday, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &holiday, nil
}

func (r *holidayRepository) ListBetween(ctx context.Context, start, end time.Time) ([]model.Holiday, error) {
	var holidays []model.Holiday
	err := GetDB(ctx, r.db).
		Where("date >= ? AND date <= ?", start, end).
		Order("date ASC").
		Find(&holidays).Error
	return holidays, err
}

func (r *holidayRepository) ListAll(ctx context.Context) ([]model.Holiday, error) {
	var holidays []model.Holiday
	err := GetDB(ctx, r.db).Order("date ASC").Find(&holidays).Error
	return holidays, err
}

func (r *holidayRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.Holiday{}, "id = ?", id).Error
}
