package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReimbursementRepository is the durable ledger for expense claims.
// ReplaceItems swaps a draft's line items wholesale; callers recompute and
// persist the derived total in the same transaction.
type ReimbursementRepository interface {
	Create(ctx context.Context, claim *model.ReimbursementClaim) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ReimbursementClaim, error)
	ListByEmployee(ctx context.Context, employeeID uuid.UUID) ([]model.ReimbursementClaim, error)
	ListByStatuses(ctx context.Context, statuses []string, employeeIDs []uuid.UUID) ([]model.ReimbursementClaim, error)
	ListAll(ctx context.Context, page, limit int) ([]model.ReimbursementClaim, int64, error)
	Update(ctx context.Context, claim *model.ReimbursementClaim, expectedStatus string) error
	ReplaceItems(ctx context.Context, claimID uuid.UUID, items []model.ReimbursementItem) error
}

type reimbursementRepository struct {
	db *gorm.DB
}

func NewReimbursementRepository(db *gorm.DB) ReimbursementRepository {
	return &reimbursementRepository{db: db}
}

func (r *reimbursementRepository) Create(ctx context.Context, claim *model.ReimbursementClaim) error {
	return GetDB(ctx, r.db).Create(claim).Error
}

func (r *reimbursementRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ReimbursementClaim, error) {
	var claim model.ReimbursementClaim
	err := GetDB(ctx, r.db).
		Preload("Employee").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&claim, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

func (r *reimbursementRepository) ListByEmployee(ctx context.Context, employeeID uuid.UUID) ([]model.ReimbursementClaim, error) {
	var claims []model.ReimbursementClaim
	err := GetDB(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("employee_id = ?", employeeID).
		Order("created_at DESC").
		Find(&claims).Error
	return claims, err
}

func (r *reimbursementRepository) ListByStatuses(ctx context.Context, statuses []string, employeeIDs []uuid.UUID) ([]model.ReimbursementClaim, error) {
	var claims []model.ReimbursementClaim
	query := GetDB(ctx, r.db).
		Preload("Employee").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("status IN ?", statuses)
	if employeeIDs != nil {
		query = query.Where("employee_id IN ?", employeeIDs)
	}
	err := query.Order("created_at DESC").Find(&claims).Error
	return claims, err
}

func (r *reimbursementRepository) ListAll(ctx context.Context, page, limit int) ([]model.ReimbursementClaim, int64, error) {
	var total int64
	if err := GetDB(ctx, r.db).Model(&model.ReimbursementClaim{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	var claims []model.ReimbursementClaim
	err := GetDB(ctx, r.db).
		Preload("Employee").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&claims).Error
	return claims, total, err
}

// Update persists scalar claim fields, and only while the stored status still
// equals expectedStatus: a zero-row update means a concurrent writer moved
// the claim on and surfaces as ErrStaleRow, keeping the Draft-only edit rule
// intact under racing requests. Items are managed via ReplaceItems so a
// partial item save can never desync the stored total.
func (r *reimbursementRepository) Update(ctx context.Context, claim *model.ReimbursementClaim, expectedStatus string) error {
	res := GetDB(ctx, r.db).
		Model(&model.ReimbursementClaim{}).
		Where("id = ? AND status = ?", claim.ID, expectedStatus).
		Select("*").
		Omit("id", "created_at", "Items", "Employee").
		Updates(claim)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleRow
	}
	return nil
}

func (r *reimbursementRepository) ReplaceItems(ctx context.Context, claimID uuid.UUID, items []model.ReimbursementItem) error {
	db := GetDB(ctx, r.db)
	if err := db.Delete(&model.ReimbursementItem{}, "claim_id = ?", claimID).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].ClaimID = claimID
		items[i].Position = i
	}
	return db.Create(&items).Error
}
