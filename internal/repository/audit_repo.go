package repository

import (
	"context"

	"backend/internal/model"

	"gorm.io/gorm"
)

// AuditRepository appends and reads the immutable audit trail. Record runs
// through GetDB, so when called inside RunInTx the entry shares the state
// change's transaction — the two commit or roll back as one unit of work.
// There is no update or delete path.
type AuditRepository interface {
	Record(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, page, limit int, search string) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Record(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

// List returns recent entries, newest first, optionally filtered by a
// case-insensitive match over action, details and actor id.
func (r *auditRepository) List(ctx context.Context, page, limit int, search string) ([]model.AuditLog, int64, error) {
	base := GetDB(ctx, r.db).Model(&model.AuditLog{})
	if search != "" {
		pattern := "%" + search + "%"
		base = base.Where(
			"action ILIKE ? OR details ILIKE ? OR target_id ILIKE ? OR CAST(actor_id AS TEXT) ILIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}

	var logs []model.AuditLog
	err := base.
		Preload("Actor").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&logs).Error
	return logs, total, err
}
