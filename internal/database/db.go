package database

import (
	"fmt"

	"backend/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a GORM connection pool, migrates the schema and
// installs the store-level invariants the workflow engine relies on.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.LeaveRequest{},
		&model.ReimbursementClaim{},
		&model.ReimbursementItem{},
		&model.Holiday{},
		&model.AuditLog{},
	); err != nil {
		return nil, fmt.Errorf("auto-migrate failed: %w", err)
	}

	if err := installConstraints(db); err != nil {
		return nil, fmt.Errorf("install constraints: %w", err)
	}

	return db, nil
}

// installConstraints adds the overlap-exclusivity constraint: for one
// employee, at most one non-Rejected leave request over any date. A plain
// application-level pre-check would admit a race between two concurrent
// submissions; the exclusion constraint makes the second insert fail with
// SQLSTATE 23P01, which the repository maps to a ConflictError.
func installConstraints(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS btree_gist`).Error; err != nil {
		return err
	}

	return db.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM pg_constraint WHERE conname = 'leave_requests_no_overlap'
			) THEN
				ALTER TABLE leave_requests
					ADD CONSTRAINT leave_requests_no_overlap
					EXCLUDE USING gist (
						employee_id WITH =,
						daterange(start_date::date, end_date::date, '[]') WITH &&
					) WHERE (status <> 'Rejected');
			END IF;
		END
		$$;
	`).Error
}
