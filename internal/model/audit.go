package model

import (
	"time"

	"github.com/google/uuid"
)

// Audit action labels
const (
	ActionSubmitLeave     = "SUBMIT_LEAVE"
	ActionReviewLeave     = "REVIEW_LEAVE"
	ActionBulkReviewLeave = "BULK_REVIEW_LEAVE"
	ActionCancelLeave     = "CANCEL_LEAVE"

	ActionSubmitReimbursement = "SUBMIT_REIMBURSEMENT"
	ActionUpdateReimbursement = "UPDATE_REIMBURSEMENT"
	ActionReviewReimbursement = "REVIEW_REIMBURSEMENT"

	ActionAddHoliday    = "ADD_HOLIDAY"
	ActionDeleteHoliday = "DELETE_HOLIDAY"

	ActionMonthlyAccrual   = "MONTHLY_ACCRUAL"
	ActionCarryForward     = "YEAR_END_CARRY_FORWARD"
	ActionUpdateUser       = "UPDATE_USER"
	ActionDeleteUser       = "DELETE_USER"
)

// Target types referenced by audit entries
const (
	TargetLeave         = "Leave"
	TargetReimbursement = "Reimbursement"
	TargetHoliday       = "Holiday"
	TargetUser          = "User"
	TargetBalance       = "Balance"
)

// AuditLog is append-only: rows are written alongside the state change they
// document, inside the same transaction, and are never updated or deleted.
// ActorID is nil for scheduled jobs.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ActorID    *uuid.UUID `gorm:"type:uuid;index" json:"actor_id"`
	Actor      *User      `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	TargetID   string     `gorm:"type:varchar(50);index" json:"target_id"`
	TargetType string     `gorm:"type:varchar(30)" json:"target_type"`
	Details    string     `gorm:"type:text" json:"details"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
