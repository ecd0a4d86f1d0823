package model

import (
	"time"

	"github.com/google/uuid"
)

// Leave request statuses. Approved and Rejected are terminal.
const (
	LeaveStatusPending   = "Pending"
	LeaveStatusPendingHR = "PendingHR"
	LeaveStatusApproved  = "Approved"
	LeaveStatusRejected  = "Rejected"
)

// Leave types
const (
	LeaveTypeAnnual    = "Annual"
	LeaveTypeSick      = "Sick"
	LeaveTypeCasual    = "Casual"
	LeaveTypeUnpaid    = "Unpaid"
	LeaveTypeEarned    = "Earned"
	LeaveTypeMaternity = "Maternity"
	LeaveTypePaternity = "Paternity"
)

// LeaveTypes lists every accepted leave type, in display order.
var LeaveTypes = []string{
	LeaveTypeAnnual,
	LeaveTypeSick,
	LeaveTypeCasual,
	LeaveTypeUnpaid,
	LeaveTypeEarned,
	LeaveTypeMaternity,
	LeaveTypePaternity,
}

// ValidLeaveType reports whether t is one of LeaveTypes.
func ValidLeaveType(t string) bool {
	for _, lt := range LeaveTypes {
		if lt == t {
			return true
		}
	}
	return false
}

// LeaveRequest is a single absence request. TotalDays is computed once at
// submission from the business-day calculator and never recomputed, so later
// holiday registry edits do not change already-filed requests.
//
// Overlap exclusivity (at most one non-Rejected request per employee over any
// date) is enforced by a Postgres exclusion constraint installed in
// internal/database — not just by the pre-check in the service.
type LeaveRequest struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EmployeeID uuid.UUID `gorm:"type:uuid;not null;index:idx_leave_requests_employee" json:"employee_id"`
	Employee   *User     `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`

	LeaveType string    `gorm:"type:varchar(20);not null" json:"leave_type"`
	StartDate time.Time `gorm:"type:date;not null" json:"start_date"`
	EndDate   time.Time `gorm:"type:date;not null" json:"end_date"`
	Reason    string    `gorm:"type:varchar(500);not null" json:"reason"`
	TotalDays int       `gorm:"not null" json:"total_days"`

	Status        string     `gorm:"type:varchar(20);not null;default:'Pending';index" json:"status"`
	ReviewerID    *uuid.UUID `gorm:"type:uuid" json:"reviewer_id"`
	Reviewer      *User      `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
	ReviewComment string     `gorm:"type:text" json:"review_comment"`

	// Opaque reference to an externally stored attachment, if any.
	AttachmentRef string `gorm:"type:text" json:"attachment_ref,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether no further transition is permitted.
func (l *LeaveRequest) Terminal() bool {
	return l.Status == LeaveStatusApproved || l.Status == LeaveStatusRejected
}

// ActiveLeaveStatuses are the statuses that occupy an employee's calendar for
// overlap and department-conflict purposes.
var ActiveLeaveStatuses = []string{LeaveStatusPending, LeaveStatusPendingHR, LeaveStatusApproved}
