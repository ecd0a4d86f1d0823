package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reimbursement claim statuses. A claim is editable only while Draft.
const (
	ReimbStatusDraft          = "Draft"
	ReimbStatusPendingManager = "PendingManager"
	ReimbStatusPendingFinance = "PendingFinance"
	ReimbStatusApproved       = "Approved"
	ReimbStatusRejected       = "Rejected"
)

// Expense categories
const (
	ReimbCategoryTravel   = "Travel"
	ReimbCategoryMeals    = "Meals"
	ReimbCategoryInternet = "Internet/Wifi"
	ReimbCategoryMedical  = "Medical"
	ReimbCategoryOffice   = "Office Supplies"
	ReimbCategoryOther    = "Other"
)

// ReimbCategories lists every accepted expense category.
var ReimbCategories = []string{
	ReimbCategoryTravel,
	ReimbCategoryMeals,
	ReimbCategoryInternet,
	ReimbCategoryMedical,
	ReimbCategoryOffice,
	ReimbCategoryOther,
}

// ValidReimbCategory reports whether c is one of ReimbCategories.
func ValidReimbCategory(c string) bool {
	for _, rc := range ReimbCategories {
		if rc == c {
			return true
		}
	}
	return false
}

// ReimbursementItem is a single expense line. Items are owned by their claim
// and replaced wholesale on draft updates.
type ReimbursementItem struct {
	ID      uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ClaimID uuid.UUID `gorm:"type:uuid;not null;index" json:"claim_id"`

	Position   int             `gorm:"not null" json:"position"` // preserves submission order
	Title      string          `gorm:"type:varchar(255);not null" json:"title"`
	Category   string          `gorm:"type:varchar(30);not null" json:"category"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Currency   string          `gorm:"type:varchar(10);not null;default:'INR'" json:"currency"`
	Date       time.Time       `gorm:"type:date;not null" json:"date"`
	ReceiptRef string          `gorm:"type:text" json:"receipt_ref"`
}

// ApprovalDecision records one reviewer's verdict at a stage. Approved stays
// nil until that stage has acted.
type ApprovalDecision struct {
	Approved   *bool      `json:"approved"`
	ApproverID *uuid.UUID `gorm:"type:uuid" json:"approver_id"`
	Comment    string     `gorm:"type:text" json:"comment"`
	DecidedAt  *time.Time `json:"decided_at"`
}

// ReimbursementClaim is an expense claim moving through
// Draft -> PendingManager -> PendingFinance -> Approved/Rejected.
// TotalAmount is derived from the items and recomputed on every persist.
type ReimbursementClaim struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EmployeeID uuid.UUID `gorm:"type:uuid;not null;index" json:"employee_id"`
	Employee   *User     `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`

	Title       string              `gorm:"type:varchar(255);not null" json:"title"`
	Items       []ReimbursementItem `gorm:"foreignKey:ClaimID;constraint:OnDelete:CASCADE" json:"items"`
	TotalAmount decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0" json:"total_amount"`

	Status string `gorm:"type:varchar(20);not null;default:'Draft';index" json:"status"`

	ManagerApproval ApprovalDecision `gorm:"embedded;embeddedPrefix:manager_" json:"manager_approval"`
	FinanceApproval ApprovalDecision `gorm:"embedded;embeddedPrefix:finance_" json:"finance_approval"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether no further transition is permitted.
func (r *ReimbursementClaim) Terminal() bool {
	return r.Status == ReimbStatusApproved || r.Status == ReimbStatusRejected
}

// SumItems returns the total of all item amounts.
func (r *ReimbursementClaim) SumItems() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.Amount)
	}
	return total
}
