package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User is the central identity used by the workflow engine. Leave balances
// live directly on the row: they are mutated only by the accrual engine's
// set-based updates, so a separate balance table would add a join for nothing.
type User struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	Email      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password   string    `gorm:"type:varchar(255);not null" json:"-"` // bcrypt hash, never serialized
	Role       Role      `gorm:"type:varchar(20);not null;default:'employee'" json:"role"`
	Department string    `gorm:"type:varchar(100);not null;default:'General';index" json:"department"`
	IsActive   bool      `gorm:"not null;default:true" json:"is_active"`

	// Per-type leave balances in days. EL accrues monthly; CL/SL reset at
	// year end; ML/PL are granted case by case.
	BalanceSL decimal.Decimal `gorm:"column:balance_sl;type:decimal(6,2);not null;default:12" json:"balance_sl"`
	BalanceCL decimal.Decimal `gorm:"column:balance_cl;type:decimal(6,2);not null;default:12" json:"balance_cl"`
	BalanceEL decimal.Decimal `gorm:"column:balance_el;type:decimal(6,2);not null;default:15" json:"balance_el"`
	BalanceML decimal.Decimal `gorm:"column:balance_ml;type:decimal(6,2);not null;default:0" json:"balance_ml"`
	BalancePL decimal.Decimal `gorm:"column:balance_pl;type:decimal(6,2);not null;default:0" json:"balance_pl"`

	// Markers preventing a re-fired scheduler from crediting twice.
	LastAccrualPeriod    string `gorm:"type:varchar(7)" json:"-"` // "2006-01"
	LastCarryForwardYear int    `gorm:"default:0" json:"-"`

	LastLeaveDate *time.Time `gorm:"type:date" json:"last_leave_date"`
	JoiningDate   time.Time  `gorm:"type:date;not null;default:CURRENT_DATE" json:"joining_date"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// RefreshToken stores long-lived tokens allowing users to request new access tokens
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Token     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
