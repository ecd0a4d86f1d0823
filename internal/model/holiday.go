package model

import (
	"time"

	"github.com/google/uuid"
)

// Holiday is one entry in the public holiday registry. The business-day
// calculator reads the registry; it owns nothing else.
type Holiday struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Date        time.Time `gorm:"type:date;uniqueIndex;not null" json:"date"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
