package service

import (
	"backend/internal/model"

	"github.com/google/uuid"
)

// Actor identifies the authenticated caller of a workflow operation. Handlers
// build it from JWT claims; services decide authorization from it, never from
// raw header strings.
type Actor struct {
	ID         uuid.UUID
	Role       model.Role
	Department string
}
