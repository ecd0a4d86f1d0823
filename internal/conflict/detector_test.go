package conflict_test

import (
	"testing"

	"backend/internal/conflict"

	"github.com/stretchr/testify/assert"
)

func TestAssess_BelowThreshold(t *testing.T) {
	d := conflict.NewDetector(0.30)
	warning, flagged := d.Assess("Engineering", 10, 3) // exactly 30%, not over
	assert.False(t, flagged)
	assert.Empty(t, warning)
}

func TestAssess_AboveThreshold(t *testing.T) {
	d := conflict.NewDetector(0.30)
	warning, flagged := d.Assess("Engineering", 10, 4)
	assert.True(t, flagged)
	assert.Contains(t, warning, "Engineering")
	assert.Contains(t, warning, "30%")
}

func TestAssess_EmptyDepartment(t *testing.T) {
	d := conflict.NewDetector(0.30)
	_, flagged := d.Assess("Ghost", 0, 5)
	assert.False(t, flagged)
}

func TestNewDetector_DefaultsThreshold(t *testing.T) {
	d := conflict.NewDetector(0)
	_, flagged := d.Assess("Ops", 100, 30)
	assert.False(t, flagged)
	_, flagged = d.Assess("Ops", 100, 31)
	assert.True(t, flagged)
}
