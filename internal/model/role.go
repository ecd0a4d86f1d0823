package model

import "fmt"

// Role is a closed set. Every switch over it in the workflow services covers
// all four variants, so adding a role is a compile-visible change rather than
// a silently missed string branch.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleFinance  Role = "finance"
	RoleAdmin    Role = "admin"
)

// ParseRole validates an external role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleEmployee, RoleManager, RoleFinance, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

func (r Role) String() string { return string(r) }

// CanReviewLeave reports whether the role participates in the leave approval
// chain at all. Which transitions it may perform is decided per-status in the
// leave service.
func (r Role) CanReviewLeave() bool {
	switch r {
	case RoleManager, RoleAdmin:
		return true
	case RoleEmployee, RoleFinance:
		return false
	}
	return false
}

// CanReviewReimbursement reports whether the role participates in the
// reimbursement approval chain.
func (r Role) CanReviewReimbursement() bool {
	switch r {
	case RoleManager, RoleFinance, RoleAdmin:
		return true
	case RoleEmployee:
		return false
	}
	return false
}
