// Package conflict flags department-level scheduling risk on leave
// submissions. The flag is advisory: it never blocks a request, it only
// annotates the response and the audit trail.
package conflict

import "fmt"

// DefaultThreshold is the fraction of a department that may be concurrently
// away before submissions get flagged.
const DefaultThreshold = 0.30

// Detector evaluates department overlap against a configurable threshold.
type Detector struct {
	threshold float64
}

func NewDetector(threshold float64) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Detector{threshold: threshold}
}

// Assess returns a warning when more than threshold of the department already
// has active requests overlapping the proposed range. departmentSize counts
// employees in the submitter's department; overlapping counts colleagues with
// active (Pending/PendingHR/Approved) requests touching the range.
func (d *Detector) Assess(department string, departmentSize, overlapping int64) (string, bool) {
	if departmentSize <= 0 {
		return "", false
	}
	if float64(overlapping)/float64(departmentSize) <= d.threshold {
		return "", false
	}
	warning := fmt.Sprintf(
		"Warning: more than %.0f%% of your department (%s) is likely to be away during this period.",
		d.threshold*100, department,
	)
	return warning, true
}
