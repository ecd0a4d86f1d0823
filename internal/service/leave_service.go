package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backend/internal/apperror"
	"backend/internal/conflict"
	"backend/internal/model"
	"backend/internal/notify"
	"backend/internal/repository"
	"backend/pkg/businessday"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// --- DTOs ---

type SubmitLeaveRequest struct {
	LeaveType     string `json:"leave_type" binding:"required"`
	StartDate     string `json:"start_date" binding:"required"` // YYYY-MM-DD
	EndDate       string `json:"end_date" binding:"required"`   // YYYY-MM-DD
	Reason        string `json:"reason" binding:"required"`
	AttachmentRef string `json:"attachment_ref"`
}

type ReviewLeaveRequest struct {
	Status  string `json:"status" binding:"required"` // Approved or Rejected
	Comment string `json:"comment"`
}

type BulkReviewLeaveRequest struct {
	LeaveIDs []string `json:"leave_ids" binding:"required"`
	Status   string   `json:"status" binding:"required"`
	Comment  string   `json:"comment"`
}

type LeaveListFilter struct {
	Status    string
	LeaveType string
	Page      int
	Limit     int
}

type LeaveResponse struct {
	ID            string  `json:"id"`
	EmployeeID    string  `json:"employee_id"`
	EmployeeName  string  `json:"employee_name,omitempty"`
	Department    string  `json:"department,omitempty"`
	LeaveType     string  `json:"leave_type"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	Reason        string  `json:"reason"`
	TotalDays     int     `json:"total_days"`
	Status        string  `json:"status"`
	ReviewerID    *string `json:"reviewer_id,omitempty"`
	ReviewerName  string  `json:"reviewer_name,omitempty"`
	ReviewComment string  `json:"review_comment,omitempty"`
	AttachmentRef string  `json:"attachment_ref,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// SubmitLeaveResult carries the created request plus the advisory department
// conflict warning, when any.
type SubmitLeaveResult struct {
	Leave           LeaveResponse `json:"leave"`
	ConflictWarning string        `json:"conflict_warning,omitempty"`
}

type BulkReviewFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BulkReviewResult reports per-id outcomes: ids transitioned successfully and
// ids skipped with the reason. One bad id never rolls back the others.
type BulkReviewResult struct {
	Reviewed []string            `json:"reviewed"`
	Failed   []BulkReviewFailure `json:"failed"`
}

type LeaveStats struct {
	ByStatus []repository.StatusCount `json:"by_status"`
	ByType   []repository.TypeCount   `json:"by_type"`
}

// --- Interface ---

// LeaveService is the leave half of the workflow engine: the
// Pending -> PendingHR -> Approved/Rejected state machine with its
// validation, conflict and audit side effects.
type LeaveService interface {
	Submit(ctx context.Context, actor Actor, req SubmitLeaveRequest) (SubmitLeaveResult, error)
	MyLeaves(ctx context.Context, actor Actor) ([]LeaveResponse, error)
	Pending(ctx context.Context, actor Actor) ([]LeaveResponse, error)
	All(ctx context.Context, actor Actor, filter LeaveListFilter) ([]LeaveResponse, int64, error)
	Review(ctx context.Context, actor Actor, id string, req ReviewLeaveRequest) (LeaveResponse, error)
	BulkReview(ctx context.Context, actor Actor, req BulkReviewLeaveRequest) (BulkReviewResult, error)
	Cancel(ctx context.Context, actor Actor, id string) error
	Stats(ctx context.Context) (LeaveStats, error)
}

type leaveService struct {
	leaves   repository.LeaveRepository
	users    repository.UserRepository
	holidays repository.HolidayRepository
	audit    repository.AuditRepository
	txMgr    repository.TransactionManager
	detector *conflict.Detector
	notifier notify.Dispatcher
	logger   *zap.Logger
}

func NewLeaveService(
	leaves repository.LeaveRepository,
	users repository.UserRepository,
	holidays repository.HolidayRepository,
	audit repository.AuditRepository,
	txMgr repository.TransactionManager,
	detector *conflict.Detector,
	notifier notify.Dispatcher,
	logger *zap.Logger,
) LeaveService {
	return &leaveService{
		leaves:   leaves,
		users:    users,
		holidays: holidays,
		audit:    audit,
		txMgr:    txMgr,
		detector: detector,
		notifier: notifier,
		logger:   logger.Named("leave.service"),
	}
}

// --- Submission ---

func (s *leaveService) Submit(ctx context.Context, actor Actor, req SubmitLeaveRequest) (SubmitLeaveResult, error) {
	if !model.ValidLeaveType(req.LeaveType) {
		return SubmitLeaveResult{}, apperror.Validationf("unknown leave type %q", req.LeaveType)
	}
	if req.Reason == "" {
		return SubmitLeaveResult{}, apperror.Validation("reason is required")
	}
	if len(req.Reason) > 500 {
		return SubmitLeaveResult{}, apperror.Validation("reason cannot exceed 500 characters")
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return SubmitLeaveResult{}, apperror.Validation("start_date must be formatted YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return SubmitLeaveResult{}, apperror.Validation("end_date must be formatted YYYY-MM-DD")
	}
	if end.Before(start) {
		return SubmitLeaveResult{}, apperror.Validation("end date must not be before start date")
	}

	holidays, err := s.holidays.ListBetween(ctx, start, end)
	if err != nil {
		return SubmitLeaveResult{}, apperror.Internal(err)
	}
	holidayDates := make([]time.Time, 0, len(holidays))
	for _, h := range holidays {
		holidayDates = append(holidayDates, h.Date)
	}

	// Fixed at submission: later holiday registry edits never change it.
	totalDays := businessday.Count(start, end, businessday.NewHolidaySet(holidayDates))
	if totalDays == 0 {
		return SubmitLeaveResult{}, apperror.Validation("selected dates consist only of weekends and public holidays")
	}

	// Friendly pre-check; the store's exclusion constraint closes the race.
	overlap, err := s.leaves.HasOverlap(ctx, actor.ID, start, end)
	if err != nil {
		return SubmitLeaveResult{}, apperror.Internal(err)
	}
	if overlap {
		return SubmitLeaveResult{}, apperror.Conflict("you already have a leave request overlapping those dates")
	}

	warning := s.assessDepartmentConflict(ctx, actor, start, end)

	leave := &model.LeaveRequest{
		EmployeeID:    actor.ID,
		LeaveType:     req.LeaveType,
		StartDate:     start,
		EndDate:       end,
		Reason:        req.Reason,
		TotalDays:     totalDays,
		Status:        model.LeaveStatusPending,
		AttachmentRef: req.AttachmentRef,
	}

	err = s.txMgr.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.leaves.Create(txCtx, leave); err != nil {
			return err
		}
		details := auditDetails(map[string]interface{}{
			"leave_type": leave.LeaveType,
			"start_date": req.StartDate,
			"end_date":   req.EndDate,
			"total_days": totalDays,
			"warning":    warning,
		})
		return s.audit.Record(txCtx, &model.AuditLog{
			ActorID:    &actor.ID,
			Action:     model.ActionSubmitLeave,
			TargetID:   leave.ID.String(),
			TargetType: model.TargetLeave,
			Details:    details,
		})
	})
	if err != nil {
		s.logger.Warn("leave submission failed",
			zap.String("employee_id", actor.ID.String()),
			zap.Error(err),
		)
		return SubmitLeaveResult{}, apperror.From(err)
	}

	s.logger.Info("leave submitted",
		zap.String("leave_id", leave.ID.String()),
		zap.String("employee_id", actor.ID.String()),
		zap.Int("total_days", totalDays),
		zap.Bool("conflict_flagged", warning != ""),
	)

	return SubmitLeaveResult{Leave: toLeaveResponse(leave), ConflictWarning: warning}, nil
}

// assessDepartmentConflict is advisory only; lookup failures degrade to "no
// warning" rather than blocking the submission.
func (s *leaveService) assessDepartmentConflict(ctx context.Context, actor Actor, start, end time.Time) string {
	size, err := s.users.CountDepartmentEmployees(ctx, actor.Department)
	if err != nil {
		s.logger.Warn("department headcount lookup failed", zap.Error(err))
		return ""
	}
	overlapping, err := s.leaves.CountActiveOverlapByDepartment(ctx, actor.Department, start, end, actor.ID)
	if err != nil {
		s.logger.Warn("department overlap lookup failed", zap.Error(err))
		return ""
	}
	warning, _ := s.detector.Assess(actor.Department, size, overlapping)
	return warning
}

// --- Queries ---

func (s *leaveService) MyLeaves(ctx context.Context, actor Actor) ([]LeaveResponse, error) {
	leaves, err := s.leaves.ListByEmployee(ctx, actor.ID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return toLeaveResponses(leaves), nil
}

func (s *leaveService) Pending(ctx context.Context, actor Actor) ([]LeaveResponse, error) {
	scope, err := s.visibleEmployees(ctx, actor)
	if err != nil {
		return nil, err
	}
	leaves, err := s.leaves.ListPending(ctx, scope)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return toLeaveResponses(leaves), nil
}

func (s *leaveService) All(ctx context.Context, actor Actor, filter LeaveListFilter) ([]LeaveResponse, int64, error) {
	scope, err := s.visibleEmployees(ctx, actor)
	if err != nil {
		return nil, 0, err
	}
	leaves, total, err := s.leaves.List(ctx, repository.LeaveFilter{
		Status:      filter.Status,
		LeaveType:   filter.LeaveType,
		EmployeeIDs: scope,
		Page:        filter.Page,
		Limit:       filter.Limit,
	})
	if err != nil {
		return nil, 0, apperror.Internal(err)
	}
	return toLeaveResponses(leaves), total, nil
}

func (s *leaveService) Stats(ctx context.Context) (LeaveStats, error) {
	byStatus, err := s.leaves.CountByStatus(ctx)
	if err != nil {
		return LeaveStats{}, apperror.Internal(err)
	}
	byType, err := s.leaves.CountByType(ctx)
	if err != nil {
		return LeaveStats{}, apperror.Internal(err)
	}
	return LeaveStats{ByStatus: byStatus, ByType: byType}, nil
}

// visibleEmployees returns nil for an unrestricted view (admin) or the
// department's employee ids for a manager.
func (s *leaveService) visibleEmployees(ctx context.Context, actor Actor) ([]uuid.UUID, error) {
	switch actor.Role {
	case model.RoleAdmin:
		return nil, nil
	case model.RoleManager:
		ids, err := s.users.DepartmentEmployeeIDs(ctx, actor.Department)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		return ids, nil
	case model.RoleEmployee, model.RoleFinance:
		return nil, apperror.Forbidden("insufficient role for this operation")
	}
	return nil, apperror.Forbidden("insufficient role for this operation")
}

// --- Review ---

func (s *leaveService) Review(ctx context.Context, actor Actor, id string, req ReviewLeaveRequest) (LeaveResponse, error) {
	leaveID, err := uuid.Parse(id)
	if err != nil {
		return LeaveResponse{}, apperror.Validation("invalid leave request id")
	}

	leave, event, err := s.reviewOne(ctx, actor, leaveID, req.Status, req.Comment, model.ActionReviewLeave)
	if err != nil {
		return LeaveResponse{}, err
	}
	if event != nil {
		s.notifier.Publish(*event)
	}
	return toLeaveResponse(leave), nil
}

func (s *leaveService) BulkReview(ctx context.Context, actor Actor, req BulkReviewLeaveRequest) (BulkReviewResult, error) {
	if len(req.LeaveIDs) == 0 {
		return BulkReviewResult{}, apperror.Validation("no leave ids provided")
	}
	if req.Status != model.LeaveStatusApproved && req.Status != model.LeaveStatusRejected {
		return BulkReviewResult{}, apperror.Validation("status must be Approved or Rejected")
	}
	if !actor.Role.CanReviewLeave() {
		return BulkReviewResult{}, apperror.Forbidden("only managers and admins may review leave requests")
	}

	result := BulkReviewResult{Reviewed: []string{}, Failed: []BulkReviewFailure{}}
	for _, raw := range req.LeaveIDs {
		leaveID, err := uuid.Parse(raw)
		if err != nil {
			result.Failed = append(result.Failed, BulkReviewFailure{ID: raw, Reason: "invalid id"})
			continue
		}

		// Each id gets its own transaction: one failure must not roll back
		// ids already processed.
		_, event, err := s.reviewOne(ctx, actor, leaveID, req.Status, req.Comment, model.ActionBulkReviewLeave)
		if err != nil {
			result.Failed = append(result.Failed, BulkReviewFailure{ID: raw, Reason: apperror.From(err).Message})
			continue
		}
		if event != nil {
			s.notifier.Publish(*event)
		}
		result.Reviewed = append(result.Reviewed, raw)
	}

	s.logger.Info("bulk leave review finished",
		zap.String("actor_id", actor.ID.String()),
		zap.Int("reviewed", len(result.Reviewed)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// reviewOne applies a single role-conditioned transition inside its own
// transaction. The notification event is returned rather than published so
// it can be emitted only after the transaction has committed.
func (s *leaveService) reviewOne(ctx context.Context, actor Actor, leaveID uuid.UUID, targetStatus, comment, action string) (*model.LeaveRequest, *notify.Event, error) {
	if !actor.Role.CanReviewLeave() {
		return nil, nil, apperror.Forbidden("only managers and admins may review leave requests")
	}

	var leave *model.LeaveRequest
	var event *notify.Event

	err := s.txMgr.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		leave, err = s.leaves.GetByID(txCtx, leaveID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("leave request not found")
			}
			return err
		}

		if actor.Role == model.RoleManager && leave.Employee != nil && leave.Employee.Department != actor.Department {
			return apperror.Forbidden("request belongs to another department")
		}

		current := leave.Status
		next, err := nextLeaveStatus(current, actor.Role, targetStatus)
		if err != nil {
			return err
		}

		leave.Status = next
		leave.ReviewerID = &actor.ID
		leave.ReviewComment = comment
		// Guarded on the status we read: a racing reviewer's committed
		// transition makes this a stale write, not a silent overwrite.
		if err := s.leaves.Update(txCtx, leave, current); err != nil {
			if errors.Is(err, repository.ErrStaleRow) {
				return apperror.InvalidTransition("leave request was reviewed concurrently")
			}
			return err
		}

		if leave.Status == model.LeaveStatusApproved {
			if err := s.users.TouchLastLeaveDate(txCtx, leave.EmployeeID, leave.StartDate); err != nil {
				return err
			}
		}

		details := auditDetails(map[string]interface{}{
			"status":  leave.Status,
			"comment": comment,
		})
		if err := s.audit.Record(txCtx, &model.AuditLog{
			ActorID:    &actor.ID,
			Action:     action,
			TargetID:   leave.ID.String(),
			TargetType: model.TargetLeave,
			Details:    details,
		}); err != nil {
			return err
		}

		if leave.Terminal() {
			event = &notify.Event{
				EmployeeID: leave.EmployeeID.String(),
				RequestID:  leave.ID.String(),
				Kind:       notify.KindLeave,
				Status:     leave.Status,
				Message:    fmt.Sprintf("Your leave request for %s has been %s.", leave.LeaveType, leave.Status),
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, apperror.From(err)
	}
	return leave, event, nil
}

// nextLeaveStatus encodes the legal transitions. A manager approving a
// Pending request escalates it to PendingHR — only admin/HR finalizes
// Approved. Rejection is allowed to any reviewer from either pending state.
func nextLeaveStatus(current string, role model.Role, target string) (string, error) {
	if target != model.LeaveStatusApproved && target != model.LeaveStatusRejected {
		return "", apperror.Validation("target status must be Approved or Rejected")
	}
	if current != model.LeaveStatusPending && current != model.LeaveStatusPendingHR {
		return "", apperror.InvalidTransition(fmt.Sprintf("leave request is already %s", current))
	}

	if target == model.LeaveStatusRejected {
		return model.LeaveStatusRejected, nil
	}

	switch role {
	case model.RoleManager:
		if current == model.LeaveStatusPending {
			return model.LeaveStatusPendingHR, nil
		}
		return "", apperror.InvalidTransition("final approval requires HR")
	case model.RoleAdmin:
		// Admin acting on Pending is HR acting as final approver.
		return model.LeaveStatusApproved, nil
	case model.RoleEmployee, model.RoleFinance:
		return "", apperror.Forbidden("only managers and admins may review leave requests")
	}
	return "", apperror.Forbidden("only managers and admins may review leave requests")
}

// --- Cancellation ---

func (s *leaveService) Cancel(ctx context.Context, actor Actor, id string) error {
	leaveID, err := uuid.Parse(id)
	if err != nil {
		return apperror.Validation("invalid leave request id")
	}

	err = s.txMgr.RunInTx(ctx, func(txCtx context.Context) error {
		leave, err := s.leaves.GetByID(txCtx, leaveID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("leave request not found")
			}
			return err
		}
		if leave.EmployeeID != actor.ID {
			return apperror.Forbidden("not authorized to cancel this leave request")
		}
		if leave.Status != model.LeaveStatusPending {
			return apperror.InvalidState("only pending leave requests can be cancelled")
		}
		if err := s.leaves.Delete(txCtx, leaveID, model.LeaveStatusPending); err != nil {
			if errors.Is(err, repository.ErrStaleRow) {
				return apperror.InvalidState("only pending leave requests can be cancelled")
			}
			return err
		}
		return s.audit.Record(txCtx, &model.AuditLog{
			ActorID:    &actor.ID,
			Action:     model.ActionCancelLeave,
			TargetID:   leaveID.String(),
			TargetType: model.TargetLeave,
			Details:    auditDetails(map[string]interface{}{"leave_type": leave.LeaveType}),
		})
	})
	if err != nil {
		return apperror.From(err)
	}

	s.logger.Info("leave cancelled",
		zap.String("leave_id", leaveID.String()),
		zap.String("employee_id", actor.ID.String()),
	)
	return nil
}

// --- Helpers ---

func auditDetails(fields map[string]interface{}) string {
	payload, err := json.Marshal(fields)
	if err != nil {
		return "{}"
	}
	return string(payload)
}

func toLeaveResponse(l *model.LeaveRequest) LeaveResponse {
	resp := LeaveResponse{
		ID:            l.ID.String(),
		EmployeeID:    l.EmployeeID.String(),
		LeaveType:     l.LeaveType,
		StartDate:     l.StartDate.Format(dateLayout),
		EndDate:       l.EndDate.Format(dateLayout),
		Reason:        l.Reason,
		TotalDays:     l.TotalDays,
		Status:        l.Status,
		ReviewComment: l.ReviewComment,
		AttachmentRef: l.AttachmentRef,
		CreatedAt:     l.CreatedAt.Format(time.RFC3339),
	}
	if l.Employee != nil {
		resp.EmployeeName = l.Employee.Name
		resp.Department = l.Employee.Department
	}
	if l.ReviewerID != nil {
		id := l.ReviewerID.String()
		resp.ReviewerID = &id
	}
	if l.Reviewer != nil {
		resp.ReviewerName = l.Reviewer.Name
	}
	return resp
}

func toLeaveResponses(leaves []model.LeaveRequest) []LeaveResponse {
	out := make([]LeaveResponse, 0, len(leaves))
	for i := range leaves {
		out = append(out, toLeaveResponse(&leaves[i]))
	}
	return out
}
