package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/apperror"
	"backend/internal/model"
	"backend/internal/notify"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- DTOs ---

type ReimbursementItemRequest struct {
	Title      string          `json:"title" binding:"required"`
	Category   string          `json:"category" binding:"required"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
	Currency   string          `json:"currency"`
	Date       string          `json:"date" binding:"required"` // YYYY-MM-DD
	ReceiptRef string          `json:"receipt_ref"`
}

type SubmitReimbursementRequest struct {
	Title string                     `json:"title" binding:"required"`
	Items []ReimbursementItemRequest `json:"items"`
	// Submit moves the claim straight to PendingManager; otherwise it stays
	// an editable Draft.
	Submit bool `json:"submit"`
}

type UpdateReimbursementRequest struct {
	Title  string                     `json:"title"`
	Items  []ReimbursementItemRequest `json:"items"`
	Submit bool                       `json:"submit"`
}

type ReviewReimbursementRequest struct {
	Approved *bool  `json:"approved" binding:"required"`
	Comment  string `json:"comment"`
}

type ApprovalDecisionResponse struct {
	Approved   *bool   `json:"approved"`
	ApproverID *string `json:"approver_id,omitempty"`
	Comment    string  `json:"comment,omitempty"`
	DecidedAt  *string `json:"decided_at,omitempty"`
}

type ReimbursementItemResponse struct {
	Title      string `json:"title"`
	Category   string `json:"category"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Date       string `json:"date"`
	ReceiptRef string `json:"receipt_ref,omitempty"`
}

type ReimbursementResponse struct {
	ID              string                      `json:"id"`
	EmployeeID      string                      `json:"employee_id"`
	EmployeeName    string                      `json:"employee_name,omitempty"`
	Department      string                      `json:"department,omitempty"`
	Title           string                      `json:"title"`
	Items           []ReimbursementItemResponse `json:"items"`
	TotalAmount     string                      `json:"total_amount"`
	Status          string                      `json:"status"`
	ManagerApproval ApprovalDecisionResponse    `json:"manager_approval"`
	FinanceApproval ApprovalDecisionResponse    `json:"finance_approval"`
	CreatedAt       string                      `json:"created_at"`
}

// --- Interface ---

// ReimbursementService is the claim half of the workflow engine:
// Draft -> PendingManager -> PendingFinance -> Approved/Rejected, with
// per-stage approval records and totals derived from the items on every
// persist.
type ReimbursementService interface {
	Submit(ctx context.Context, actor Actor, req SubmitReimbursementRequest) (ReimbursementResponse, error)
	UpdateDraft(ctx context.Context, actor Actor, id string, req UpdateReimbursementRequest) (ReimbursementResponse, error)
	MyClaims(ctx context.Context, actor Actor) ([]ReimbursementResponse, error)
	Pending(ctx context.Context, actor Actor) ([]ReimbursementResponse, error)
	Review(ctx context.Context, actor Actor, id string, req ReviewReimbursementRequest) (ReimbursementResponse, error)
	All(ctx context.Context, actor Actor, page, limit int) ([]ReimbursementResponse, int64, error)
}

type reimbursementService struct {
	claims   repository.ReimbursementRepository
	users    repository.UserRepository
	audit    repository.AuditRepository
	txMgr    repository.TransactionManager
	notifier notify.Dispatcher
	logger   *zap.Logger
}

func NewReimbursementService(
	claims repository.ReimbursementRepository,
	users repository.UserRepository,
	audit repository.AuditRepository,
	txMgr repository.TransactionManager,
	notifier notify.Dispatcher,
	logger *zap.Logger,
) ReimbursementService {
	return &reimbursementService{
		claims:   claims,
		users:    users,
		audit:    audit,
		txMgr:    txMgr,
		notifier: notifier,
		logger:   logger.Named("reimbursement.service"),
	}
}

// --- Submission / draft editing ---

func (s *reimbursementService) Submit(ctx context.Context, actor Actor, req SubmitReimbursementRequest) (ReimbursementResponse, error) {
	items, err := buildItems(req.Items)
	if err != nil {
		return ReimbursementResponse{}, err
	}

	status := model.ReimbStatusDraft
	if req.Submit {
		if len(items) == 0 {
			return ReimbursementResponse{}, apperror.Validation("cannot submit a claim without items")
		}
		status = model.ReimbStatusPendingManager
	}

	claim := &model.ReimbursementClaim{
		EmployeeID: actor.ID,
		Title:      req.Title,
		Items:      items,
		Status:     status,
	}
	claim.TotalAmount = claim.SumItems()

	err = s.txMgr.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.claims.Create(txCtx, claim); err != nil {
			return err
		}
		return s.audit.Record(txCtx, &model.AuditLog{
			ActorID:    &actor.ID,
			Action:     model.ActionSubmitReimbursement,
			TargetID:   claim.ID.String(),
			TargetType: model.TargetReimbursement,
			Details: auditDetails(map[string]interface{}{
				"title":        claim.Title,
				"status":       claim.Status,
				"total_amount": claim.TotalAmount.StringFixed(2),
				"item_count":   len(items),
			}),
		})
	})
	if err != nil {
		return ReimbursementResponse{}, apperror.From(err)
	}

	s.logger.Info("reimbursement claim created",
		zap.String("claim_id", claim.ID.String()),
		zap.String("employee_id", actor.ID.String()),
		zap.String("status", claim.Status),
	)
	return toReimbursementResponse(claim), nil
}

func (s *reimbursementService) UpdateDraft(ctx context.Context, actor Actor, id string, req UpdateReimbursementRequest) (ReimbursementResponse, error) {
	claimID, err := uuid.Parse(id)
	if err != nil {
		return ReimbursementResponse{}, apperror.Validation("invalid claim id")
	}

	var claim *model.ReimbursementClaim
	err = s.txMgr.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		claim, err = s.claims.GetByID(txCtx, claimID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("reimbursement claim not found")
			}
			return err
		}
		if claim.EmployeeID != actor.ID {
			return apperror.Forbidden("not authorized to edit this claim")
		}
		if claim.Status != model.ReimbStatusDraft {
			return apperror.InvalidState("only draft claims can be edited")
		}

		if req.Title != "" {
			claim.Title = req.Title
		}
		if req.Items != nil {
			items, err := buildItems(req.Items)
			if err != nil {
				return err
			}
			if err := s.claims.ReplaceItems(txCtx, claim.ID, items); err != nil {
				return err
			}
			claim.Items = items
		}
		if req.Submit {
			if len(claim.Items) == 0 {
				return apperror.Validation("cannot submit a claim without items")
			}
			claim.Status = model.ReimbStatusPendingManager
		}

		// Derived: recomputed on every persist so the stored total can never
		// drift from the items.
		claim.TotalAmount = claim.SumItems()
		// Guarded on Draft: an edit racing a concurrent submit must fail
		// rather than drag a submitted claim back to Draft.
		if err := s.claims.Update(txCtx, claim, model.ReimbStatusDraft); err != nil {
			if errors.Is(err, repository.ErrStaleRow) {
				return apperror.InvalidState("only draft claims can be edited")
			}
			return err
		}

		return s.audit.Record(txCtx, &model.AuditLog{
			ActorID:    &actor.ID,
			Action:     model.ActionUpdateReimbursement,
			TargetID:   claim.ID.String(),
			TargetType: model.TargetReimbursement,
			Details: auditDetails(map[string]interface{}{
				"status":       claim.Status,
				"total_amount": claim.TotalAmount.StringFixed(2),
			}),
		})
	})
	if err != nil {
		return ReimbursementResponse{}, apperror.From(err)
	}
	return toReimbursementResponse(claim), nil
}

// --- Queries ---

func (s *reimbursementService) MyClaims(ctx context.Context, actor Actor) ([]ReimbursementResponse, error) {
	claims, err := s.claims.ListByEmployee(ctx, actor.ID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return toReimbursementResponses(claims), nil
}

// Pending lists the claims awaiting the caller's stage: PendingManager for
// managers (own department), PendingFinance for finance, both for admin.
func (s *reimbursementService) Pending(ctx context.Context, actor Actor) ([]ReimbursementResponse, error) {
	var statuses []string
	var scope []uuid.UUID

	switch actor.Role {
	case model.RoleManager:
		statuses = []string{model.ReimbStatusPendingManager}
		ids, err := s.users.DepartmentEmployeeIDs(ctx, actor.Department)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		scope = ids
	case model.RoleFinance:
		statuses = []string{model.ReimbStatusPendingFinance}
	case model.RoleAdmin:
		statuses = []string{model.ReimbStatusPendingManager, model.ReimbStatusPendingFinance}
	case model.RoleEmployee:
		return nil, apperror.Forbidden("insufficient role for this operation")
	default:
		return nil, apperror.Forbidden("insufficient role for this operation")
	}

	claims, err := s.claims.ListByStatuses(ctx, statuses, scope)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return toReimbursementResponses(claims), nil
}

func (s *reimbursementService) All(ctx context.Context, actor Actor, page, limit int) ([]ReimbursementResponse, int64, error) {
	if !actor.Role.CanReviewReimbursement() {
		return nil, 0, apperror.Forbidden("insufficient role for this operation")
	}
	claims, total, err := s.claims.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, apperror.Internal(err)
	}
	return toReimbursementResponses(claims), total, nil
}

// --- Review ---

func (s *reimbursementService) Review(ctx context.Context, actor Actor, id string, req ReviewReimbursementRequest) (ReimbursementResponse, error) {
	if !actor.Role.CanReviewReimbursement() {
		return ReimbursementResponse{}, apperror.Forbidden("only managers, finance and admins may review claims")
	}
	if req.Approved == nil {
		return ReimbursementResponse{}, apperror.Validation("approved is required")
	}
	claimID, err := uuid.Parse(id)
	if err != nil {
		return ReimbursementResponse{}, apperror.Validation("invalid claim id")
	}

	approved := *req.Approved
	var claim *model.ReimbursementClaim
	var event *notify.Event

	err = s.txMgr.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		claim, err = s.claims.GetByID(txCtx, claimID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("reimbursement claim not found")
			}
			return err
		}

		if actor.Role == model.RoleManager && claim.Employee != nil && claim.Employee.Department != actor.Department {
			return apperror.Forbidden("claim belongs to another department")
		}

		stage, err := reviewStage(actor.Role, claim.Status)
		if err != nil {
			return err
		}

		now := time.Now()
		decision := model.ApprovalDecision{
			Approved:   &approved,
			ApproverID: &actor.ID,
			Comment:    req.Comment,
			DecidedAt:  &now,
		}

		switch stage {
		case model.ReimbStatusPendingManager:
			claim.ManagerApproval = decision
			if approved {
				claim.Status = model.ReimbStatusPendingFinance
			} else {
				claim.Status = model.ReimbStatusRejected
			}
		case model.ReimbStatusPendingFinance:
			claim.FinanceApproval = decision
			if approved {
				claim.Status = model.ReimbStatusApproved
			} else {
				claim.Status = model.ReimbStatusRejected
			}
		}

		// Derived total re-checked on every persist. The write is guarded on
		// the stage we read so racing reviewers cannot double-apply.
		claim.TotalAmount = claim.SumItems()
		if err := s.claims.Update(txCtx, claim, stage); err != nil {
			if errors.Is(err, repository.ErrStaleRow) {
				return apperror.InvalidState("claim was reviewed concurrently")
			}
			return err
		}

		if err := s.audit.Record(txCtx, &model.AuditLog{
			ActorID:    &actor.ID,
			Action:     model.ActionReviewReimbursement,
			TargetID:   claim.ID.String(),
			TargetType: model.TargetReimbursement,
			Details: auditDetails(map[string]interface{}{
				"approved": approved,
				"status":   claim.Status,
				"comment":  req.Comment,
			}),
		}); err != nil {
			return err
		}

		event = &notify.Event{
			EmployeeID: claim.EmployeeID.String(),
			RequestID:  claim.ID.String(),
			Kind:       notify.KindReimbursement,
			Status:     claim.Status,
			Message:    fmt.Sprintf("Your reimbursement claim %q is now %s.", claim.Title, claim.Status),
		}
		return nil
	})
	if err != nil {
		return ReimbursementResponse{}, apperror.From(err)
	}

	if event != nil {
		s.notifier.Publish(*event)
	}
	s.logger.Info("reimbursement reviewed",
		zap.String("claim_id", claim.ID.String()),
		zap.String("actor_id", actor.ID.String()),
		zap.String("status", claim.Status),
	)
	return toReimbursementResponse(claim), nil
}

// reviewStage returns the stage the actor may act on given the claim's
// current status. Admin acts as whichever stage the claim currently needs.
func reviewStage(role model.Role, status string) (string, error) {
	switch role {
	case model.RoleManager:
		if status != model.ReimbStatusPendingManager {
			return "", apperror.InvalidState(fmt.Sprintf("claim is %s, not awaiting manager review", status))
		}
		return model.ReimbStatusPendingManager, nil
	case model.RoleFinance:
		if status != model.ReimbStatusPendingFinance {
			return "", apperror.InvalidState(fmt.Sprintf("claim is %s, not awaiting finance review", status))
		}
		return model.ReimbStatusPendingFinance, nil
	case model.RoleAdmin:
		switch status {
		case model.ReimbStatusPendingManager, model.ReimbStatusPendingFinance:
			return status, nil
		default:
			return "", apperror.InvalidState(fmt.Sprintf("claim is %s and cannot be reviewed", status))
		}
	case model.RoleEmployee:
		return "", apperror.Forbidden("only managers, finance and admins may review claims")
	}
	return "", apperror.Forbidden("only managers, finance and admins may review claims")
}

// --- Helpers ---

func buildItems(reqs []ReimbursementItemRequest) ([]model.ReimbursementItem, error) {
	items := make([]model.ReimbursementItem, 0, len(reqs))
	for i, r := range reqs {
		if !model.ValidReimbCategory(r.Category) {
			return nil, apperror.Validationf("item %d: unknown category %q", i+1, r.Category)
		}
		if r.Amount.IsNegative() {
			return nil, apperror.Validationf("item %d: amount cannot be negative", i+1)
		}
		date, err := time.Parse(dateLayout, r.Date)
		if err != nil {
			return nil, apperror.Validationf("item %d: date must be formatted YYYY-MM-DD", i+1)
		}
		currency := r.Currency
		if currency == "" {
			currency = "INR"
		}
		items = append(items, model.ReimbursementItem{
			Position:   i,
			Title:      r.Title,
			Category:   r.Category,
			Amount:     r.Amount,
			Currency:   currency,
			Date:       date,
			ReceiptRef: r.ReceiptRef,
		})
	}
	return items, nil
}

func toApprovalResponse(d model.ApprovalDecision) ApprovalDecisionResponse {
	resp := ApprovalDecisionResponse{
		Approved: d.Approved,
		Comment:  d.Comment,
	}
	if d.ApproverID != nil {
		id := d.ApproverID.String()
		resp.ApproverID = &id
	}
	if d.DecidedAt != nil {
		ts := d.DecidedAt.Format(time.RFC3339)
		resp.DecidedAt = &ts
	}
	return resp
}

func toReimbursementResponse(c *model.ReimbursementClaim) ReimbursementResponse {
	items := make([]ReimbursementItemResponse, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, ReimbursementItemResponse{
			Title:      item.Title,
			Category:   item.Category,
			Amount:     item.Amount.StringFixed(2),
			Currency:   item.Currency,
			Date:       item.Date.Format(dateLayout),
			ReceiptRef: item.ReceiptRef,
		})
	}

	resp := ReimbursementResponse{
		ID:              c.ID.String(),
		EmployeeID:      c.EmployeeID.String(),
		Title:           c.Title,
		Items:           items,
		TotalAmount:     c.TotalAmount.StringFixed(2),
		Status:          c.Status,
		ManagerApproval: toApprovalResponse(c.ManagerApproval),
		FinanceApproval: toApprovalResponse(c.FinanceApproval),
		CreatedAt:       c.CreatedAt.Format(time.RFC3339),
	}
	if c.Employee != nil {
		resp.EmployeeName = c.Employee.Name
		resp.Department = c.Employee.Department
	}
	return resp
}

func toReimbursementResponses(claims []model.ReimbursementClaim) []ReimbursementResponse {
	out := make([]ReimbursementResponse, 0, len(claims))
	for i := range claims {
		out = append(out, toReimbursementResponse(&claims[i]))
	}
	return out
}
