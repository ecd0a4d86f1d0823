package service

import (
	"context"
	"time"

	"backend/internal/apperror"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const accrualPeriodLayout = "2006-01"

// Accrual policy constants.
var (
	monthlyEarnedCredit = decimal.NewFromFloat(1.5)
	yearlySickReset     = decimal.NewFromInt(12)
	yearlyCasualReset   = decimal.NewFromInt(12)
	yearlyEarnedCredit  = decimal.NewFromInt(15)
)

// Employees with no approved leave in the last burnoutMonths calendar months
// show up on the burnout report.
const burnoutMonths = 6

type AccrualResult struct {
	Period           string `json:"period"`
	EmployeesUpdated int64  `json:"employees_updated"`
}

type CarryForwardResult struct {
	Year             int   `json:"year"`
	EmployeesUpdated int64 `json:"employees_updated"`
}

type BurnoutCandidate struct {
	EmployeeID    string  `json:"employee_id"`
	Name          string  `json:"name"`
	Department    string  `json:"department"`
	LastLeaveDate *string `json:"last_leave_date"` // nil when no leave was ever taken
}

// AccrualService runs the periodic balance jobs. Both mutating jobs are
// idempotent per period: the per-user markers make a repeated or concurrent
// run a no-op, so a scheduler retry can never double-credit.
type AccrualService interface {
	MonthlyAccrual(ctx context.Context, now time.Time) (AccrualResult, error)
	YearEndCarryForward(ctx context.Context, now time.Time) (CarryForwardResult, error)
	BurnoutScan(ctx context.Context, now time.Time) ([]BurnoutCandidate, error)
}

type accrualService struct {
	users  repository.UserRepository
	audit  repository.AuditRepository
	txMgr  repository.TransactionManager
	logger *zap.Logger
}

func NewAccrualService(
	users repository.UserRepository,
	audit repository.AuditRepository,
	txMgr repository.TransactionManager,
	logger *zap.Logger,
) AccrualService {
	return &accrualService{
		users:  users,
		audit:  audit,
		txMgr:  txMgr,
		logger: logger.Named("accrual.service"),
	}
}

// MonthlyAccrual credits earned leave to every active employee once per
// calendar month.
func (s *accrualService) MonthlyAccrual(ctx context.Context, now time.Time) (AccrualResult, error) {
	period := now.Format(accrualPeriodLayout)

	var updated int64
	err := s.txMgr.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		updated, err = s.users.CreditMonthlyAccrual(txCtx, period, monthlyEarnedCredit)
		if err != nil {
			return err
		}
		if updated == 0 {
			return nil
		}
		// ActorID is nil: the scheduler, not a user, performed this change.
		return s.audit.Record(txCtx, &model.AuditLog{
			Action:     model.ActionMonthlyAccrual,
			TargetID:   period,
			TargetType: model.TargetBalance,
			Details: auditDetails(map[string]interface{}{
				"period":            period,
				"earned_credit":     monthlyEarnedCredit.String(),
				"employees_updated": updated,
			}),
		})
	})
	if err != nil {
		return AccrualResult{}, apperror.Internal(err)
	}

	s.logger.Info("monthly accrual run",
		zap.String("period", period),
		zap.Int64("employees_updated", updated),
	)
	return AccrualResult{Period: period, EmployeesUpdated: updated}, nil
}

// YearEndCarryForward resets sick and casual balances to their yearly grants
// and credits the annual earned-leave allotment.
func (s *accrualService) YearEndCarryForward(ctx context.Context, now time.Time) (CarryForwardResult, error) {
	year := now.Year()

	var updated int64
	err := s.txMgr.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		updated, err = s.users.ApplyCarryForward(txCtx, year, yearlySickReset, yearlyCasualReset, yearlyEarnedCredit)
		if err != nil {
			return err
		}
		if updated == 0 {
			return nil
		}
		return s.audit.Record(txCtx, &model.AuditLog{
			Action:     model.ActionCarryForward,
			TargetID:   now.Format("2006"),
			TargetType: model.TargetBalance,
			Details: auditDetails(map[string]interface{}{
				"year":              year,
				"sick_reset":        yearlySickReset.String(),
				"casual_reset":      yearlyCasualReset.String(),
				"earned_credit":     yearlyEarnedCredit.String(),
				"employees_updated": updated,
			}),
		})
	})
	if err != nil {
		return CarryForwardResult{}, apperror.Internal(err)
	}

	s.logger.Info("year-end carry forward run",
		zap.Int("year", year),
		zap.Int64("employees_updated", updated),
	)
	return CarryForwardResult{Year: year, EmployeesUpdated: updated}, nil
}

// BurnoutScan reports active employees with no approved leave in the last
// six months. Read-only, no state change and no audit entry.
func (s *accrualService) BurnoutScan(ctx context.Context, now time.Time) ([]BurnoutCandidate, error) {
	threshold := now.AddDate(0, -burnoutMonths, 0)
	users, err := s.users.ListBurnoutCandidates(ctx, threshold)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	candidates := make([]BurnoutCandidate, 0, len(users))
	for _, u := range users {
		c := BurnoutCandidate{
			EmployeeID: u.ID.String(),
			Name:       u.Name,
			Department: u.Department,
		}
		if u.LastLeaveDate != nil {
			d := u.LastLeaveDate.Format(dateLayout)
			c.LastLeaveDate = &d
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}
