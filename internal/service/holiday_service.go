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
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AddHolidayRequest struct {
	Name        string `json:"name" binding:"required"`
	Date        string `json:"date" binding:"required"` // YYYY-MM-DD
	Description string `json:"description"`
}

type HolidayResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
}

// HolidayService manages the public holiday registry the business-day
// calculator reads from.
type HolidayService interface {
	Add(ctx context.Context, actor Actor, req AddHolidayRequest) (HolidayResponse, error)
	List(ctx context.Context) ([]HolidayResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error
}

type holidayService struct {
	holidays repository.HolidayRepository
	audit    repository.AuditRepository
	txMgr    repository.TransactionManager
	notifier notify.Dispatcher
	logger   *zap.Logger
}

func NewHolidayService(
	holidays repository.HolidayRepository,
	audit repository.AuditRepository,
	txMgr repository.TransactionManager,
	notifier notify.Dispatcher,
	logger *zap.Logger,
) HolidayService {
	return &holidayService{
		holidays: holidays,
		audit:    audit,
		txMgr:    txMgr,
		notifier: notifier,
		logger:   logger.Named("holiday.service"),
	}
}

func (s *holidayService) Add(ctx context.Context, actor Actor, req AddHolidayRequest) (HolidayResponse, error) {
	if actor.Role != model.RoleAdmin {
		return HolidayResponse{}, apperror.Forbidden("only admins may manage holidays")
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return HolidayResponse{}, apperror.Validation("date must be formatted YYYY-MM-DD")
	}

	holiday := &model.Holiday{
		Name:        req.Name,
		Date:        date,
		Description: req.Description,
	}
	err = s.txMgr.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.holidays.Create(txCtx, holiday); err != nil {
			return err
		}
		return s.audit.Record(txCtx, &model.AuditLog{
			ActorID:    &actor.ID,
			Action:     model.ActionAddHoliday,
			TargetID:   holiday.ID.String(),
			TargetType: model.TargetHoliday,
			Details: auditDetails(map[string]interface{}{
				"name": holiday.Name,
				"date": req.Date,
			}),
		})
	})
	if err != nil {
		return HolidayResponse{}, apperror.From(err)
	}

	// Announce to everyone connected; published only after the commit.
	s.notifier.Publish(notify.Event{
		RequestID: holiday.ID.String(),
		Kind:      notify.KindHoliday,
		Status:    "Added",
		Message:   fmt.Sprintf("%s is a company holiday on %s.", holiday.Name, req.Date),
	})

	s.logger.Info("holiday added", zap.String("name", holiday.Name), zap.String("date", req.Date))
	return toHolidayResponse(holiday), nil
}

func (s *holidayService) List(ctx context.Context) ([]HolidayResponse, error) {
	holidays, err := s.holidays.ListAll(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	out := make([]HolidayResponse, 0, len(holidays))
	for i := range holidays {
		out = append(out, toHolidayResponse(&holidays[i]))
	}
	return out, nil
}

func (s *holidayService) Delete(ctx context.Context, actor Actor, id string) error {
	if actor.Role != model.RoleAdmin {
		return apperror.Forbidden("only admins may manage holidays")
	}
	holidayID, err := uuid.Parse(id)
	if err != nil {
		return apperror.Validation("invalid holiday id")
	}

	err = s.txMgr.RunInTx(ctx, func(txCtx context.Context) error {
		holiday, err := s.holidays.GetByID(txCtx, holidayID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("holiday not found")
			}
			return err
		}
		if err := s.holidays.Delete(txCtx, holidayID); err != nil {
			return err
		}
		return s.audit.Record(txCtx, &model.AuditLog{
			ActorID:    &actor.ID,
			Action:     model.ActionDeleteHoliday,
			TargetID:   holidayID.String(),
			TargetType: model.TargetHoliday,
			Details: auditDetails(map[string]interface{}{
				"name": holiday.Name,
				"date": holiday.Date.Format(dateLayout),
			}),
		})
	})
	if err != nil {
		return apperror.From(err)
	}
	return nil
}

func toHolidayResponse(h *model.Holiday) HolidayResponse {
	return HolidayResponse{
		ID:          h.ID.String(),
		Name:        h.Name,
		Date:        h.Date.Format(dateLayout),
		Description: h.Description,
	}
}
