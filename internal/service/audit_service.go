package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"backend/internal/apperror"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type AuditEntryResponse struct {
	ID         string `json:"id"`
	ActorID    string `json:"actor_id,omitempty"`
	ActorName  string `json:"actor_name,omitempty"`
	Action     string `json:"action"`
	TargetID   string `json:"target_id"`
	TargetType string `json:"target_type"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

// AuditService exposes the read side of the audit trail. Writes happen only
// through AuditRepository.Record inside the mutating services' transactions.
type AuditService interface {
	Recent(ctx context.Context, actor Actor, page, limit int, search string) ([]AuditEntryResponse, int64, error)
	Export(ctx context.Context, actor Actor, search string) ([]byte, error)
}

type auditService struct {
	audit  repository.AuditRepository
	logger *zap.Logger
}

func NewAuditService(audit repository.AuditRepository, logger *zap.Logger) AuditService {
	return &auditService{
		audit:  audit,
		logger: logger.Named("audit.service"),
	}
}

func (s *auditService) Recent(ctx context.Context, actor Actor, page, limit int, search string) ([]AuditEntryResponse, int64, error) {
	if actor.Role != model.RoleAdmin {
		return nil, 0, apperror.Forbidden("only admins may read the audit trail")
	}
	logs, total, err := s.audit.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, apperror.Internal(err)
	}

	out := make([]AuditEntryResponse, 0, len(logs))
	for i := range logs {
		out = append(out, toAuditResponse(&logs[i]))
	}
	return out, total, nil
}

// exportPageSize bounds one spreadsheet export.
const exportPageSize = 10000

// Export writes matching entries to an xlsx workbook, newest first.
func (s *auditService) Export(ctx context.Context, actor Actor, search string) ([]byte, error) {
	if actor.Role != model.RoleAdmin {
		return nil, apperror.Forbidden("only admins may read the audit trail")
	}
	logs, _, err := s.audit.List(ctx, 1, exportPageSize, search)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Audit Trail"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Time", "Actor", "Action", "Target Type", "Target ID", "Details"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, apperror.Internal(err)
		}
	}

	for row, entry := range logs {
		actorName := "system"
		if entry.Actor != nil {
			actorName = entry.Actor.Name
		} else if entry.ActorID != nil {
			actorName = entry.ActorID.String()
		}
		values := []interface{}{
			entry.CreatedAt.Format(time.RFC3339),
			actorName,
			entry.Action,
			entry.TargetType,
			entry.TargetID,
			entry.Details,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, apperror.Internal(err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, apperror.Internal(err)
	}

	s.logger.Info("audit trail exported",
		zap.String("actor_id", actor.ID.String()),
		zap.Int("entries", len(logs)),
	)
	return buf.Bytes(), nil
}

func toAuditResponse(entry *model.AuditLog) AuditEntryResponse {
	resp := AuditEntryResponse{
		ID:         entry.ID.String(),
		Action:     entry.Action,
		TargetID:   entry.TargetID,
		TargetType: entry.TargetType,
		Details:    entry.Details,
		CreatedAt:  entry.CreatedAt.Format(time.RFC3339),
	}
	if entry.ActorID != nil {
		resp.ActorID = entry.ActorID.String()
	}
	if entry.Actor != nil {
		resp.ActorName = fmt.Sprintf("%s <%s>", entry.Actor.Name, entry.Actor.Email)
	}
	return resp
}
