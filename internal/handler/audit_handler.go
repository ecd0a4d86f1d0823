package handler

import (
	"fmt"
	"net/http"
	"time"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AuditHandler struct {
	auditService service.AuditService
	jwtSecret    []byte
}

func NewAuditHandler(auditService service.AuditService, jwtSecret []byte) *AuditHandler {
	return &AuditHandler{auditService: auditService, jwtSecret: jwtSecret}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	audit := router.Group("/audit-logs",
		middleware.Authenticate(h.jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	{
		audit.GET("", h.Recent)
		audit.GET("/export", h.Export)
	}
}

// Recent returns audit entries, newest first, optionally filtered by search
// @Summary      List audit entries
// @Tags         audit
// @Produce      json
// @Security     BearerAuth
// @Param        page    query     int     false  "Page"
// @Param        limit   query     int     false  "Page size"
// @Param        search  query     string  false  "Match against action, details, target and actor"
// @Success      200     {object}  response.Response{data=[]service.AuditEntryResponse}
// @Router       /audit-logs [get]
func (h *AuditHandler) Recent(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	params := pagination.Parse(c)

	entries, total, err := h.auditService.Recent(c.Request.Context(), actor, params.Page, params.Limit, c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Paged(c, http.StatusOK, entries, params.Page, params.Limit, total)
}

// Export streams the audit trail as an xlsx workbook
func (h *AuditHandler) Export(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	data, err := h.auditService.Export(c.Request.Context(), actor, c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("audit-trail-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
