package handler

import (
	"net/http"
	"time"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// AccrualHandler exposes the balance jobs for manual triggering. In
// production a scheduler calls the same service methods; both paths are
// idempotent per period.
type AccrualHandler struct {
	accrualService service.AccrualService
	jwtSecret      []byte
}

func NewAccrualHandler(accrualService service.AccrualService, jwtSecret []byte) *AccrualHandler {
	return &AccrualHandler{accrualService: accrualService, jwtSecret: jwtSecret}
}

func (h *AccrualHandler) RegisterRoutes(router *gin.RouterGroup) {
	accruals := router.Group("/accrual",
		middleware.Authenticate(h.jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	{
		accruals.POST("/monthly", h.RunMonthly)
		accruals.POST("/carry-forward", h.RunCarryForward)
		accruals.GET("/burnout", h.Burnout)
	}
}

// RunMonthly credits the monthly earned-leave accrual for the current period
func (h *AccrualHandler) RunMonthly(c *gin.Context) {
	result, err := h.accrualService.MonthlyAccrual(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// RunCarryForward applies the year-end balance reset for the current year
func (h *AccrualHandler) RunCarryForward(c *gin.Context) {
	result, err := h.accrualService.YearEndCarryForward(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// Burnout lists employees with no approved leave in the last six months
func (h *AccrualHandler) Burnout(c *gin.Context) {
	candidates, err := h.accrualService.BurnoutScan(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, candidates)
}
