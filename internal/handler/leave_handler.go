package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type LeaveHandler struct {
	leaveService service.LeaveService
	jwtSecret    []byte
}

func NewLeaveHandler(leaveService service.LeaveService, jwtSecret []byte) *LeaveHandler {
	return &LeaveHandler{leaveService: leaveService, jwtSecret: jwtSecret}
}

func (h *LeaveHandler) RegisterRoutes(router *gin.RouterGroup) {
	leaves := router.Group("/leaves", middleware.Authenticate(h.jwtSecret))
	{
		leaves.POST("", h.Submit)
		leaves.GET("/my", h.MyLeaves)
		leaves.DELETE("/:id", h.Cancel)

		leaves.GET("/pending", middleware.RequireRole(model.RoleManager, model.RoleAdmin), h.Pending)
		leaves.GET("", middleware.RequireRole(model.RoleManager, model.RoleAdmin), h.List)
		leaves.GET("/stats", middleware.RequireRole(model.RoleManager, model.RoleAdmin), h.Stats)
		leaves.PUT("/:id/review", middleware.RequireRole(model.RoleManager, model.RoleAdmin), h.Review)
		leaves.PUT("/bulk-review", middleware.RequireRole(model.RoleManager, model.RoleAdmin), h.BulkReview)
	}
}

// Submit files a leave request
// @Summary      Submit a leave request
// @Description  Validates dates against holidays and weekends, rejects overlapping requests and flags department conflicts
// @Tags         leaves
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.SubmitLeaveRequest  true  "Leave request"
// @Success      201      {object}  response.Response{data=service.SubmitLeaveResult}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /leaves [post]
func (h *LeaveHandler) Submit(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req service.SubmitLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	result, err := h.leaveService.Submit(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

// MyLeaves returns the caller's own leave requests
func (h *LeaveHandler) MyLeaves(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	leaves, err := h.leaveService.MyLeaves(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, leaves)
}

// Pending returns leaves awaiting the caller's review, department-scoped for managers
func (h *LeaveHandler) Pending(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	leaves, err := h.leaveService.Pending(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, leaves)
}

// List returns leave requests with status/type filters, paginated
func (h *LeaveHandler) List(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	params := pagination.Parse(c)
	filter := service.LeaveListFilter{
		Status:    c.Query("status"),
		LeaveType: c.Query("leave_type"),
		Page:      params.Page,
		Limit:     params.Limit,
	}

	leaves, total, err := h.leaveService.All(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Paged(c, http.StatusOK, leaves, params.Page, params.Limit, total)
}

// Review approves or rejects a single leave request
// @Summary      Review a leave request
// @Description  Managers move Pending to PendingHR, admins give final approval; either may reject
// @Tags         leaves
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true  "Leave ID"
// @Param        payload  body      service.ReviewLeaveRequest  true  "Review decision"
// @Success      200      {object}  response.Response{data=service.LeaveResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /leaves/{id}/review [put]
func (h *LeaveHandler) Review(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req service.ReviewLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	leave, err := h.leaveService.Review(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, leave)
}

// BulkReview applies one decision to many leave requests, reporting per-id outcomes
func (h *LeaveHandler) BulkReview(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req service.BulkReviewLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	result, err := h.leaveService.BulkReview(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// Cancel withdraws the caller's own pending leave request
func (h *LeaveHandler) Cancel(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	if err := h.leaveService.Cancel(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "leave request cancelled"})
}

// Stats returns counts grouped by status and leave type
func (h *LeaveHandler) Stats(c *gin.Context) {
	stats, err := h.leaveService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}
