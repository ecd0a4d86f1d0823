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

type ReimbursementHandler struct {
	reimbursementService service.ReimbursementService
	jwtSecret            []byte
}

func NewReimbursementHandler(reimbursementService service.ReimbursementService, jwtSecret []byte) *ReimbursementHandler {
	return &ReimbursementHandler{reimbursementService: reimbursementService, jwtSecret: jwtSecret}
}

func (h *ReimbursementHandler) RegisterRoutes(router *gin.RouterGroup) {
	claims := router.Group("/reimbursements", middleware.Authenticate(h.jwtSecret))
	{
		claims.POST("", h.Submit)
		claims.PUT("/:id", h.UpdateDraft)
		claims.GET("/my", h.MyClaims)

		reviewers := claims.Group("", middleware.RequireRole(model.RoleManager, model.RoleFinance, model.RoleAdmin))
		reviewers.GET("/pending", h.Pending)
		reviewers.GET("", h.List)
		reviewers.PUT("/:id/review", h.Review)
	}
}

// Submit creates a reimbursement claim, as a draft or directly submitted
// @Summary      Create a reimbursement claim
// @Tags         reimbursements
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.SubmitReimbursementRequest  true  "Claim payload"
// @Success      201      {object}  response.Response{data=service.ReimbursementResponse}
// @Failure      400      {object}  response.Response
// @Router       /reimbursements [post]
func (h *ReimbursementHandler) Submit(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req service.SubmitReimbursementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	claim, err := h.reimbursementService.Submit(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, claim)
}

// UpdateDraft edits a draft claim, optionally submitting it for review
func (h *ReimbursementHandler) UpdateDraft(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req service.UpdateReimbursementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	claim, err := h.reimbursementService.UpdateDraft(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, claim)
}

// MyClaims returns the caller's own claims
func (h *ReimbursementHandler) MyClaims(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	claims, err := h.reimbursementService.MyClaims(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, claims)
}

// Pending returns claims awaiting the caller's stage
func (h *ReimbursementHandler) Pending(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	claims, err := h.reimbursementService.Pending(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, claims)
}

// List returns all claims, paginated
func (h *ReimbursementHandler) List(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	params := pagination.Parse(c)

	claims, total, err := h.reimbursementService.All(c.Request.Context(), actor, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Paged(c, http.StatusOK, claims, params.Page, params.Limit, total)
}

// Review records the caller's stage decision on a claim
// @Summary      Review a reimbursement claim
// @Description  Managers decide PendingManager, finance decides PendingFinance, admins decide whichever stage is current
// @Tags         reimbursements
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                              true  "Claim ID"
// @Param        payload  body      service.ReviewReimbursementRequest  true  "Review decision"
// @Success      200      {object}  response.Response{data=service.ReimbursementResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /reimbursements/{id}/review [put]
func (h *ReimbursementHandler) Review(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req service.ReviewReimbursementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	claim, err := h.reimbursementService.Review(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, claim)
}
