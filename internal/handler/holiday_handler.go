package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type HolidayHandler struct {
	holidayService service.HolidayService
	jwtSecret      []byte
}

func NewHolidayHandler(holidayService service.HolidayService, jwtSecret []byte) *HolidayHandler {
	return &HolidayHandler{holidayService: holidayService, jwtSecret: jwtSecret}
}

func (h *HolidayHandler) RegisterRoutes(router *gin.RouterGroup) {
	holidays := router.Group("/holidays", middleware.Authenticate(h.jwtSecret))
	{
		holidays.GET("", h.List)
		holidays.POST("", middleware.RequireRole(model.RoleAdmin), h.Add)
		holidays.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), h.Delete)
	}
}

// List returns all registered holidays, ordered by date
func (h *HolidayHandler) List(c *gin.Context) {
	holidays, err := h.holidayService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, holidays)
}

// Add registers a public holiday
// @Summary      Add a holiday
// @Tags         holidays
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.AddHolidayRequest  true  "Holiday"
// @Success      201      {object}  response.Response{data=service.HolidayResponse}
// @Failure      409      {object}  response.Response
// @Router       /holidays [post]
func (h *HolidayHandler) Add(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req service.AddHolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	holiday, err := h.holidayService.Add(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, holiday)
}

// Delete removes a holiday from the registry
func (h *HolidayHandler) Delete(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	if err := h.holidayService.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "holiday deleted"})
}
