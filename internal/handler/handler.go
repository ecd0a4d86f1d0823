package handler

import (
	"net/http"

	"backend/internal/apperror"
	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError maps a service error onto the wire format. Every service
// failure is an *AppError (or gets wrapped as internal here).
func respondError(c *gin.Context, err error) {
	appErr := apperror.From(err)
	response.ErrorWithCode(c, appErr.HTTPStatus, appErr.Code, appErr.Message)
}

// mustActor fetches the authenticated actor; the auth middleware guarantees
// it is present on protected routes.
func mustActor(c *gin.Context) (service.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "authentication required")
	}
	return actor, ok
}
