package response

import "github.com/gin-gonic/gin"

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Code       string      `json:"code,omitempty"` // machine-readable error code
	Meta       *PageMeta   `json:"meta,omitempty"`
}

// PageMeta carries pagination info for list responses
type PageMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// Success writes a standard success response wrapping the data
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	})
}

// Paged writes a success response with pagination metadata
func Paged(c *gin.Context, statusCode int, data interface{}, page, limit int, total int64) {
	c.JSON(statusCode, Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
		Meta:       &PageMeta{Page: page, Limit: limit, Total: total},
	})
}

// Error writes a standard error response wrapping the error message
func Error(c *gin.Context, statusCode int, err string) {
	c.JSON(statusCode, Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	})
}

// ErrorWithCode writes an error response carrying a machine-readable code
func ErrorWithCode(c *gin.Context, statusCode int, code, err string) {
	c.JSON(statusCode, Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
		Code:       code,
	})
}
