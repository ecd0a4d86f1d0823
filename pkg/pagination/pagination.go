// Package pagination parses the page/limit query parameters shared by the
// directory, leave, claim and audit listings.
package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 25
	// MaxLimit caps a single page. The audit trail has a dedicated export
	// endpoint for anything larger.
	MaxLimit = 200
)

// Params holds validated pagination parameters.
type Params struct {
	Page  int
	Limit int
}

// Offset is the row offset corresponding to Page and Limit.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Parse reads page and limit from the query string. Anything missing,
// unparsable or out of range falls back to the defaults rather than erroring:
// a bad pagination value should never fail a list request.
func Parse(c *gin.Context) Params {
	params := Params{Page: DefaultPage, Limit: DefaultLimit}

	if page, err := strconv.Atoi(c.Query("page")); err == nil && page >= 1 {
		params.Page = page
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit >= 1 {
		params.Limit = limit
	}
	if params.Limit > MaxLimit {
		params.Limit = MaxLimit
	}
	return params
}
