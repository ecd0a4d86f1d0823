package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func parseQuery(t *testing.T, query string) Params {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return Parse(c)
}

func TestParse(t *testing.T) {
	t.Run("defaults when absent", func(t *testing.T) {
		params := parseQuery(t, "")
		assert.Equal(t, DefaultPage, params.Page)
		assert.Equal(t, DefaultLimit, params.Limit)
		assert.Equal(t, 0, params.Offset())
	})

	t.Run("valid values pass through", func(t *testing.T) {
		params := parseQuery(t, "page=3&limit=50")
		assert.Equal(t, 3, params.Page)
		assert.Equal(t, 50, params.Limit)
		assert.Equal(t, 100, params.Offset())
	})

	t.Run("garbage and out-of-range fall back", func(t *testing.T) {
		params := parseQuery(t, "page=abc&limit=-5")
		assert.Equal(t, DefaultPage, params.Page)
		assert.Equal(t, DefaultLimit, params.Limit)
	})

	t.Run("limit is capped", func(t *testing.T) {
		params := parseQuery(t, "limit=5000")
		assert.Equal(t, MaxLimit, params.Limit)
	})
}
