package middleware

import (
	"net/http"
	"strings"

	"backend/internal/auth"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// Authenticate validates the access token (Authorization: Bearer or the
// access_token cookie) and stores the resulting actor on the context.
func Authenticate(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			response.Error(c, http.StatusUnauthorized, "missing access token")
			c.Abort()
			return
		}

		claims, err := auth.ParseToken(tokenString, secret)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid or expired access token")
			c.Abort()
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid token subject")
			c.Abort()
			return
		}
		role, err := model.ParseRole(claims.Role)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid token role")
			c.Abort()
			return
		}

		c.Set(actorKey, service.Actor{
			ID:         userID,
			Role:       role,
			Department: claims.Department,
		})
		c.Next()
	}
}

// RequireRole rejects requests whose actor holds none of the given roles.
// Must run after Authenticate.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			response.Error(c, http.StatusUnauthorized, "authentication required")
			c.Abort()
			return
		}
		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		response.Error(c, http.StatusForbidden, "insufficient role for this operation")
		c.Abort()
	}
}

// CurrentActor returns the authenticated actor set by Authenticate.
func CurrentActor(c *gin.Context) (service.Actor, bool) {
	value, exists := c.Get(actorKey)
	if !exists {
		return service.Actor{}, false
	}
	actor, ok := value.(service.Actor)
	return actor, ok
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := c.Cookie("access_token"); err == nil {
		return cookie
	}
	return ""
}
