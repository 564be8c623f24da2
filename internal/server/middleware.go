package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskhub/internal/models"
)

const userContextKey = "taskhub.user"

// currentUser returns the authenticated account stored by requireAuth.
func currentUser(c *gin.Context) models.User {
	u, _ := c.Get(userContextKey)
	user, _ := u.(models.User)
	return user
}

// requireAuth validates the bearer token on every request. Missing, unknown
// and expired tokens all produce the same 401 envelope; clients react by
// purging their stored token and returning to login.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		user, err := s.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"success": false, "message": "session expired"})
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

// requireRole restricts a route to the given roles. Must run after
// requireAuth.
func (s *Server) requireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden,
			gin.H{"success": false, "message": "insufficient permissions"})
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
