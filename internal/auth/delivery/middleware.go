package delivery

import (
	"net/http"
	"strings"

	"shifttask-backend/internal/auth"

	"github.com/gin-gonic/gin"
)

// TokenValidator resolves a bearer token into the caller's identity
type TokenValidator interface {
	Validate(token string) (*auth.Identity, error)
}

// Context keys set by AuthMiddleware
const (
	KeyEmployeeID = "employeeID"
	KeyUserID     = "userID"
	KeyRole       = "role"
)

func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		identity, err := tokens.Validate(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(KeyEmployeeID, identity.EmployeeID)
		c.Set(KeyUserID, identity.UserID)
		c.Set(KeyRole, identity.Role)
		c.Next()
	}
}

// RequireManager rejects callers without the manager role. Use after AuthMiddleware.
func RequireManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(KeyRole) != auth.RoleManager {
			c.JSON(http.StatusForbidden, gin.H{"error": "manager role required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
