package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Identity headers are injected by the API gateway after it validates the
// session. This service never sees credentials.
const (
	UserContextKey = "userID"
	RoleContextKey = "userRole"
)

// Identity copies the gateway headers into the gin context. It never aborts;
// walk-in orders carry no user at all.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set(UserContextKey, userID)
		}
		if role := c.GetHeader("X-User-Role"); role != "" {
			c.Set(RoleContextKey, role)
		}
		c.Next()
	}
}

// RequireUser rejects requests that arrived without a user identity.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := GetUserID(c); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// StaffOnly restricts a group to baristas and admins.
func StaffOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetUserRole(c)
		if role != "staff" && role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Staff access required"})
			return
		}
		c.Next()
	}
}

// AdminOnly restricts a group to admins.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserRole(c) != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

// GetUserID returns the authenticated user's ID from the context.
func GetUserID(c *gin.Context) (string, error) {
	if val, ok := c.Get(UserContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id, nil
		}
	}
	return "", errors.New("user ID not found in context")
}

// GetUserRole returns the caller's role, empty for anonymous requests.
func GetUserRole(c *gin.Context) string {
	if val, ok := c.Get(RoleContextKey); ok {
		if role, ok := val.(string); ok {
			return role
		}
	}
	return ""
}
