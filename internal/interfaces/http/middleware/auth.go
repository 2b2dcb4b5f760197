// internal/interfaces/http/middleware/auth.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
)

// Context keys set by the auth middleware
const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextIsAdmin   = "is_admin"
)

// AuthMiddleware requires a valid bearer token
func AuthMiddleware(jwtManager *auth.JWTManager, admins auth.AdminSet) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			return
		}

		if !authenticate(c, authHeader, jwtManager, admins) {
			return
		}
		c.Next()
	}
}

// OptionalAuthMiddleware lets requests without an Authorization header through
// as guests. A header that is sent must carry a valid token: a stale session
// gets 401 so the client can refresh instead of silently acting as a guest.
func OptionalAuthMiddleware(jwtManager *auth.JWTManager, admins auth.AdminSet) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		if !authenticate(c, authHeader, jwtManager, admins) {
			return
		}
		c.Next()
	}
}

// authenticate validates the bearer token and records the caller's identity.
// On failure it aborts with 401 and returns false.
func authenticate(c *gin.Context, authHeader string, jwtManager *auth.JWTManager, admins auth.AdminSet) bool {
	tokenString := auth.ExtractTokenFromHeader(authHeader)
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid authorization header format",
		})
		return false
	}

	claims, err := jwtManager.ValidateAccessToken(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid or expired token",
		})
		return false
	}

	setIdentity(c, claims, admins)
	return true
}

// AdminMiddleware ensures the user is an admin
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetUserID(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			return
		}

		if !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Admin access required",
			})
			return
		}

		c.Next()
	}
}

func setIdentity(c *gin.Context, claims *auth.Claims, admins auth.AdminSet) {
	c.Set(ContextUserID, claims.UserID())
	c.Set(ContextUserEmail, claims.Email)
	c.Set(ContextIsAdmin, admins.Contains(claims.Email))
}

// GetUserID returns the authenticated user id
func GetUserID(c *gin.Context) (string, bool) {
	id := c.GetString(ContextUserID)
	return id, id != ""
}

// GetUserEmail returns the authenticated user's email
func GetUserEmail(c *gin.Context) string {
	return c.GetString(ContextUserEmail)
}

// IsAdmin reports whether the caller is on the admin allow-list
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(ContextIsAdmin)
}
