package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gourmetmarketplace/backend/services/common/auth"
	apperrors "github.com/gourmetmarketplace/backend/services/common/errors"
	commonmw "github.com/gourmetmarketplace/backend/services/common/middleware"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
)

// AccessTokenCookie carries the admin session when no Authorization header is sent.
const AccessTokenCookie = "accessToken"

// Context keys set by RequireAuth.
const (
	ContextUserID   = "user_id"
	ContextUsername = commonmw.ActorKey
	ContextRole     = "role"
)

// TokenVerifier decodes access tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

var _ TokenVerifier = (*auth.TokenManager)(nil)

// RequireAuth accepts a Bearer token or the accessToken cookie and stores the
// claims on the context.
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFrom(c)
		if token == "" {
			c.Abort()
			_ = c.Error(apperrors.Unauthorized("Unauthorized request"))
			return
		}
		claims, err := verifier.Verify(token)
		if err != nil {
			c.Abort()
			_ = c.Error(apperrors.Unauthorized("Invalid or expired token"))
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// AdminOnly must run after RequireAuth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRole) != models.RoleAdmin {
			c.Abort()
			_ = c.Error(apperrors.Forbidden("Admin access required"))
			return
		}
		c.Next()
	}
}

func tokenFrom(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
		return cookie
	}
	return ""
}
