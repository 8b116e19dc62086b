package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/mindwell-health/mindwell-api/internal/models"
	appErrors "github.com/mindwell-health/mindwell-api/pkg/errors"
	"github.com/mindwell-health/mindwell-api/pkg/response"
)

// Self is the RBAC pseudo-role granting access when the route's id/userId
// path parameter matches the authenticated user.
const Self = "SELF"

// RBAC enforces role-based access control for routes.
func RBAC(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		allowSelf := false
		allowedRoles := make(map[models.UserRole]struct{})

		for _, a := range allowed {
			if a == Self {
				allowSelf = true
				continue
			}
			allowedRoles[models.UserRole(a)] = struct{}{}
		}

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}

		if allowSelf && selfParamMatches(c, claims.UserID) {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}

// Therapist accounts share their ID with the therapist record, so
// therapistId params participate in the self check too.
func selfParamMatches(c *gin.Context, userID string) bool {
	for _, param := range []string{"id", "userId", "therapistId"} {
		if target := c.Param(param); target != "" {
			return target == userID
		}
	}
	return false
}
