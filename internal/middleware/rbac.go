package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/landmark-academy/school-portal-api/internal/authz"
	"github.com/landmark-academy/school-portal-api/internal/models"
	appErrors "github.com/landmark-academy/school-portal-api/pkg/errors"
	"github.com/landmark-academy/school-portal-api/pkg/response"
)

// RequirePositions admits only the listed positions. Finer-grained checks,
// section scoping in particular, live in the service layer where the target
// resource is known.
func RequirePositions(positions ...models.UserPosition) gin.HandlerFunc {
	allowed := make(map[models.UserPosition]struct{}, len(positions))
	for _, p := range positions {
		allowed[p] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if _, ok := allowed[claims.Position]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequirePermission admits callers holding the permission for any section.
// Routes using it still pass the concrete target section to the service.
func RequirePermission(permission authz.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)
		principal := authz.FromClaims(claims)

		primary := models.SectionPrimary
		secondary := models.SectionSecondary
		if authz.HasPermission(principal, permission, nil) ||
			authz.HasPermission(principal, permission, &primary) ||
			authz.HasPermission(principal, permission, &secondary) {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
