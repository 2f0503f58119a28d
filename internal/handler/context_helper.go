package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/landmark-academy/school-portal-api/internal/authz"
	"github.com/landmark-academy/school-portal-api/internal/middleware"
	"github.com/landmark-academy/school-portal-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func principalFromContext(c *gin.Context) (authz.Principal, *models.JWTClaims) {
	claims := claimsFromContext(c)
	return authz.FromClaims(claims), claims
}
