package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/baobab-labs/school-portal-api/internal/middleware"
	"github.com/baobab-labs/school-portal-api/internal/models"
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

// actorFromContext builds the session actor handed to workflow
// authorization checks. Returns the zero Actor when unauthenticated.
func actorFromContext(c *gin.Context) models.Actor {
	return models.ActorFromClaims(claimsFromContext(c))
}
