package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/baobab-labs/school-portal-api/internal/models"
)

func rbacContext(t *testing.T, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/protected", nil)
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}
	return c, rec
}

func TestRBACRejectsAnonymous(t *testing.T) {
	c, rec := rbacContext(t, nil)

	RequireRoles(models.RoleAdmin)(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRBACAllowsMatchingRole(t *testing.T) {
	c, _ := rbacContext(t, &models.JWTClaims{UserID: "u-1", Role: models.RoleTeacher})

	RequireRoles(models.RoleAdmin, models.RoleTeacher)(c)

	assert.False(t, c.IsAborted())
}

func TestRBACRejectsWrongRole(t *testing.T) {
	c, rec := rbacContext(t, &models.JWTClaims{UserID: "u-1", Role: models.RoleStudent})

	RequireRoles(models.RoleAdmin)(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
