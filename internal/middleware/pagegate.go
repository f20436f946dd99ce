package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/college-cms-api/internal/models"
	"github.com/campusworks/college-cms-api/internal/service"
	appErrors "github.com/campusworks/college-cms-api/pkg/errors"
	"github.com/campusworks/college-cms-api/pkg/response"
)

// RequirePage gates mutating requests on a page slug: the caller must hold an
// effective grant whose allow-list covers the page (SuperAdmin covers all).
// Safe methods pass for any authenticated user so admins can read screens
// they cannot edit.
func RequirePage(permissions *service.PermissionService, slug string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := currentClaims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		if err := permissions.CanAccessPage(c.Request.Context(), claims.UserID, slug); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireRoleManager gates the grant-management endpoints. The detailed
// checks (escalation, visibility) live in the role service; this only rejects
// callers with no role-management authority at all.
func RequireRoleManager(permissions *service.PermissionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := currentClaims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, err := permissions.CanManageRoles(c.Request.Context(), claims.UserID); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Next()
	}
}

func currentClaims(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
