package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/college-cms-api/internal/models"
	"github.com/campusworks/college-cms-api/internal/service"
)

type stubGrants struct {
	grant *models.AdminGrant
}

func (s *stubGrants) FindActiveByUserID(ctx context.Context, userID string) (*models.AdminGrant, error) {
	if s.grant != nil && s.grant.UserID == userID {
		return s.grant, nil
	}
	return nil, sql.ErrNoRows
}

func pageGateRouter(grant *models.AdminGrant, slug string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	permissions := service.NewPermissionService(&stubGrants{grant: grant}, nil, nil, nil, time.Minute)

	router := gin.New()
	group := router.Group("/", func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "u1"})
		c.Next()
	}, RequirePage(permissions, slug))
	group.GET("/items", func(c *gin.Context) { c.Status(http.StatusOK) })
	group.POST("/items", func(c *gin.Context) { c.Status(http.StatusCreated) })
	return router
}

func TestRequirePageAllowsSafeMethods(t *testing.T) {
	router := pageGateRouter(nil, "notices")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/items", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRequirePageBlocksWritesWithoutGrant(t *testing.T) {
	router := pageGateRouter(nil, "notices")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/items", nil))
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRequirePageAllowsGrantedWrites(t *testing.T) {
	grant := &models.AdminGrant{
		UserID:       "u1",
		Level:        models.LevelModerator,
		AllowedPages: []string{"notices"},
		Status:       models.GrantActive,
	}
	router := pageGateRouter(grant, "notices")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/items", nil))
	if recorder.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func roleGateRouter(grant *models.AdminGrant) *gin.Engine {
	gin.SetMode(gin.TestMode)
	permissions := service.NewPermissionService(&stubGrants{grant: grant}, nil, nil, nil, time.Minute)

	router := gin.New()
	group := router.Group("/", func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "u1"})
		c.Next()
	}, RequireRoleManager(permissions))
	group.GET("/grants", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestRequireRoleManagerBlocksNonManagers(t *testing.T) {
	grant := &models.AdminGrant{
		UserID:       "u1",
		Level:        models.LevelModerator,
		AllowedPages: []string{"notices"},
		Status:       models.GrantActive,
	}
	router := roleGateRouter(grant)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/grants", nil))
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRequireRoleManagerAllowsRolesPage(t *testing.T) {
	grant := &models.AdminGrant{
		UserID:       "u1",
		Level:        models.LevelModerator,
		AllowedPages: []string{models.PageRoles},
		Status:       models.GrantActive,
	}
	router := roleGateRouter(grant)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/grants", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRequirePageRejectsAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	permissions := service.NewPermissionService(&stubGrants{}, nil, nil, nil, time.Minute)

	router := gin.New()
	router.POST("/items", RequirePage(permissions, "notices"), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/items", nil))
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}
