package handler

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	internalmiddleware "github.com/campusworks/college-cms-api/internal/middleware"
	"github.com/campusworks/college-cms-api/internal/models"
	"github.com/campusworks/college-cms-api/internal/service"
)

const (
	testSuperAdminID = "11111111-1111-4111-8111-111111111111"
	testModeratorID  = "22222222-2222-4222-8222-222222222222"
	testTargetID     = "33333333-3333-4333-8333-333333333333"
)

type grantStoreIntegrationMock struct {
	grants map[string]*models.AdminGrant
	audits []*models.AuditLog
}

func newGrantStoreIntegrationMock() *grantStoreIntegrationMock {
	return &grantStoreIntegrationMock{grants: make(map[string]*models.AdminGrant)}
}

func (m *grantStoreIntegrationMock) FindActiveByUserID(_ context.Context, userID string) (*models.AdminGrant, error) {
	for _, g := range m.grants {
		if g.UserID == userID && g.Status == models.GrantActive {
			copy := *g
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *grantStoreIntegrationMock) FindByID(_ context.Context, id string) (*models.AdminGrant, error) {
	g, ok := m.grants[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *g
	return &copy, nil
}

func (m *grantStoreIntegrationMock) List(_ context.Context, filter models.GrantFilter) ([]models.AdminGrant, int, error) {
	var out []models.AdminGrant
	for _, g := range m.grants {
		if !filter.IncludeRevoked && g.Status != models.GrantActive {
			continue
		}
		if filter.ExcludeLevel != nil && g.Level == *filter.ExcludeLevel {
			continue
		}
		out = append(out, *g)
	}
	return out, len(out), nil
}

func (m *grantStoreIntegrationMock) CreateWithAudit(_ context.Context, grant *models.AdminGrant, entry *models.AuditLog) error {
	copy := *grant
	m.grants[grant.ID] = &copy
	m.audits = append(m.audits, entry)
	return nil
}

func (m *grantStoreIntegrationMock) UpdateWithAudit(_ context.Context, grant *models.AdminGrant, entry *models.AuditLog) error {
	copy := *grant
	m.grants[grant.ID] = &copy
	m.audits = append(m.audits, entry)
	return nil
}

func (m *grantStoreIntegrationMock) RevokeWithAudit(_ context.Context, id string, entry *models.AuditLog) error {
	g, ok := m.grants[id]
	if !ok {
		return sql.ErrNoRows
	}
	g.Status = models.GrantRevoked
	m.audits = append(m.audits, entry)
	return nil
}

type userReaderIntegrationMock struct{}

func (userReaderIntegrationMock) FindByID(_ context.Context, id string) (*models.User, error) {
	return &models.User{ID: id, Email: id + "@college.edu", Role: models.RoleAdmin, Active: true}, nil
}

func seedGrant(store *grantStoreIntegrationMock, id, userID string, level models.RoleLevel, pages ...string) {
	store.grants[id] = &models.AdminGrant{
		ID:           id,
		UserID:       userID,
		Level:        level,
		AllowedPages: pages,
		GrantedAt:    time.Now().UTC(),
		Status:       models.GrantActive,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
}

func buildRolesRouter(store *grantStoreIntegrationMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if userID := c.GetHeader("X-Test-User"); userID != "" {
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
				UserID: userID,
				Role:   models.RoleAdmin,
			})
		}
		c.Next()
	})

	permissions := service.NewPermissionService(store, nil, nil, nil, 0)
	roles := service.NewRoleService(store, userReaderIntegrationMock{}, permissions, nil, nil, service.RolesConfig{DefaultLevel: models.LevelModerator})
	roleHandler := NewRoleHandler(roles, permissions)

	admin := router.Group("/admin")
	admin.GET("/roles", roleHandler.List)
	admin.POST("/roles", roleHandler.Upsert)
	admin.DELETE("/roles/:id", roleHandler.Revoke)
	admin.GET("/role-pages", roleHandler.AvailablePages)
	admin.GET("/my-permissions", roleHandler.MyPermissions)

	return router
}

func performRolesRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestRoleRoutesIntegration(t *testing.T) {
	store := newGrantStoreIntegrationMock()
	seedGrant(store, "grant-super", testSuperAdminID, models.LevelSuperAdmin)
	seedGrant(store, "grant-mod", testModeratorID, models.LevelModerator, "notices")
	router := buildRolesRouter(store)

	t.Run("anonymous rejected", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/admin/roles", nil)
		resp := performRolesRequest(router, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("moderator without roles page cannot grant", func(t *testing.T) {
		payload := fmt.Sprintf(`{"user_id":%q,"level":3,"allowed_pages":["notices"]}`, testTargetID)
		req, _ := http.NewRequest(http.MethodPost, "/admin/roles", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-User", testModeratorID)
		resp := performRolesRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("super admin grants a role", func(t *testing.T) {
		payload := fmt.Sprintf(`{"user_id":%q,"level":3,"allowed_pages":["notices","magazines"]}`, testTargetID)
		req, _ := http.NewRequest(http.MethodPost, "/admin/roles", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-User", testSuperAdminID)
		resp := performRolesRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"allowed_pages":["notices","magazines"]`)
	})

	t.Run("invalid payload rejected", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/admin/roles", bytes.NewBufferString(`{"user_id":"not-a-uuid"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-User", testSuperAdminID)
		resp := performRolesRequest(router, req)
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("super admin grant hidden from moderator list", func(t *testing.T) {
		store.grants["grant-mod"].AllowedPages = append(store.grants["grant-mod"].AllowedPages, models.PageRoles)
		req, _ := http.NewRequest(http.MethodGet, "/admin/roles", nil)
		req.Header.Set("X-Test-User", testModeratorID)
		resp := performRolesRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.NotContains(t, resp.Body.String(), `"grant-super"`)
	})

	t.Run("revoke keeps history", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodDelete, "/admin/roles/grant-mod", nil)
		req.Header.Set("X-Test-User", testSuperAdminID)
		resp := performRolesRequest(router, req)
		require.Equal(t, http.StatusNoContent, resp.Code)
		require.Equal(t, models.GrantRevoked, store.grants["grant-mod"].Status)
	})

	t.Run("my permissions resolves super admin catalog", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/admin/my-permissions", nil)
		req.Header.Set("X-Test-User", testSuperAdminID)
		resp := performRolesRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"is_super_admin":true`)
	})
}
