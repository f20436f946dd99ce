package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusworks/college-cms-api/internal/models"
	appErrors "github.com/campusworks/college-cms-api/pkg/errors"
)

type mockGrantStore struct {
	grants     map[string]*models.AdminGrant
	audits     []*models.AuditLog
	lastFilter models.GrantFilter
}

func newMockGrantStore(grants ...*models.AdminGrant) *mockGrantStore {
	store := &mockGrantStore{grants: make(map[string]*models.AdminGrant)}
	for _, g := range grants {
		copy := *g
		store.grants[g.ID] = &copy
	}
	return store
}

func (m *mockGrantStore) FindActiveByUserID(ctx context.Context, userID string) (*models.AdminGrant, error) {
	for _, g := range m.grants {
		if g.UserID == userID && g.Status == models.GrantActive {
			copy := *g
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockGrantStore) FindByID(ctx context.Context, id string) (*models.AdminGrant, error) {
	if g, ok := m.grants[id]; ok {
		copy := *g
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGrantStore) List(ctx context.Context, filter models.GrantFilter) ([]models.AdminGrant, int, error) {
	m.lastFilter = filter
	var grants []models.AdminGrant
	for _, g := range m.grants {
		if filter.ExcludeLevel != nil && g.Level == *filter.ExcludeLevel {
			continue
		}
		if !filter.IncludeRevoked && g.Status != models.GrantActive {
			continue
		}
		grants = append(grants, *g)
	}
	return grants, len(grants), nil
}

func (m *mockGrantStore) CreateWithAudit(ctx context.Context, grant *models.AdminGrant, entry *models.AuditLog) error {
	copy := *grant
	m.grants[grant.ID] = &copy
	m.audits = append(m.audits, entry)
	return nil
}

func (m *mockGrantStore) UpdateWithAudit(ctx context.Context, grant *models.AdminGrant, entry *models.AuditLog) error {
	copy := *grant
	m.grants[grant.ID] = &copy
	m.audits = append(m.audits, entry)
	return nil
}

func (m *mockGrantStore) RevokeWithAudit(ctx context.Context, id string, entry *models.AuditLog) error {
	g, ok := m.grants[id]
	if !ok {
		return sql.ErrNoRows
	}
	g.Status = models.GrantRevoked
	m.audits = append(m.audits, entry)
	return nil
}

type mockUserReader struct {
	users map[string]*models.User
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

const (
	superID   = "11111111-1111-4111-8111-111111111111"
	managerID = "22222222-2222-4222-8222-222222222222"
	targetID  = "33333333-3333-4333-8333-333333333333"
)

func newRoleFixture(t *testing.T, grants ...*models.AdminGrant) (*RoleService, *mockGrantStore) {
	t.Helper()
	store := newMockGrantStore(grants...)
	users := &mockUserReader{users: map[string]*models.User{
		superID:   {ID: superID, Email: "super@college.edu", Active: true},
		managerID: {ID: managerID, Email: "manager@college.edu", Active: true},
		targetID:  {ID: targetID, Email: "target@college.edu", Active: true},
	}}
	permissions := newPermissionService(store, nil)
	svc := NewRoleService(store, users, permissions, validator.New(), zap.NewNop(), RolesConfig{DefaultLevel: models.LevelAdmin})
	return svc, store
}

func TestUpsertCreatesGrantWithAudit(t *testing.T) {
	svc, store := newRoleFixture(t, activeGrant(superID, models.LevelSuperAdmin))

	grant, err := svc.Upsert(context.Background(), superID, UpsertGrantRequest{
		UserID:       targetID,
		Level:        int(models.LevelModerator),
		AllowedPages: []string{"notices"},
	}, models.RequestMeta{IP: "10.0.0.1"})
	require.NoError(t, err)

	assert.Equal(t, models.LevelModerator, grant.Level)
	assert.Equal(t, models.GrantActive, grant.Status)
	require.Len(t, store.audits, 1)
	assert.Equal(t, models.AuditActionGrantRole, store.audits[0].Action)
	assert.Equal(t, "10.0.0.1", store.audits[0].IPAddress)
	require.NotNil(t, store.audits[0].ActorID)
	assert.Equal(t, superID, *store.audits[0].ActorID)
}

func TestUpsertReshapesExistingGrant(t *testing.T) {
	existing := activeGrant(targetID, models.LevelModerator, "notices")
	svc, store := newRoleFixture(t, activeGrant(superID, models.LevelSuperAdmin), existing)

	grant, err := svc.Upsert(context.Background(), superID, UpsertGrantRequest{
		UserID:       targetID,
		Level:        int(models.LevelAdmin),
		AllowedPages: []string{"notices", "magazines"},
	}, models.RequestMeta{})
	require.NoError(t, err)

	assert.Equal(t, existing.ID, grant.ID)
	assert.Equal(t, models.LevelAdmin, grant.Level)
	require.Len(t, store.audits, 1)
	assert.Equal(t, models.AuditActionUpdateRole, store.audits[0].Action)
	assert.NotEmpty(t, store.audits[0].OldValues)
	assert.NotEmpty(t, store.audits[0].NewValues)
}

func TestUpsertDefaultsLevel(t *testing.T) {
	svc, _ := newRoleFixture(t, activeGrant(superID, models.LevelSuperAdmin))

	grant, err := svc.Upsert(context.Background(), superID, UpsertGrantRequest{
		UserID:       targetID,
		AllowedPages: []string{"notices"},
	}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.LevelAdmin, grant.Level)
}

func TestUpsertEscalationForbidden(t *testing.T) {
	svc, store := newRoleFixture(t, activeGrant(managerID, models.LevelAdmin, models.PageRoles))

	_, err := svc.Upsert(context.Background(), managerID, UpsertGrantRequest{
		UserID: targetID,
		Level:  int(models.LevelSuperAdmin),
	}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	// Rejected attempts leave no trace.
	assert.Empty(t, store.audits)
}

func TestUpsertCannotTouchSuperAdminGrant(t *testing.T) {
	svc, _ := newRoleFixture(t,
		activeGrant(managerID, models.LevelAdmin, models.PageRoles),
		activeGrant(targetID, models.LevelSuperAdmin))

	_, err := svc.Upsert(context.Background(), managerID, UpsertGrantRequest{
		UserID: targetID,
		Level:  int(models.LevelModerator),
	}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUpsertRejectsUnknownPage(t *testing.T) {
	svc, _ := newRoleFixture(t, activeGrant(superID, models.LevelSuperAdmin))

	_, err := svc.Upsert(context.Background(), superID, UpsertGrantRequest{
		UserID:       targetID,
		AllowedPages: []string{"not-a-page"},
	}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpsertRejectsPastExpiry(t *testing.T) {
	svc, _ := newRoleFixture(t, activeGrant(superID, models.LevelSuperAdmin))

	past := time.Now().UTC().Add(-time.Hour)
	_, err := svc.Upsert(context.Background(), superID, UpsertGrantRequest{
		UserID:    targetID,
		ExpiresAt: &past,
	}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpsertWithoutRolesPageForbidden(t *testing.T) {
	svc, _ := newRoleFixture(t, activeGrant(managerID, models.LevelAdmin, "notices"))

	_, err := svc.Upsert(context.Background(), managerID, UpsertGrantRequest{UserID: targetID}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestRevokeKeepsRow(t *testing.T) {
	target := activeGrant(targetID, models.LevelModerator, "notices")
	svc, store := newRoleFixture(t, activeGrant(superID, models.LevelSuperAdmin), target)

	require.NoError(t, svc.Revoke(context.Background(), superID, target.ID, models.RequestMeta{}))

	revoked := store.grants[target.ID]
	require.NotNil(t, revoked)
	assert.Equal(t, models.GrantRevoked, revoked.Status)
	require.Len(t, store.audits, 1)
	assert.Equal(t, models.AuditActionRevokeRole, store.audits[0].Action)
}

func TestRevokeAlreadyRevokedConflict(t *testing.T) {
	target := activeGrant(targetID, models.LevelModerator)
	target.Status = models.GrantRevoked
	svc, _ := newRoleFixture(t, activeGrant(superID, models.LevelSuperAdmin), target)

	err := svc.Revoke(context.Background(), superID, target.ID, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRevokeSuperAdminGrantHiddenFromLowerActor(t *testing.T) {
	super := activeGrant(targetID, models.LevelSuperAdmin)
	svc, _ := newRoleFixture(t, activeGrant(managerID, models.LevelAdmin, models.PageRoles), super)

	err := svc.Revoke(context.Background(), managerID, super.ID, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestListHidesSuperAdminGrantsFromLowerActor(t *testing.T) {
	svc, store := newRoleFixture(t,
		activeGrant(managerID, models.LevelAdmin, models.PageRoles),
		activeGrant(targetID, models.LevelSuperAdmin))

	grants, _, err := svc.List(context.Background(), managerID, models.GrantFilter{})
	require.NoError(t, err)
	require.NotNil(t, store.lastFilter.ExcludeLevel)
	assert.Equal(t, models.LevelSuperAdmin, *store.lastFilter.ExcludeLevel)
	for _, g := range grants {
		assert.NotEqual(t, models.LevelSuperAdmin, g.Level)
	}
}

func TestGetHidesSuperAdminGrantFromLowerActor(t *testing.T) {
	super := activeGrant(targetID, models.LevelSuperAdmin)
	svc, _ := newRoleFixture(t, activeGrant(managerID, models.LevelAdmin, models.PageRoles), super)

	_, err := svc.Get(context.Background(), managerID, super.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAvailablePagesRequiresRoleManagement(t *testing.T) {
	svc, _ := newRoleFixture(t, activeGrant(managerID, models.LevelAdmin, "notices"))

	_, err := svc.AvailablePages(context.Background(), managerID)
	require.Error(t, err)

	svc, _ = newRoleFixture(t, activeGrant(superID, models.LevelSuperAdmin))
	pages, err := svc.AvailablePages(context.Background(), superID)
	require.NoError(t, err)
	assert.Equal(t, models.AvailablePages(), pages)
}
