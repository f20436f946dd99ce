package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusworks/college-cms-api/internal/models"
	appErrors "github.com/campusworks/college-cms-api/pkg/errors"
)

type mockAuditRepo struct {
	entries    []*models.AuditLog
	createErr  error
	listResult []models.AuditLog
	lastLimit  int
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *models.AuditLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) Recent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	m.lastLimit = limit
	return m.listResult, nil
}

func (m *mockAuditRepo) ForActor(ctx context.Context, actorID string, limit int) ([]models.AuditLog, error) {
	m.lastLimit = limit
	var out []models.AuditLog
	for _, e := range m.listResult {
		if e.ActorID != nil && *e.ActorID == actorID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockAuditRepo) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	m.lastLimit = filter.Limit
	return m.listResult, nil
}

func newActivityFixture(repo *mockAuditRepo) *ActivityService {
	return NewActivityService(repo, zap.NewNop(), ActivityConfig{RecentLimit: 50, ExportLimit: 500})
}

func TestRecordIsBestEffort(t *testing.T) {
	repo := &mockAuditRepo{createErr: assert.AnError}
	svc := newActivityFixture(repo)

	// Must not panic or surface the failure.
	svc.Record(context.Background(), &models.AuditLog{Action: models.AuditActionLogin, Resource: "auth"})
	assert.Empty(t, repo.entries)

	repo.createErr = nil
	svc.Record(context.Background(), &models.AuditLog{Action: models.AuditActionLogin, Resource: "auth"})
	assert.Len(t, repo.entries, 1)
}

func TestRecentCapsLimit(t *testing.T) {
	repo := &mockAuditRepo{}
	svc := newActivityFixture(repo)

	_, err := svc.Recent(context.Background(), 10_000)
	require.NoError(t, err)
	assert.Equal(t, 50, repo.lastLimit)

	_, err = svc.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 50, repo.lastLimit)

	_, err = svc.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 5, repo.lastLimit)
}

func TestExportCSV(t *testing.T) {
	actor := "u1"
	resource := "g1"
	repo := &mockAuditRepo{listResult: []models.AuditLog{{
		ID:         "a1",
		ActorID:    &actor,
		Action:     models.AuditActionGrantRole,
		Resource:   "admin_grants",
		ResourceID: &resource,
		NewValues:  []byte(`{"level": 2}`),
		IPAddress:  "10.0.0.1",
		CreatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}}}
	svc := newActivityFixture(repo)

	payload, contentType, err := svc.Export(context.Background(), models.AuditFilter{}, "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	body := string(payload)
	assert.Contains(t, body, "Time,Actor,Action,Resource")
	// Row values line up with the header order.
	assert.Contains(t, body, "2026-03-01T12:00:00Z,u1,grant_role,admin_grants,g1")
	assert.Contains(t, body, `{""level"":2}`)
	assert.True(t, strings.Contains(body, "2026-03-01T12:00:00Z"))
	assert.Equal(t, 500, repo.lastLimit)
}

func TestExportPDF(t *testing.T) {
	repo := &mockAuditRepo{listResult: []models.AuditLog{{ID: "a1", Action: models.AuditActionLogin, Resource: "auth"}}}
	svc := newActivityFixture(repo)

	payload, contentType, err := svc.Export(context.Background(), models.AuditFilter{}, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestExportUnknownFormat(t *testing.T) {
	svc := newActivityFixture(&mockAuditRepo{})

	_, _, err := svc.Export(context.Background(), models.AuditFilter{}, "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
