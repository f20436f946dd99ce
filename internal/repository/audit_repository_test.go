package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/college-cms-api/internal/models"
)

func auditRows(action string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "actor_id", "action", "resource", "resource_id", "old_values", "new_values", "ip_address", "user_agent", "created_at"}).
		AddRow("a1", "u1", action, "admin_grants", "g1", []byte(`{}`), []byte(`{}`), "127.0.0.1", "test", time.Now())
}

func TestCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	actor := "u1"
	entry := &models.AuditLog{
		ActorID:  &actor,
		Action:   models.AuditActionGrantRole,
		Resource: "admin_grants",
	}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentDefaultsLimit(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_logs ORDER BY created_at DESC LIMIT 50")).
		WillReturnRows(auditRows(models.AuditActionLogin))

	entries, err := repo.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAuditLogsByActorAndAction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_logs WHERE 1=1 AND actor_id = $1 AND action = $2 ORDER BY created_at DESC LIMIT 100")).
		WithArgs("u1", models.AuditActionRevokeRole).
		WillReturnRows(auditRows(models.AuditActionRevokeRole))

	actor := "u1"
	entries, err := repo.List(context.Background(), models.AuditFilter{ActorID: &actor, Action: models.AuditActionRevokeRole})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditActionRevokeRole, entries[0].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}
