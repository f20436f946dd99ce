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

func grantRows(level models.RoleLevel, status models.GrantStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "user_id", "level", "allowed_pages", "granted_by", "granted_at", "expires_at", "status", "created_at", "updated_at"}).
		AddRow("g1", "u1", int(level), "{notices}", "s1", now, nil, string(status), now, now)
}

func TestFindActiveByUserID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrantRepository(db)

	mock.ExpectQuery("SELECT id, user_id, level, allowed_pages, .+ FROM admin_grants WHERE user_id = \\$1 AND status = \\$2").
		WithArgs("u1", string(models.GrantActive)).
		WillReturnRows(grantRows(models.LevelAdmin, models.GrantActive))

	grant, err := repo.FindActiveByUserID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.LevelAdmin, grant.Level)
	assert.Equal(t, []string{"notices"}, []string(grant.AllowedPages))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListGrantsExcludesLevel(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrantRepository(db)

	exclude := models.LevelSuperAdmin
	mock.ExpectQuery(regexp.QuoteMeta("FROM admin_grants WHERE 1=1 AND status = $1 AND level <> $2 ORDER BY granted_at DESC")).
		WithArgs(string(models.GrantActive), int(exclude)).
		WillReturnRows(grantRows(models.LevelModerator, models.GrantActive))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM admin_grants WHERE 1=1 AND status = $1 AND level <> $2")).
		WithArgs(string(models.GrantActive), int(exclude)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	grants, total, err := repo.List(context.Background(), models.GrantFilter{ExcludeLevel: &exclude})
	require.NoError(t, err)
	assert.Len(t, grants, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithAuditIsTransactional(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrantRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO admin_grants").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	grant := &models.AdminGrant{UserID: "u1", Level: models.LevelAdmin, AllowedPages: []string{"notices"}}
	entry := &models.AuditLog{Action: models.AuditActionGrantRole, Resource: "admin_grants"}
	require.NoError(t, repo.CreateWithAudit(context.Background(), grant, entry))

	assert.NotEmpty(t, grant.ID)
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithAuditRollsBackOnAuditFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrantRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO admin_grants").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	grant := &models.AdminGrant{UserID: "u1", Level: models.LevelAdmin}
	entry := &models.AuditLog{Action: models.AuditActionGrantRole, Resource: "admin_grants"}
	require.Error(t, repo.CreateWithAudit(context.Background(), grant, entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeWithAudit(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrantRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE admin_grants SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("g1", string(models.GrantRevoked), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	entry := &models.AuditLog{Action: models.AuditActionRevokeRole, Resource: "admin_grants"}
	require.NoError(t, repo.RevokeWithAudit(context.Background(), "g1", entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}
