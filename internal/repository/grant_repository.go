package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusworks/college-cms-api/internal/models"
)

const grantColumns = `id, user_id, level, allowed_pages, granted_by, granted_at, expires_at, status, created_at, updated_at`

// GrantRepository provides database access for delegated admin roles.
type GrantRepository struct {
	db *sqlx.DB
}

// NewGrantRepository creates a new instance of GrantRepository.
func NewGrantRepository(db *sqlx.DB) *GrantRepository {
	return &GrantRepository{db: db}
}

// FindByUserID returns the most recent grant for a user regardless of status.
func (r *GrantRepository) FindByUserID(ctx context.Context, userID string) (*models.AdminGrant, error) {
	query := fmt.Sprintf(`SELECT %s FROM admin_grants WHERE user_id = $1 ORDER BY updated_at DESC LIMIT 1`, grantColumns)
	var grant models.AdminGrant
	if err := r.db.GetContext(ctx, &grant, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find grant by user id: %w", err)
	}
	return &grant, nil
}

// FindActiveByUserID returns the ACTIVE grant for a user, if any.
func (r *GrantRepository) FindActiveByUserID(ctx context.Context, userID string) (*models.AdminGrant, error) {
	query := fmt.Sprintf(`SELECT %s FROM admin_grants WHERE user_id = $1 AND status = $2 LIMIT 1`, grantColumns)
	var grant models.AdminGrant
	if err := r.db.GetContext(ctx, &grant, query, userID, models.GrantActive); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find active grant: %w", err)
	}
	return &grant, nil
}

// FindByID returns a grant by identifier.
func (r *GrantRepository) FindByID(ctx context.Context, id string) (*models.AdminGrant, error) {
	query := fmt.Sprintf(`SELECT %s FROM admin_grants WHERE id = $1 LIMIT 1`, grantColumns)
	var grant models.AdminGrant
	if err := r.db.GetContext(ctx, &grant, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find grant by id: %w", err)
	}
	return &grant, nil
}

// List returns grants matching the filter with total count.
func (r *GrantRepository) List(ctx context.Context, filter models.GrantFilter) ([]models.AdminGrant, int, error) {
	baseQuery := `FROM admin_grants WHERE 1=1`
	var conditions []string
	var args []interface{}

	if !filter.IncludeRevoked {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, models.GrantActive)
	}
	if filter.Level != nil {
		conditions = append(conditions, fmt.Sprintf("level = $%d", len(args)+1))
		args = append(args, *filter.Level)
	}
	if filter.ExcludeLevel != nil {
		conditions = append(conditions, fmt.Sprintf("level <> $%d", len(args)+1))
		args = append(args, *filter.ExcludeLevel)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY granted_at DESC LIMIT %d OFFSET %d", grantColumns, baseQuery, pageSize, offset)

	var grants []models.AdminGrant
	if err := r.db.SelectContext(ctx, &grants, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list grants: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count grants: %w", err)
	}

	return grants, total, nil
}

// CreateWithAudit inserts a grant and its audit entry in one transaction, so a
// crash between the two never leaves a grant changed without a trace.
func (r *GrantRepository) CreateWithAudit(ctx context.Context, grant *models.AdminGrant, entry *models.AuditLog) error {
	prepareGrant(grant)
	prepareAudit(entry)

	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		const query = `INSERT INTO admin_grants (id, user_id, level, allowed_pages, granted_by, granted_at, expires_at, status, created_at, updated_at) VALUES (:id, :user_id, :level, :allowed_pages, :granted_by, :granted_at, :expires_at, :status, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, grant); err != nil {
			return fmt.Errorf("create grant: %w", err)
		}
		return insertAuditTx(ctx, tx, entry)
	})
}

// UpdateWithAudit updates a grant's mutable fields and writes the audit entry
// in the same transaction.
func (r *GrantRepository) UpdateWithAudit(ctx context.Context, grant *models.AdminGrant, entry *models.AuditLog) error {
	grant.UpdatedAt = time.Now().UTC()
	prepareAudit(entry)

	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		const query = `UPDATE admin_grants SET level = :level, allowed_pages = :allowed_pages, granted_by = :granted_by, granted_at = :granted_at, expires_at = :expires_at, status = :status, updated_at = :updated_at WHERE id = :id`
		if _, err := tx.NamedExecContext(ctx, query, grant); err != nil {
			return fmt.Errorf("update grant: %w", err)
		}
		return insertAuditTx(ctx, tx, entry)
	})
}

// RevokeWithAudit marks a grant REVOKED and writes the audit entry atomically.
// The row is never deleted.
func (r *GrantRepository) RevokeWithAudit(ctx context.Context, id string, entry *models.AuditLog) error {
	prepareAudit(entry)

	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		const query = `UPDATE admin_grants SET status = $2, updated_at = $3 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, query, id, models.GrantRevoked, time.Now().UTC()); err != nil {
			return fmt.Errorf("revoke grant: %w", err)
		}
		return insertAuditTx(ctx, tx, entry)
	})
}

func (r *GrantRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin grant tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit grant tx: %w", err)
	}
	return nil
}

func prepareGrant(grant *models.AdminGrant) {
	now := time.Now().UTC()
	if grant.ID == "" {
		grant.ID = uuid.NewString()
	}
	if grant.GrantedAt.IsZero() {
		grant.GrantedAt = now
	}
	if grant.Status == "" {
		grant.Status = models.GrantActive
	}
	if grant.CreatedAt.IsZero() {
		grant.CreatedAt = now
	}
	grant.UpdatedAt = now
}

func prepareAudit(entry *models.AuditLog) {
	if entry == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
}

func insertAuditTx(ctx context.Context, tx *sqlx.Tx, entry *models.AuditLog) error {
	if entry == nil {
		return nil
	}
	const query = `INSERT INTO audit_logs (id, actor_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at) VALUES (:id, :actor_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
