package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusworks/college-cms-api/internal/models"
)

const auditColumns = `id, actor_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at`

// AuditRepository provides append and read access to the audit trail.
// Rows are never updated or deleted.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new instance of AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends an audit entry.
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, actor_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at) VALUES (:id, :actor_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most-recent-first.
func (r *AuditRepository) Recent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM audit_logs ORDER BY created_at DESC LIMIT %d`, auditColumns, limit)
	var entries []models.AuditLog
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("list recent audit logs: %w", err)
	}
	return entries, nil
}

// ForActor returns entries produced by one actor, most-recent-first.
func (r *AuditRepository) ForActor(ctx context.Context, actorID string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM audit_logs WHERE actor_id = $1 ORDER BY created_at DESC LIMIT %d`, auditColumns, limit)
	var entries []models.AuditLog
	if err := r.db.SelectContext(ctx, &entries, query, actorID); err != nil {
		return nil, fmt.Errorf("list audit logs for actor: %w", err)
	}
	return entries, nil
}

// List returns entries matching the filter, most-recent-first.
func (r *AuditRepository) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	baseQuery := `FROM audit_logs WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.ActorID != nil {
		conditions = append(conditions, fmt.Sprintf("actor_id = $%d", len(args)+1))
		args = append(args, *filter.ActorID)
	}
	if filter.Action != "" {
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)+1))
		args = append(args, filter.Action)
	}
	if filter.Resource != "" {
		conditions = append(conditions, fmt.Sprintf("resource = $%d", len(args)+1))
		args = append(args, filter.Resource)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d", auditColumns, baseQuery, limit)
	var entries []models.AuditLog
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return entries, nil
}
