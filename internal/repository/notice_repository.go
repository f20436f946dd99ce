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

const noticeColumns = `id, title, body, category, COALESCE(attachment, '') AS attachment, published_at, active, created_at, updated_at`

// NoticeRepository provides database access for notices.
type NoticeRepository struct {
	SlotAccessor
}

// NewNoticeRepository creates a new instance of NoticeRepository.
func NewNoticeRepository(db *sqlx.DB) *NoticeRepository {
	return &NoticeRepository{SlotAccessor: SlotAccessor{
		db:      db,
		table:   "notices",
		columns: map[string]string{models.SlotAttachment: "attachment"},
	}}
}

// List returns notices matching the filter, newest first.
func (r *NoticeRepository) List(ctx context.Context, filter models.ContentFilter) ([]models.Notice, int, error) {
	baseQuery := `FROM notices WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(body) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	_, pageSize, offset := paginate(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY published_at DESC LIMIT %d OFFSET %d", noticeColumns, baseQuery, pageSize, offset)

	var items []models.Notice
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list notices: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", baseQuery), args...); err != nil {
		return nil, 0, fmt.Errorf("count notices: %w", err)
	}
	return items, total, nil
}

// GetByID returns a notice by identifier.
func (r *NoticeRepository) GetByID(ctx context.Context, id string) (*models.Notice, error) {
	query := fmt.Sprintf(`SELECT %s FROM notices WHERE id = $1 LIMIT 1`, noticeColumns)
	var item models.Notice
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find notice: %w", err)
	}
	return &item, nil
}

// Create inserts a new notice.
func (r *NoticeRepository) Create(ctx context.Context, item *models.Notice) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	if item.PublishedAt.IsZero() {
		item.PublishedAt = now
	}
	const query = `INSERT INTO notices (id, title, body, category, attachment, published_at, active, created_at, updated_at) VALUES (:id, :title, :body, :category, :attachment, :published_at, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create notice: %w", err)
	}
	return nil
}

// Update updates mutable fields of a notice (attachment slot excluded).
func (r *NoticeRepository) Update(ctx context.Context, item *models.Notice) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE notices SET title = :title, body = :body, category = :category, published_at = :published_at, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("update notice: %w", err)
	}
	return nil
}

// Delete removes a notice row.
func (r *NoticeRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM notices WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete notice: %w", err)
	}
	return nil
}
