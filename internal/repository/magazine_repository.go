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

const magazineColumns = `id, title, year, COALESCE(cover_image, '') AS cover_image, COALESCE(file, '') AS file, active, created_at, updated_at`

// MagazineRepository provides database access for magazine issues.
type MagazineRepository struct {
	SlotAccessor
}

// NewMagazineRepository creates a new instance of MagazineRepository.
func NewMagazineRepository(db *sqlx.DB) *MagazineRepository {
	return &MagazineRepository{SlotAccessor: SlotAccessor{
		db:    db,
		table: "magazines",
		columns: map[string]string{
			models.SlotCoverImage: "cover_image",
			models.SlotFile:       "file",
		},
	}}
}

// List returns magazines matching the filter, newest year first.
func (r *MagazineRepository) List(ctx context.Context, filter models.ContentFilter) ([]models.Magazine, int, error) {
	baseQuery := `FROM magazines WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Year != nil {
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, *filter.Year)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(title) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	_, pageSize, offset := paginate(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY year DESC, created_at DESC LIMIT %d OFFSET %d", magazineColumns, baseQuery, pageSize, offset)

	var items []models.Magazine
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list magazines: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", baseQuery), args...); err != nil {
		return nil, 0, fmt.Errorf("count magazines: %w", err)
	}
	return items, total, nil
}

// GetByID returns a magazine by identifier.
func (r *MagazineRepository) GetByID(ctx context.Context, id string) (*models.Magazine, error) {
	query := fmt.Sprintf(`SELECT %s FROM magazines WHERE id = $1 LIMIT 1`, magazineColumns)
	var item models.Magazine
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find magazine: %w", err)
	}
	return &item, nil
}

// Create inserts a new magazine.
func (r *MagazineRepository) Create(ctx context.Context, item *models.Magazine) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	const query = `INSERT INTO magazines (id, title, year, cover_image, file, active, created_at, updated_at) VALUES (:id, :title, :year, :cover_image, :file, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create magazine: %w", err)
	}
	return nil
}

// Update updates mutable fields of a magazine (file slots excluded).
func (r *MagazineRepository) Update(ctx context.Context, item *models.Magazine) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE magazines SET title = :title, year = :year, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("update magazine: %w", err)
	}
	return nil
}

// Delete removes a magazine row.
func (r *MagazineRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM magazines WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete magazine: %w", err)
	}
	return nil
}
