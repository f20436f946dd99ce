package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusworks/college-cms-api/internal/models"
)

const heroImageColumns = `id, title, description, image, display_order, active, created_at, updated_at`

// HeroImageRepository provides database access for homepage hero images.
type HeroImageRepository struct {
	SlotAccessor
}

// NewHeroImageRepository creates a new instance of HeroImageRepository.
func NewHeroImageRepository(db *sqlx.DB) *HeroImageRepository {
	return &HeroImageRepository{SlotAccessor: SlotAccessor{
		db:      db,
		table:   "hero_images",
		columns: map[string]string{models.SlotImage: "image"},
	}}
}

// List returns hero images ordered for the carousel.
func (r *HeroImageRepository) List(ctx context.Context, filter models.ContentFilter) ([]models.HeroImage, int, error) {
	baseQuery := `FROM hero_images WHERE 1=1`
	var args []interface{}

	if filter.Active != nil {
		baseQuery += fmt.Sprintf(" AND active = $%d", len(args)+1)
		args = append(args, *filter.Active)
	}

	page, pageSize, offset := paginate(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY display_order ASC, created_at DESC LIMIT %d OFFSET %d", heroImageColumns, baseQuery, pageSize, offset)
	_ = page

	var items []models.HeroImage
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list hero images: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", baseQuery), args...); err != nil {
		return nil, 0, fmt.Errorf("count hero images: %w", err)
	}
	return items, total, nil
}

// GetByID returns a hero image by identifier.
func (r *HeroImageRepository) GetByID(ctx context.Context, id string) (*models.HeroImage, error) {
	query := fmt.Sprintf(`SELECT %s FROM hero_images WHERE id = $1 LIMIT 1`, heroImageColumns)
	var item models.HeroImage
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find hero image: %w", err)
	}
	return &item, nil
}

// Create inserts a new hero image.
func (r *HeroImageRepository) Create(ctx context.Context, item *models.HeroImage) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	const query = `INSERT INTO hero_images (id, title, description, image, display_order, active, created_at, updated_at) VALUES (:id, :title, :description, :image, :display_order, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create hero image: %w", err)
	}
	return nil
}

// Update updates mutable fields of a hero image. The image slot is written
// separately through SetSlot by the attachment manager.
func (r *HeroImageRepository) Update(ctx context.Context, item *models.HeroImage) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE hero_images SET title = :title, description = :description, display_order = :display_order, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("update hero image: %w", err)
	}
	return nil
}

// Delete removes a hero image row.
func (r *HeroImageRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM hero_images WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete hero image: %w", err)
	}
	return nil
}

func paginate(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize, (page - 1) * pageSize
}
