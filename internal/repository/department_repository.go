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

const departmentColumns = `id, name, code, description, head_name, contact_email, COALESCE(hero_image, '') AS hero_image, mission, vision, facilities, active, created_at, updated_at`

const galleryColumns = `id, department_id, media_type, COALESCE(image, '') AS image, COALESCE(video, '') AS video, caption, display_order, created_at, updated_at`

// DepartmentRepository provides database access for departments and their
// gallery entries.
type DepartmentRepository struct {
	SlotAccessor
}

// NewDepartmentRepository creates a new instance of DepartmentRepository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{SlotAccessor: SlotAccessor{
		db:      db,
		table:   "departments",
		columns: map[string]string{models.SlotHeroImage: "hero_image"},
	}}
}

// List returns departments matching the filter, alphabetically.
func (r *DepartmentRepository) List(ctx context.Context, filter models.ContentFilter) ([]models.Department, int, error) {
	baseQuery := `FROM departments WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(code) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	_, pageSize, offset := paginate(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY name ASC LIMIT %d OFFSET %d", departmentColumns, baseQuery, pageSize, offset)

	var items []models.Department
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list departments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", baseQuery), args...); err != nil {
		return nil, 0, fmt.Errorf("count departments: %w", err)
	}
	return items, total, nil
}

// GetByID returns a department by identifier.
func (r *DepartmentRepository) GetByID(ctx context.Context, id string) (*models.Department, error) {
	query := fmt.Sprintf(`SELECT %s FROM departments WHERE id = $1 LIMIT 1`, departmentColumns)
	var item models.Department
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find department: %w", err)
	}
	return &item, nil
}

// FindByCode returns a department by its unique code.
func (r *DepartmentRepository) FindByCode(ctx context.Context, code string) (*models.Department, error) {
	query := fmt.Sprintf(`SELECT %s FROM departments WHERE code = $1 LIMIT 1`, departmentColumns)
	var item models.Department
	if err := r.db.GetContext(ctx, &item, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find department by code: %w", err)
	}
	return &item, nil
}

// Create inserts a new department.
func (r *DepartmentRepository) Create(ctx context.Context, item *models.Department) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	const query = `INSERT INTO departments (id, name, code, description, head_name, contact_email, hero_image, mission, vision, facilities, active, created_at, updated_at) VALUES (:id, :name, :code, :description, :head_name, :contact_email, :hero_image, :mission, :vision, :facilities, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

// Update updates mutable fields of a department (hero slot excluded).
func (r *DepartmentRepository) Update(ctx context.Context, item *models.Department) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE departments SET name = :name, description = :description, head_name = :head_name, contact_email = :contact_email, mission = :mission, vision = :vision, facilities = :facilities, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("update department: %w", err)
	}
	return nil
}

// Delete removes a department row. Gallery rows cascade via FK.
func (r *DepartmentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM departments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete department: %w", err)
	}
	return nil
}

// ListGallery returns a department's gallery entries in display order.
func (r *DepartmentRepository) ListGallery(ctx context.Context, departmentID string) ([]models.DepartmentGalleryItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM department_gallery WHERE department_id = $1 ORDER BY display_order ASC, created_at ASC`, galleryColumns)
	var items []models.DepartmentGalleryItem
	if err := r.db.SelectContext(ctx, &items, query, departmentID); err != nil {
		return nil, fmt.Errorf("list department gallery: %w", err)
	}
	return items, nil
}

// GetGalleryItem returns one gallery entry.
func (r *DepartmentRepository) GetGalleryItem(ctx context.Context, id string) (*models.DepartmentGalleryItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM department_gallery WHERE id = $1 LIMIT 1`, galleryColumns)
	var item models.DepartmentGalleryItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find gallery item: %w", err)
	}
	return &item, nil
}

// CreateGalleryItem inserts a gallery entry.
func (r *DepartmentRepository) CreateGalleryItem(ctx context.Context, item *models.DepartmentGalleryItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	const query = `INSERT INTO department_gallery (id, department_id, media_type, image, video, caption, display_order, created_at, updated_at) VALUES (:id, :department_id, :media_type, :image, :video, :caption, :display_order, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create gallery item: %w", err)
	}
	return nil
}

// DeleteGalleryItem removes a gallery entry row.
func (r *DepartmentRepository) DeleteGalleryItem(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM department_gallery WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete gallery item: %w", err)
	}
	return nil
}

// GallerySlots exposes the gallery table's slots to the attachment manager.
func (r *DepartmentRepository) GallerySlots() SlotAccessor {
	return SlotAccessor{
		db:    r.db,
		table: "department_gallery",
		columns: map[string]string{
			models.SlotImage: "image",
			models.SlotVideo: "video",
		},
	}
}
