package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusworks/college-cms-api/internal/models"
	appErrors "github.com/campusworks/college-cms-api/pkg/errors"
)

type heroImageRepository interface {
	SlotStore
	List(ctx context.Context, filter models.ContentFilter) ([]models.HeroImage, int, error)
	GetByID(ctx context.Context, id string) (*models.HeroImage, error)
	Create(ctx context.Context, item *models.HeroImage) error
	Update(ctx context.Context, item *models.HeroImage) error
	Delete(ctx context.Context, id string) error
}

// CreateHeroImageRequest is the payload for adding a carousel entry. ImageKey
// references an already stored upload.
type CreateHeroImageRequest struct {
	Title        string  `json:"title" validate:"required"`
	Description  *string `json:"description"`
	ImageKey     string  `json:"image_key" validate:"required"`
	DisplayOrder int     `json:"display_order"`
	Active       bool    `json:"active"`
}

// UpdateHeroImageRequest is the payload for editing a carousel entry. An
// empty ImageKey keeps the current image.
type UpdateHeroImageRequest struct {
	Title        string  `json:"title" validate:"required"`
	Description  *string `json:"description"`
	ImageKey     string  `json:"image_key"`
	DisplayOrder int     `json:"display_order"`
	Active       *bool   `json:"active"`
}

const heroImageCachePrefix = "content:hero"

// HeroImageService manages the homepage carousel.
type HeroImageService struct {
	repo        heroImageRepository
	attachments *AttachmentService
	cache       *CacheService
	activity    activityRecorder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewHeroImageService constructs a HeroImageService.
func NewHeroImageService(repo heroImageRepository, attachments *AttachmentService, cache *CacheService, activity activityRecorder, validate *validator.Validate, logger *zap.Logger) *HeroImageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &HeroImageService{repo: repo, attachments: attachments, cache: cache, activity: activity, validator: validate, logger: logger}
}

// List returns hero images in carousel order, served from cache when present.
func (s *HeroImageService) List(ctx context.Context, filter models.ContentFilter) ([]models.HeroImage, *models.Pagination, bool, error) {
	type cached struct {
		Items      []models.HeroImage `json:"items"`
		Pagination models.Pagination  `json:"pagination"`
	}

	key := contentListKey(heroImageCachePrefix, filter)
	var hit cached
	if ok, _ := s.cache.Get(ctx, key, &hit); ok {
		return hit.Items, &hit.Pagination, true, nil
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list hero images")
	}

	pagination := contentPagination(filter, total)
	_ = s.cache.Set(ctx, key, cached{Items: items, Pagination: *pagination}, 0)
	return items, pagination, false, nil
}

// Get returns one hero image.
func (s *HeroImageService) Get(ctx context.Context, id string) (*models.HeroImage, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "hero image not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hero image")
	}
	return item, nil
}

// Create adds a carousel entry pointing at a stored upload.
func (s *HeroImageService) Create(ctx context.Context, req CreateHeroImageRequest, actorID string, meta models.RequestMeta) (*models.HeroImage, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hero image payload")
	}

	item := &models.HeroImage{
		ID:           uuid.NewString(),
		Title:        req.Title,
		Description:  req.Description,
		Image:        req.ImageKey,
		DisplayOrder: req.DisplayOrder,
		Active:       req.Active,
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create hero image")
	}

	s.invalidate(ctx)
	recordContentAudit(ctx, s.activity, actorID, models.AuditActionContentCreate, "hero_images", item.ID, item, meta)
	return item, nil
}

// Update edits a carousel entry. A new image key replaces and deletes the
// old file.
func (s *HeroImageService) Update(ctx context.Context, id string, req UpdateHeroImageRequest, actorID string, meta models.RequestMeta) (*models.HeroImage, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hero image payload")
	}

	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	item.Title = req.Title
	item.Description = req.Description
	item.DisplayOrder = req.DisplayOrder
	if req.Active != nil {
		item.Active = *req.Active
	}

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update hero image")
	}

	if req.ImageKey != "" && req.ImageKey != item.Image {
		if err := s.attachments.Replace(ctx, s.repo, item.ID, models.SlotImage, req.ImageKey); err != nil {
			return nil, err
		}
		item.Image = req.ImageKey
	}

	s.invalidate(ctx)
	recordContentAudit(ctx, s.activity, actorID, models.AuditActionContentUpdate, "hero_images", item.ID, item, meta)
	return item, nil
}

// Delete removes the entry and its stored image.
func (s *HeroImageService) Delete(ctx context.Context, id, actorID string, meta models.RequestMeta) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete hero image")
	}

	s.attachments.PurgeKeys(ctx, item.Image)
	s.invalidate(ctx)
	recordContentAudit(ctx, s.activity, actorID, models.AuditActionContentDelete, "hero_images", item.ID, item, meta)
	return nil
}

func (s *HeroImageService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, heroImageCachePrefix+":*")
}
