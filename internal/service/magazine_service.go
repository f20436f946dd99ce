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

type magazineRepository interface {
	SlotStore
	List(ctx context.Context, filter models.ContentFilter) ([]models.Magazine, int, error)
	GetByID(ctx context.Context, id string) (*models.Magazine, error)
	Create(ctx context.Context, item *models.Magazine) error
	Update(ctx context.Context, item *models.Magazine) error
	Delete(ctx context.Context, id string) error
}

// CreateMagazineRequest is the payload for adding a magazine issue.
type CreateMagazineRequest struct {
	Title         string `json:"title" validate:"required"`
	Year          int    `json:"year" validate:"required,min=1900,max=2200"`
	CoverImageKey string `json:"cover_image_key"`
	FileKey       string `json:"file_key"`
	Active        bool   `json:"active"`
}

// UpdateMagazineRequest edits an issue. The cover image and the magazine
// file are replaced independently; an empty key keeps the current file.
type UpdateMagazineRequest struct {
	Title         string `json:"title" validate:"required"`
	Year          int    `json:"year" validate:"required,min=1900,max=2200"`
	CoverImageKey string `json:"cover_image_key"`
	FileKey       string `json:"file_key"`
	Active        *bool  `json:"active"`
}

const magazineCachePrefix = "content:magazines"

// MagazineService manages college magazine issues.
type MagazineService struct {
	repo        magazineRepository
	attachments *AttachmentService
	cache       *CacheService
	activity    activityRecorder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewMagazineService constructs a MagazineService.
func NewMagazineService(repo magazineRepository, attachments *AttachmentService, cache *CacheService, activity activityRecorder, validate *validator.Validate, logger *zap.Logger) *MagazineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MagazineService{repo: repo, attachments: attachments, cache: cache, activity: activity, validator: validate, logger: logger}
}

// List returns magazine issues, served from cache when present.
func (s *MagazineService) List(ctx context.Context, filter models.ContentFilter) ([]models.Magazine, *models.Pagination, bool, error) {
	type cached struct {
		Items      []models.Magazine `json:"items"`
		Pagination models.Pagination `json:"pagination"`
	}

	key := contentListKey(magazineCachePrefix, filter)
	var hit cached
	if ok, _ := s.cache.Get(ctx, key, &hit); ok {
		return hit.Items, &hit.Pagination, true, nil
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list magazines")
	}

	pagination := contentPagination(filter, total)
	_ = s.cache.Set(ctx, key, cached{Items: items, Pagination: *pagination}, 0)
	return items, pagination, false, nil
}

// Get returns one magazine issue.
func (s *MagazineService) Get(ctx context.Context, id string) (*models.Magazine, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "magazine not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load magazine")
	}
	return item, nil
}

// Create adds a magazine issue.
func (s *MagazineService) Create(ctx context.Context, req CreateMagazineRequest, actorID string, meta models.RequestMeta) (*models.Magazine, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid magazine payload")
	}

	item := &models.Magazine{
		ID:         uuid.NewString(),
		Title:      req.Title,
		Year:       req.Year,
		CoverImage: req.CoverImageKey,
		File:       req.FileKey,
		Active:     req.Active,
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create magazine")
	}

	s.invalidate(ctx)
	recordContentAudit(ctx, s.activity, actorID, models.AuditActionContentCreate, "magazines", item.ID, item, meta)
	return item, nil
}

// Update edits an issue, swapping its files slot by slot.
func (s *MagazineService) Update(ctx context.Context, id string, req UpdateMagazineRequest, actorID string, meta models.RequestMeta) (*models.Magazine, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid magazine payload")
	}

	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	item.Title = req.Title
	item.Year = req.Year
	if req.Active != nil {
		item.Active = *req.Active
	}

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update magazine")
	}

	if req.CoverImageKey != "" && req.CoverImageKey != item.CoverImage {
		if err := s.attachments.Replace(ctx, s.repo, item.ID, models.SlotCoverImage, req.CoverImageKey); err != nil {
			return nil, err
		}
		item.CoverImage = req.CoverImageKey
	}
	if req.FileKey != "" && req.FileKey != item.File {
		if err := s.attachments.Replace(ctx, s.repo, item.ID, models.SlotFile, req.FileKey); err != nil {
			return nil, err
		}
		item.File = req.FileKey
	}

	s.invalidate(ctx)
	recordContentAudit(ctx, s.activity, actorID, models.AuditActionContentUpdate, "magazines", item.ID, item, meta)
	return item, nil
}

// Delete removes the issue and both of its stored files.
func (s *MagazineService) Delete(ctx context.Context, id, actorID string, meta models.RequestMeta) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete magazine")
	}

	s.attachments.PurgeKeys(ctx, item.CoverImage, item.File)
	s.invalidate(ctx)
	recordContentAudit(ctx, s.activity, actorID, models.AuditActionContentDelete, "magazines", item.ID, item, meta)
	return nil
}

func (s *MagazineService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, magazineCachePrefix+":*")
}
