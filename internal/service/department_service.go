package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusworks/college-cms-api/internal/models"
	appErrors "github.com/campusworks/college-cms-api/pkg/errors"
)

type departmentRepository interface {
	SlotStore
	List(ctx context.Context, filter models.ContentFilter) ([]models.Department, int, error)
	GetByID(ctx context.Context, id string) (*models.Department, error)
	FindByCode(ctx context.Context, code string) (*models.Department, error)
	Create(ctx context.Context, item *models.Department) error
	Update(ctx context.Context, item *models.Department) error
	Delete(ctx context.Context, id string) error
	ListGallery(ctx context.Context, departmentID string) ([]models.DepartmentGalleryItem, error)
	GetGalleryItem(ctx context.Context, id string) (*models.DepartmentGalleryItem, error)
	CreateGalleryItem(ctx context.Context, item *models.DepartmentGalleryItem) error
	DeleteGalleryItem(ctx context.Context, id string) error
}

// CreateDepartmentRequest is the payload for adding a department.
type CreateDepartmentRequest struct {
	Name         string          `json:"name" validate:"required"`
	Code         string          `json:"code" validate:"required,lowercase,alphanum"`
	Description  *string         `json:"description"`
	HeadName     *string         `json:"head_name"`
	ContactEmail *string         `json:"contact_email" validate:"omitempty,email"`
	HeroImageKey string          `json:"hero_image_key"`
	Mission      *string         `json:"mission"`
	Vision       *string         `json:"vision"`
	Facilities   json.RawMessage `json:"facilities"`
	Active       bool            `json:"active"`
}

// UpdateDepartmentRequest edits a department. The code is immutable because
// it names the department's media sub-tree.
type UpdateDepartmentRequest struct {
	Name         string          `json:"name" validate:"required"`
	Description  *string         `json:"description"`
	HeadName     *string         `json:"head_name"`
	ContactEmail *string         `json:"contact_email" validate:"omitempty,email"`
	HeroImageKey string          `json:"hero_image_key"`
	Mission      *string         `json:"mission"`
	Vision       *string         `json:"vision"`
	Facilities   json.RawMessage `json:"facilities"`
	Active       *bool           `json:"active"`
}

// AddGalleryItemRequest adds one media entry to a department gallery.
type AddGalleryItemRequest struct {
	MediaType    models.GalleryMediaType `json:"media_type" validate:"required,oneof=image video"`
	MediaKey     string                  `json:"media_key" validate:"required"`
	Caption      *string                 `json:"caption"`
	DisplayOrder int                     `json:"display_order"`
}

const departmentCachePrefix = "content:departments"

// DepartmentMediaPrefix returns the storage prefix owning all of a
// department's media.
func DepartmentMediaPrefix(code string) string {
	return fmt.Sprintf("departments/%s", code)
}

// DepartmentService manages departments and their media galleries. A
// department owns a whole storage sub-tree, removed wholesale when the
// department goes away.
type DepartmentService struct {
	repo         departmentRepository
	gallerySlots SlotStore
	attachments  *AttachmentService
	cache        *CacheService
	activity     activityRecorder
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewDepartmentService constructs a DepartmentService.
func NewDepartmentService(repo departmentRepository, gallerySlots SlotStore, attachments *AttachmentService, cache *CacheService, activity activityRecorder, validate *validator.Validate, logger *zap.Logger) *DepartmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DepartmentService{
		repo:         repo,
		gallerySlots: gallerySlots,
		attachments:  attachments,
		cache:        cache,
		activity:     activity,
		validator:    validate,
		logger:       logger,
	}
}

// List returns departments, served from cache when present.
func (s *DepartmentService) List(ctx context.Context, filter models.ContentFilter) ([]models.Department, *models.Pagination, bool, error) {
	type cached struct {
		Items      []models.Department `json:"items"`
		Pagination models.Pagination   `json:"pagination"`
	}

	key := contentListKey(departmentCachePrefix, filter)
	var hit cached
	if ok, _ := s.cache.Get(ctx, key, &hit); ok {
		return hit.Items, &hit.Pagination, true, nil
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
	}

	pagination := contentPagination(filter, total)
	_ = s.cache.Set(ctx, key, cached{Items: items, Pagination: *pagination}, 0)
	return items, pagination, false, nil
}

// Get returns one department.
func (s *DepartmentService) Get(ctx context.Context, id string) (*models.Department, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	return item, nil
}

// Create adds a department. The code must be unique; it names the media
// sub-tree.
func (s *DepartmentService) Create(ctx context.Context, req CreateDepartmentRequest, actorID string, meta models.RequestMeta) (*models.Department, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid department payload")
	}

	if _, err := s.repo.FindByCode(ctx, req.Code); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "department code already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check department code")
	}

	item := &models.Department{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Code:         req.Code,
		Description:  req.Description,
		HeadName:     req.HeadName,
		ContactEmail: req.ContactEmail,
		HeroImage:    req.HeroImageKey,
		Mission:      req.Mission,
		Vision:       req.Vision,
		Facilities:   req.Facilities,
		Active:       req.Active,
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create department")
	}

	s.invalidate(ctx)
	recordContentAudit(ctx, s.activity, actorID, models.AuditActionContentCreate, "departments", item.ID, item, meta)
	return item, nil
}

// Update edits a department. A new hero image key replaces and deletes the
// old file.
func (s *DepartmentService) Update(ctx context.Context, id string, req UpdateDepartmentRequest, actorID string, meta models.RequestMeta) (*models.Department, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid department payload")
	}

	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	item.Name = req.Name
	item.Description = req.Description
	item.HeadName = req.HeadName
	item.ContactEmail = req.ContactEmail
	item.Mission = req.Mission
	item.Vision = req.Vision
	item.Facilities = req.Facilities
	if req.Active != nil {
		item.Active = *req.Active
	}

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update department")
	}

	if req.HeroImageKey != "" && req.HeroImageKey != item.HeroImage {
		if err := s.attachments.Replace(ctx, s.repo, item.ID, models.SlotHeroImage, req.HeroImageKey); err != nil {
			return nil, err
		}
		item.HeroImage = req.HeroImageKey
	}

	s.invalidate(ctx)
	recordContentAudit(ctx, s.activity, actorID, models.AuditActionContentUpdate, "departments", item.ID, item, meta)
	return item, nil
}

// Delete removes the department, its gallery rows, and its entire media
// sub-tree.
func (s *DepartmentService) Delete(ctx context.Context, id, actorID string, meta models.RequestMeta) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete department")
	}

	s.attachments.PurgeSubtree(ctx, DepartmentMediaPrefix(item.Code))
	s.attachments.PurgeKeys(ctx, item.HeroImage)
	s.invalidate(ctx)
	recordContentAudit(ctx, s.activity, actorID, models.AuditActionContentDelete, "departments", item.ID, item, meta)
	return nil
}

// ListGallery returns the department's gallery entries.
func (s *DepartmentService) ListGallery(ctx context.Context, departmentID string) ([]models.DepartmentGalleryItem, error) {
	if _, err := s.Get(ctx, departmentID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListGallery(ctx, departmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list gallery")
	}
	return items, nil
}

// AddGalleryItem attaches a stored media file to the department gallery.
func (s *DepartmentService) AddGalleryItem(ctx context.Context, departmentID string, req AddGalleryItemRequest, actorID string, meta models.RequestMeta) (*models.DepartmentGalleryItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid gallery payload")
	}

	if _, err := s.Get(ctx, departmentID); err != nil {
		return nil, err
	}

	item := &models.DepartmentGalleryItem{
		ID:           uuid.NewString(),
		DepartmentID: departmentID,
		MediaType:    req.MediaType,
		Caption:      req.Caption,
		DisplayOrder: req.DisplayOrder,
	}
	switch req.MediaType {
	case models.GalleryMediaImage:
		item.Image = req.MediaKey
	case models.GalleryMediaVideo:
		item.Video = req.MediaKey
	}

	if err := s.repo.CreateGalleryItem(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add gallery item")
	}

	s.invalidate(ctx)
	recordContentAudit(ctx, s.activity, actorID, models.AuditActionContentCreate, "department_gallery", item.ID, item, meta)
	return item, nil
}

// ReplaceGalleryMedia swaps the media file of an existing gallery entry,
// deleting the file it previously held.
func (s *DepartmentService) ReplaceGalleryMedia(ctx context.Context, itemID, mediaKey, actorID string, meta models.RequestMeta) (*models.DepartmentGalleryItem, error) {
	if mediaKey == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "media key is required")
	}

	item, err := s.repo.GetGalleryItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "gallery item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load gallery item")
	}

	slot := models.SlotImage
	if item.MediaType == models.GalleryMediaVideo {
		slot = models.SlotVideo
	}
	if err := s.attachments.Replace(ctx, s.gallerySlots, item.ID, slot, mediaKey); err != nil {
		return nil, err
	}
	switch item.MediaType {
	case models.GalleryMediaVideo:
		item.Video = mediaKey
	default:
		item.Image = mediaKey
	}

	s.invalidate(ctx)
	recordContentAudit(ctx, s.activity, actorID, models.AuditActionContentUpdate, "department_gallery", item.ID, item, meta)
	return item, nil
}

// RemoveGalleryItem deletes a gallery entry and its media file.
func (s *DepartmentService) RemoveGalleryItem(ctx context.Context, itemID, actorID string, meta models.RequestMeta) error {
	item, err := s.repo.GetGalleryItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "gallery item not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load gallery item")
	}

	if err := s.repo.DeleteGalleryItem(ctx, itemID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete gallery item")
	}

	s.attachments.PurgeKeys(ctx, item.Image, item.Video)
	s.invalidate(ctx)
	recordContentAudit(ctx, s.activity, actorID, models.AuditActionContentDelete, "department_gallery", item.ID, item, meta)
	return nil
}

func (s *DepartmentService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, departmentCachePrefix+":*")
}
