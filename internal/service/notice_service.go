package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusworks/college-cms-api/internal/models"
	appErrors "github.com/campusworks/college-cms-api/pkg/errors"
)

type noticeRepository interface {
	SlotStore
	List(ctx context.Context, filter models.ContentFilter) ([]models.Notice, int, error)
	GetByID(ctx context.Context, id string) (*models.Notice, error)
	Create(ctx context.Context, item *models.Notice) error
	Update(ctx context.Context, item *models.Notice) error
	Delete(ctx context.Context, id string) error
}

// CreateNoticeRequest is the payload for publishing a notice. AttachmentKey
// optionally references an already stored upload.
type CreateNoticeRequest struct {
	Title         string     `json:"title" validate:"required"`
	Body          string     `json:"body" validate:"required"`
	Category      string     `json:"category" validate:"required"`
	AttachmentKey string     `json:"attachment_key"`
	PublishedAt   *time.Time `json:"published_at"`
	Active        bool       `json:"active"`
}

// UpdateNoticeRequest edits a notice. An empty AttachmentKey keeps the
// current attachment; RemoveAttachment clears it.
type UpdateNoticeRequest struct {
	Title            string     `json:"title" validate:"required"`
	Body             string     `json:"body" validate:"required"`
	Category         string     `json:"category" validate:"required"`
	AttachmentKey    string     `json:"attachment_key"`
	RemoveAttachment bool       `json:"remove_attachment"`
	PublishedAt      *time.Time `json:"published_at"`
	Active           *bool      `json:"active"`
}

const noticeCachePrefix = "content:notices"

// NoticeService manages published announcements.
type NoticeService struct {
	repo        noticeRepository
	attachments *AttachmentService
	cache       *CacheService
	activity    activityRecorder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewNoticeService constructs a NoticeService.
func NewNoticeService(repo noticeRepository, attachments *AttachmentService, cache *CacheService, activity activityRecorder, validate *validator.Validate, logger *zap.Logger) *NoticeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &NoticeService{repo: repo, attachments: attachments, cache: cache, activity: activity, validator: validate, logger: logger}
}

// List returns notices, served from cache when present. The bool reports
// whether the result came from cache.
func (s *NoticeService) List(ctx context.Context, filter models.ContentFilter) ([]models.Notice, *models.Pagination, bool, error) {
	type cached struct {
		Items      []models.Notice   `json:"items"`
		Pagination models.Pagination `json:"pagination"`
	}

	key := contentListKey(noticeCachePrefix, filter)
	var hit cached
	if ok, _ := s.cache.Get(ctx, key, &hit); ok {
		return hit.Items, &hit.Pagination, true, nil
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notices")
	}

	pagination := contentPagination(filter, total)
	_ = s.cache.Set(ctx, key, cached{Items: items, Pagination: *pagination}, 0)
	return items, pagination, false, nil
}

// Get returns one notice.
func (s *NoticeService) Get(ctx context.Context, id string) (*models.Notice, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notice")
	}
	return item, nil
}

// Create publishes a notice.
func (s *NoticeService) Create(ctx context.Context, req CreateNoticeRequest, actorID string, meta models.RequestMeta) (*models.Notice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notice payload")
	}

	publishedAt := time.Now().UTC()
	if req.PublishedAt != nil {
		publishedAt = req.PublishedAt.UTC()
	}

	item := &models.Notice{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Body:        req.Body,
		Category:    req.Category,
		Attachment:  req.AttachmentKey,
		PublishedAt: publishedAt,
		Active:      req.Active,
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create notice")
	}

	s.invalidate(ctx)
	recordContentAudit(ctx, s.activity, actorID, models.AuditActionContentCreate, "notices", item.ID, item, meta)
	return item, nil
}

// Update edits a notice, replacing or clearing its attachment as requested.
func (s *NoticeService) Update(ctx context.Context, id string, req UpdateNoticeRequest, actorID string, meta models.RequestMeta) (*models.Notice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notice payload")
	}

	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	item.Title = req.Title
	item.Body = req.Body
	item.Category = req.Category
	if req.PublishedAt != nil {
		item.PublishedAt = req.PublishedAt.UTC()
	}
	if req.Active != nil {
		item.Active = *req.Active
	}

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notice")
	}

	switch {
	case req.RemoveAttachment:
		if err := s.attachments.Clear(ctx, s.repo, item.ID, models.SlotAttachment); err != nil {
			return nil, err
		}
		item.Attachment = ""
	case req.AttachmentKey != "" && req.AttachmentKey != item.Attachment:
		if err := s.attachments.Replace(ctx, s.repo, item.ID, models.SlotAttachment, req.AttachmentKey); err != nil {
			return nil, err
		}
		item.Attachment = req.AttachmentKey
	}

	s.invalidate(ctx)
	recordContentAudit(ctx, s.activity, actorID, models.AuditActionContentUpdate, "notices", item.ID, item, meta)
	return item, nil
}

// Delete removes the notice and its attachment.
func (s *NoticeService) Delete(ctx context.Context, id, actorID string, meta models.RequestMeta) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete notice")
	}

	s.attachments.PurgeKeys(ctx, item.Attachment)
	s.invalidate(ctx)
	recordContentAudit(ctx, s.activity, actorID, models.AuditActionContentDelete, "notices", item.ID, item, meta)
	return nil
}

func (s *NoticeService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, noticeCachePrefix+":*")
}
