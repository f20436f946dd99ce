package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/campusworks/college-cms-api/pkg/errors"
)

// SlotStore reads and writes a single named file slot on a content row.
type SlotStore interface {
	GetSlot(ctx context.Context, id, slot string) (string, error)
	SetSlot(ctx context.Context, id, slot, key string) error
}

// BlobStorage abstracts the on-disk media store.
type BlobStorage interface {
	SaveStream(key string, r io.Reader) (string, error)
	Exists(key string) bool
	Delete(key string) error
	DeleteTree(prefix string) error
}

// UploadPolicy bounds incoming files.
type UploadPolicy struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// AttachmentService owns the file half of every content mutation: it stores
// incoming uploads, swaps slot contents without leaving the old file behind,
// and clears whole sub-trees when their owner goes away. Database state is
// authoritative; files are removed only after the row change has landed, so a
// failed request can orphan a file but never dangle a reference.
type AttachmentService struct {
	storage BlobStorage
	metrics *MetricsService
	logger  *zap.Logger
	policy  UploadPolicy
}

// NewAttachmentService constructs an AttachmentService.
func NewAttachmentService(storage BlobStorage, metrics *MetricsService, logger *zap.Logger, policy UploadPolicy) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.MaxFileSizeBytes <= 0 {
		policy.MaxFileSizeBytes = 25 << 20
	}
	return &AttachmentService{storage: storage, metrics: metrics, logger: logger, policy: policy}
}

// Store validates and persists an upload under the given prefix, returning
// the storage key. Keys are generated, never taken from the client filename.
func (s *AttachmentService) Store(ctx context.Context, prefix, filename, contentType string, size int64, r io.Reader) (string, error) {
	if size > s.policy.MaxFileSizeBytes {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", s.policy.MaxFileSizeBytes))
	}
	if len(s.policy.AllowedMIMEs) > 0 && !s.mimeAllowed(contentType) {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("content type %q is not allowed", contentType))
	}

	ext := strings.ToLower(filepath.Ext(filename))
	key := fmt.Sprintf("%s/%d_%s%s", strings.Trim(prefix, "/"), time.Now().UTC().Unix(), uuid.NewString()[:8], ext)

	limited := io.LimitReader(r, s.policy.MaxFileSizeBytes+1)
	stored, err := s.storage.SaveStream(key, limited)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload")
	}
	return stored, nil
}

// Replace points a slot at newKey and removes the file it previously held.
// The slot update commits first; the old file is then deleted best effort, so
// a storage hiccup costs disk space, never a broken reference.
func (s *AttachmentService) Replace(ctx context.Context, store SlotStore, id, slot, newKey string) error {
	oldKey, err := store.GetSlot(ctx, id, slot)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read attachment slot")
	}
	if oldKey == newKey {
		return nil
	}
	if err := store.SetSlot(ctx, id, slot, newKey); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attachment slot")
	}
	s.cleanup(oldKey)
	return nil
}

// Clear empties a slot and removes its file.
func (s *AttachmentService) Clear(ctx context.Context, store SlotStore, id, slot string) error {
	return s.Replace(ctx, store, id, slot, "")
}

// PurgeKeys removes the given storage keys, typically after their owning row
// has been deleted. Missing files are fine; failures are logged and counted.
func (s *AttachmentService) PurgeKeys(ctx context.Context, keys ...string) {
	for _, key := range keys {
		s.cleanup(key)
	}
}

// PurgeSubtree removes every file under a storage prefix, e.g. a deleted
// department's whole media folder.
func (s *AttachmentService) PurgeSubtree(ctx context.Context, prefix string) {
	if prefix == "" {
		return
	}
	if err := s.storage.DeleteTree(prefix); err != nil {
		s.logger.Warn("failed to purge media subtree", zap.String("prefix", prefix), zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordFileCleanup(false)
		}
		return
	}
	if s.metrics != nil {
		s.metrics.RecordFileCleanup(true)
	}
}

func (s *AttachmentService) cleanup(key string) {
	if key == "" {
		return
	}
	if !s.storage.Exists(key) {
		return
	}
	if err := s.storage.Delete(key); err != nil {
		s.logger.Warn("failed to delete replaced attachment", zap.String("key", key), zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordFileCleanup(false)
		}
		return
	}
	if s.metrics != nil {
		s.metrics.RecordFileCleanup(true)
	}
}

func (s *AttachmentService) mimeAllowed(contentType string) bool {
	base := contentType
	if idx := strings.Index(base, ";"); idx >= 0 {
		base = base[:idx]
	}
	base = strings.TrimSpace(strings.ToLower(base))
	for _, allowed := range s.policy.AllowedMIMEs {
		if base == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}
