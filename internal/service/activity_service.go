package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusworks/college-cms-api/internal/models"
	appErrors "github.com/campusworks/college-cms-api/pkg/errors"
	"github.com/campusworks/college-cms-api/pkg/export"
)

type auditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	Recent(ctx context.Context, limit int) ([]models.AuditLog, error)
	ForActor(ctx context.Context, actorID string, limit int) ([]models.AuditLog, error)
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error)
}

// ActivityConfig tunes the activity-log read surface.
type ActivityConfig struct {
	RecentLimit int
	ExportLimit int
}

// ActivityService records and serves the administrative audit trail. Writes
// that accompany a grant mutation go through the grant repository transaction
// instead; everything else lands here.
type ActivityService struct {
	repo   auditRepository
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
	config ActivityConfig
}

// NewActivityService constructs an ActivityService.
func NewActivityService(repo auditRepository, logger *zap.Logger, config ActivityConfig) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.RecentLimit <= 0 {
		config.RecentLimit = 50
	}
	if config.ExportLimit <= 0 {
		config.ExportLimit = 1000
	}
	return &ActivityService{
		repo:   repo,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
		config: config,
	}
}

// Record appends an audit entry. Recording is best effort: a failure is
// logged and swallowed so the action that triggered it still succeeds.
func (s *ActivityService) Record(ctx context.Context, entry *models.AuditLog) {
	if entry == nil {
		return
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit entry",
			zap.String("action", entry.Action),
			zap.String("resource", entry.Resource),
			zap.Error(err))
	}
}

// Recent returns the newest audit entries, most-recent-first.
func (s *ActivityService) Recent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > s.config.RecentLimit {
		limit = s.config.RecentLimit
	}
	entries, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activity")
	}
	return entries, nil
}

// ForActor returns the newest entries produced by one actor.
func (s *ActivityService) ForActor(ctx context.Context, actorID string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > s.config.RecentLimit {
		limit = s.config.RecentLimit
	}
	entries, err := s.repo.ForActor(ctx, actorID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list actor activity")
	}
	return entries, nil
}

// List returns entries matching the filter.
func (s *ActivityService) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activity")
	}
	return entries, nil
}

// Export renders the filtered audit trail as "csv" or "pdf".
func (s *ActivityService) Export(ctx context.Context, filter models.AuditFilter, format string) ([]byte, string, error) {
	if filter.Limit <= 0 || filter.Limit > s.config.ExportLimit {
		filter.Limit = s.config.ExportLimit
	}
	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity for export")
	}

	dataset := buildActivityDataset(entries)

	switch strings.ToLower(format) {
	case "csv", "":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, "Activity Log")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func buildActivityDataset(entries []models.AuditLog) export.Dataset {
	rows := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		actor := ""
		if e.ActorID != nil {
			actor = *e.ActorID
		}
		resourceID := ""
		if e.ResourceID != nil {
			resourceID = *e.ResourceID
		}
		rows = append(rows, map[string]string{
			"Time":        e.CreatedAt.UTC().Format(time.RFC3339),
			"Actor":       actor,
			"Action":      e.Action,
			"Resource":    e.Resource,
			"Resource ID": resourceID,
			"Details":     compactJSON(e.NewValues),
			"IP":          e.IPAddress,
		})
	}
	return export.Dataset{
		Headers: []string{"Time", "Actor", "Action", "Resource", "Resource ID", "Details", "IP"},
		Rows:    rows,
	}
}

func compactJSON(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
