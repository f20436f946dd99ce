package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/campusworks/college-cms-api/internal/models"
)

func contentListKey(prefix string, filter models.ContentFilter) string {
	active := "any"
	if filter.Active != nil {
		active = fmt.Sprintf("%t", *filter.Active)
	}
	year := 0
	if filter.Year != nil {
		year = *filter.Year
	}
	return fmt.Sprintf("%s:list:%d:%d:%s:%s:%d:%s", prefix, filter.Page, filter.PageSize, filter.Category, filter.Search, year, active)
}

func contentPagination(filter models.ContentFilter, total int) *models.Pagination {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	return &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}

func recordContentAudit(ctx context.Context, activity activityRecorder, actorID, action, resource, resourceID string, value interface{}, meta models.RequestMeta) {
	entry := &models.AuditLog{
		ActorID:    &actorID,
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if raw, err := json.Marshal(value); err == nil {
		entry.NewValues = raw
	}
	activity.Record(ctx, entry)
}
