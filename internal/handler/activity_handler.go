package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/college-cms-api/internal/models"
	"github.com/campusworks/college-cms-api/internal/service"
	"github.com/campusworks/college-cms-api/pkg/response"
)

// ActivityHandler serves the audit-trail read endpoints.
type ActivityHandler struct {
	service *service.ActivityService
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(svc *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{service: svc}
}

// Recent godoc
// @Summary Recent activity
// @Description Newest audit entries, most-recent-first
// @Tags Activity
// @Produce json
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/activity [get]
func (h *ActivityHandler) Recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	entries, err := h.service.Recent(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, nil)
}

// ForActor godoc
// @Summary Activity by actor
// @Description Newest audit entries produced by one actor
// @Tags Activity
// @Produce json
// @Param id path string true "Actor user ID"
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/activity/actor/{id} [get]
func (h *ActivityHandler) ForActor(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	entries, err := h.service.ForActor(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, nil)
}

// Export godoc
// @Summary Export activity
// @Description Export the filtered audit trail as CSV or PDF
// @Tags Activity
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Param action query string false "Action filter"
// @Param resource query string false "Resource filter"
// @Param actor_id query string false "Actor filter"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/activity/export [get]
func (h *ActivityHandler) Export(c *gin.Context) {
	var filter models.AuditFilter
	filter.Action = c.Query("action")
	filter.Resource = c.Query("resource")
	if actor := c.Query("actor_id"); actor != "" {
		filter.ActorID = &actor
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "0")); err == nil {
		filter.Limit = limit
	}

	format := c.DefaultQuery("format", "csv")
	payload, contentType, err := h.service.Export(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	ext := "csv"
	if contentType == "application/pdf" {
		ext = "pdf"
	}
	filename := fmt.Sprintf("activity-%s.%s", time.Now().UTC().Format("20060102-150405"), ext)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}

