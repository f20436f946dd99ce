package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/college-cms-api/internal/middleware"
	"github.com/campusworks/college-cms-api/internal/service"
	appErrors "github.com/campusworks/college-cms-api/pkg/errors"
	"github.com/campusworks/college-cms-api/pkg/response"
)

// NoticeHandler handles notice board endpoints.
type NoticeHandler struct {
	service *service.NoticeService
}

// NewNoticeHandler creates a new notice handler.
func NewNoticeHandler(svc *service.NoticeService) *NoticeHandler {
	return &NoticeHandler{service: svc}
}

// List godoc
// @Summary List notices
// @Description List notices with pagination and filtering
// @Tags Notices
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param category query string false "Category filter"
// @Param active query bool false "Active filter"
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /notices [get]
func (h *NoticeHandler) List(c *gin.Context) {
	start := time.Now()
	notices, pagination, cacheHit, err := h.service.List(c.Request.Context(), contentFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, notices, pagination, meta)
}

// Get godoc
// @Summary Get notice
// @Description Get one notice
// @Tags Notices
// @Produce json
// @Param id path string true "Notice ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notices/{id} [get]
func (h *NoticeHandler) Get(c *gin.Context) {
	notice, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, notice, nil)
}

// Create godoc
// @Summary Create notice
// @Description Publish a notice, optionally referencing an uploaded attachment
// @Tags Notices
// @Accept json
// @Produce json
// @Param payload body service.CreateNoticeRequest true "Create payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/notices [post]
func (h *NoticeHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateNoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	notice, err := h.service.Create(c.Request.Context(), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, notice)
}

// Update godoc
// @Summary Update notice
// @Description Edit a notice; a new attachment key replaces the stored file
// @Tags Notices
// @Accept json
// @Produce json
// @Param id path string true "Notice ID"
// @Param payload body service.UpdateNoticeRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/notices/{id} [put]
func (h *NoticeHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateNoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	notice, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, notice, nil)
}

// Delete godoc
// @Summary Delete notice
// @Description Remove a notice and its attachment
// @Tags Notices
// @Produce json
// @Param id path string true "Notice ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/notices/{id} [delete]
func (h *NoticeHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims.UserID, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
