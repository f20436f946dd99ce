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

// DepartmentHandler handles department and gallery endpoints.
type DepartmentHandler struct {
	service *service.DepartmentService
}

// NewDepartmentHandler creates a new department handler.
func NewDepartmentHandler(svc *service.DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{service: svc}
}

// List godoc
// @Summary List departments
// @Description List departments with pagination and filtering
// @Tags Departments
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param active query bool false "Active filter"
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /departments [get]
func (h *DepartmentHandler) List(c *gin.Context) {
	start := time.Now()
	departments, pagination, cacheHit, err := h.service.List(c.Request.Context(), contentFilterFromQuery(c))
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
	response.JSON(c, http.StatusOK, departments, pagination, meta)
}

// Get godoc
// @Summary Get department
// @Description Get one department
// @Tags Departments
// @Produce json
// @Param id path string true "Department ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /departments/{id} [get]
func (h *DepartmentHandler) Get(c *gin.Context) {
	department, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, department, nil)
}

// Create godoc
// @Summary Create department
// @Description Create a department; its code names the media sub-tree
// @Tags Departments
// @Accept json
// @Produce json
// @Param payload body service.CreateDepartmentRequest true "Create payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/departments [post]
func (h *DepartmentHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	department, err := h.service.Create(c.Request.Context(), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, department)
}

// Update godoc
// @Summary Update department
// @Description Edit a department; the code is immutable
// @Tags Departments
// @Accept json
// @Produce json
// @Param id path string true "Department ID"
// @Param payload body service.UpdateDepartmentRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/departments/{id} [put]
func (h *DepartmentHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	department, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, department, nil)
}

// Delete godoc
// @Summary Delete department
// @Description Remove a department and its whole media sub-tree
// @Tags Departments
// @Produce json
// @Param id path string true "Department ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/departments/{id} [delete]
func (h *DepartmentHandler) Delete(c *gin.Context) {
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

// ListGallery godoc
// @Summary List department gallery
// @Description List gallery media for one department
// @Tags Departments
// @Produce json
// @Param id path string true "Department ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /departments/{id}/gallery [get]
func (h *DepartmentHandler) ListGallery(c *gin.Context) {
	items, err := h.service.ListGallery(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, nil)
}

// AddGalleryItem godoc
// @Summary Add gallery item
// @Description Add one media entry to a department gallery
// @Tags Departments
// @Accept json
// @Produce json
// @Param id path string true "Department ID"
// @Param payload body service.AddGalleryItemRequest true "Gallery item payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/departments/{id}/gallery [post]
func (h *DepartmentHandler) AddGalleryItem(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.AddGalleryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	item, err := h.service.AddGalleryItem(c.Request.Context(), c.Param("id"), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, item)
}

type replaceGalleryMediaRequest struct {
	MediaKey string `json:"media_key" binding:"required"`
}

// ReplaceGalleryMedia godoc
// @Summary Replace gallery media
// @Description Swap the stored media behind a gallery item
// @Tags Departments
// @Accept json
// @Produce json
// @Param itemId path string true "Gallery item ID"
// @Param payload body handler.replaceGalleryMediaRequest true "Replacement payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/gallery/{itemId}/media [put]
func (h *DepartmentHandler) ReplaceGalleryMedia(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req replaceGalleryMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	item, err := h.service.ReplaceGalleryMedia(c.Request.Context(), c.Param("itemId"), req.MediaKey, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, item, nil)
}

// RemoveGalleryItem godoc
// @Summary Remove gallery item
// @Description Remove a gallery item and its stored media
// @Tags Departments
// @Produce json
// @Param itemId path string true "Gallery item ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/gallery/{itemId} [delete]
func (h *DepartmentHandler) RemoveGalleryItem(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.RemoveGalleryItem(c.Request.Context(), c.Param("itemId"), claims.UserID, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
