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

// HeroImageHandler handles homepage carousel endpoints.
type HeroImageHandler struct {
	service *service.HeroImageService
}

// NewHeroImageHandler creates a new hero image handler.
func NewHeroImageHandler(svc *service.HeroImageService) *HeroImageHandler {
	return &HeroImageHandler{service: svc}
}

// List godoc
// @Summary List hero images
// @Description List homepage carousel entries
// @Tags Hero Images
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param active query bool false "Active filter"
// @Success 200 {object} response.Envelope
// @Router /hero-images [get]
func (h *HeroImageHandler) List(c *gin.Context) {
	start := time.Now()
	items, pagination, cacheHit, err := h.service.List(c.Request.Context(), contentFilterFromQuery(c))
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
	response.JSON(c, http.StatusOK, items, pagination, meta)
}

// Get godoc
// @Summary Get hero image
// @Description Get one carousel entry
// @Tags Hero Images
// @Produce json
// @Param id path string true "Hero image ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /hero-images/{id} [get]
func (h *HeroImageHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create hero image
// @Description Add a carousel entry referencing an uploaded image
// @Tags Hero Images
// @Accept json
// @Produce json
// @Param payload body service.CreateHeroImageRequest true "Create payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/hero-images [post]
func (h *HeroImageHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateHeroImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	item, err := h.service.Create(c.Request.Context(), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, item)
}

// Update godoc
// @Summary Update hero image
// @Description Edit a carousel entry; a new image key replaces the stored file
// @Tags Hero Images
// @Accept json
// @Produce json
// @Param id path string true "Hero image ID"
// @Param payload body service.UpdateHeroImageRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/hero-images/{id} [put]
func (h *HeroImageHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateHeroImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	item, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete hero image
// @Description Remove a carousel entry and its stored image
// @Tags Hero Images
// @Produce json
// @Param id path string true "Hero image ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/hero-images/{id} [delete]
func (h *HeroImageHandler) Delete(c *gin.Context) {
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
