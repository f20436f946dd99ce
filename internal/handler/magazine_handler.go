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

// MagazineHandler handles magazine issue endpoints.
type MagazineHandler struct {
	service *service.MagazineService
}

// NewMagazineHandler creates a new magazine handler.
func NewMagazineHandler(svc *service.MagazineService) *MagazineHandler {
	return &MagazineHandler{service: svc}
}

// List godoc
// @Summary List magazines
// @Description List magazine issues with pagination and filtering
// @Tags Magazines
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param year query int false "Publication year"
// @Param active query bool false "Active filter"
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /magazines [get]
func (h *MagazineHandler) List(c *gin.Context) {
	start := time.Now()
	issues, pagination, cacheHit, err := h.service.List(c.Request.Context(), contentFilterFromQuery(c))
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
	response.JSON(c, http.StatusOK, issues, pagination, meta)
}

// Get godoc
// @Summary Get magazine
// @Description Get one magazine issue
// @Tags Magazines
// @Produce json
// @Param id path string true "Magazine ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /magazines/{id} [get]
func (h *MagazineHandler) Get(c *gin.Context) {
	issue, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, issue, nil)
}

// Create godoc
// @Summary Create magazine
// @Description Add a magazine issue referencing uploaded cover and file
// @Tags Magazines
// @Accept json
// @Produce json
// @Param payload body service.CreateMagazineRequest true "Create payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/magazines [post]
func (h *MagazineHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateMagazineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	issue, err := h.service.Create(c.Request.Context(), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, issue)
}

// Update godoc
// @Summary Update magazine
// @Description Edit a magazine issue; new keys replace the stored cover or file
// @Tags Magazines
// @Accept json
// @Produce json
// @Param id path string true "Magazine ID"
// @Param payload body service.UpdateMagazineRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/magazines/{id} [put]
func (h *MagazineHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateMagazineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	issue, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, issue, nil)
}

// Delete godoc
// @Summary Delete magazine
// @Description Remove a magazine issue together with its cover and file
// @Tags Magazines
// @Produce json
// @Param id path string true "Magazine ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/magazines/{id} [delete]
func (h *MagazineHandler) Delete(c *gin.Context) {
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
