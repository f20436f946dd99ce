package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/college-cms-api/internal/models"
	"github.com/campusworks/college-cms-api/internal/service"
	appErrors "github.com/campusworks/college-cms-api/pkg/errors"
	"github.com/campusworks/college-cms-api/pkg/response"
)

// RoleHandler exposes the delegated-role management endpoints.
type RoleHandler struct {
	roles       *service.RoleService
	permissions *service.PermissionService
}

// NewRoleHandler creates a new role handler.
func NewRoleHandler(roles *service.RoleService, permissions *service.PermissionService) *RoleHandler {
	return &RoleHandler{roles: roles, permissions: permissions}
}

// List godoc
// @Summary List role grants
// @Description List delegated admin roles visible to the caller
// @Tags Roles
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param level query int false "Level filter"
// @Param include_revoked query bool false "Include revoked grants"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/roles [get]
func (h *RoleHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.GrantFilter
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	if level := c.Query("level"); level != "" {
		if val, err := strconv.Atoi(level); err == nil {
			l := models.RoleLevel(val)
			filter.Level = &l
		}
	}
	if include := c.Query("include_revoked"); include != "" {
		if val, err := strconv.ParseBool(include); err == nil {
			filter.IncludeRevoked = val
		}
	}

	grants, pagination, err := h.roles.List(c.Request.Context(), claims.UserID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, grants, pagination)
}

// Get godoc
// @Summary Get role grant
// @Description Get one delegated admin role
// @Tags Roles
// @Produce json
// @Param id path string true "Grant ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/roles/{id} [get]
func (h *RoleHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	grant, err := h.roles.Get(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, grant, nil)
}

// Upsert godoc
// @Summary Grant or reshape a role
// @Description Grant a delegated admin role, or reshape the target's active grant
// @Tags Roles
// @Accept json
// @Produce json
// @Param payload body service.UpsertGrantRequest true "Grant payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/roles [post]
func (h *RoleHandler) Upsert(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpsertGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grant payload"))
		return
	}

	grant, err := h.roles.Upsert(c.Request.Context(), claims.UserID, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, grant, nil)
}

// Revoke godoc
// @Summary Revoke a role
// @Description Revoke a delegated admin role; the grant row is kept for history
// @Tags Roles
// @Produce json
// @Param id path string true "Grant ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/roles/{id} [delete]
func (h *RoleHandler) Revoke(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.roles.Revoke(c.Request.Context(), claims.UserID, c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// AvailablePages godoc
// @Summary List delegable pages
// @Description Catalog of admin pages that can appear in a grant's allow-list
// @Tags Roles
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/role-pages [get]
func (h *RoleHandler) AvailablePages(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	pages, err := h.roles.AvailablePages(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, pages, nil)
}

// MyPermissions godoc
// @Summary Resolve own permissions
// @Description Resolve the caller's effective authority for the admin UI
// @Tags Roles
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/my-permissions [get]
func (h *RoleHandler) MyPermissions(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	summary, err := h.permissions.Summary(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, summary, nil)
}
