package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/college-cms-api/internal/middleware"
	"github.com/campusworks/college-cms-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func requestMeta(c *gin.Context) models.RequestMeta {
	return models.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

func contentFilterFromQuery(c *gin.Context) models.ContentFilter {
	var filter models.ContentFilter

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	if active := c.Query("active"); active != "" {
		if val, err := strconv.ParseBool(active); err == nil {
			filter.Active = &val
		}
	}
	if year := c.Query("year"); year != "" {
		if val, err := strconv.Atoi(year); err == nil {
			filter.Year = &val
		}
	}
	filter.Category = c.Query("category")
	filter.Search = c.Query("search")

	return filter
}
