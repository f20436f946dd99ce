package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/college-cms-api/internal/service"
	appErrors "github.com/campusworks/college-cms-api/pkg/errors"
	"github.com/campusworks/college-cms-api/pkg/response"
)

// UploadHandler accepts media uploads and hands back storage keys for
// content payloads to reference.
type UploadHandler struct {
	attachments *service.AttachmentService
	permissions *service.PermissionService
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(attachments *service.AttachmentService, permissions *service.PermissionService) *UploadHandler {
	return &UploadHandler{attachments: attachments, permissions: permissions}
}

// uploadPrefixPage maps a storage prefix to the admin page whose grant
// covers it. The fixed content prefixes map one to one; a single level of
// department sub-tree ("departments/<code>") falls under the departments
// page.
func uploadPrefixPage(prefix string) (string, bool) {
	switch prefix {
	case "hero-images", "notices", "magazines":
		return prefix, true
	}
	if code, ok := strings.CutPrefix(prefix, "departments/"); ok {
		if code != "" && !strings.Contains(code, "/") {
			return "departments", true
		}
	}
	return "", false
}

// Upload godoc
// @Summary Upload media
// @Description Store an uploaded file and return its storage key
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Param prefix formData string true "Storage prefix"
// @Param file formData file true "File to upload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/uploads [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	prefix := c.PostForm("prefix")
	page, ok := uploadPrefixPage(prefix)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown upload prefix"))
		return
	}

	// The storage namespace belongs to a page; uploading into it needs the
	// same grant as writing that page's content.
	if err := h.permissions.CanAccessPage(c.Request.Context(), claims.UserID, page); err != nil {
		response.Error(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "missing file"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to read upload"))
		return
	}
	defer file.Close()

	key, err := h.attachments.Store(
		c.Request.Context(),
		prefix,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		file,
	)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"key": key})
}
