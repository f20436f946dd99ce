package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusworks/college-cms-api/internal/models"
	appErrors "github.com/campusworks/college-cms-api/pkg/errors"
)

type grantRepository interface {
	FindActiveByUserID(ctx context.Context, userID string) (*models.AdminGrant, error)
	FindByID(ctx context.Context, id string) (*models.AdminGrant, error)
	List(ctx context.Context, filter models.GrantFilter) ([]models.AdminGrant, int, error)
	CreateWithAudit(ctx context.Context, grant *models.AdminGrant, entry *models.AuditLog) error
	UpdateWithAudit(ctx context.Context, grant *models.AdminGrant, entry *models.AuditLog) error
	RevokeWithAudit(ctx context.Context, id string, entry *models.AuditLog) error
}

type grantUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// UpsertGrantRequest is the payload for granting or reshaping a role.
type UpsertGrantRequest struct {
	UserID       string     `json:"user_id" validate:"required,uuid4"`
	Level        int        `json:"level" validate:"omitempty,min=1,max=3"`
	AllowedPages []string   `json:"allowed_pages"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// RolesConfig sets defaults for role delegation.
type RolesConfig struct {
	DefaultLevel models.RoleLevel
}

// RoleService owns the grant lifecycle: issuing, reshaping, and revoking
// delegated admin roles. Every mutation lands with its audit entry in one
// transaction, so the trail can never silently miss a change.
type RoleService struct {
	grants      grantRepository
	users       grantUserReader
	permissions *PermissionService
	validator   *validator.Validate
	logger      *zap.Logger
	config      RolesConfig
}

// NewRoleService constructs a RoleService.
func NewRoleService(grants grantRepository, users grantUserReader, permissions *PermissionService, validate *validator.Validate, logger *zap.Logger, config RolesConfig) *RoleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if !config.DefaultLevel.Valid() {
		config.DefaultLevel = models.LevelAdmin
	}
	return &RoleService{
		grants:      grants,
		users:       users,
		permissions: permissions,
		validator:   validate,
		logger:      logger,
		config:      config,
	}
}

// Upsert grants a role to a user, or reshapes the user's existing active
// grant. Non-SuperAdmin actors can neither assign the SuperAdmin level nor
// touch an existing SuperAdmin grant.
func (s *RoleService) Upsert(ctx context.Context, actorID string, req UpsertGrantRequest, meta models.RequestMeta) (*models.AdminGrant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grant payload")
	}

	actorGrant, err := s.permissions.CanManageRoles(ctx, actorID)
	if err != nil {
		return nil, err
	}

	level := models.RoleLevel(req.Level)
	if req.Level == 0 {
		level = s.config.DefaultLevel
	}
	if !level.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown role level %d", req.Level))
	}
	if level == models.LevelSuperAdmin && !actorGrant.IsSuperAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only a super admin may assign the super admin level")
	}

	for _, slug := range req.AllowedPages {
		if !models.KnownPage(slug) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown page %q", slug))
		}
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "expiry must be in the future")
	}

	target, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "target user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load target user")
	}

	existing, err := s.grants.FindActiveByUserID(ctx, target.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing grant")
	}

	if existing != nil {
		if existing.IsSuperAdmin() && !actorGrant.IsSuperAdmin() {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only a super admin may modify a super admin grant")
		}
		before := grantSnapshot(existing)

		existing.Level = level
		existing.AllowedPages = req.AllowedPages
		existing.ExpiresAt = req.ExpiresAt
		existing.GrantedBy = &actorID

		entry := s.auditEntry(actorID, models.AuditActionUpdateRole, existing.ID, before, grantSnapshot(existing), meta)
		if err := s.grants.UpdateWithAudit(ctx, existing, entry); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grant")
		}
		s.permissions.Invalidate(ctx, target.ID)
		return existing, nil
	}

	grant := &models.AdminGrant{
		ID:           uuid.NewString(),
		UserID:       target.ID,
		Level:        level,
		AllowedPages: req.AllowedPages,
		GrantedBy:    &actorID,
		ExpiresAt:    req.ExpiresAt,
		Status:       models.GrantActive,
	}

	entry := s.auditEntry(actorID, models.AuditActionGrantRole, grant.ID, nil, grantSnapshot(grant), meta)
	if err := s.grants.CreateWithAudit(ctx, grant, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grant")
	}
	s.permissions.Invalidate(ctx, target.ID)
	return grant, nil
}

// Revoke marks a grant REVOKED. The row survives so history stays auditable.
func (s *RoleService) Revoke(ctx context.Context, actorID, grantID string, meta models.RequestMeta) error {
	actorGrant, err := s.permissions.CanManageRoles(ctx, actorID)
	if err != nil {
		return err
	}

	grant, err := s.loadVisibleGrant(ctx, actorGrant, grantID)
	if err != nil {
		return err
	}
	if grant.Status == models.GrantRevoked {
		return appErrors.Clone(appErrors.ErrConflict, "grant is already revoked")
	}
	if grant.IsSuperAdmin() && !actorGrant.IsSuperAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "only a super admin may revoke a super admin grant")
	}

	entry := s.auditEntry(actorID, models.AuditActionRevokeRole, grant.ID, grantSnapshot(grant), map[string]interface{}{"status": models.GrantRevoked}, meta)
	if err := s.grants.RevokeWithAudit(ctx, grant.ID, entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke grant")
	}
	s.permissions.Invalidate(ctx, grant.UserID)
	return nil
}

// List returns grants visible to the actor. SuperAdmin grants are hidden
// from actors below that level.
func (s *RoleService) List(ctx context.Context, actorID string, filter models.GrantFilter) ([]models.AdminGrant, *models.Pagination, error) {
	actorGrant, err := s.permissions.CanManageRoles(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}

	if !actorGrant.IsSuperAdmin() {
		exclude := models.LevelSuperAdmin
		filter.ExcludeLevel = &exclude
	}

	grants, total, err := s.grants.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grants")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return grants, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns one grant if the actor is allowed to see it.
func (s *RoleService) Get(ctx context.Context, actorID, grantID string) (*models.AdminGrant, error) {
	actorGrant, err := s.permissions.CanManageRoles(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return s.loadVisibleGrant(ctx, actorGrant, grantID)
}

// AvailablePages returns the delegable page catalog for the grant form.
func (s *RoleService) AvailablePages(ctx context.Context, actorID string) ([]models.Page, error) {
	if _, err := s.permissions.CanManageRoles(ctx, actorID); err != nil {
		return nil, err
	}
	return models.AvailablePages(), nil
}

// loadVisibleGrant hides SuperAdmin grants from lower-level actors: to them
// the grant simply does not exist.
func (s *RoleService) loadVisibleGrant(ctx context.Context, actorGrant *models.AdminGrant, grantID string) (*models.AdminGrant, error) {
	grant, err := s.grants.FindByID(ctx, grantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grant")
	}
	if grant.IsSuperAdmin() && !actorGrant.IsSuperAdmin() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "grant not found")
	}
	return grant, nil
}

func (s *RoleService) auditEntry(actorID, action, resourceID string, before, after interface{}, meta models.RequestMeta) *models.AuditLog {
	entry := &models.AuditLog{
		ActorID:   &actorID,
		Action:    action,
		Resource:  "admin_grants",
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if before != nil {
		if raw, err := json.Marshal(before); err == nil {
			entry.OldValues = raw
		}
	}
	if after != nil {
		if raw, err := json.Marshal(after); err == nil {
			entry.NewValues = raw
		}
	}
	return entry
}

func grantSnapshot(g *models.AdminGrant) map[string]interface{} {
	if g == nil {
		return nil
	}
	return map[string]interface{}{
		"user_id":       g.UserID,
		"level":         g.Level,
		"level_name":    g.Level.String(),
		"allowed_pages": []string(g.AllowedPages),
		"expires_at":    g.ExpiresAt,
		"status":        g.Status,
	}
}
