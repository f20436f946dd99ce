package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campusworks/college-cms-api/internal/models"
	appErrors "github.com/campusworks/college-cms-api/pkg/errors"
)

type grantReader interface {
	FindActiveByUserID(ctx context.Context, userID string) (*models.AdminGrant, error)
}

// PermissionSummary is the resolved authority of one user, as served to the
// admin UI so it can decide which screens to show.
type PermissionSummary struct {
	HasRole      bool             `json:"has_role"`
	Level        models.RoleLevel `json:"level,omitempty"`
	LevelName    string           `json:"level_name,omitempty"`
	IsSuperAdmin bool             `json:"is_super_admin"`
	AllowedPages []string         `json:"allowed_pages"`
	ExpiresAt    *time.Time       `json:"expires_at,omitempty"`
}

// PermissionService is the authorization gate. Every privileged request goes
// through it; handlers never inspect grants directly.
type PermissionService struct {
	grants  grantReader
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	ttl     time.Duration
	now     func() time.Time
}

// NewPermissionService constructs a PermissionService.
func NewPermissionService(grants grantReader, cache *CacheService, metrics *MetricsService, logger *zap.Logger, ttl time.Duration) *PermissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &PermissionService{
		grants:  grants,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		ttl:     ttl,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func permissionCacheKey(userID string) string {
	return fmt.Sprintf("perm:%s", userID)
}

// EffectiveGrant resolves the user's grant, or nil when the user holds no
// effective authority. Expiry is checked lazily at resolution time; an
// expired grant confers nothing even though its row still says ACTIVE.
func (s *PermissionService) EffectiveGrant(ctx context.Context, userID string) (*models.AdminGrant, error) {
	if userID == "" {
		return nil, nil
	}

	var cached models.AdminGrant
	if hit, _ := s.cache.Get(ctx, permissionCacheKey(userID), &cached); hit {
		if cached.IsEffective(s.now()) {
			return &cached, nil
		}
		return nil, nil
	}

	grant, err := s.grants.FindActiveByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve permissions")
	}

	if err := s.cache.Set(ctx, permissionCacheKey(userID), grant, s.ttl); err != nil {
		s.logger.Debug("permission cache write failed", zap.String("user_id", userID), zap.Error(err))
	}

	if !grant.IsEffective(s.now()) {
		return nil, nil
	}
	return grant, nil
}

// CanAccessPage returns nil when the user may mutate the given admin page.
// It returns ErrForbidden both for users with no grant and for grants whose
// allow-list lacks the page.
func (s *PermissionService) CanAccessPage(ctx context.Context, userID, slug string) error {
	grant, err := s.EffectiveGrant(ctx, userID)
	if err != nil {
		return err
	}
	allowed := grant.HasPage(slug)
	if s.metrics != nil {
		s.metrics.RecordAuthzDecision(slug, allowed)
	}
	if !allowed {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("no access to page %q", slug))
	}
	return nil
}

// CanManageRoles reports whether the user may grant, update, or revoke roles:
// SuperAdmins always can, others only when their allow-list carries the
// roles page.
func (s *PermissionService) CanManageRoles(ctx context.Context, userID string) (*models.AdminGrant, error) {
	grant, err := s.EffectiveGrant(ctx, userID)
	if err != nil {
		return nil, err
	}
	allowed := grant.IsSuperAdmin() || grant.HasPage(models.PageRoles)
	if s.metrics != nil {
		s.metrics.RecordAuthzDecision(models.PageRoles, allowed)
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role management requires the roles page")
	}
	return grant, nil
}

// Summary resolves the user's authority into the shape the admin UI consumes.
func (s *PermissionService) Summary(ctx context.Context, userID string) (*PermissionSummary, error) {
	grant, err := s.EffectiveGrant(ctx, userID)
	if err != nil {
		return nil, err
	}
	if grant == nil {
		return &PermissionSummary{AllowedPages: []string{}}, nil
	}

	pages := make([]string, 0, len(grant.AllowedPages))
	if grant.IsSuperAdmin() {
		for _, p := range models.AvailablePages() {
			pages = append(pages, p.Slug)
		}
	} else {
		pages = append(pages, grant.AllowedPages...)
	}

	return &PermissionSummary{
		HasRole:      true,
		Level:        grant.Level,
		LevelName:    grant.Level.String(),
		IsSuperAdmin: grant.IsSuperAdmin(),
		AllowedPages: pages,
		ExpiresAt:    grant.ExpiresAt,
	}, nil
}

// Invalidate drops the cached grant for a user. Called after any grant
// mutation so revocation takes effect on the next request.
func (s *PermissionService) Invalidate(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, permissionCacheKey(userID)); err != nil {
		s.logger.Warn("failed to invalidate permission cache", zap.String("user_id", userID), zap.Error(err))
	}
}
