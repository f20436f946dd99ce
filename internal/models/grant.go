package models

import (
	"time"

	"github.com/lib/pq"
)

// RoleLevel orders delegated admin authority. Lower is stronger.
type RoleLevel int

const (
	LevelSuperAdmin RoleLevel = 1
	LevelAdmin      RoleLevel = 2
	LevelModerator  RoleLevel = 3
)

// Valid reports whether the level is one of the defined tiers.
func (l RoleLevel) Valid() bool {
	return l >= LevelSuperAdmin && l <= LevelModerator
}

func (l RoleLevel) String() string {
	switch l {
	case LevelSuperAdmin:
		return "super_admin"
	case LevelAdmin:
		return "admin"
	case LevelModerator:
		return "moderator"
	default:
		return "unknown"
	}
}

// GrantStatus is the lifecycle state of a grant. Revocation is a state change,
// never a row deletion, so history stays inspectable.
type GrantStatus string

const (
	GrantActive  GrantStatus = "ACTIVE"
	GrantRevoked GrantStatus = "REVOKED"
)

// PageRoles is the slug that authorizes role management for non-SuperAdmins.
const PageRoles = "roles"

// AdminGrant is a user's delegated admin role: a level plus the set of admin
// pages the user may mutate. At most one ACTIVE grant exists per user.
type AdminGrant struct {
	ID           string         `db:"id" json:"id"`
	UserID       string         `db:"user_id" json:"user_id"`
	Level        RoleLevel      `db:"level" json:"level"`
	AllowedPages pq.StringArray `db:"allowed_pages" json:"allowed_pages"`
	GrantedBy    *string        `db:"granted_by" json:"granted_by,omitempty"`
	GrantedAt    time.Time      `db:"granted_at" json:"granted_at"`
	ExpiresAt    *time.Time     `db:"expires_at" json:"expires_at,omitempty"`
	Status       GrantStatus    `db:"status" json:"status"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// IsSuperAdmin reports whether the grant carries the top level.
func (g *AdminGrant) IsSuperAdmin() bool {
	return g != nil && g.Level == LevelSuperAdmin
}

// IsEffective reports whether the grant confers any authority at the given
// instant. An expired grant behaves exactly like a revoked one.
func (g *AdminGrant) IsEffective(now time.Time) bool {
	if g == nil || g.Status != GrantActive {
		return false
	}
	if g.ExpiresAt != nil && !g.ExpiresAt.After(now) {
		return false
	}
	return true
}

// HasPage reports whether the grant's allow-list contains the page slug.
// SuperAdmin grants implicitly cover every page.
func (g *AdminGrant) HasPage(slug string) bool {
	if g == nil {
		return false
	}
	if g.IsSuperAdmin() {
		return true
	}
	for _, p := range g.AllowedPages {
		if p == slug {
			return true
		}
	}
	return false
}

// GrantFilter captures listing criteria for grants.
type GrantFilter struct {
	Level          *RoleLevel
	IncludeRevoked bool
	ExcludeLevel   *RoleLevel
	Page           int
	PageSize       int
}

// Page describes one administrative screen that can be delegated.
type Page struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// AvailablePages returns the static catalog of delegable admin pages.
func AvailablePages() []Page {
	return []Page{
		{Slug: "users", Name: "User Management"},
		{Slug: PageRoles, Name: "Role Management"},
		{Slug: "hero-images", Name: "Hero Images"},
		{Slug: "notices", Name: "Notices"},
		{Slug: "magazines", Name: "Magazines"},
		{Slug: "departments", Name: "Departments"},
		{Slug: "scholarships", Name: "Scholarships"},
		{Slug: "transcripts", Name: "Transcripts"},
		{Slug: "events", Name: "Events"},
		{Slug: "hostel", Name: "Hostel"},
		{Slug: "wellness", Name: "Wellness"},
		{Slug: "sports", Name: "Sports Facilities"},
		{Slug: "social-initiatives", Name: "Social Initiatives"},
		{Slug: "governance", Name: "Governance"},
		{Slug: "campus-pages", Name: "Campus Pages"},
		{Slug: "campus-life", Name: "Campus Life"},
		{Slug: "academic-content", Name: "Academic Content"},
		{Slug: "women-forum", Name: "Women Forum"},
	}
}

// KnownPage reports whether a slug is part of the catalog.
func KnownPage(slug string) bool {
	for _, p := range AvailablePages() {
		if p.Slug == slug {
			return true
		}
	}
	return false
}
