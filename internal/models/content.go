package models

import (
	"encoding/json"
	"time"
)

// Slot names shared by the attachment-bearing content entities. Each slot
// stores a storage key (relative path) or is empty.
const (
	SlotImage      = "image"
	SlotAttachment = "attachment"
	SlotCoverImage = "cover_image"
	SlotFile       = "file"
	SlotHeroImage  = "hero_image"
	SlotVideo      = "video"
)

// HeroImage is a homepage carousel entry with a single image slot.
type HeroImage struct {
	ID           string    `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	Description  *string   `db:"description" json:"description,omitempty"`
	Image        string    `db:"image" json:"image"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Notice is a published announcement with an optional file attachment.
type Notice struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Body        string    `db:"body" json:"body"`
	Category    string    `db:"category" json:"category"`
	Attachment  string    `db:"attachment" json:"attachment,omitempty"`
	PublishedAt time.Time `db:"published_at" json:"published_at"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Magazine is an issue of the college magazine: a cover image plus the
// magazine file itself, each independently replaceable.
type Magazine struct {
	ID         string    `db:"id" json:"id"`
	Title      string    `db:"title" json:"title"`
	Year       int       `db:"year" json:"year"`
	CoverImage string    `db:"cover_image" json:"cover_image,omitempty"`
	File       string    `db:"file" json:"file,omitempty"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Department owns a hero image slot plus a whole storage sub-tree
// (departments/<code>/) holding gallery media.
type Department struct {
	ID           string          `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Code         string          `db:"code" json:"code"`
	Description  *string         `db:"description" json:"description,omitempty"`
	HeadName     *string         `db:"head_name" json:"head_name,omitempty"`
	ContactEmail *string         `db:"contact_email" json:"contact_email,omitempty"`
	HeroImage    string          `db:"hero_image" json:"hero_image,omitempty"`
	Mission      *string         `db:"mission" json:"mission,omitempty"`
	Vision       *string         `db:"vision" json:"vision,omitempty"`
	Facilities   json.RawMessage `db:"facilities" json:"facilities,omitempty"`
	Active       bool            `db:"active" json:"active"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// GalleryMediaType discriminates gallery entries.
type GalleryMediaType string

const (
	GalleryMediaImage GalleryMediaType = "image"
	GalleryMediaVideo GalleryMediaType = "video"
)

// DepartmentGalleryItem is one gallery entry under a department's sub-tree.
type DepartmentGalleryItem struct {
	ID           string           `db:"id" json:"id"`
	DepartmentID string           `db:"department_id" json:"department_id"`
	MediaType    GalleryMediaType `db:"media_type" json:"media_type"`
	Image        string           `db:"image" json:"image,omitempty"`
	Video        string           `db:"video" json:"video,omitempty"`
	Caption      *string          `db:"caption" json:"caption,omitempty"`
	DisplayOrder int              `db:"display_order" json:"display_order"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// ContentFilter captures shared listing criteria for content resources.
type ContentFilter struct {
	Search   string
	Active   *bool
	Category string
	Year     *int
	Page     int
	PageSize int
}
