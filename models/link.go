package models

import (
	"time"

	"github.com/google/uuid"
)

// Link represents a shortened link record
// ShortCode is always present and system generated; CustomSlug optionally
// overrides it for resolution and display
// OwnerID is an opaque reference to an external account (nullable, no cascade)
// ClickCount is a denormalized running total maintained by relative updates
type Link struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_links_uuid" json:"uuid"`
	ShortCode   string    `gorm:"size:10;not null;uniqueIndex:uk_links_short_code" json:"short_code"`
	CustomSlug  *string   `gorm:"size:100;uniqueIndex:uk_links_custom_slug" json:"custom_slug,omitempty"`
	OriginalURL string    `gorm:"size:2048;not null" json:"original_url"`
	OwnerID     *uint     `gorm:"index:idx_links_owner_id" json:"owner_id,omitempty"`
	Title       string    `gorm:"size:255;not null;default:''" json:"title"`
	IsActive    *bool     `gorm:"not null;default:true" json:"is_active"`
	ClickCount  uint64    `gorm:"not null;default:0" json:"click_count"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_links_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

// TableName returns the table name for Link
func (Link) TableName() string { return "links" }

// DisplayCode returns the identifier shown to users: the custom slug when set,
// otherwise the generated short code.
func (l *Link) DisplayCode() string {
	if l.CustomSlug != nil && *l.CustomSlug != "" {
		return *l.CustomSlug
	}
	return l.ShortCode
}

// LinkFilter provides filter fields for repository queries
type LinkFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	ShortCode     *string
	CustomSlug    *string
	OwnerID       *uint
	IsActive      *bool
	Search        *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// LinkIdentifier is the storage-level claim on a public identifier. Every
// short code and custom slug owns exactly one row here, inserted in the same
// transaction as the link itself. The primary key is what makes the
// code/slug namespace collision free under concurrent creation.
type LinkIdentifier struct {
	Identifier string `gorm:"primaryKey;size:100" json:"identifier"`
	LinkID     uint   `gorm:"not null;index:idx_link_identifiers_link_id" json:"link_id"`
}

// TableName returns the table name for LinkIdentifier
func (LinkIdentifier) TableName() string { return "link_identifiers" }
