package models

import "time"

// APICredential holds an issued API key for an external account.
// Only a one way hash and a short display prefix are kept; the raw key is
// returned to the caller once at issue time and never persisted.
type APICredential struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	OwnerID   uint   `gorm:"not null;uniqueIndex:uk_api_credentials_owner_id" json:"owner_id"`
	KeyHash   string `gorm:"size:64;not null;uniqueIndex:uk_api_credentials_key_hash" json:"-"`
	KeyPrefix string `gorm:"size:8;not null" json:"key_prefix"`

	CreatedAt  time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// TableName returns the table name for APICredential
func (APICredential) TableName() string { return "api_credentials" }

// APICredentialFilter provides filter fields for repository queries
type APICredentialFilter struct {
	ID      *uint
	OwnerID *uint
	KeyHash *string
}
