// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/clipr-app/clipr/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// LinkRepository defines operations for links. It is the authoritative
// directory mapping public identifiers (short code or custom slug) to links.
type LinkRepository interface {
	Repository[models.Link, models.LinkFilter]
	ByUUID(ctx context.Context, id uuid.UUID) (*models.Link, error)
	// Resolve matches identifier against short_code or custom_slug and only
	// returns active links. Returns nil, nil on miss.
	Resolve(ctx context.Context, identifier string) (*models.Link, error)
	// IsTaken reports whether identifier collides with any short code or
	// custom slug, active or not. Advisory: the link_identifiers primary key
	// is the authoritative guard.
	IsTaken(ctx context.Context, identifier string) (bool, error)
	// CreateWithIdentifiers inserts the link and its identifier claims in one
	// transaction. A colliding code or slug fails the whole insert with
	// ErrDuplicateKey.
	CreateWithIdentifiers(ctx context.Context, link *models.Link) error
	// IncrementClickCount applies a relative +1 update to click_count without
	// reading the current value.
	IncrementClickCount(ctx context.Context, linkID uint) error
	Update(ctx context.Context, link *models.Link) error
	Deactivate(ctx context.Context, linkID uint) error
	// TotalClickCount sums the denormalized click counters over an owner's links.
	TotalClickCount(ctx context.Context, ownerID uint) (int64, error)
}

// DateCount is one point of a per-day click time series
type DateCount struct {
	Date  time.Time `json:"date"`
	Count int64     `json:"count"`
}

// FacetCount is one row of a categorical breakdown
type FacetCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// ClickRepository defines operations for click records, including the
// aggregation queries behind link analytics. All aggregations are scoped to
// one link and a time window and never mutate state.
type ClickRepository interface {
	Repository[models.Click, models.ClickFilter]
	// CountByDate groups clicks by calendar date, ascending. Dates with no
	// clicks are absent from the result.
	CountByDate(ctx context.Context, linkID uint, since time.Time) ([]DateCount, error)
	// TopFacet ranks the non-empty values of a facet column by descending
	// count. facet must be one of the whitelisted column names.
	TopFacet(ctx context.Context, linkID uint, since time.Time, facet string, limit int) ([]FacetCount, error)
	// DeviceBreakdown is the full descending ranking of non-empty device types.
	DeviceBreakdown(ctx context.Context, linkID uint, since time.Time) ([]FacetCount, error)
	CountSince(ctx context.Context, linkID uint, since time.Time) (int64, error)
	// DistinctVisitors counts distinct non-empty ip_hash values in the window.
	DistinctVisitors(ctx context.Context, linkID uint, since time.Time) (int64, error)
}

// APICredentialRepository defines operations for issued API keys
type APICredentialRepository interface {
	Repository[models.APICredential, models.APICredentialFilter]
	ByKeyHash(ctx context.Context, keyHash string) (*models.APICredential, error)
	ByOwnerID(ctx context.Context, ownerID uint) (*models.APICredential, error)
	// Replace installs a new credential for the owner, removing any previous one.
	Replace(ctx context.Context, cred *models.APICredential) error
	TouchLastUsed(ctx context.Context, id uint, at time.Time) error
}
