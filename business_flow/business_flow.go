package businessflow

import (
	"context"
	"time"

	"github.com/clipr-app/clipr/models"
)

// ClickEvent is the immutable snapshot of one visit, captured on the request
// path and handed to the recorder. Raw header values only; classification and
// hashing happen off the redirect path.
type ClickEvent struct {
	LinkID        uint
	OccurredAt    time.Time
	IP            string
	UserAgent     string
	Referrer      string
	CountryHeader string
	CityHeader    string
}

// ClickRecorder accepts click events for asynchronous persistence. Enqueue
// must never block; it reports false when the event was dropped.
type ClickRecorder interface {
	Enqueue(event ClickEvent) bool
}

// LinkCache is a read-through cache over identifier resolution. A nil cache
// implementation is valid and means every lookup hits storage.
type LinkCache interface {
	GetLink(ctx context.Context, identifier string) (*models.Link, error)
	SetLink(ctx context.Context, identifier string, link *models.Link) error
	InvalidateLink(ctx context.Context, identifiers ...string) error
}
