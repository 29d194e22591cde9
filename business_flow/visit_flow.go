package businessflow

import (
	"context"

	"github.com/clipr-app/clipr/models"
	"github.com/clipr-app/clipr/repository"
)

// VisitFlow resolves a public identifier and enqueues a click record
// Returns the target URL to redirect
// Click persistence is fire and forget and never delays the redirect
// Public flow, no authentication required
type VisitFlow interface {
	Visit(ctx context.Context, identifier string, event ClickEvent) (string, error)
}

type VisitFlowImpl struct {
	linkRepo repository.LinkRepository
	cache    LinkCache
	recorder ClickRecorder
}

func NewVisitFlow(linkRepo repository.LinkRepository, cache LinkCache, recorder ClickRecorder) VisitFlow {
	return &VisitFlowImpl{linkRepo: linkRepo, cache: cache, recorder: recorder}
}

func (f *VisitFlowImpl) Visit(ctx context.Context, identifier string, event ClickEvent) (string, error) {
	link, err := f.lookup(ctx, identifier)
	if err != nil {
		return "", NewBusinessError("LINK_LOOKUP_FAILED", "Failed to lookup link", err)
	}
	if link == nil {
		return "", ErrLinkNotFound
	}

	event.LinkID = link.ID
	if f.recorder != nil {
		// Drops are counted by the recorder itself; the redirect goes
		// through either way.
		f.recorder.Enqueue(event)
	}

	return link.OriginalURL, nil
}

func (f *VisitFlowImpl) lookup(ctx context.Context, identifier string) (*models.Link, error) {
	if f.cache != nil {
		if cached, err := f.cache.GetLink(ctx, identifier); err == nil && cached != nil {
			return cached, nil
		}
	}

	link, err := f.linkRepo.Resolve(ctx, identifier)
	if err != nil || link == nil {
		return link, err
	}

	if f.cache != nil {
		// Cache failures are invisible to visitors.
		_ = f.cache.SetLink(ctx, identifier, link)
	}
	return link, nil
}
