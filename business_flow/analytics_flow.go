package businessflow

import (
	"context"

	"github.com/clipr-app/clipr/app/dto"
	"github.com/clipr-app/clipr/models"
	"github.com/clipr-app/clipr/repository"
	"github.com/clipr-app/clipr/utils"
	"github.com/google/uuid"
)

// StatsCache caches the public stats snapshot for a short period so hot
// links do not hammer the database. Nil means no caching.
type StatsCache interface {
	GetStats(ctx context.Context, identifier string) (*dto.PublicStatsResponse, error)
	SetStats(ctx context.Context, identifier string, stats *dto.PublicStatsResponse) error
	GetSiteStats(ctx context.Context) (*dto.SiteStatsResponse, error)
	SetSiteStats(ctx context.Context, stats *dto.SiteStatsResponse) error
}

// AnalyticsFlow aggregates recorded clicks into per-link summaries
// All reads are scoped to the requested time window and mutate nothing, so
// repeated calls over the same data return the same summary
type AnalyticsFlow interface {
	Summarize(ctx context.Context, linkUUID uuid.UUID, ownerID uint, windowDays int) (*dto.LinkAnalyticsResponse, error)
	PublicStats(ctx context.Context, identifier string) (*dto.PublicStatsResponse, error)
	SiteStats(ctx context.Context) (*dto.SiteStatsResponse, error)
}

type AnalyticsFlowImpl struct {
	linkRepo  repository.LinkRepository
	clickRepo repository.ClickRepository
	stats     StatsCache
}

func NewAnalyticsFlow(linkRepo repository.LinkRepository, clickRepo repository.ClickRepository, stats StatsCache) AnalyticsFlow {
	return &AnalyticsFlowImpl{linkRepo: linkRepo, clickRepo: clickRepo, stats: stats}
}

func (f *AnalyticsFlowImpl) Summarize(ctx context.Context, linkUUID uuid.UUID, ownerID uint, windowDays int) (*dto.LinkAnalyticsResponse, error) {
	if !utils.AllowedWindowDays[windowDays] {
		windowDays = utils.DefaultWindowDays
	}

	link, err := f.linkRepo.ByUUID(ctx, linkUUID)
	if err != nil {
		return nil, NewBusinessError("LINK_LOOKUP_FAILED", "Failed to lookup link", err)
	}
	if link == nil {
		return nil, ErrLinkNotFound
	}
	if link.OwnerID == nil || *link.OwnerID != ownerID {
		return nil, ErrLinkAccessDenied
	}

	since := utils.UTCNow().AddDate(0, 0, -windowDays)

	total, err := f.clickRepo.CountSince(ctx, link.ID, since)
	if err != nil {
		return nil, NewBusinessError("ANALYTICS_QUERY_FAILED", "Failed to count clicks", err)
	}
	visitors, err := f.clickRepo.DistinctVisitors(ctx, link.ID, since)
	if err != nil {
		return nil, NewBusinessError("ANALYTICS_QUERY_FAILED", "Failed to count visitors", err)
	}
	byDate, err := f.clickRepo.CountByDate(ctx, link.ID, since)
	if err != nil {
		return nil, NewBusinessError("ANALYTICS_QUERY_FAILED", "Failed to build time series", err)
	}
	devices, err := f.clickRepo.DeviceBreakdown(ctx, link.ID, since)
	if err != nil {
		return nil, NewBusinessError("ANALYTICS_QUERY_FAILED", "Failed to build device breakdown", err)
	}

	facets := make(map[string][]dto.FacetItem, 5)
	for _, facet := range []string{"country", "city", "browser", "os", "referrer"} {
		rows, err := f.clickRepo.TopFacet(ctx, link.ID, since, facet, utils.TopFacetLimit)
		if err != nil {
			return nil, NewBusinessError("ANALYTICS_QUERY_FAILED", "Failed to build facet breakdown", err)
		}
		facets[facet] = mapFacetItems(rows)
	}

	series := make([]dto.TimePoint, 0, len(byDate))
	for _, point := range byDate {
		series = append(series, dto.TimePoint{
			Date:  point.Date.UTC().Format("2006-01-02"),
			Count: point.Count,
		})
	}

	return &dto.LinkAnalyticsResponse{
		Message:          "Analytics fetched",
		WindowDays:       windowDays,
		TotalClicks:      total,
		UniqueVisitors:   visitors,
		ClicksByDate:     series,
		Countries:        facets["country"],
		Cities:           facets["city"],
		Browsers:         facets["browser"],
		OperatingSystems: facets["os"],
		Referrers:        facets["referrer"],
		Devices:          mapFacetItems(devices),
	}, nil
}

func (f *AnalyticsFlowImpl) PublicStats(ctx context.Context, identifier string) (*dto.PublicStatsResponse, error) {
	if f.stats != nil {
		if cached, err := f.stats.GetStats(ctx, identifier); err == nil && cached != nil {
			return cached, nil
		}
	}

	link, err := f.linkRepo.Resolve(ctx, identifier)
	if err != nil {
		return nil, NewBusinessError("LINK_LOOKUP_FAILED", "Failed to lookup link", err)
	}
	if link == nil {
		return nil, ErrLinkNotFound
	}

	stats := &dto.PublicStatsResponse{
		Code:        link.DisplayCode(),
		TotalClicks: link.ClickCount,
		CreatedAt:   link.CreatedAt,
	}
	if f.stats != nil {
		_ = f.stats.SetStats(ctx, identifier, stats)
	}
	return stats, nil
}

func (f *AnalyticsFlowImpl) SiteStats(ctx context.Context) (*dto.SiteStatsResponse, error) {
	if f.stats != nil {
		if cached, err := f.stats.GetSiteStats(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	total, err := f.linkRepo.Count(ctx, models.LinkFilter{})
	if err != nil {
		return nil, NewBusinessError("SITE_STATS_FAILED", "Failed to count links", err)
	}
	dayStart := utils.StartOfDayUTC(utils.UTCNow())
	today, err := f.linkRepo.Count(ctx, models.LinkFilter{CreatedAfter: &dayStart})
	if err != nil {
		return nil, NewBusinessError("SITE_STATS_FAILED", "Failed to count links created today", err)
	}

	stats := &dto.SiteStatsResponse{
		TotalLinks: total,
		LinksToday: today,
		FetchedAt:  utils.UTCNow(),
	}
	if f.stats != nil {
		_ = f.stats.SetSiteStats(ctx, stats)
	}
	return stats, nil
}

func mapFacetItems(rows []repository.FacetCount) []dto.FacetItem {
	items := make([]dto.FacetItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.FacetItem{Value: row.Value, Count: row.Count})
	}
	return items
}
