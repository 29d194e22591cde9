package dto

import "time"

// TimePoint is one day of the click time series. Days with zero clicks are
// omitted from the series.
type TimePoint struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int64  `json:"count"`
}

// FacetItem is one entry of a categorical breakdown, ranked by count
type FacetItem struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// LinkAnalyticsResponse is the full analytics summary for one link
type LinkAnalyticsResponse struct {
	Message          string      `json:"message"`
	WindowDays       int         `json:"window_days"`
	TotalClicks      int64       `json:"total_clicks"`
	UniqueVisitors   int64       `json:"unique_visitors"`
	ClicksByDate     []TimePoint `json:"clicks_by_date"`
	Countries        []FacetItem `json:"countries"`
	Cities           []FacetItem `json:"cities"`
	Browsers         []FacetItem `json:"browsers"`
	OperatingSystems []FacetItem `json:"operating_systems"`
	Referrers        []FacetItem `json:"referrers"`
	Devices          []FacetItem `json:"devices"`
}

// PublicStatsResponse is the lightweight stats view exposed without
// authentication, served from cache when possible
type PublicStatsResponse struct {
	Code        string    `json:"code"`
	TotalClicks uint64    `json:"total_clicks"`
	CreatedAt   time.Time `json:"created_at"`
}

// SiteStatsResponse is the service-wide counter snapshot shown on the
// landing page, served from cache when possible
type SiteStatsResponse struct {
	TotalLinks int64     `json:"total_links"`
	LinksToday int64     `json:"links_today"`
	FetchedAt  time.Time `json:"fetched_at"`
}
