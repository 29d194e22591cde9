package businessflow

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/clipr-app/clipr/app/dto"
	"github.com/clipr-app/clipr/models"
	"github.com/clipr-app/clipr/repository"
	"github.com/clipr-app/clipr/utils"
	"github.com/google/uuid"
)

// fakeLinkRepo is an in-memory LinkRepository used by flow tests. It mirrors
// the identifier claim behavior of the real repository: every short code and
// custom slug occupies one slot in a shared namespace.
type fakeLinkRepo struct {
	mu          sync.Mutex
	links       map[uint]*models.Link
	identifiers map[string]uint
	nextID      uint

	// forcedDuplicates fails that many CreateWithIdentifiers calls with
	// ErrDuplicateKey regardless of actual collisions.
	forcedDuplicates int
	createCalls      int
	incrementCalls   map[uint]int
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{
		links:          map[uint]*models.Link{},
		identifiers:    map[string]uint{},
		incrementCalls: map[uint]int{},
	}
}

func (r *fakeLinkRepo) ByID(ctx context.Context, id uint) (*models.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if link, ok := r.links[id]; ok {
		copied := *link
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeLinkRepo) matches(link *models.Link, filter models.LinkFilter) bool {
	if filter.OwnerID != nil && (link.OwnerID == nil || *link.OwnerID != *filter.OwnerID) {
		return false
	}
	if filter.IsActive != nil && utils.IsTrue(link.IsActive) != *filter.IsActive {
		return false
	}
	if filter.CreatedAfter != nil && link.CreatedAt.Before(*filter.CreatedAfter) {
		return false
	}
	if filter.CreatedBefore != nil && !link.CreatedAt.Before(*filter.CreatedBefore) {
		return false
	}
	if filter.Search != nil && *filter.Search != "" {
		needle := strings.ToLower(*filter.Search)
		slug := ""
		if link.CustomSlug != nil {
			slug = *link.CustomSlug
		}
		haystack := strings.ToLower(link.OriginalURL + " " + slug + " " + link.Title + " " + link.ShortCode)
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

func (r *fakeLinkRepo) ByFilter(ctx context.Context, filter models.LinkFilter, orderBy string, limit, offset int) ([]*models.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Link
	for id := uint(1); id <= r.nextID; id++ {
		link, ok := r.links[id]
		if !ok || !r.matches(link, filter) {
			continue
		}
		copied := *link
		out = append(out, &copied)
	}
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeLinkRepo) Save(ctx context.Context, link *models.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if link.ID == 0 {
		r.nextID++
		link.ID = r.nextID
	}
	copied := *link
	r.links[link.ID] = &copied
	return nil
}

func (r *fakeLinkRepo) SaveBatch(ctx context.Context, links []*models.Link) error {
	for _, link := range links {
		if err := r.Save(ctx, link); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeLinkRepo) Count(ctx context.Context, filter models.LinkFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (r *fakeLinkRepo) Exists(ctx context.Context, filter models.LinkFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	return count > 0, err
}

func (r *fakeLinkRepo) ByUUID(ctx context.Context, id uuid.UUID) (*models.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, link := range r.links {
		if link.UUID == id {
			copied := *link
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeLinkRepo) Resolve(ctx context.Context, identifier string) (*models.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, link := range r.links {
		if !utils.IsTrue(link.IsActive) {
			continue
		}
		if link.ShortCode == identifier || (link.CustomSlug != nil && *link.CustomSlug == identifier) {
			copied := *link
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeLinkRepo) IsTaken(ctx context.Context, identifier string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, taken := r.identifiers[identifier]
	return taken, nil
}

func (r *fakeLinkRepo) CreateWithIdentifiers(ctx context.Context, link *models.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if r.forcedDuplicates > 0 {
		r.forcedDuplicates--
		return repository.ErrDuplicateKey
	}

	claims := []string{link.ShortCode}
	if link.CustomSlug != nil && *link.CustomSlug != "" {
		claims = append(claims, *link.CustomSlug)
	}
	for _, claim := range claims {
		if _, taken := r.identifiers[claim]; taken {
			return repository.ErrDuplicateKey
		}
	}

	r.nextID++
	link.ID = r.nextID
	copied := *link
	r.links[link.ID] = &copied
	for _, claim := range claims {
		r.identifiers[claim] = link.ID
	}
	return nil
}

func (r *fakeLinkRepo) IncrementClickCount(ctx context.Context, linkID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.incrementCalls[linkID]++
	if link, ok := r.links[linkID]; ok {
		link.ClickCount++
	}
	return nil
}

func (r *fakeLinkRepo) Update(ctx context.Context, link *models.Link) error {
	return r.Save(ctx, link)
}

func (r *fakeLinkRepo) Deactivate(ctx context.Context, linkID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if link, ok := r.links[linkID]; ok {
		link.IsActive = utils.ToPtr(false)
	}
	return nil
}

func (r *fakeLinkRepo) TotalClickCount(ctx context.Context, ownerID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, link := range r.links {
		if link.OwnerID != nil && *link.OwnerID == ownerID {
			total += int64(link.ClickCount)
		}
	}
	return total, nil
}

// fakeClickRepo is an in-memory ClickRepository that answers the aggregation
// queries from a plain slice of clicks.
type fakeClickRepo struct {
	mu     sync.Mutex
	clicks []models.Click
}

func (r *fakeClickRepo) ByID(ctx context.Context, id uint) (*models.Click, error) {
	return nil, nil
}

func (r *fakeClickRepo) ByFilter(ctx context.Context, filter models.ClickFilter, orderBy string, limit, offset int) ([]*models.Click, error) {
	return nil, nil
}

func (r *fakeClickRepo) Save(ctx context.Context, click *models.Click) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	click.ID = uint(len(r.clicks) + 1)
	r.clicks = append(r.clicks, *click)
	return nil
}

func (r *fakeClickRepo) SaveBatch(ctx context.Context, clicks []*models.Click) error {
	for _, click := range clicks {
		if err := r.Save(ctx, click); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeClickRepo) Count(ctx context.Context, filter models.ClickFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.clicks)), nil
}

func (r *fakeClickRepo) Exists(ctx context.Context, filter models.ClickFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	return count > 0, err
}

func (r *fakeClickRepo) inWindow(click models.Click, linkID uint, since time.Time) bool {
	return click.LinkID == linkID && !click.ClickedAt.Before(since)
}

func (r *fakeClickRepo) CountByDate(ctx context.Context, linkID uint, since time.Time) ([]repository.DateCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byDate := map[string]int64{}
	for _, click := range r.clicks {
		if r.inWindow(click, linkID, since) {
			byDate[click.ClickedAt.UTC().Format("2006-01-02")]++
		}
	}
	var dates []string
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	out := make([]repository.DateCount, 0, len(dates))
	for _, date := range dates {
		day, _ := time.Parse("2006-01-02", date)
		out = append(out, repository.DateCount{Date: day, Count: byDate[date]})
	}
	return out, nil
}

func (r *fakeClickRepo) facetValue(click models.Click, facet string) string {
	switch facet {
	case "country":
		return click.Country
	case "city":
		return click.City
	case "browser":
		return click.Browser
	case "os":
		return click.OS
	case "referrer":
		return click.Referrer
	case "device_type":
		return click.DeviceType
	}
	return ""
}

func (r *fakeClickRepo) rankFacet(linkID uint, since time.Time, facet string, limit int) []repository.FacetCount {
	counts := map[string]int64{}
	for _, click := range r.clicks {
		if !r.inWindow(click, linkID, since) {
			continue
		}
		if value := r.facetValue(click, facet); value != "" {
			counts[value]++
		}
	}
	out := make([]repository.FacetCount, 0, len(counts))
	for value, count := range counts {
		out = append(out, repository.FacetCount{Value: value, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (r *fakeClickRepo) TopFacet(ctx context.Context, linkID uint, since time.Time, facet string, limit int) ([]repository.FacetCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rankFacet(linkID, since, facet, limit), nil
}

func (r *fakeClickRepo) DeviceBreakdown(ctx context.Context, linkID uint, since time.Time) ([]repository.FacetCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rankFacet(linkID, since, "device_type", 0), nil
}

func (r *fakeClickRepo) CountSince(ctx context.Context, linkID uint, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, click := range r.clicks {
		if r.inWindow(click, linkID, since) {
			total++
		}
	}
	return total, nil
}

func (r *fakeClickRepo) DistinctVisitors(ctx context.Context, linkID uint, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	for _, click := range r.clicks {
		if r.inWindow(click, linkID, since) && click.IPHash != "" {
			seen[click.IPHash] = true
		}
	}
	return int64(len(seen)), nil
}

// fakeRecorder captures enqueued click events.
type fakeRecorder struct {
	mu     sync.Mutex
	events []ClickEvent
	reject bool
}

func (r *fakeRecorder) Enqueue(event ClickEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reject {
		return false
	}
	r.events = append(r.events, event)
	return true
}

func (r *fakeRecorder) recorded() []ClickEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ClickEvent, len(r.events))
	copy(out, r.events)
	return out
}

// fakeLinkCache is an in-memory LinkCache.
type fakeLinkCache struct {
	mu      sync.Mutex
	entries map[string]*models.Link
	hits    int
}

func newFakeLinkCache() *fakeLinkCache {
	return &fakeLinkCache{entries: map[string]*models.Link{}}
}

func (c *fakeLinkCache) GetLink(ctx context.Context, identifier string) (*models.Link, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if link, ok := c.entries[identifier]; ok {
		c.hits++
		copied := *link
		return &copied, nil
	}
	return nil, nil
}

func (c *fakeLinkCache) SetLink(ctx context.Context, identifier string, link *models.Link) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := *link
	c.entries[identifier] = &copied
	return nil
}

func (c *fakeLinkCache) InvalidateLink(ctx context.Context, identifiers ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, identifier := range identifiers {
		delete(c.entries, identifier)
	}
	return nil
}

// fakeCredentialRepo is an in-memory APICredentialRepository.
type fakeCredentialRepo struct {
	mu     sync.Mutex
	creds  map[uint]*models.APICredential
	nextID uint
}

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{creds: map[uint]*models.APICredential{}}
}

func (r *fakeCredentialRepo) ByID(ctx context.Context, id uint) (*models.APICredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cred, ok := r.creds[id]; ok {
		copied := *cred
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeCredentialRepo) ByFilter(ctx context.Context, filter models.APICredentialFilter, orderBy string, limit, offset int) ([]*models.APICredential, error) {
	return nil, nil
}

func (r *fakeCredentialRepo) Save(ctx context.Context, cred *models.APICredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cred.ID == 0 {
		r.nextID++
		cred.ID = r.nextID
	}
	copied := *cred
	r.creds[cred.ID] = &copied
	return nil
}

func (r *fakeCredentialRepo) SaveBatch(ctx context.Context, creds []*models.APICredential) error {
	for _, cred := range creds {
		if err := r.Save(ctx, cred); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeCredentialRepo) Count(ctx context.Context, filter models.APICredentialFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.creds)), nil
}

func (r *fakeCredentialRepo) Exists(ctx context.Context, filter models.APICredentialFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	return count > 0, err
}

func (r *fakeCredentialRepo) ByKeyHash(ctx context.Context, keyHash string) (*models.APICredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cred := range r.creds {
		if cred.KeyHash == keyHash {
			copied := *cred
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeCredentialRepo) ByOwnerID(ctx context.Context, ownerID uint) (*models.APICredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cred := range r.creds {
		if cred.OwnerID == ownerID {
			copied := *cred
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeCredentialRepo) Replace(ctx context.Context, cred *models.APICredential) error {
	r.mu.Lock()
	for id, existing := range r.creds {
		if existing.OwnerID == cred.OwnerID {
			delete(r.creds, id)
		}
	}
	r.mu.Unlock()
	return r.Save(ctx, cred)
}

func (r *fakeCredentialRepo) TouchLastUsed(ctx context.Context, id uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cred, ok := r.creds[id]; ok {
		cred.LastUsedAt = &at
	}
	return nil
}

// fakeStatsCache is an in-memory StatsCache.
type fakeStatsCache struct {
	mu      sync.Mutex
	entries map[string]*dto.PublicStatsResponse
	site    *dto.SiteStatsResponse
}

func newFakeStatsCache() *fakeStatsCache {
	return &fakeStatsCache{entries: map[string]*dto.PublicStatsResponse{}}
}

func (c *fakeStatsCache) GetStats(ctx context.Context, identifier string) (*dto.PublicStatsResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stats, ok := c.entries[identifier]; ok {
		copied := *stats
		return &copied, nil
	}
	return nil, nil
}

func (c *fakeStatsCache) SetStats(ctx context.Context, identifier string, stats *dto.PublicStatsResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := *stats
	c.entries[identifier] = &copied
	return nil
}

func (c *fakeStatsCache) GetSiteStats(ctx context.Context) (*dto.SiteStatsResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.site == nil {
		return nil, nil
	}
	copied := *c.site
	return &copied, nil
}

func (c *fakeStatsCache) SetSiteStats(ctx context.Context, stats *dto.SiteStatsResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := *stats
	c.site = &copied
	return nil
}
