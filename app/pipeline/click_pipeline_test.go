package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	businessflow "github.com/clipr-app/clipr/business_flow"
	"github.com/clipr-app/clipr/models"
	"github.com/clipr-app/clipr/repository"
	"github.com/clipr-app/clipr/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memClickRepo records saved clicks; the generic repository methods are
// unused by the pipeline.
type memClickRepo struct {
	mu      sync.Mutex
	clicks  []models.Click
	saveErr error
}

func (r *memClickRepo) ByID(ctx context.Context, id uint) (*models.Click, error) { return nil, nil }
func (r *memClickRepo) ByFilter(ctx context.Context, filter models.ClickFilter, orderBy string, limit, offset int) ([]*models.Click, error) {
	return nil, nil
}
func (r *memClickRepo) Save(ctx context.Context, click *models.Click) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.clicks = append(r.clicks, *click)
	return nil
}
func (r *memClickRepo) SaveBatch(ctx context.Context, clicks []*models.Click) error { return nil }
func (r *memClickRepo) Count(ctx context.Context, filter models.ClickFilter) (int64, error) {
	return 0, nil
}
func (r *memClickRepo) Exists(ctx context.Context, filter models.ClickFilter) (bool, error) {
	return false, nil
}
func (r *memClickRepo) CountByDate(ctx context.Context, linkID uint, since time.Time) ([]repository.DateCount, error) {
	return nil, nil
}
func (r *memClickRepo) TopFacet(ctx context.Context, linkID uint, since time.Time, facet string, limit int) ([]repository.FacetCount, error) {
	return nil, nil
}
func (r *memClickRepo) DeviceBreakdown(ctx context.Context, linkID uint, since time.Time) ([]repository.FacetCount, error) {
	return nil, nil
}
func (r *memClickRepo) CountSince(ctx context.Context, linkID uint, since time.Time) (int64, error) {
	return 0, nil
}
func (r *memClickRepo) DistinctVisitors(ctx context.Context, linkID uint, since time.Time) (int64, error) {
	return 0, nil
}

func (r *memClickRepo) saved() []models.Click {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Click, len(r.clicks))
	copy(out, r.clicks)
	return out
}

// memLinkRepo only counts increments.
type memLinkRepo struct {
	mu         sync.Mutex
	increments map[uint]int
}

func newMemLinkRepo() *memLinkRepo { return &memLinkRepo{increments: map[uint]int{}} }

func (r *memLinkRepo) ByID(ctx context.Context, id uint) (*models.Link, error) { return nil, nil }
func (r *memLinkRepo) ByFilter(ctx context.Context, filter models.LinkFilter, orderBy string, limit, offset int) ([]*models.Link, error) {
	return nil, nil
}
func (r *memLinkRepo) Save(ctx context.Context, link *models.Link) error { return nil }
func (r *memLinkRepo) SaveBatch(ctx context.Context, links []*models.Link) error { return nil }
func (r *memLinkRepo) Count(ctx context.Context, filter models.LinkFilter) (int64, error) {
	return 0, nil
}
func (r *memLinkRepo) Exists(ctx context.Context, filter models.LinkFilter) (bool, error) {
	return false, nil
}
func (r *memLinkRepo) ByUUID(ctx context.Context, id uuid.UUID) (*models.Link, error) {
	return nil, nil
}
func (r *memLinkRepo) Resolve(ctx context.Context, identifier string) (*models.Link, error) {
	return nil, nil
}
func (r *memLinkRepo) IsTaken(ctx context.Context, identifier string) (bool, error) {
	return false, nil
}
func (r *memLinkRepo) CreateWithIdentifiers(ctx context.Context, link *models.Link) error {
	return nil
}
func (r *memLinkRepo) IncrementClickCount(ctx context.Context, linkID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.increments[linkID]++
	return nil
}
func (r *memLinkRepo) Update(ctx context.Context, link *models.Link) error { return nil }
func (r *memLinkRepo) Deactivate(ctx context.Context, linkID uint) error   { return nil }
func (r *memLinkRepo) TotalClickCount(ctx context.Context, ownerID uint) (int64, error) {
	return 0, nil
}

func (r *memLinkRepo) incrementsFor(linkID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.increments[linkID]
}

// staticGeo always answers with the same place.
type staticGeo struct {
	country string
	city    string
}

func (g *staticGeo) Lookup(ip string) (string, string) { return g.country, g.city }
func (g *staticGeo) Close() error                      { return nil }

func TestClickPipelineRecordsEvents(t *testing.T) {
	clickRepo := &memClickRepo{}
	linkRepo := newMemLinkRepo()

	p := NewClickPipeline(clickRepo, linkRepo, nil, Config{QueueSize: 64, Workers: 2})
	p.Start()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok := p.Enqueue(businessflow.ClickEvent{
				LinkID:    7,
				IP:        "203.0.113.9",
				UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				Referrer:  "https://news.ycombinator.com/",
			})
			assert.True(t, ok)
		}()
	}
	wg.Wait()
	p.Stop()

	saved := clickRepo.saved()
	require.Len(t, saved, n)
	assert.Equal(t, n, linkRepo.incrementsFor(7))

	click := saved[0]
	assert.Equal(t, uint(7), click.LinkID)
	assert.Equal(t, models.DeviceTypeDesktop, click.DeviceType)
	assert.Equal(t, "Chrome", click.Browser)
	assert.Equal(t, utils.HashIP("203.0.113.9"), click.IPHash)
	assert.False(t, click.ClickedAt.IsZero())
}

func TestClickPipelineEnqueueAfterStop(t *testing.T) {
	p := NewClickPipeline(&memClickRepo{}, newMemLinkRepo(), nil, Config{QueueSize: 8, Workers: 1})
	p.Start()
	p.Stop()

	ok := p.Enqueue(businessflow.ClickEvent{LinkID: 1})
	assert.False(t, ok)
}

func TestClickPipelineDropsWhenFull(t *testing.T) {
	// No workers started, so the queue never drains.
	p := NewClickPipeline(&memClickRepo{}, newMemLinkRepo(), nil, Config{QueueSize: 2, Workers: 1})

	assert.True(t, p.Enqueue(businessflow.ClickEvent{LinkID: 1}))
	assert.True(t, p.Enqueue(businessflow.ClickEvent{LinkID: 1}))
	assert.False(t, p.Enqueue(businessflow.ClickEvent{LinkID: 1}))
}

func TestClickPipelineGeoEnrichment(t *testing.T) {
	t.Run("HeaderWins", func(t *testing.T) {
		clickRepo := &memClickRepo{}
		p := NewClickPipeline(clickRepo, newMemLinkRepo(), &staticGeo{country: "DE", city: "Berlin"}, Config{QueueSize: 8, Workers: 1})
		p.Start()

		require.True(t, p.Enqueue(businessflow.ClickEvent{
			LinkID:        1,
			IP:            "203.0.113.9",
			CountryHeader: "US",
			CityHeader:    "Austin",
		}))
		p.Stop()

		saved := clickRepo.saved()
		require.Len(t, saved, 1)
		assert.Equal(t, "US", saved[0].Country)
		assert.Equal(t, "Austin", saved[0].City)
	})

	t.Run("HeaderCityKeptWhenCountryMissing", func(t *testing.T) {
		clickRepo := &memClickRepo{}
		p := NewClickPipeline(clickRepo, newMemLinkRepo(), &staticGeo{country: "DE", city: "Berlin"}, Config{QueueSize: 8, Workers: 1})
		p.Start()

		require.True(t, p.Enqueue(businessflow.ClickEvent{
			LinkID:     1,
			IP:         "203.0.113.9",
			CityHeader: "Austin",
		}))
		p.Stop()

		saved := clickRepo.saved()
		require.Len(t, saved, 1)
		assert.Equal(t, "DE", saved[0].Country)
		assert.Equal(t, "Austin", saved[0].City)
	})

	t.Run("ResolverFillsMissingCity", func(t *testing.T) {
		clickRepo := &memClickRepo{}
		p := NewClickPipeline(clickRepo, newMemLinkRepo(), &staticGeo{country: "DE", city: "Berlin"}, Config{QueueSize: 8, Workers: 1})
		p.Start()

		require.True(t, p.Enqueue(businessflow.ClickEvent{
			LinkID:        1,
			IP:            "203.0.113.9",
			CountryHeader: "US",
		}))
		p.Stop()

		saved := clickRepo.saved()
		require.Len(t, saved, 1)
		assert.Equal(t, "US", saved[0].Country)
		assert.Equal(t, "Berlin", saved[0].City)
	})

	t.Run("ResolverFallback", func(t *testing.T) {
		clickRepo := &memClickRepo{}
		p := NewClickPipeline(clickRepo, newMemLinkRepo(), &staticGeo{country: "DE", city: "Berlin"}, Config{QueueSize: 8, Workers: 1})
		p.Start()

		require.True(t, p.Enqueue(businessflow.ClickEvent{LinkID: 1, IP: "203.0.113.9"}))
		p.Stop()

		saved := clickRepo.saved()
		require.Len(t, saved, 1)
		assert.Equal(t, "DE", saved[0].Country)
		assert.Equal(t, "Berlin", saved[0].City)
	})
}

func TestClickPipelineTruncatesOversizedHeaders(t *testing.T) {
	clickRepo := &memClickRepo{}
	p := NewClickPipeline(clickRepo, newMemLinkRepo(), nil, Config{QueueSize: 8, Workers: 1})
	p.Start()

	require.True(t, p.Enqueue(businessflow.ClickEvent{
		LinkID:    1,
		UserAgent: strings.Repeat("u", utils.MaxUserAgentLength+50),
		Referrer:  strings.Repeat("r", utils.MaxReferrerLength+50),
	}))
	p.Stop()

	saved := clickRepo.saved()
	require.Len(t, saved, 1)
	assert.Len(t, saved[0].UserAgent, utils.MaxUserAgentLength)
	assert.Len(t, saved[0].Referrer, utils.MaxReferrerLength)
}

func TestClickPipelineSurvivesSaveFailure(t *testing.T) {
	clickRepo := &memClickRepo{saveErr: errors.New("storage down")}
	linkRepo := newMemLinkRepo()
	p := NewClickPipeline(clickRepo, linkRepo, nil, Config{QueueSize: 8, Workers: 1})
	p.Start()

	require.True(t, p.Enqueue(businessflow.ClickEvent{LinkID: 1}))
	p.Stop()

	// the failed click never reaches the counter
	assert.Equal(t, 0, linkRepo.incrementsFor(1))
}
