// Package pipeline implements asynchronous click persistence. Redirect
// handlers enqueue raw click events; a bounded worker pool enriches and
// stores them off the request path.
package pipeline

import (
	"context"
	"log"
	"sync"

	"github.com/clipr-app/clipr/app/services"
	businessflow "github.com/clipr-app/clipr/business_flow"
	"github.com/clipr-app/clipr/models"
	"github.com/clipr-app/clipr/repository"
	"github.com/clipr-app/clipr/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	clicksEnqueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clicks_enqueued_total",
		Help: "Total number of click events accepted into the queue",
	})

	clicksDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clicks_dropped_total",
		Help: "Total number of click events dropped because the queue was full",
	})

	clicksRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clicks_recorded_total",
		Help: "Total number of click events persisted",
	})

	clicksFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clicks_failed_total",
		Help: "Total number of click events that failed to persist",
	})

	clickQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "click_queue_depth",
		Help: "Current number of click events waiting in the queue",
	})
)

// Config holds pipeline sizing. Zero values fall back to sane defaults.
type Config struct {
	QueueSize      int
	Workers        int
	UAMaxLen       int
	ReferrerMaxLen int
}

// ClickPipeline is a bounded queue drained by a fixed worker pool. Enqueue
// never blocks; when the queue is full the event is dropped and counted.
type ClickPipeline struct {
	events    chan businessflow.ClickEvent
	clickRepo repository.ClickRepository
	linkRepo  repository.LinkRepository
	geo       services.GeoResolver
	cfg       Config

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewClickPipeline(clickRepo repository.ClickRepository, linkRepo repository.LinkRepository, geo services.GeoResolver, cfg Config) *ClickPipeline {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.UAMaxLen <= 0 {
		cfg.UAMaxLen = utils.MaxUserAgentLength
	}
	if cfg.ReferrerMaxLen <= 0 {
		cfg.ReferrerMaxLen = utils.MaxReferrerLength
	}
	return &ClickPipeline{
		events:    make(chan businessflow.ClickEvent, cfg.QueueSize),
		clickRepo: clickRepo,
		linkRepo:  linkRepo,
		geo:       geo,
		cfg:       cfg,
	}
}

// Start launches the worker pool.
func (p *ClickPipeline) Start() {
	log.Printf("Starting %d click worker(s), queue size %d", p.cfg.Workers, p.cfg.QueueSize)
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Stop closes the queue and waits for the workers to drain it.
func (p *ClickPipeline) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()

	p.wg.Wait()
	log.Println("Click pipeline drained and stopped")
}

// Enqueue hands an event to the pool. Returns false when the event was
// dropped, either because the queue is full or the pipeline is stopped.
func (p *ClickPipeline) Enqueue(event businessflow.ClickEvent) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		clicksDroppedTotal.Inc()
		return false
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = utils.UTCNow()
	}

	select {
	case p.events <- event:
		clicksEnqueuedTotal.Inc()
		clickQueueDepth.Set(float64(len(p.events)))
		return true
	default:
		clicksDroppedTotal.Inc()
		return false
	}
}

func (p *ClickPipeline) worker() {
	defer p.wg.Done()
	for event := range p.events {
		clickQueueDepth.Set(float64(len(p.events)))
		p.process(event)
	}
}

// process enriches and persists one event. Failures are logged and
// swallowed; a lost click must never surface anywhere else.
func (p *ClickPipeline) process(event businessflow.ClickEvent) {
	ctx := context.Background()

	profile := services.ClassifyUserAgent(event.UserAgent)

	country := event.CountryHeader
	city := event.CityHeader
	if (country == "" || city == "") && p.geo != nil {
		resolvedCountry, resolvedCity := p.geo.Lookup(event.IP)
		if country == "" {
			country = resolvedCountry
		}
		if city == "" {
			city = resolvedCity
		}
	}

	click := &models.Click{
		LinkID:     event.LinkID,
		ClickedAt:  event.OccurredAt,
		Referrer:   utils.Truncate(event.Referrer, p.cfg.ReferrerMaxLen),
		UserAgent:  utils.Truncate(event.UserAgent, p.cfg.UAMaxLen),
		Country:    country,
		City:       city,
		DeviceType: profile.DeviceType,
		Browser:    profile.Browser,
		OS:         profile.OS,
		IPHash:     utils.HashIP(event.IP),
	}

	if err := p.clickRepo.Save(ctx, click); err != nil {
		clicksFailedTotal.Inc()
		log.Printf("ERROR: failed to save click for link %d: %v", event.LinkID, err)
		return
	}
	if err := p.linkRepo.IncrementClickCount(ctx, event.LinkID); err != nil {
		clicksFailedTotal.Inc()
		log.Printf("ERROR: failed to increment click count for link %d: %v", event.LinkID, err)
		return
	}
	clicksRecordedTotal.Inc()
}
