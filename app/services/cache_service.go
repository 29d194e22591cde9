package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/clipr-app/clipr/app/dto"
	"github.com/clipr-app/clipr/models"
	"github.com/clipr-app/clipr/utils"
	"github.com/redis/go-redis/v9"
)

// RedisCacheService caches resolved links and public stats snapshots.
// Cache misses and Redis failures degrade to storage lookups, never errors
// visible to visitors.
type RedisCacheService struct {
	rdb      *redis.Client
	linkTTL  time.Duration
	statsTTL time.Duration
}

func NewRedisCacheService(rdb *redis.Client, linkTTL time.Duration) *RedisCacheService {
	return &RedisCacheService{
		rdb:      rdb,
		linkTTL:  linkTTL,
		statsTTL: utils.StatsCacheTTL,
	}
}

func linkKey(identifier string) string  { return "link:" + identifier }
func statsKey(identifier string) string { return "stats:" + identifier }

// Leading underscore keeps the key out of the identifier namespace; slugs
// cannot start with punctuation.
const siteStatsKey = "stats:_site"

func (s *RedisCacheService) GetLink(ctx context.Context, identifier string) (*models.Link, error) {
	payload, err := s.rdb.Get(ctx, linkKey(identifier)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var link models.Link
	if err := json.Unmarshal(payload, &link); err != nil {
		// Stale or corrupt payload; drop it and fall through to storage.
		_ = s.rdb.Del(ctx, linkKey(identifier)).Err()
		return nil, nil
	}
	return &link, nil
}

func (s *RedisCacheService) SetLink(ctx context.Context, identifier string, link *models.Link) error {
	payload, err := json.Marshal(link)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, linkKey(identifier), payload, s.linkTTL).Err()
}

func (s *RedisCacheService) InvalidateLink(ctx context.Context, identifiers ...string) error {
	keys := make([]string, 0, len(identifiers)*2)
	for _, identifier := range identifiers {
		keys = append(keys, linkKey(identifier), statsKey(identifier))
	}
	return s.rdb.Del(ctx, keys...).Err()
}

func (s *RedisCacheService) GetStats(ctx context.Context, identifier string) (*dto.PublicStatsResponse, error) {
	payload, err := s.rdb.Get(ctx, statsKey(identifier)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var stats dto.PublicStatsResponse
	if err := json.Unmarshal(payload, &stats); err != nil {
		_ = s.rdb.Del(ctx, statsKey(identifier)).Err()
		return nil, nil
	}
	return &stats, nil
}

func (s *RedisCacheService) SetStats(ctx context.Context, identifier string, stats *dto.PublicStatsResponse) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, statsKey(identifier), payload, s.statsTTL).Err()
}

func (s *RedisCacheService) GetSiteStats(ctx context.Context) (*dto.SiteStatsResponse, error) {
	payload, err := s.rdb.Get(ctx, siteStatsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var stats dto.SiteStatsResponse
	if err := json.Unmarshal(payload, &stats); err != nil {
		_ = s.rdb.Del(ctx, siteStatsKey).Err()
		return nil, nil
	}
	return &stats, nil
}

func (s *RedisCacheService) SetSiteStats(ctx context.Context, stats *dto.SiteStatsResponse) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, siteStatsKey, payload, s.statsTTL).Err()
}
