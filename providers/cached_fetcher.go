package providers

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"restomap.app/metrics"
	"restomap.app/models"
	"restomap.app/providers/cache"
)

// CachedFetcher decorates a RestaurantFetcher with a TTL cache so repeated
// page loads for the same restaurant set do not re-query the directory.
// Only complete, unpaged results are cached: partial results from a degraded
// fetch must be recomputed, and paged requests go straight through.
type CachedFetcher struct {
	fetcher RestaurantFetcher
	cache   cache.GenericCacheInterface
	metrics *metrics.CacheMetrics
	ttl     time.Duration
}

// NewCachedFetcher wraps a fetcher with a result cache
func NewCachedFetcher(
	fetcher RestaurantFetcher,
	resultCache cache.GenericCacheInterface,
	cacheMetrics *metrics.CacheMetrics,
	ttl time.Duration,
) *CachedFetcher {
	return &CachedFetcher{
		fetcher: fetcher,
		cache:   resultCache,
		metrics: cacheMetrics,
		ttl:     ttl,
	}
}

// Fetch retrieves directory records, serving unpaged requests from cache
// when possible
func (f *CachedFetcher) Fetch(ctx context.Context, ids []string, opts FetchOptions) ([]models.RestaurantListItem, error) {
	if opts != (FetchOptions{}) {
		return f.fetcher.Fetch(ctx, ids, opts)
	}

	key := fetchCacheKey(ids)
	if items, ok := f.lookup(ctx, key); ok {
		f.metrics.RecordHit()
		return items, nil
	}
	f.metrics.RecordMiss()

	items, err := f.fetcher.Fetch(ctx, ids, opts)
	if err != nil {
		return nil, err
	}

	if len(items) == len(ids) {
		f.store(ctx, key, items)
	}
	return items, nil
}

func (f *CachedFetcher) lookup(ctx context.Context, key string) ([]models.RestaurantListItem, bool) {
	data, found := f.cache.Get(ctx, key)
	if !found {
		return nil, false
	}

	var items []models.RestaurantListItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false
	}
	return items, true
}

func (f *CachedFetcher) store(ctx context.Context, key string, items []models.RestaurantListItem) {
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	f.cache.Set(ctx, key, data, f.ttl)
	f.metrics.RecordStore()
}

func fetchCacheKey(ids []string) string {
	return "directory:fetch:" + strings.Join(ids, ",")
}
