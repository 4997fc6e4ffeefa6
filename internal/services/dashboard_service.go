package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"stockroom/internal/cache"
	"stockroom/internal/core"
	applog "stockroom/internal/log"
	"stockroom/internal/ports"
)

// seriesFetchTimeout bounds a feed call shared by several requests.
const seriesFetchTimeout = 30 * time.Second

// DashboardService builds the daily series shown on the dashboard chart.
// Series are cached per month; the aggregation itself stays pure.
type DashboardService struct {
	feed   ports.TransactionFeed
	loc    *time.Location
	cache  *cache.LRUCache[[]core.DailyBucket]
	ttl    time.Duration
	group  singleflight.Group
	logger *applog.Logger
	now    func() time.Time

	fetchTimeout time.Duration

	// generations counts invalidations per month. A fetch caches its result
	// only if its month's generation is unchanged, checked under mu.
	mu          sync.Mutex
	generations map[string]uint64
}

// NewDashboardService caches up to size months for ttl. A zero ttl disables
// caching.
func NewDashboardService(feed ports.TransactionFeed, loc *time.Location, ttl time.Duration, size int, logger *applog.Logger) *DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &DashboardService{
		feed:         feed,
		loc:          loc,
		cache:        cache.NewLRUCache[[]core.DailyBucket](size, ttl),
		ttl:          ttl,
		logger:       logger.WithComponent(applog.ComponentDashboard),
		now:          time.Now,
		fetchTimeout: seriesFetchTimeout,
		generations:  make(map[string]uint64),
	}
}

func seriesKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// CurrentPeriod returns today's year and month in the dashboard timezone.
func (s *DashboardService) CurrentPeriod() (year, month int) {
	now := s.now().In(s.loc)
	return now.Year(), int(now.Month())
}

// Series returns one bucket per day of the month. Concurrent misses for the
// same month share a single feed call.
func (s *DashboardService) Series(ctx context.Context, year, month int) ([]core.DailyBucket, error) {
	if err := core.ValidatePeriod(month, year); err != nil {
		return nil, err
	}
	key := seriesKey(year, month)

	if s.ttl > 0 {
		if buckets, ok := s.cache.Get(key); ok {
			s.logger.DebugContext(ctx, "Series served from cache", applog.FieldYear, year, applog.FieldMonth, month, applog.FieldCacheResult, "hit")
			return cloneBuckets(buckets), nil
		}
	}

	// The fetch is shared, so it runs detached from the caller that started
	// it; each caller stops waiting when its own context ends.
	ch := s.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		gen := s.generation(key)

		txs, err := s.feed.ListTransactionsByMonth(fctx, year, month)
		if err != nil {
			return nil, fmt.Errorf("fetch transactions for %s: %w", key, err)
		}
		buckets, err := core.Aggregate(txs, month, year)
		if err != nil {
			return nil, err
		}
		stored := s.ttl > 0 && s.storeIfCurrent(key, gen, buckets)
		s.logger.DebugContext(fctx, "Series aggregated",
			applog.FieldYear, year,
			applog.FieldMonth, month,
			"transactions", len(txs),
			"cached", stored,
			applog.FieldCacheResult, "miss")
		return buckets, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, fmt.Errorf("series %s: %w", key, ctx.Err())
	}
	if res.Err != nil {
		s.logger.ErrorContext(ctx, "Failed to build series", applog.NewFields().
			WithPeriod(year, month).
			WithError(res.Err).
			WithOperation(applog.OpSeries).
			ToSlice()...)
		return nil, res.Err
	}
	if res.Shared {
		s.logger.DebugContext(ctx, "Series shared with concurrent request", applog.FieldYear, year, applog.FieldMonth, month)
	}
	return cloneBuckets(res.Val.([]core.DailyBucket)), nil
}

func (s *DashboardService) generation(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[key]
}

// storeIfCurrent caches buckets unless key was invalidated after gen was read.
func (s *DashboardService) storeIfCurrent(key string, gen uint64, buckets []core.DailyBucket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[key] != gen {
		return false
	}
	s.cache.Set(key, buckets)
	return true
}

// Invalidate drops the cached series of one month.
func (s *DashboardService) Invalidate(year, month int) {
	key := seriesKey(year, month)
	s.mu.Lock()
	s.generations[key]++
	s.cache.Delete(key)
	s.mu.Unlock()
	s.group.Forget(key)
}

// AggregateRaw aggregates a caller-supplied feed. Nothing is cached.
func (s *DashboardService) AggregateRaw(raw []core.RawTransaction, year, month int) ([]core.DailyBucket, error) {
	return core.Aggregate(core.NormalizeAll(raw, s.loc), month, year)
}

// CacheStats reports the series cache counters.
func (s *DashboardService) CacheStats() cache.Stats { return s.cache.Stats() }

// CleanExpired lets the cache manager sweep the series cache.
func (s *DashboardService) CleanExpired() int { return s.cache.CleanExpired() }

// Location is the timezone series are computed in.
func (s *DashboardService) Location() *time.Location { return s.loc }

// Callers may modify what they get back; the cache keeps its own copy.
func cloneBuckets(in []core.DailyBucket) []core.DailyBucket {
	out := make([]core.DailyBucket, len(in))
	copy(out, in)
	return out
}
