package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"rekrutacje/internal/cache"
	"rekrutacje/internal/core"
	applog "rekrutacje/internal/log"
	"rekrutacje/internal/records"
)

// querier is implemented by stores that can evaluate a filter natively.
type querier interface {
	QueryRecords(ctx context.Context, c core.FilterCriteria) ([]core.Record, error)
}

// computeTimeout bounds a shared statistics computation, which no longer
// follows any single caller's context.
const computeTimeout = 30 * time.Second

// DashboardService computes dashboard statistics on demand and caches them
// per filter combination until the next write.
type DashboardService struct {
	source records.Source
	cache  *cache.LRUCache[core.DashboardStats]
	group  singleflight.Group
	// generation is bumped on every invalidation so results computed from a
	// stale read are not cached.
	generation atomic.Uint64
	logger     *applog.Logger
}

// NewDashboardService builds the service. statsCache may be nil to disable caching.
func NewDashboardService(source records.Source, statsCache *cache.LRUCache[core.DashboardStats], logger *applog.Logger) *DashboardService {
	if logger == nil {
		logger = applog.Wrap(nil)
	}
	return &DashboardService{
		source: source,
		cache:  statsCache,
		logger: logger.WithComponent(applog.ComponentDashboard),
	}
}

// Stats returns the statistics for the records matching c.
// It returns core.ErrNoData when nothing matches.
func (s *DashboardService) Stats(ctx context.Context, c core.FilterCriteria) (core.DashboardStats, error) {
	key := c.Key()
	if s.cache != nil {
		if stats, ok := s.cache.Get(key); ok {
			s.logger.DebugContext(ctx, "Dashboard cache hit", applog.FieldCacheKey, key)
			return stats, nil
		}
	}

	// Callers waiting on the same key share one computation. A caller that
	// goes away stops waiting without cancelling the work for the others.
	ch := s.group.DoChan(key, func() (any, error) {
		computeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), computeTimeout)
		defer cancel()

		gen := s.generation.Load()
		stats, err := s.compute(computeCtx, c)
		if err != nil {
			return core.DashboardStats{}, err
		}
		if s.cache != nil && s.generation.Load() == gen {
			s.cache.Set(key, stats)
		}
		return stats, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return core.DashboardStats{}, ctx.Err()
	case res = <-ch:
	}
	v, err, shared := res.Val, res.Err, res.Shared
	if err != nil {
		if !errors.Is(err, core.ErrNoData) {
			s.logger.ErrorContext(ctx, "Failed to compute dashboard statistics",
				applog.FieldError, err, applog.FieldOperation, applog.OpAggregate)
		}
		return core.DashboardStats{}, err
	}
	if shared {
		s.logger.DebugContext(ctx, "Dashboard computation shared", applog.FieldCacheKey, key)
	}
	return v.(core.DashboardStats), nil
}

func (s *DashboardService) compute(ctx context.Context, c core.FilterCriteria) (core.DashboardStats, error) {
	if q, ok := s.source.(querier); ok {
		subset, err := q.QueryRecords(ctx, c)
		if err != nil {
			return core.DashboardStats{}, fmt.Errorf("query records: %w", err)
		}
		return core.Aggregate(subset)
	}

	all, err := s.source.ListRecords(ctx)
	if err != nil {
		return core.DashboardStats{}, fmt.Errorf("list records: %w", err)
	}
	return core.BuildDashboard(all, c)
}

// Options returns the distinct filter values over the whole collection.
func (s *DashboardService) Options(ctx context.Context) (core.Options, error) {
	all, err := s.source.ListRecords(ctx)
	if err != nil {
		return core.Options{}, fmt.Errorf("list records: %w", err)
	}
	return core.FilterOptions(all), nil
}

// Invalidate drops every cached result.
func (s *DashboardService) Invalidate() {
	s.generation.Add(1)
	if s.cache == nil {
		return
	}
	if n := s.cache.Purge(); n > 0 {
		s.logger.Debug("Dashboard cache invalidated", "entries", n)
	}
}

// CacheStats reports cache effectiveness for the metrics endpoint.
func (s *DashboardService) CacheStats() cache.Stats {
	if s.cache == nil {
		return cache.Stats{}
	}
	return s.cache.Stats()
}
