package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"attraction-insights/models"
	"attraction-insights/utils"
)

const dashboardCacheKey = "attractions:dashboard"

// DashboardCache is a key/value store for serialized dashboards.
type DashboardCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// DashboardService serves dashboards cache-first. The cache is optional and
// its failures only cost a recomputation.
type DashboardService struct {
	agg    *Aggregator
	cache  DashboardCache
	ttl    time.Duration
	logger *utils.Logger
}

// NewDashboardService accepts a nil cache.
func NewDashboardService(agg *Aggregator, cache DashboardCache, ttl time.Duration, logger *utils.Logger) *DashboardService {
	return &DashboardService{agg: agg, cache: cache, ttl: ttl, logger: logger}
}

// Snapshot returns the cached dashboard, computing and caching it on a miss.
func (s *DashboardService) Snapshot(ctx context.Context) (*models.Dashboard, error) {
	if s.cache != nil {
		data, ok, err := s.cache.Get(ctx, dashboardCacheKey)
		switch {
		case err != nil:
			s.logger.Warn("[dashboard] Cache read failed: %v", err)
		case ok:
			var d models.Dashboard
			if err := json.Unmarshal(data, &d); err == nil {
				return &d, nil
			}
			s.logger.Warn("[dashboard] Discarding undecodable cache entry")
		}
	}
	return s.Refresh(ctx)
}

// Refresh recomputes the dashboard and overwrites the cache entry.
func (s *DashboardService) Refresh(ctx context.Context) (*models.Dashboard, error) {
	d, err := s.agg.Dashboard(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	if s.cache == nil {
		return d, nil
	}

	data, err := json.Marshal(d)
	if err != nil {
		s.logger.Warn("[dashboard] Encoding snapshot failed: %v", err)
		return d, nil
	}
	if err := s.cache.Set(ctx, dashboardCacheKey, data, s.ttl); err != nil {
		s.logger.Warn("[dashboard] Cache write failed: %v", err)
	}
	return d, nil
}

// Invalidate drops the cached dashboard, e.g. after an import.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, dashboardCacheKey); err != nil {
		s.logger.Warn("[dashboard] Cache invalidation failed: %v", err)
	}
}
