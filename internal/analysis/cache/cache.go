// Package cache keeps analysis reports in Redis keyed by input fingerprint.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lilyanlefevre/formula-corrector/internal/analysis"
	"github.com/lilyanlefevre/formula-corrector/pkg/health"
	"github.com/lilyanlefevre/formula-corrector/pkg/logger"
	pkgredis "github.com/lilyanlefevre/formula-corrector/pkg/redis"
)

const keyPrefix = "analysis:"

// Backend is the subset of the redis client the cache needs.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type ReportCache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(backend Backend, ttl time.Duration) *ReportCache {
	return &ReportCache{
		backend: backend,
		ttl:     ttl,
		logger:  logger.WithComponent("report-cache"),
	}
}

// Get treats backend failures and undecodable entries as misses.
func (c *ReportCache) Get(ctx context.Context, fingerprint string) (*analysis.Report, bool) {
	key := keyPrefix + fingerprint
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var report analysis.Report
	if err := json.Unmarshal(data, &report); err != nil {
		c.logger.Warn("dropping undecodable cache entry", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return &report, true
}

func (c *ReportCache) Set(ctx context.Context, fingerprint string, report *analysis.Report) {
	key := keyPrefix + fingerprint
	data, err := json.Marshal(report)
	if err != nil {
		c.logger.Error("cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute collapses concurrent misses for the same fingerprint into a
// single compute call.
func (c *ReportCache) GetOrCompute(ctx context.Context, fingerprint string, compute func() (*analysis.Report, error)) (*analysis.Report, bool, error) {
	if report, ok := c.Get(ctx, fingerprint); ok {
		return report, true, nil
	}
	v, err, _ := c.group.Do(fingerprint, func() (any, error) {
		report, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, fingerprint, report)
		return report, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*analysis.Report), false, nil
}

// Invalidate removes every cached report.
func (c *ReportCache) Invalidate(ctx context.Context) error {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating report cache: %w", err)
	}
	c.logger.Info("report cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns hit and miss counts since the cache was created.
func (c *ReportCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// HealthCheck reports cache effectiveness on the ready endpoint. It is always
// up; connectivity is covered by the redis ping check.
func (c *ReportCache) HealthCheck() health.Check {
	return func(context.Context) health.ComponentHealth {
		hits, misses := c.Stats()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("hits=%d misses=%d", hits, misses),
		}
	}
}
