// Package cache owns the currently-served dataset snapshot and the
// refresh protocol around it: TTL staleness, single-flight refresh
// collapsing, failure backoff, and stale-if-error fallback.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"sdnscreen/internal/dataset"
	"sdnscreen/internal/dataset/fetch"
	"sdnscreen/internal/dataset/parse"
	"sdnscreen/internal/platform/metrics"
	"sdnscreen/pkg/platform/sentinel"
)

// Cache holds the current snapshot behind an atomic pointer so the
// read path never takes a lock. A refresh builds a complete new
// snapshot off to the side and swaps the pointer; readers see either
// the entirely-old or entirely-new record set, never a mix.
type Cache struct {
	fetcher fetch.Fetcher
	parser  *parse.Parser
	ttl     time.Duration
	backoff time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	current atomic.Pointer[dataset.Snapshot]

	// refreshing marks an in-flight background refresh so concurrent
	// stale reads collapse to one upstream fetch.
	refreshing atomic.Bool

	// cold collapses concurrent cold-start callers, which have nothing
	// to fall back to and must block on the one in-flight fetch.
	cold singleflight.Group

	// mu guards the failure bookkeeping only; it is never held on the
	// read path.
	mu          sync.Mutex
	lastAttempt time.Time
	lastErr     error
}

// Option customizes a Cache.
type Option func(*Cache)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a Cache. ttl is the maximum snapshot age before a
// refresh is triggered; backoff is the minimum interval between
// refresh attempts after a failure, so an expired TTL cannot turn
// into a tight retry loop against a broken upstream.
func New(fetcher fetch.Fetcher, parser *parse.Parser, ttl, backoff time.Duration, opts ...Option) *Cache {
	c := &Cache{
		fetcher: fetcher,
		parser:  parser,
		ttl:     ttl,
		backoff: backoff,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EnsureFresh returns the snapshot to serve reads from. When a
// snapshot exists it is returned immediately, even if stale; a stale
// snapshot triggers at most one background refresh. Only cold-start
// callers block, collapsed into a single upstream fetch. EnsureFresh
// fails only when no snapshot has ever been produced.
func (c *Cache) EnsureFresh(ctx context.Context) (*dataset.Snapshot, error) {
	if snap := c.current.Load(); snap != nil {
		if snap.Age(c.now()) >= c.ttl {
			c.maybeRefreshAsync()
		}
		return snap, nil
	}
	return c.coldStart(ctx)
}

// coldStart performs the first fetch. All concurrent cold callers
// share one refresh via singleflight; they all see its result.
func (c *Cache) coldStart(ctx context.Context) (*dataset.Snapshot, error) {
	v, err, _ := c.cold.Do("refresh", func() (any, error) {
		// Another cold caller may have already populated the cache by
		// the time this closure runs.
		if snap := c.current.Load(); snap != nil {
			return snap, nil
		}
		if !c.attemptAllowed() {
			return nil, c.noData()
		}
		// Detach from the winning caller's context so its disconnect
		// does not fail everyone waiting on this flight.
		snap, err := c.refresh(context.WithoutCancel(ctx))
		if err != nil {
			return nil, c.noData()
		}
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*dataset.Snapshot), nil
}

// maybeRefreshAsync starts one background refresh unless another is in
// flight or the failure backoff window is still open. It never blocks
// the caller.
func (c *Cache) maybeRefreshAsync() {
	if !c.attemptAllowed() {
		return
	}
	if !c.refreshing.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer c.refreshing.Store(false)
		if _, err := c.refresh(context.Background()); err != nil && c.logger != nil {
			// Absorbed: the previous snapshot keeps serving.
			c.logger.Error("background dataset refresh failed", "error", err)
		}
	}()
}

// attemptAllowed reports whether enough time has passed since the last
// failed attempt. Successful refreshes clear the failure state, so
// this only throttles retries after errors.
func (c *Cache) attemptAllowed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastErr == nil {
		return true
	}
	return c.now().Sub(c.lastAttempt) >= c.backoff
}

// refresh runs one fetch+parse cycle and swaps the new snapshot in on
// success. Failures leave the current snapshot untouched.
func (c *Cache) refresh(ctx context.Context) (*dataset.Snapshot, error) {
	start := c.now()

	raw, err := c.fetcher.Fetch(ctx)
	if err != nil {
		c.recordFailure(err)
		c.metrics.ObserveRefresh("fetch_error", c.now().Sub(start))
		return nil, err
	}

	records, skipped, err := c.parser.Parse(raw)
	if err != nil {
		c.recordFailure(err)
		c.metrics.ObserveRefresh("parse_error", c.now().Sub(start))
		return nil, err
	}

	snap := dataset.NewSnapshot(records, c.fetcher.Source(), c.now(), skipped)
	c.current.Store(snap)
	c.recordSuccess()
	c.metrics.ObserveRefresh("success", c.now().Sub(start))
	c.metrics.SetSnapshot(snap.RowCount(), skipped)

	if c.logger != nil {
		c.logger.Info("dataset snapshot refreshed",
			"rows", snap.RowCount(),
			"skipped", skipped,
			"source", snap.Source(),
		)
	}
	return snap, nil
}

func (c *Cache) recordFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastAttempt = c.now()
	c.lastErr = err
}

func (c *Cache) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastAttempt = c.now()
	c.lastErr = nil
}

// noData builds the cold-start failure error, carrying the last
// refresh error as cause when there is one. The screening service
// translates sentinel.ErrNoSnapshot into the caller-facing error.
func (c *Cache) noData() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastErr != nil {
		return fmt.Errorf("%w: %w", sentinel.ErrNoSnapshot, c.lastErr)
	}
	return sentinel.ErrNoSnapshot
}

// Current returns the snapshot being served without triggering a
// refresh, or nil before the first successful fetch.
func (c *Cache) Current() *dataset.Snapshot {
	return c.current.Load()
}

// LastRefreshError returns the error of the most recent refresh
// attempt, or nil if it succeeded.
func (c *Cache) LastRefreshError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}
