package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdnscreen/internal/dataset/parse"
	dErrors "sdnscreen/pkg/domain-errors"
	"sdnscreen/pkg/platform/sentinel"
)

const csvHeader = "id,name,birth_date,countries,addresses,sanctions,dataset\n"

var (
	payloadV1 = []byte(csvHeader +
		"Q1,John Doe,1960-01-01,ru,Moscow,US SDN,us_sdn\n" +
		"Q2,Joanna Smith,,us,,US SDN,us_sdn\n")
	payloadV2 = []byte(csvHeader +
		"Q1,John Doe,1960-01-01,ru,Moscow,US SDN,us_sdn\n" +
		"Q2,Joanna Smith,,us,,US SDN,us_sdn\n" +
		"Q3,Bob Jones,,gb,,US SDN,us_sdn\n")
)

// fakeFetcher counts calls and serves a configurable payload or error.
// A non-nil gate makes Fetch block until the gate is closed.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	payload []byte
	err     error
	gate    chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	payload, err, gate := f.payload, f.err, f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (f *fakeFetcher) Source() string {
	return "fake://targets.csv"
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFetcher) set(payload []byte, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payload = payload
	f.err = err
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 8, 6, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(f *fakeFetcher, clock *fakeClock, ttl, backoff time.Duration) *Cache {
	return New(f, parse.New(0.5, nil), ttl, backoff, WithClock(clock.Now))
}

func TestEnsureFresh_ColdStart(t *testing.T) {
	fetcher := &fakeFetcher{payload: payloadV1}
	clock := newFakeClock()
	c := newTestCache(fetcher, clock, time.Minute, 10*time.Second)

	snap, err := c.EnsureFresh(t.Context())

	require.NoError(t, err)
	assert.Equal(t, 2, snap.RowCount())
	assert.Equal(t, "fake://targets.csv", snap.Source())
	assert.Equal(t, clock.Now(), snap.FetchedAt())
	assert.Equal(t, 1, fetcher.Calls())
}

func TestEnsureFresh_WithinTTLSingleFetch(t *testing.T) {
	fetcher := &fakeFetcher{payload: payloadV1}
	clock := newFakeClock()
	c := newTestCache(fetcher, clock, time.Minute, 10*time.Second)

	first, err := c.EnsureFresh(t.Context())
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	second, err := c.EnsureFresh(t.Context())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, fetcher.Calls())
}

func TestEnsureFresh_ColdStartCollapsesConcurrentCallers(t *testing.T) {
	gate := make(chan struct{})
	fetcher := &fakeFetcher{payload: payloadV1, gate: gate}
	clock := newFakeClock()
	c := newTestCache(fetcher, clock, time.Minute, 10*time.Second)

	const callers = 16
	results := make(chan int, callers)
	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := c.EnsureFresh(context.Background())
			if err != nil {
				results <- -1
				return
			}
			results <- snap.RowCount()
		}()
	}

	// Give all callers time to pile onto the single flight, then open
	// the gate.
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()
	close(results)

	for rows := range results {
		assert.Equal(t, 2, rows)
	}
	assert.Equal(t, 1, fetcher.Calls())
}

func TestEnsureFresh_StaleServesOldWhileRefreshing(t *testing.T) {
	fetcher := &fakeFetcher{payload: payloadV1}
	clock := newFakeClock()
	c := newTestCache(fetcher, clock, time.Minute, 10*time.Second)

	old, err := c.EnsureFresh(t.Context())
	require.NoError(t, err)

	// Expire the snapshot and hold the next fetch open.
	gate := make(chan struct{})
	fetcher.mu.Lock()
	fetcher.payload = payloadV2
	fetcher.gate = gate
	fetcher.mu.Unlock()
	clock.Advance(2 * time.Minute)

	// The first stale read triggers the background refresh and returns
	// the old snapshot without waiting for it.
	snap, err := c.EnsureFresh(t.Context())
	require.NoError(t, err)
	assert.Same(t, old, snap)
	require.Eventually(t, func() bool {
		return fetcher.Calls() == 2
	}, time.Second, 5*time.Millisecond)

	// Further stale reads keep returning the old snapshot and do not
	// start a second refresh while one is in flight.
	for range 5 {
		snap, err := c.EnsureFresh(t.Context())
		require.NoError(t, err)
		assert.Same(t, old, snap)
	}
	assert.Equal(t, 2, fetcher.Calls())

	close(gate)
	require.Eventually(t, func() bool {
		return c.Current() != old
	}, time.Second, 5*time.Millisecond)

	snap, err = c.EnsureFresh(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, snap.RowCount())
}

func TestEnsureFresh_FailedRefreshKeepsServingOldSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{payload: payloadV1}
	clock := newFakeClock()
	c := newTestCache(fetcher, clock, time.Minute, 10*time.Second)

	old, err := c.EnsureFresh(t.Context())
	require.NoError(t, err)

	fetcher.set(nil, errors.New("connection reset"))
	clock.Advance(2 * time.Minute)

	snap, err := c.EnsureFresh(t.Context())
	require.NoError(t, err)
	assert.Same(t, old, snap)

	require.Eventually(t, func() bool {
		return c.LastRefreshError() != nil
	}, time.Second, 5*time.Millisecond)

	// The served snapshot's metadata is untouched by the failure.
	snap, err = c.EnsureFresh(t.Context())
	require.NoError(t, err)
	assert.Equal(t, old.RowCount(), snap.RowCount())
	assert.Equal(t, old.FetchedAt(), snap.FetchedAt())
}

func TestEnsureFresh_FailureBackoffThrottlesRetries(t *testing.T) {
	fetcher := &fakeFetcher{payload: payloadV1}
	clock := newFakeClock()
	c := newTestCache(fetcher, clock, time.Minute, 30*time.Second)

	_, err := c.EnsureFresh(t.Context())
	require.NoError(t, err)

	fetcher.set(nil, errors.New("connection reset"))
	clock.Advance(2 * time.Minute)

	_, err = c.EnsureFresh(t.Context())
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return c.LastRefreshError() != nil
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 2, fetcher.Calls())

	// TTL is long expired, but the backoff window is not: no new
	// attempt fires.
	clock.Advance(10 * time.Second)
	_, err = c.EnsureFresh(t.Context())
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, fetcher.Calls())

	// Past the backoff window the next read retries, and a recovered
	// upstream swaps in a fresh snapshot.
	fetcher.set(payloadV2, nil)
	clock.Advance(30 * time.Second)
	_, err = c.EnsureFresh(t.Context())
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return c.Current().RowCount() == 3
	}, time.Second, 5*time.Millisecond)
	assert.Nil(t, c.LastRefreshError())
}

func TestEnsureFresh_ColdStartFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	clock := newFakeClock()
	c := newTestCache(fetcher, clock, time.Minute, 30*time.Second)

	_, err := c.EnsureFresh(t.Context())
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrNoSnapshot)
	assert.Contains(t, err.Error(), "connection refused")

	// A second immediate call stays inside the backoff window and does
	// not hit the upstream again.
	_, err = c.EnsureFresh(t.Context())
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrNoSnapshot)
	assert.Equal(t, 1, fetcher.Calls())

	// The upstream recovers once the backoff has elapsed.
	fetcher.set(payloadV1, nil)
	clock.Advance(time.Minute)
	snap, err := c.EnsureFresh(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, snap.RowCount())
}

func TestEnsureFresh_ParseFailureIsAbsorbedWhenWarm(t *testing.T) {
	fetcher := &fakeFetcher{payload: payloadV1}
	clock := newFakeClock()
	c := newTestCache(fetcher, clock, time.Minute, 10*time.Second)

	old, err := c.EnsureFresh(t.Context())
	require.NoError(t, err)

	fetcher.set([]byte("surname;given_name\n"), nil)
	clock.Advance(2 * time.Minute)

	snap, err := c.EnsureFresh(t.Context())
	require.NoError(t, err)
	assert.Same(t, old, snap)

	require.Eventually(t, func() bool {
		return dErrors.HasCode(c.LastRefreshError(), dErrors.CodeParseFailed)
	}, time.Second, 5*time.Millisecond)
}

func TestCurrent_NilBeforeFirstFetch(t *testing.T) {
	fetcher := &fakeFetcher{payload: payloadV1}
	c := newTestCache(fetcher, newFakeClock(), time.Minute, 10*time.Second)

	assert.Nil(t, c.Current())
}
