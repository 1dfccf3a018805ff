package shard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigilhq/beacon/internal/event"
	"github.com/vigilhq/beacon/internal/stats"
	"github.com/vigilhq/beacon/internal/storage"
)

const testUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func testEvent(visitorID string) *event.RealtimeEvent {
	return &event.RealtimeEvent{
		EventType: event.TypePageview,
		Timestamp: time.Now().UnixMilli(),
		URL:       "https://example.com/",
		UserAgent: testUA,
		VisitorID: visitorID,
		Fingerprint: &event.FingerprintPayload{
			Hash: "deadbeefcafe0000",
			Components: event.FingerprintComponents{
				ScreenWidth: 1920, ScreenHeight: 1080, ColorDepth: 24,
				Timezone: "UTC", Language: "en", Platform: "Win32",
				CookieEnabled: true,
			},
		},
	}
}

// fixedClock returns a clock function pinned to a settable instant.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFixedClock(millis int64) *fixedClock {
	return &fixedClock{t: time.UnixMilli(millis)}
}

func (c *fixedClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	return New("test", storage.NewMemory(), stats.NewAggregator(nil), opts...)
}

func TestWindowFor(t *testing.T) {
	base := int64(1_700_000_100_000)
	w := WindowFor(base)
	require.Equal(t, int64(0), w%WindowSizeMillis)
	require.LessOrEqual(t, w, base)

	// Every timestamp inside the bucket maps to the same window.
	for _, off := range []int64{0, 1, 299_999} {
		assert.Equal(t, WindowFor(w), WindowFor(w+off))
	}
	assert.NotEqual(t, WindowFor(w), WindowFor(w+WindowSizeMillis))
}

func TestAddEventTotalsBelowCap(t *testing.T) {
	clock := newFixedClock(1_700_000_100_000)
	s := newTestStore(t, WithClock(clock.now))
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		require.NoError(t, s.AddEvent(ctx, testEvent("v")))
	}

	got, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, got.TotalEvents)
	assert.Equal(t, 1, got.UniqueVisitors)
	assert.Equal(t, WindowFor(clock.now().UnixMilli()), got.Window)
}

func TestAddEventFIFOEviction(t *testing.T) {
	clock := newFixedClock(1_700_000_100_000)
	s := newTestStore(t, WithClock(clock.now), WithMaxEvents(5))
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		ev := testEvent("v")
		ev.URL = "https://example.com/" + string(rune('a'+i))
		require.NoError(t, s.AddEvent(ctx, ev))
	}

	data, err := s.AggregatedData(ctx)
	require.NoError(t, err)
	require.Len(t, data.Events, 5, "log must be pinned at the cap")

	// Oldest three were evicted; the retained tail starts at the fourth.
	assert.Equal(t, "https://example.com/d", data.Events[0].URL)
	assert.Equal(t, "https://example.com/h", data.Events[4].URL)

	got, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, got.TotalEvents, "totals reflect only the retained tail")
}

func TestAddEventRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ev := testEvent("v")
	ev.URL = ""
	err := s.AddEvent(ctx, ev)
	require.Error(t, err)
	var verr *event.ValidationError
	require.ErrorAs(t, err, &verr)

	got, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, got.TotalEvents, "rejected event must never reach the log")
}

func TestConcurrentAddEventNoLostUpdate(t *testing.T) {
	clock := newFixedClock(1_700_000_100_000)
	s := newTestStore(t, WithClock(clock.now))
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.AddEvent(ctx, testEvent("v"))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoErrorf(t, err, "add %d failed", i)
	}
	got, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, got.TotalEvents, "every concurrent add must be reflected")
}

func TestCleanupOldWindows(t *testing.T) {
	clock := newFixedClock(1_700_000_100_000)
	s := newTestStore(t, WithClock(clock.now))
	ctx := context.Background()

	// Populate four consecutive windows.
	for i := 0; i < 4; i++ {
		require.NoError(t, s.AddEvent(ctx, testEvent("v")))
		if i < 3 {
			clock.advance(time.Duration(WindowSizeMillis) * time.Millisecond)
		}
	}

	removed, err := s.CleanupOldWindows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed, "only windows older than the previous one are deleted")

	// The active window's log is intact.
	got, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalEvents)

	// A second pass finds nothing stale.
	removed, err = s.CleanupOldWindows(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestCleanupKeepsPreviousWindow(t *testing.T) {
	clock := newFixedClock(1_700_000_100_000)
	kv := storage.NewMemory()
	s := New("test", kv, stats.NewAggregator(nil), WithClock(clock.now))
	ctx := context.Background()

	require.NoError(t, s.AddEvent(ctx, testEvent("v")))
	clock.advance(time.Duration(WindowSizeMillis) * time.Millisecond)
	require.NoError(t, s.AddEvent(ctx, testEvent("v")))

	removed, err := s.CleanupOldWindows(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed, "current and previous windows must survive cleanup")

	keys, err := kv.List(ctx, "shard:test:events:")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestMemoryStats(t *testing.T) {
	clock := newFixedClock(1_700_000_100_000)
	s := newTestStore(t, WithClock(clock.now), WithMaxEvents(100))
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		require.NoError(t, s.AddEvent(ctx, testEvent("v")))
	}

	ms, err := s.MemoryStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, ms.EventCount)
	assert.Equal(t, 100, ms.MaxEvents)
	assert.InDelta(t, 25.0, ms.UtilizationPercent, 0.001)
	assert.InDelta(t, float64(25*500)/(1024*1024), ms.EstimatedMemoryMB, 1e-9)
}

func TestNewWindowStartsEmpty(t *testing.T) {
	clock := newFixedClock(1_700_000_100_000)
	s := newTestStore(t, WithClock(clock.now))
	ctx := context.Background()

	require.NoError(t, s.AddEvent(ctx, testEvent("v")))
	clock.advance(time.Duration(WindowSizeMillis) * time.Millisecond)

	got, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, got.TotalEvents, "a fresh window starts from an empty log")
}

func TestRegistryResolvesShards(t *testing.T) {
	reg := NewRegistry(storage.NewMemory(), stats.NewAggregator(nil))

	a := reg.Resolve("project-a")
	b := reg.Resolve("project-b")
	assert.NotSame(t, a, b)
	assert.Same(t, a, reg.Resolve("project-a"))
	assert.Same(t, reg.Resolve(""), reg.Resolve(DefaultShard))
	assert.Len(t, reg.Shards(), 3)
}

func TestShardsAreIsolated(t *testing.T) {
	reg := NewRegistry(storage.NewMemory(), stats.NewAggregator(nil))
	ctx := context.Background()

	require.NoError(t, reg.Resolve("a").AddEvent(ctx, testEvent("v")))

	got, err := reg.Resolve("b").Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, got.TotalEvents)
}
