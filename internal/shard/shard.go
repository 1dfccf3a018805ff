// Package shard implements the per-key window store: serialized ownership of
// one tenant's bounded, five-minute-windowed event logs.
package shard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/vigilhq/beacon/internal/event"
	"github.com/vigilhq/beacon/internal/metrics"
	"github.com/vigilhq/beacon/internal/stats"
	"github.com/vigilhq/beacon/internal/storage"
)

const (
	// WindowSizeMillis is the aligned bucket width. Window identity is a
	// pure function of wall-clock time and this constant; boundaries are
	// never persisted.
	WindowSizeMillis int64 = 300_000

	// MaxEvents caps each window log. Above the cap the oldest events are
	// dropped first, so a sustained overload undercounts rather than
	// growing the log without bound.
	MaxEvents = 10_000

	// bytesPerEvent is a fixed size assumption used for memory reporting
	// only; it is never load-bearing for correctness.
	bytesPerEvent = 500
)

// WindowFor maps an epoch-millisecond timestamp to its window start.
func WindowFor(tsMillis int64) int64 {
	return tsMillis - tsMillis%WindowSizeMillis
}

// MemoryStats reports the current log's footprint, informationally.
type MemoryStats struct {
	EventCount         int     `json:"eventCount"`
	EstimatedMemoryMB  float64 `json:"estimatedMemoryMB"`
	MaxEvents          int     `json:"maxEvents"`
	UtilizationPercent float64 `json:"utilizationPercent"`
}

// WindowInfo describes the active window in AggregatedData responses.
type WindowInfo struct {
	Start int64               `json:"start"`
	End   int64               `json:"end"`
	Stats stats.RealtimeStats `json:"stats"`
}

// AggregatedData is the stats-plus-events detail view.
type AggregatedData struct {
	CurrentWindow WindowInfo           `json:"current_window"`
	Events        []stats.EventSummary `json:"events"`
}

// Store owns one shard's window logs. AddEvent and CleanupOldWindows
// serialize through a chained lock so their read-modify-write sequences never
// interleave; read-only queries take no lock and tolerate reading a log with
// an append in flight.
type Store struct {
	id        string
	kv        storage.KV
	agg       *stats.Aggregator
	lock      *chainLock
	maxEvents int
	now       func() time.Time
}

// Option tunes a Store.
type Option func(*Store)

// WithMaxEvents overrides the log cap, for tests.
func WithMaxEvents(n int) Option {
	return func(s *Store) { s.maxEvents = n }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates the store for shard id on top of kv.
func New(id string, kv storage.KV, agg *stats.Aggregator, opts ...Option) *Store {
	s := &Store{
		id:        id,
		kv:        kv,
		agg:       agg,
		lock:      newChainLock(),
		maxEvents: MaxEvents,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the shard identifier.
func (s *Store) ID() string { return s.id }

func (s *Store) keyPrefix() string {
	return fmt.Sprintf("shard:%s:events:", s.id)
}

func (s *Store) windowKey(window int64) string {
	return s.keyPrefix() + strconv.FormatInt(window, 10)
}

func (s *Store) currentWindow() int64 {
	return WindowFor(s.now().UnixMilli())
}

// AddEvent validates ev, appends it to the current window's log with FIFO
// eviction at the cap, and persists the log. The whole read-modify-write runs
// under the shard lock; without it two concurrent adds could each load the
// same log and silently lose one append.
func (s *Store) AddEvent(ctx context.Context, ev *event.RealtimeEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	release, err := s.lock.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	window := s.currentWindow()
	key := s.windowKey(window)

	log, err := s.loadLog(ctx, key)
	if err != nil {
		return err
	}

	if over := len(log) + 1 - s.maxEvents; over > 0 {
		log = log[over:]
		metrics.EventsEvicted.Add(float64(over))
	}
	log = append(log, *ev)

	if err := s.storeLog(ctx, key, log); err != nil {
		return err
	}

	metrics.EventsIngested.Inc()
	metrics.LogUtilization.WithLabelValues(s.id).Set(float64(len(log)) / float64(s.maxEvents))
	return nil
}

// Stats loads the current window's log and aggregates it. Never mutates.
func (s *Store) Stats(ctx context.Context) (stats.RealtimeStats, error) {
	window := s.currentWindow()
	log, err := s.loadLog(ctx, s.windowKey(window))
	if err != nil {
		return stats.RealtimeStats{}, err
	}
	start := time.Now()
	out := s.agg.Aggregate(window, WindowSizeMillis, log)
	metrics.AggregationDuration.Observe(float64(time.Since(start).Microseconds()) / 1000)
	return out, nil
}

// AggregatedData returns the current window's stats plus a compact per-event
// listing for detail views.
func (s *Store) AggregatedData(ctx context.Context) (AggregatedData, error) {
	window := s.currentWindow()
	log, err := s.loadLog(ctx, s.windowKey(window))
	if err != nil {
		return AggregatedData{}, err
	}
	return AggregatedData{
		CurrentWindow: WindowInfo{
			Start: window,
			End:   window + WindowSizeMillis,
			Stats: s.agg.Aggregate(window, WindowSizeMillis, log),
		},
		Events: stats.Summarize(log),
	}, nil
}

// CleanupOldWindows deletes, as one batch, every stored window strictly older
// than the previous one (window < currentWindow - windowSize) and returns how
// many logs were removed. The active and immediately preceding windows are
// always retained. Runs under the shard lock so it cannot race an ingestion.
func (s *Store) CleanupOldWindows(ctx context.Context) (int, error) {
	release, err := s.lock.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	keys, err := s.kv.List(ctx, s.keyPrefix())
	if err != nil {
		return 0, fmt.Errorf("list windows: %w", err)
	}

	cutoff := s.currentWindow() - WindowSizeMillis
	var stale []string
	for _, key := range keys {
		window, err := strconv.ParseInt(strings.TrimPrefix(key, s.keyPrefix()), 10, 64)
		if err != nil {
			slog.Warn("skipping unparseable window key", "shard", s.id, "key", key)
			continue
		}
		if window < cutoff {
			stale = append(stale, key)
		}
	}
	if len(stale) == 0 {
		metrics.CleanupRuns.Inc()
		return 0, nil
	}

	removed, err := s.kv.Delete(ctx, stale...)
	if err != nil {
		return 0, fmt.Errorf("delete stale windows: %w", err)
	}
	metrics.CleanupRuns.Inc()
	metrics.WindowsCleaned.Add(float64(removed))
	slog.Info("cleaned stale windows", "shard", s.id, "removed", removed)
	return removed, nil
}

// MemoryStats reports the current log's size against the cap. The byte
// estimate uses a fixed per-event size assumption.
func (s *Store) MemoryStats(ctx context.Context) (MemoryStats, error) {
	log, err := s.loadLog(ctx, s.windowKey(s.currentWindow()))
	if err != nil {
		return MemoryStats{}, err
	}
	count := len(log)
	return MemoryStats{
		EventCount:         count,
		EstimatedMemoryMB:  float64(count*bytesPerEvent) / (1024 * 1024),
		MaxEvents:          s.maxEvents,
		UtilizationPercent: float64(count) / float64(s.maxEvents) * 100,
	}, nil
}

func (s *Store) loadLog(ctx context.Context, key string) ([]event.RealtimeEvent, error) {
	raw, err := s.kv.Get(ctx, key)
	if err == storage.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load window log: %w", err)
	}
	var log []event.RealtimeEvent
	if err := json.Unmarshal(raw, &log); err != nil {
		return nil, fmt.Errorf("decode window log %s: %w", key, err)
	}
	return log, nil
}

func (s *Store) storeLog(ctx context.Context, key string, log []event.RealtimeEvent) error {
	raw, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("encode window log %s: %w", key, err)
	}
	if err := s.kv.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("persist window log: %w", err)
	}
	return nil
}
