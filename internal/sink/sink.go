// Package sink forwards every accepted event to the long-term time-series
// store. Delivery is fire-and-forget: the real-time path never waits on the
// sink, failed deliveries are counted and logged but not retried, and a full
// queue drops rather than blocks ingestion.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vigilhq/beacon/internal/event"
	"github.com/vigilhq/beacon/internal/metrics"
)

// Forwarder ships events to an HTTP sink endpoint via a bounded worker pool.
// The zero-value-URL forwarder is a no-op, for deployments without a sink.
type Forwarder struct {
	url    string
	client *http.Client
	pool   *workerPool[*event.RealtimeEvent]
}

// Config tunes the forwarder.
type Config struct {
	URL        string
	Workers    int
	QueueDepth int
	Timeout    time.Duration
}

// New starts a Forwarder. With an empty URL no workers are started and
// Forward discards silently.
func New(ctx context.Context, cfg Config) *Forwarder {
	if cfg.URL == "" {
		return &Forwarder{}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 1000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	f := &Forwarder{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
	}
	f.pool = newWorkerPool(ctx, cfg.Workers, cfg.QueueDepth, f.deliver)
	return f
}

// Forward queues ev for delivery. Returns false when the queue is full and
// the event was dropped (recorded, never surfaced to the ingestion caller).
func (f *Forwarder) Forward(ev *event.RealtimeEvent) bool {
	if f.pool == nil {
		return true
	}
	if !f.pool.Submit(ev) {
		metrics.SinkDeliveries.WithLabelValues("dropped").Inc()
		return false
	}
	metrics.SinkQueueUtilization.Set(f.QueueUtilization())
	return true
}

// QueueUtilization returns queue used / capacity (0-1).
func (f *Forwarder) QueueUtilization() float64 {
	if f.pool == nil || f.pool.QueueCap() == 0 {
		return 0
	}
	return float64(f.pool.QueueLen()) / float64(f.pool.QueueCap())
}

// Shutdown drains the delivery queue.
func (f *Forwarder) Shutdown() {
	if f.pool != nil {
		f.pool.Drain()
	}
}

func (f *Forwarder) deliver(ctx context.Context, ev *event.RealtimeEvent) {
	body, err := json.Marshal(ev)
	if err != nil {
		metrics.SinkDeliveries.WithLabelValues("error").Inc()
		slog.Error("sink: encode event", "err", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		metrics.SinkDeliveries.WithLabelValues("error").Inc()
		slog.Error("sink: build request", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", uuid.New().String())

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.SinkDeliveries.WithLabelValues("error").Inc()
		slog.Warn("sink: delivery failed", "err", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		metrics.SinkDeliveries.WithLabelValues("error").Inc()
		slog.Warn("sink: delivery rejected", "status", resp.StatusCode)
		return
	}
	metrics.SinkDeliveries.WithLabelValues("ok").Inc()
}
