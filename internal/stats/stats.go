// Package stats turns an ordered window log into aggregate visitor
// statistics. Aggregation is a pure recomputation: stats are derived from the
// log on every request and never persisted independently.
package stats

import (
	"github.com/vigilhq/beacon/internal/botdetect"
	"github.com/vigilhq/beacon/internal/event"
	"github.com/vigilhq/beacon/internal/fingerprint"
	"github.com/vigilhq/beacon/internal/useragent"
)

// RealtimeStats summarizes one five-minute window.
type RealtimeStats struct {
	Window         int64          `json:"window"`
	WindowSize     int64          `json:"window_size"`
	TotalEvents    int            `json:"total_events"`
	UniqueVisitors int            `json:"unique_visitors"`
	Pageviews      int            `json:"pageviews"`
	Clicks         int            `json:"clicks"`
	CustomEvents   int            `json:"custom_events"`
	Browsers       map[string]int `json:"browsers"`
	OperatingSys   map[string]int `json:"operating_systems"`
	Devices        map[string]int `json:"devices"`
	BotCount       int            `json:"bot_count"`
	HumanCount     int            `json:"human_count"`
}

// EventSummary is the compact per-event view returned by the data endpoint.
type EventSummary struct {
	Timestamp int64  `json:"timestamp"`
	EventType string `json:"event_type"`
	URL       string `json:"url"`
	VisitorID string `json:"visitor_id"`
}

// Aggregator computes RealtimeStats from raw events. It holds a shared
// User-Agent parse cache since dashboards re-aggregate the same log many
// times per window.
type Aggregator struct {
	ua *useragent.Cache
}

// NewAggregator creates an Aggregator backed by cache. A nil cache disables
// memoization and parses every string directly.
func NewAggregator(cache *useragent.Cache) *Aggregator {
	return &Aggregator{ua: cache}
}

func (a *Aggregator) parse(raw string) useragent.Parsed {
	if a.ua == nil {
		return useragent.Parse(raw)
	}
	return a.ua.Parse(raw)
}

// Aggregate reduces events into the stats for the window starting at window.
// Per event it classifies the UA, regenerates the fingerprint server-side,
// scores bot likelihood, and tallies breakdowns. Unique visitors are a set
// keyed by visitor_id (fingerprint hash as fallback), so event order never
// affects the result.
func (a *Aggregator) Aggregate(window int64, windowSize int64, events []event.RealtimeEvent) RealtimeStats {
	s := RealtimeStats{
		Window:       window,
		WindowSize:   windowSize,
		TotalEvents:  len(events),
		Browsers:     make(map[string]int),
		OperatingSys: make(map[string]int),
		Devices:      make(map[string]int),
	}

	visitors := make(map[string]struct{})
	for i := range events {
		ev := &events[i]

		var fp fingerprint.Fingerprint
		if ev.Fingerprint != nil {
			fp = fingerprint.Generate(ev.Fingerprint.Components)
		}

		key := ev.DedupKey()
		if key == "" {
			key = fp.Hash
		}
		if key != "" {
			visitors[key] = struct{}{}
		}

		parsed := a.parse(ev.UserAgent)
		s.Browsers[parsed.Browser.Name]++
		s.OperatingSys[parsed.OS.Name]++
		s.Devices[parsed.Device.Type]++

		if botdetect.Detect(parsed, fp).IsBot {
			s.BotCount++
		} else {
			s.HumanCount++
		}

		switch ev.EventType {
		case event.TypePageview:
			s.Pageviews++
		case event.TypeClick:
			s.Clicks++
		case event.TypeCustom:
			s.CustomEvents++
		}
	}
	s.UniqueVisitors = len(visitors)
	return s
}

// Summarize builds the compact per-event listing for detail views.
func Summarize(events []event.RealtimeEvent) []EventSummary {
	out := make([]EventSummary, len(events))
	for i := range events {
		out[i] = EventSummary{
			Timestamp: events[i].Timestamp,
			EventType: events[i].EventType,
			URL:       events[i].URL,
			VisitorID: events[i].DedupKey(),
		}
	}
	return out
}
