package event

import "fmt"

// Event types accepted by the ingestion pipeline.
const (
	TypePageview = "pageview"
	TypeClick    = "click"
	TypeCustom   = "custom"
)

// FingerprintPayload is the client-computed fingerprint attached to every event.
type FingerprintPayload struct {
	Hash       string                `json:"hash"`
	Components FingerprintComponents `json:"components"`
	Confidence int                   `json:"confidence"`
}

// FingerprintComponents are the raw environment attributes the client hashed.
type FingerprintComponents struct {
	ScreenWidth   int    `json:"screen_width"`
	ScreenHeight  int    `json:"screen_height"`
	ColorDepth    int    `json:"color_depth"`
	Timezone      string `json:"timezone"`
	Language      string `json:"language"`
	Platform      string `json:"platform"`
	CookieEnabled bool   `json:"cookie_enabled"`
	DoNotTrack    bool   `json:"do_not_track"`
}

// RealtimeEvent is the canonical input model for all visitor-tracking events.
// It is immutable once accepted.
type RealtimeEvent struct {
	EventType   string              `json:"event_type"`
	Timestamp   int64               `json:"timestamp"` // epoch milliseconds, client-supplied
	URL         string              `json:"url"`
	Referrer    string              `json:"referrer,omitempty"`
	UserAgent   string              `json:"user_agent"`
	Fingerprint *FingerprintPayload `json:"fingerprint"`

	ProjectID string `json:"project_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	VisitorID string `json:"visitor_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`

	// Type-specific fields.
	ClickTarget string         `json:"click_target,omitempty"`
	ClickText   string         `json:"click_text,omitempty"`
	CustomData  map[string]any `json:"custom_data,omitempty"`
}

// ValidationError reports a malformed event. The HTTP boundary translates it
// into a 4xx response; storage failures stay generic and map to 5xx.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: %s %s", e.Field, e.Reason)
}

// Validate enforces the ingestion invariants: event_type, timestamp, url,
// user_agent, and fingerprint must all be present and well-typed. Events that
// fail validation never reach the window log.
func (ev *RealtimeEvent) Validate() error {
	switch ev.EventType {
	case TypePageview, TypeClick, TypeCustom:
	case "":
		return &ValidationError{Field: "event_type", Reason: "is required"}
	default:
		return &ValidationError{Field: "event_type", Reason: fmt.Sprintf("%q is not one of pageview, click, custom", ev.EventType)}
	}
	if ev.Timestamp <= 0 {
		return &ValidationError{Field: "timestamp", Reason: "must be a positive epoch-millisecond value"}
	}
	if ev.URL == "" {
		return &ValidationError{Field: "url", Reason: "is required"}
	}
	if ev.UserAgent == "" {
		return &ValidationError{Field: "user_agent", Reason: "is required"}
	}
	if ev.Fingerprint == nil {
		return &ValidationError{Field: "fingerprint", Reason: "is required"}
	}
	return nil
}

// DedupKey returns the identifier used for unique-visitor counting:
// visitor_id when present, otherwise the fingerprint hash.
func (ev *RealtimeEvent) DedupKey() string {
	if ev.VisitorID != "" {
		return ev.VisitorID
	}
	if ev.Fingerprint != nil {
		return ev.Fingerprint.Hash
	}
	return ""
}
