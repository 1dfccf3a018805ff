package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vigilhq/beacon/internal/event"
	"github.com/vigilhq/beacon/internal/metrics"
	"github.com/vigilhq/beacon/internal/shard"
	"github.com/vigilhq/beacon/internal/sink"
)

// Handler holds all HTTP handler dependencies.
type Handler struct {
	shards    *shard.Registry
	forwarder *sink.Forwarder
	mux       *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(shards *shard.Registry, forwarder *sink.Forwarder) http.Handler {
	h := &Handler{shards: shards, forwarder: forwarder, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /event", h.ingestEvent)
	h.mux.HandleFunc("GET /stats", h.getStats)
	h.mux.HandleFunc("GET /data", h.getData)
	h.mux.HandleFunc("GET /memory", h.getMemory)
	h.mux.HandleFunc("POST /cleanup", h.cleanup)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())
	h.mux.HandleFunc("/", h.notFound)

	return loggingMiddleware(h.mux)
}

// resolve picks the shard for a request, from the query string.
func (h *Handler) resolve(r *http.Request) *shard.Store {
	return h.shards.Resolve(r.URL.Query().Get("project_id"))
}

// POST /event — validate and append one event to its shard's current window,
// then queue it for the long-term sink.
func (h *Handler) ingestEvent(w http.ResponseWriter, r *http.Request) {
	var ev event.RealtimeEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		metrics.EventsRejected.Inc()
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}

	store := h.shards.Resolve(ev.ProjectID)
	if err := store.AddEvent(r.Context(), &ev); err != nil {
		var verr *event.ValidationError
		if errors.As(err, &verr) {
			metrics.EventsRejected.Inc()
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Fire-and-forget; a full sink queue never fails ingestion.
	h.forwarder.Forward(&ev)

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GET /stats — aggregate the current window.
func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.resolve(r).Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// GET /data — current window stats plus a compact per-event listing.
func (h *Handler) getData(w http.ResponseWriter, r *http.Request) {
	data, err := h.resolve(r).AggregatedData(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// GET /memory — informational log-size report.
func (h *Handler) getMemory(w http.ResponseWriter, r *http.Request) {
	ms, err := h.resolve(r).MemoryStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

// POST /cleanup — delete stale windows. With a project_id only that shard is
// swept; otherwise every known shard is.
func (h *Handler) cleanup(w http.ResponseWriter, r *http.Request) {
	stores := h.shards.Shards()
	if id := r.URL.Query().Get("project_id"); id != "" {
		stores = []*shard.Store{h.shards.Resolve(id)}
	}

	cleaned := 0
	for _, store := range stores {
		n, err := store.CleanupOldWindows(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		cleaned += n
	}
	writeJSON(w, http.StatusOK, map[string]int{"cleaned": cleaned})
}

// GET /healthz — always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz — 503 if the sink forwarding queue is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.forwarder.QueueUtilization()
	metrics.SinkQueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":                 "overloaded",
			"sink_queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":                 "ready",
		"sink_queue_utilization": util,
	})
}

// Any unregistered path/method combination.
func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}
