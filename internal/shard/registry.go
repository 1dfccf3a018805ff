package shard

import (
	"sync"

	"github.com/vigilhq/beacon/internal/stats"
	"github.com/vigilhq/beacon/internal/storage"
)

// DefaultShard receives events that carry no project_id.
const DefaultShard = "default"

// Registry resolves project identifiers to their shard stores, creating
// stores lazily on first use. It stands in for the external routing layer
// that decides which shard an inbound event belongs to.
type Registry struct {
	kv   storage.KV
	agg  *stats.Aggregator
	opts []Option

	mu     sync.RWMutex
	shards map[string]*Store
}

// NewRegistry creates a Registry whose stores share kv and agg.
func NewRegistry(kv storage.KV, agg *stats.Aggregator, opts ...Option) *Registry {
	return &Registry{
		kv:     kv,
		agg:    agg,
		opts:   opts,
		shards: make(map[string]*Store),
	}
}

// Resolve returns the store for projectID, creating it if needed. An empty
// projectID maps to the default shard.
func (r *Registry) Resolve(projectID string) *Store {
	if projectID == "" {
		projectID = DefaultShard
	}

	r.mu.RLock()
	s, ok := r.shards[projectID]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.shards[projectID]; ok {
		return s
	}
	s = New(projectID, r.kv, r.agg, r.opts...)
	r.shards[projectID] = s
	return s
}

// Shards returns a snapshot of all known shard stores.
func (r *Registry) Shards() []*Store {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Store, 0, len(r.shards))
	for _, s := range r.shards {
		out = append(out, s)
	}
	return out
}
