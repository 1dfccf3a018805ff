// Package storage provides the durable key-value interface window logs live
// behind, with a Redis implementation for deployment and an in-memory
// implementation for tests and single-process runs.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("storage: key not found")

// KV is the durable store the window-store actor persists through. Keys are
// namespaced by the caller (one prefix per shard); implementations treat them
// as opaque strings.
type KV interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value under key, overwriting any previous value.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes the given keys as one batch and reports how many
	// existed. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) (int, error)
	// List returns all keys with the given prefix, in no particular order.
	List(ctx context.Context, prefix string) ([]string, error)
}
