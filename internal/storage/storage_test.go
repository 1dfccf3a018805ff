package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends runs the shared KV contract tests against every implementation.
func backends(t *testing.T) map[string]KV {
	t.Helper()

	mr := miniredis.RunT(t)
	r, err := NewRedis(context.Background(), "redis://"+mr.Addr(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	return map[string]KV{
		"memory": NewMemory(),
		"redis":  r,
	}
}

func TestKVContract(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := kv.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, kv.Put(ctx, "shard:a:events:100", []byte(`[1]`)))
			require.NoError(t, kv.Put(ctx, "shard:a:events:200", []byte(`[2]`)))
			require.NoError(t, kv.Put(ctx, "shard:b:events:100", []byte(`[3]`)))

			v, err := kv.Get(ctx, "shard:a:events:100")
			require.NoError(t, err)
			assert.Equal(t, []byte(`[1]`), v)

			// Overwrite.
			require.NoError(t, kv.Put(ctx, "shard:a:events:100", []byte(`[1,1]`)))
			v, err = kv.Get(ctx, "shard:a:events:100")
			require.NoError(t, err)
			assert.Equal(t, []byte(`[1,1]`), v)

			// List is prefix-scoped per shard.
			keys, err := kv.List(ctx, "shard:a:events:")
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"shard:a:events:100", "shard:a:events:200"}, keys)

			// Batch delete reports how many keys existed.
			n, err := kv.Delete(ctx, "shard:a:events:100", "shard:a:events:200", "missing")
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			_, err = kv.Get(ctx, "shard:a:events:100")
			assert.ErrorIs(t, err, ErrNotFound)

			// Other shards untouched.
			_, err = kv.Get(ctx, "shard:b:events:100")
			assert.NoError(t, err)
		})
	}
}

func TestDeleteEmptyKeySet(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			n, err := kv.Delete(context.Background())
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestRedisTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	r, err := NewRedis(context.Background(), "redis://"+mr.Addr(), time.Minute)
	require.NoError(t, err)
	defer r.Close()

	ctx := context.Background()
	require.NoError(t, r.Put(ctx, "shard:a:events:100", []byte(`[]`)))

	mr.FastForward(2 * time.Minute)

	_, err = r.Get(ctx, "shard:a:events:100")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewRedisBadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "not-a-url", 0)
	assert.Error(t, err)
}

func TestMemoryCopiesValues(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	buf := []byte(`[1]`)
	require.NoError(t, m.Put(ctx, "k", buf))
	buf[1] = '9'

	v, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[1]`), v, "stored value must not alias the caller's buffer")
}
