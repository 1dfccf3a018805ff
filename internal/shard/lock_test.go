package shard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainLockSerializes(t *testing.T) {
	l := newChainLock()
	ctx := context.Background()

	var mu sync.Mutex
	inside := 0
	maxInside := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.acquire(ctx)
			if err != nil {
				t.Error(err)
				return
			}
			defer release()

			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside, "critical sections overlapped")
}

func TestChainLockReleasedOnFailure(t *testing.T) {
	l := newChainLock()
	ctx := context.Background()

	// An operation that fails mid-section must still unblock the queue.
	func() {
		release, err := l.acquire(ctx)
		require.NoError(t, err)
		defer release()
	}()

	done := make(chan struct{})
	go func() {
		release, err := l.acquire(ctx)
		require.NoError(t, err)
		release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock was not released after the previous holder returned")
	}
}

func TestChainLockCancelledWaiterForwardsChain(t *testing.T) {
	l := newChainLock()

	holdRelease, err := l.acquire(context.Background())
	require.NoError(t, err)

	// A waiter gives up while queued.
	cancelCtx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.acquire(cancelCtx)
	require.ErrorIs(t, err, context.Canceled)

	// Releasing the holder must still let a later waiter through, even
	// though the cancelled one never ran.
	acquired := make(chan struct{})
	go func() {
		release, err := l.acquire(context.Background())
		if err != nil {
			t.Error(err)
			return
		}
		release()
		close(acquired)
	}()

	holdRelease()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("chain stalled behind a cancelled waiter")
	}
}
