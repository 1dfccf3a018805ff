package shard

import (
	"context"
	"sync"
)

// chainLock serializes mutating operations on one shard. Each acquire
// captures the current tail, installs a fresh uncompleted tail, and waits for
// the captured one; release completes the installed tail. That gives a total
// order over all lock-protected operations: a read-modify-write in flight can
// never interleave with another, even though each suspends at storage calls.
type chainLock struct {
	mu   sync.Mutex
	tail chan struct{}
}

func newChainLock() *chainLock {
	done := make(chan struct{})
	close(done)
	return &chainLock{tail: done}
}

// acquire blocks until every previously queued operation has released, then
// returns the release function. Callers must invoke release exactly once,
// via defer, so a failure inside the critical section still unblocks the
// queue. On context cancellation the caller's slot in the chain is forwarded
// so later waiters are not stranded.
func (l *chainLock) acquire(ctx context.Context) (release func(), err error) {
	l.mu.Lock()
	prev := l.tail
	next := make(chan struct{})
	l.tail = next
	l.mu.Unlock()

	select {
	case <-prev:
		return func() { close(next) }, nil
	case <-ctx.Done():
		go func() {
			<-prev
			close(next)
		}()
		return nil, ctx.Err()
	}
}
