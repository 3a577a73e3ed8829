package types

import (
	"context"
	"sync"
)

// Result is the settled outcome of a Future.
//
// Type parameters:
//   - R: The type of the result value
//   - K: The type of the key identifying the request (a request id for the pool)
type Result[R any, K comparable] struct {
	Value R
	Key   K
	Error error
}

// Future is a write-once handle to a value produced asynchronously.
// It settles exactly once, either with a value or with an error; every later
// attempt to settle it is a no-op. Any number of goroutines may wait on it.
type Future[R any, K comparable] struct {
	done   chan struct{}
	once   sync.Once
	result Result[R, K]
}

// NewFuture creates an unsettled Future.
func NewFuture[R any, K comparable]() *Future[R, K] {
	return &Future[R, K]{
		done: make(chan struct{}),
	}
}

// Resolve settles the future with a value. It reports whether this call
// settled the future; false means it had already been settled.
func (f *Future[R, K]) Resolve(key K, value R) bool {
	return f.settle(Result[R, K]{Value: value, Key: key})
}

// Reject settles the future with an error. It reports whether this call
// settled the future.
func (f *Future[R, K]) Reject(key K, err error) bool {
	return f.settle(Result[R, K]{Key: key, Error: err})
}

func (f *Future[R, K]) settle(r Result[R, K]) bool {
	settled := false
	f.once.Do(func() {
		f.result = r
		settled = true
		close(f.done)
	})
	return settled
}

// Get blocks until the future settles and returns its value, key and error.
func (f *Future[R, K]) Get() (R, K, error) {
	<-f.done
	return f.result.Value, f.result.Key, f.result.Error
}

// GetWithContext is like Get but gives up when ctx is done, returning the
// context's error. Giving up does not settle the future.
func (f *Future[R, K]) GetWithContext(ctx context.Context) (R, K, error) {
	select {
	case <-f.done:
		return f.result.Value, f.result.Key, f.result.Error
	case <-ctx.Done():
		var zeroR R
		var zeroK K
		return zeroR, zeroK, ctx.Err()
	}
}

// TryGet returns the settled result without blocking. ready is false while
// the future is still pending.
func (f *Future[R, K]) TryGet() (value R, key K, err error, ready bool) {
	select {
	case <-f.done:
		return f.result.Value, f.result.Key, f.result.Error, true
	default:
		return value, key, nil, false
	}
}

// Done returns a channel that is closed once the future settles.
func (f *Future[R, K]) Done() <-chan struct{} {
	return f.done
}

// IsReady reports whether the future has settled.
func (f *Future[R, K]) IsReady() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
