// Package pool scores one query string against many target strings on a
// fixed pool of worker units.
//
// The primary type is Controller. It spawns PoolSize units lazily, routes
// each batch to them and correlates the responses back to the caller. Units
// share no memory with the controller: every request and response travels
// as an encoded unit.Message.
//
// # Basic Usage
//
//	ctrl := pool.New(pool.WithPoolSize(4))
//	defer ctrl.Terminate()
//
//	distances, err := ctrl.LevenshteinBatch(ctx, "cat", []string{"cat", "bat", "dog"})
//	// distances: [0 1 3]
//
//	scores, err := ctrl.TrigramBatch(ctx, "kitten", []string{"sitting", "kitchen"})
//
// # Dispatch
//
// A batch of at most ChunkSize targets goes to a single unit, chosen
// round-robin by a request counter. Larger batches are split into
// contiguous chunks; chunk i goes to unit i mod PoolSize and the scores are
// merged back in chunk order. Either way the result holds exactly one score
// per target, in target order.
//
// # Failures
//
// A unit that panics or sends something undecodable is taken out of
// rotation. Only the requests it owned are rejected, with a
// *UnitFaultError; requests owned by the other units keep going. When a
// unit reports an error for one chunk of a fan-out request, the whole
// request is rejected with a *RequestError and late sibling chunks are
// ignored.
//
// Faulted units are not replaced unless WithUnitRespawn is set:
//
//	ctrl := pool.New(
//	    pool.WithUnitRespawn(pool.BackoffJittered, 50*time.Millisecond, 5*time.Second),
//	)
//
// # Termination
//
// Terminate rejects every outstanding request with ErrPoolTerminated before
// destroying the units. Calls made while it runs fail with
// ErrPoolTerminating. After it returns, the next call spawns a fresh pool.
//
// # Observability
//
// WithLogger attaches a zap logger and WithRegisterer exposes request,
// chunk, failure and unit counters to Prometheus.
package pool
