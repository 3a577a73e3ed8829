package pool

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/utkarsh5026/scorepool/internal/algorithms"
	"github.com/utkarsh5026/scorepool/internal/unit"
)

// Controller owns a pool of worker units and every piece of state needed to
// route work to them: the units themselves, the pending-request registry and
// the unit ownership of each outstanding identifier.
//
// A Controller is created once and shared by reference. Its pool is spawned
// lazily by the first call that needs it and lives until Terminate.
type Controller struct {
	conf    *config
	logger  *zap.Logger
	metrics *metrics

	mu          sync.Mutex
	slots       []*unitSlot
	readyCount  int
	initialized bool
	init        *initHandle
	terminating bool
	generation  uint64
	loop        *eventLoop
	reg         *registry
	counter     uint64

	// background tracks goroutines that reap faulted units and respawn timers.
	background sync.WaitGroup
}

// unitSlot is one position of the pool. incarnation changes every time the
// slot gets a new unit so events from a replaced unit can be told apart.
type unitSlot struct {
	index       int
	unit        unit.Unit
	incarnation uint64
	ready       bool
	faulted     bool
	respawns    int
	backoff     algorithms.BackoffStrategy
	timer       *time.Timer
}

// initHandle is shared by every caller waiting for the same pool to become
// ready. It is finished at most once, under the controller's lock.
type initHandle struct {
	done chan struct{}
	err  error
}

func (h *initHandle) finish(err error) {
	select {
	case <-h.done:
		return
	default:
	}
	h.err = err
	close(h.done)
}

// New creates a Controller. No units are spawned until the first request or
// an explicit EnsurePool.
//
// Example:
//
//	ctrl := pool.New(pool.WithPoolSize(4), pool.WithLogger(log))
//	defer ctrl.Terminate()
//	scores, err := ctrl.LevenshteinBatch(ctx, "cat", []string{"cat", "bat", "dog"})
func New(opts ...Option) *Controller {
	cfg := createConfig(opts...)
	return &Controller{
		conf:    cfg,
		logger:  cfg.logger,
		metrics: newMetrics(cfg.registerer),
		reg:     newRegistry(),
	}
}

// PoolSize returns the number of units the pool runs.
func (c *Controller) PoolSize() int {
	return c.conf.poolSize
}

// ChunkSize returns the largest target list sent to one unit.
func (c *Controller) ChunkSize() int {
	return c.conf.chunkSize
}

// EnsurePool makes sure every unit of the pool has signalled ready.
//
// Concurrent callers share one initialization; exactly PoolSize units are
// spawned. While Terminate is running it fails with ErrPoolTerminating. A
// unit that never signals ready keeps the pool uninitialized, so callers
// should bound the wait with ctx; giving up does not cancel initialization.
func (c *Controller) EnsurePool(ctx context.Context) error {
	c.mu.Lock()
	if c.terminating {
		c.mu.Unlock()
		return ErrPoolTerminating
	}
	if c.initialized {
		c.mu.Unlock()
		return nil
	}

	if c.init == nil {
		if units, loop, err := c.startPool(); err != nil {
			c.mu.Unlock()
			teardown(units, loop)
			return err
		}
	}
	h := c.init
	c.mu.Unlock()

	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// startPool spawns every unit. On a spawn failure the partially built pool
// is detached and returned so the caller can tear it down without the lock.
func (c *Controller) startPool() ([]unit.Unit, *eventLoop, error) {
	c.generation++
	c.loop = c.startLoop()
	c.init = &initHandle{done: make(chan struct{})}
	c.slots = make([]*unitSlot, c.conf.poolSize)
	c.readyCount = 0

	c.logger.Info("starting worker pool",
		zap.Int("pool_size", c.conf.poolSize),
		zap.Int("chunk_size", c.conf.chunkSize),
	)

	for i := range c.slots {
		slot := &unitSlot{index: i}
		if p := c.conf.respawn; p != nil {
			slot.backoff = algorithms.NewBackoffStrategy(p.kind, p.initialDelay, p.maxDelay, p.jitterFactor)
		}
		c.slots[i] = slot

		u, err := c.conf.spawner.Spawn(i, c.loop.sink(c.generation, i, slot.incarnation))
		if err != nil {
			c.logger.Error("spawning worker unit failed", zap.Int("unit", i), zap.Error(err))
			return c.abortStart(err)
		}
		slot.unit = u
	}

	return nil, nil, nil
}

func (c *Controller) abortStart(err error) ([]unit.Unit, *eventLoop, error) {
	var units []unit.Unit
	for _, slot := range c.slots {
		if slot != nil && slot.unit != nil {
			units = append(units, slot.unit)
		}
	}

	loop := c.loop
	c.init.finish(err)
	c.init = nil
	c.loop = nil
	c.slots = nil
	c.generation++
	return units, loop, err
}

// Terminate tears the pool down. Every outstanding request is rejected with
// ErrPoolTerminated before any unit is destroyed. Calls made while Terminate
// runs fail with ErrPoolTerminating; once it returns, the next call builds a
// fresh pool. It is safe to call when no pool exists.
func (c *Controller) Terminate() {
	c.mu.Lock()
	if c.terminating || (c.slots == nil && c.init == nil) {
		c.mu.Unlock()
		return
	}
	c.terminating = true

	records := c.reg.drain()
	for _, p := range records {
		c.reject(p, ErrPoolTerminated, failureTerminated)
	}

	units := make([]unit.Unit, 0, len(c.slots))
	for _, slot := range c.slots {
		if slot.timer != nil && slot.timer.Stop() {
			c.background.Done()
		}
		slot.timer = nil
		if slot.unit != nil {
			units = append(units, slot.unit)
		}
	}

	if c.init != nil {
		c.init.finish(ErrPoolTerminated)
	}
	loop := c.loop
	c.slots, c.init, c.loop = nil, nil, nil
	c.initialized = false
	c.readyCount = 0
	c.generation++
	c.metrics.readyUnits.Set(0)
	c.mu.Unlock()

	c.logger.Info("terminating worker pool",
		zap.Int("units", len(units)),
		zap.Int("rejected_requests", len(records)),
	)

	c.background.Wait()
	teardown(units, loop)

	c.mu.Lock()
	c.terminating = false
	c.mu.Unlock()
}

// teardown destroys units concurrently, then stops the event loop that
// served them.
func teardown(units []unit.Unit, loop *eventLoop) {
	var wg sync.WaitGroup
	wg.Add(len(units))
	for _, u := range units {
		go func() {
			defer wg.Done()
			u.Terminate()
		}()
	}
	wg.Wait()

	if loop != nil {
		loop.close()
	}
}

// Stats is a point-in-time view of a Controller.
type Stats struct {
	PoolSize        int
	ChunkSize       int
	Initialized     bool
	Terminating     bool
	ReadyUnits      int
	FaultedUnits    []int
	PendingRequests int // distinct caller-facing requests
	OutstandingIDs  int // request and chunk identifiers awaiting a response
	Dispatched      uint64
}

// Stats returns a snapshot of the controller's state.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		PoolSize:        c.conf.poolSize,
		ChunkSize:       c.conf.chunkSize,
		Initialized:     c.initialized,
		Terminating:     c.terminating,
		ReadyUnits:      c.readyCount,
		PendingRequests: c.reg.records(),
		OutstandingIDs:  c.reg.len(),
		Dispatched:      c.counter,
	}
	for _, slot := range c.slots {
		if slot.faulted {
			s.FaultedUnits = append(s.FaultedUnits, slot.index)
		}
	}
	return s
}
