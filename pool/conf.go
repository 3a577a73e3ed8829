package pool

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/utkarsh5026/scorepool/internal/algorithms"
	"github.com/utkarsh5026/scorepool/internal/unit"
)

const (
	// DefaultChunkSize is the largest target list sent to a unit in one
	// message. Longer lists are split and fanned out across the pool.
	DefaultChunkSize = 500

	maxDefaultPoolSize  = 4
	fallbackParallelism = 2
)

// BackoffType selects the delay curve used by WithUnitRespawn.
type BackoffType = algorithms.BackoffType

const (
	BackoffExponential  = algorithms.BackoffExponential
	BackoffJittered     = algorithms.BackoffJittered
	BackoffDecorrelated = algorithms.BackoffDecorrelated
)

// Option is a functional option for configuring a Controller.
type Option func(*config)

type config struct {
	poolSize   int
	chunkSize  int
	logger     *zap.Logger
	registerer prometheus.Registerer
	spawner    unit.Spawner
	affinity   bool
	limiter    *rate.Limiter
	respawn    *respawnPolicy
}

type respawnPolicy struct {
	kind         BackoffType
	initialDelay time.Duration
	maxDelay     time.Duration
	jitterFactor float64
}

// WithPoolSize sets the number of worker units.
// If not specified, defaults to min(4, runtime.NumCPU()).
func WithPoolSize(size int) Option {
	return func(cfg *config) {
		if size > 0 {
			cfg.poolSize = size
		}
	}
}

// WithChunkSize sets the maximum number of targets per unit message.
// Batches at or below this size are sent to a single unit.
func WithChunkSize(size int) Option {
	return func(cfg *config) {
		if size > 0 {
			cfg.chunkSize = size
		}
	}
}

// WithLogger sets the logger for pool lifecycle and correlation events.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithRegisterer registers the controller's Prometheus collectors on reg.
// Two controllers cannot share one registerer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(cfg *config) {
		cfg.registerer = reg
	}
}

// WithSpawner replaces the goroutine-backed units with a custom spawner.
func WithSpawner(s unit.Spawner) Option {
	return func(cfg *config) {
		if s != nil {
			cfg.spawner = s
		}
	}
}

// WithUnitAffinity pins each default unit to the CPU core matching its
// index. It has no effect together with WithSpawner.
func WithUnitAffinity(enabled bool) Option {
	return func(cfg *config) {
		cfg.affinity = enabled
	}
}

// WithDispatchRateLimit caps how many unit messages are posted per second.
// A fan-out request waits for one token per chunk before any chunk is sent.
//
// Example:
//
//	WithDispatchRateLimit(200, 16) // 200 chunks/sec with burst of 16
func WithDispatchRateLimit(messagesPerSecond float64, burst int) Option {
	return func(cfg *config) {
		if messagesPerSecond > 0 && burst > 0 {
			cfg.limiter = rate.NewLimiter(rate.Limit(messagesPerSecond), burst)
		}
	}
}

// WithUnitRespawn replaces a faulted unit after a backoff delay instead of
// leaving its slot empty until the pool is terminated. Consecutive faults of
// the same slot grow the delay; a successful ready signal resets it.
func WithUnitRespawn(kind BackoffType, initialDelay, maxDelay time.Duration) Option {
	return func(cfg *config) {
		if initialDelay <= 0 || maxDelay < initialDelay {
			return
		}
		cfg.respawn = &respawnPolicy{
			kind:         kind,
			initialDelay: initialDelay,
			maxDelay:     maxDelay,
			jitterFactor: 0.1,
		}
	}
}

// defaultPoolSize is min(4, hardware parallelism), using 2 when the runtime
// cannot report a CPU count.
func defaultPoolSize() int {
	hint := runtime.NumCPU()
	if hint <= 0 {
		hint = fallbackParallelism
	}
	return min(maxDefaultPoolSize, hint)
}

func createConfig(opts ...Option) *config {
	cfg := &config{
		poolSize:  defaultPoolSize(),
		chunkSize: DefaultChunkSize,
		logger:    zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.spawner == nil {
		cfg.spawner = unit.NewLocalSpawner(
			unit.WithAffinity(cfg.affinity),
			unit.WithUnitLogger(cfg.logger),
		)
	}

	return cfg
}
