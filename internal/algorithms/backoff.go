package algorithms

import (
	"cmp"
	"math/rand"
	"sync"
	"time"
)

const (
	maxShift = 62 // 1<<63 overflows int64
)

// decorrelatedJitterBackoff picks each delay uniformly from
// [initialDelay, 3*previousDelay], capped at maxDelay.
type decorrelatedJitterBackoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	prevDelay    time.Duration
	rng          *rand.Rand
	mu           sync.Mutex
}

func newDecorrelatedJitterBackoff(initialDelay, maxDelay time.Duration) *decorrelatedJitterBackoff {
	return &decorrelatedJitterBackoff{
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
		prevDelay:    initialDelay,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- jitter only
	}
}

func (djb *decorrelatedJitterBackoff) NextDelay(attemptNumber int, fault error) time.Duration {
	djb.mu.Lock()
	defer djb.mu.Unlock()

	if attemptNumber == 0 {
		djb.prevDelay = djb.initialDelay
		return djb.initialDelay
	}

	upperBound := min(time.Duration(float64(djb.prevDelay)*3), djb.maxDelay)

	delayRange := upperBound - djb.initialDelay
	if delayRange <= 0 {
		djb.prevDelay = djb.initialDelay
		return djb.initialDelay
	}

	delay := djb.initialDelay + time.Duration(djb.rng.Int63n(int64(delayRange)))
	djb.prevDelay = delay
	return delay
}

func (djb *decorrelatedJitterBackoff) Reset() {
	djb.mu.Lock()
	defer djb.mu.Unlock()
	djb.prevDelay = djb.initialDelay
}

// jitteredBackoff scales the exponential delay by a random factor in
// [1-jitterFactor, 1+jitterFactor], so units that fault together do not all
// respawn at the same instant.
type jitteredBackoff struct {
	initialDelay, maxDelay time.Duration
	jitterFactor           float64
	rng                    *rand.Rand
	mu                     sync.Mutex
}

func newJitteredBackoff(initialDelay, maxDelay time.Duration, jitterFactor float64) *jitteredBackoff {
	return &jitteredBackoff{
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
		jitterFactor: clamp(jitterFactor, 0, 1),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- jitter only
	}
}

func (jb *jitteredBackoff) NextDelay(attemptNumber int, fault error) time.Duration {
	if attemptNumber < 0 {
		return 0
	}

	baseDelay := calcExponentialDelay(attemptNumber, jb.initialDelay, jb.maxDelay)

	jb.mu.Lock()
	multiplier := 1.0 + (jb.rng.Float64()*2-1)*jb.jitterFactor
	jb.mu.Unlock()

	return clamp(time.Duration(float64(baseDelay)*multiplier), 0, jb.maxDelay)
}

func (jb *jitteredBackoff) Reset() {}

// exponentialBackoff waits initialDelay * 2^attempt, capped at maxDelay.
type exponentialBackoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
}

func newExponentialBackoff(initialDelay, maxDelay time.Duration) *exponentialBackoff {
	return &exponentialBackoff{
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
	}
}

func (eb *exponentialBackoff) NextDelay(attemptNumber int, fault error) time.Duration {
	return calcExponentialDelay(attemptNumber, eb.initialDelay, eb.maxDelay)
}

func (eb *exponentialBackoff) Reset() {}

func calcExponentialDelay(attemptNumber int, initialDelay, maxDelay time.Duration) time.Duration {
	if attemptNumber < 0 {
		return 0
	}

	if attemptNumber > maxShift {
		return maxDelay
	}

	delay := time.Duration(int64(1)<<uint(attemptNumber)) * initialDelay
	if delay > maxDelay || delay < 0 || delay/time.Duration(int64(1)<<uint(attemptNumber)) != initialDelay {
		return maxDelay
	}

	return delay
}

func clamp[T cmp.Ordered](v, lo, hi T) T {
	return max(lo, min(v, hi))
}
