package algorithms

import "time"

// BackoffType selects the respawn backoff algorithm.
type BackoffType int

const (
	// BackoffExponential doubles the delay on every attempt (default).
	BackoffExponential BackoffType = iota
	// BackoffJittered adds random jitter around the exponential delay.
	BackoffJittered
	// BackoffDecorrelated uses decorrelated jitter.
	BackoffDecorrelated
)

// String returns the flag spelling of t.
func (t BackoffType) String() string {
	switch t {
	case BackoffJittered:
		return "jittered"
	case BackoffDecorrelated:
		return "decorrelated"
	default:
		return "exponential"
	}
}

// ParseBackoffType maps "exponential", "jittered" or "decorrelated" to a
// BackoffType. Unknown names yield BackoffExponential and false.
func ParseBackoffType(name string) (BackoffType, bool) {
	switch name {
	case "exponential", "":
		return BackoffExponential, true
	case "jittered":
		return BackoffJittered, true
	case "decorrelated":
		return BackoffDecorrelated, true
	default:
		return BackoffExponential, false
	}
}

// NewBackoffStrategy creates the strategy for backoffType. Each faulted unit
// index gets its own strategy so decorrelated state is never shared.
func NewBackoffStrategy(
	backoffType BackoffType,
	initialDelay, maxDelay time.Duration,
	jitterFactor float64,
) BackoffStrategy {
	switch backoffType {
	case BackoffJittered:
		return newJitteredBackoff(initialDelay, maxDelay, jitterFactor)

	case BackoffDecorrelated:
		return newDecorrelatedJitterBackoff(initialDelay, maxDelay)

	default:
		return newExponentialBackoff(initialDelay, maxDelay)
	}
}
