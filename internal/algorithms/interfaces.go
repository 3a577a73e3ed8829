package algorithms

import "time"

// BackoffStrategy computes how long to wait before respawning a faulted
// worker unit.
type BackoffStrategy interface {
	// NextDelay returns the wait before respawn attempt attemptNumber
	// (0-indexed: 0 is the first respawn after a fault). fault is the error
	// that took the unit down.
	NextDelay(attemptNumber int, fault error) time.Duration

	// Reset clears any state carried between attempts. Called once a
	// respawned unit signals ready again.
	Reset()
}
