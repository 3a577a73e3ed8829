// Package cpu pins worker unit goroutines to CPU cores where the platform
// allows it.
package cpu
