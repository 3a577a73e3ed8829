//go:build darwin

package cpu

import (
	"runtime"
)

// PinUnit locks the calling goroutine to an OS thread.
// CPU pinning is not available on macOS, so the unit index is ignored.
func PinUnit(unitIndex int) (release func(), err error) {
	runtime.LockOSThread()
	return runtime.UnlockOSThread, nil
}
