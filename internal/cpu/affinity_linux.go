//go:build linux

package cpu

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinToCore pins the current OS thread to core cpuID mod NumCPU.
// Must be called after runtime.LockOSThread().
func pinToCore(cpuID int) (int, error) {
	numCPU := runtime.NumCPU()
	if cpuID < 0 || cpuID >= numCPU {
		cpuID = ((cpuID % numCPU) + numCPU) % numCPU
	}

	var mask unix.CPUSet
	mask.Zero()
	mask.Set(cpuID)

	if err := unix.SchedSetaffinity(0, &mask); err != nil { // 0 = current thread
		return 0, err
	}

	return cpuID, nil
}

// PinUnit locks the calling goroutine to an OS thread and pins that thread to
// the core matching the unit index. The returned release function unlocks
// the thread and must be deferred by the unit's goroutine.
func PinUnit(unitIndex int) (release func(), err error) {
	runtime.LockOSThread()
	if _, err := pinToCore(unitIndex); err != nil {
		runtime.UnlockOSThread()
		return func() {}, err
	}

	return runtime.UnlockOSThread, nil
}
