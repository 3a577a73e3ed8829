//go:build !linux && !darwin && !windows

package cpu

// PinUnit is a no-op on platforms without affinity support.
func PinUnit(unitIndex int) (release func(), err error) {
	return func() {}, nil
}
