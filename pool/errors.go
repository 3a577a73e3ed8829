package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolTerminating is returned to calls made while Terminate is tearing
	// the pool down. Such calls are rejected, not queued.
	ErrPoolTerminating = errors.New("pool is terminating")

	// ErrPoolTerminated rejects every request still outstanding when
	// Terminate was called.
	ErrPoolTerminated = errors.New("pool terminated")

	// ErrUnitFault matches every *UnitFaultError.
	ErrUnitFault = errors.New("worker unit faulted")

	// ErrRequestFailed matches every *RequestError.
	ErrRequestFailed = errors.New("worker unit failed request")

	// ErrNoLiveUnits is returned when every unit in the pool has faulted.
	ErrNoLiveUnits = errors.New("no live worker units")
)

// UnitFaultError rejects the requests owned by a unit that became unusable.
type UnitFaultError struct {
	Unit int
	Err  error
}

func (e *UnitFaultError) Error() string {
	return fmt.Sprintf("worker unit %d faulted: %v", e.Unit, e.Err)
}

func (e *UnitFaultError) Unwrap() []error {
	return []error{ErrUnitFault, e.Err}
}

// RequestError carries the failure a unit reported for one request or
// chunk. For a chunked request ID is the chunk identifier; the whole
// request is rejected.
type RequestError struct {
	ID      string
	Unit    int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("worker unit %d failed %s: %s", e.Unit, e.ID, e.Message)
}

func (e *RequestError) Is(target error) bool {
	return target == ErrRequestFailed
}
