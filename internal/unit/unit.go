package unit

import "errors"

// ErrUnitClosed is returned by Post once a unit has been terminated or has
// faulted.
var ErrUnitClosed = errors.New("unit is closed")

// Event is what a unit reports to its controller: either an encoded Message
// in Data, or a Fault after which the unit is unusable.
type Event struct {
	Unit  int
	Data  []byte
	Fault error
}

// Sink receives events from units. It may be called from any goroutine.
type Sink func(Event)

// Unit is an isolated execution context reachable only through serialized
// messages.
type Unit interface {
	// Post queues an encoded Message for the unit. It never blocks on the
	// unit's progress.
	Post(data []byte) error

	// Terminate stops the unit and waits for it to exit. Events the unit
	// emits while stopping may still reach the sink.
	Terminate()
}

// Spawner creates the unit for a pool index. The unit must send a TypeReady
// message through sink once it can accept work.
type Spawner interface {
	Spawn(index int, sink Sink) (Unit, error)
}

// SpawnFunc adapts a function to the Spawner interface.
type SpawnFunc func(index int, sink Sink) (Unit, error)

// Spawn calls f(index, sink).
func (f SpawnFunc) Spawn(index int, sink Sink) (Unit, error) {
	return f(index, sink)
}
