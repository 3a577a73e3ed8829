package unit

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/utkarsh5026/scorepool/internal/cpu"
	"github.com/utkarsh5026/scorepool/internal/similarity"
)

// Kernel scores targets against query inside a unit.
type Kernel func(ctx context.Context, query string, targets []string) ([]float64, error)

// LocalOption configures the units created by a LocalSpawner.
type LocalOption func(*LocalSpawner)

// WithAffinity pins every unit goroutine to the core matching its index.
func WithAffinity(enabled bool) LocalOption {
	return func(s *LocalSpawner) {
		s.affinity = enabled
	}
}

// WithKernel overrides the kernel a unit runs for op.
func WithKernel(op MessageType, k Kernel) LocalOption {
	return func(s *LocalSpawner) {
		if k != nil {
			s.kernels[op] = k
		}
	}
}

// WithUnitLogger sets the logger units use for lifecycle events.
func WithUnitLogger(logger *zap.Logger) LocalOption {
	return func(s *LocalSpawner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// LocalSpawner creates goroutine-backed units. Each unit owns a private
// mailbox and its own copy of the kernel table; it talks to the controller
// only through encoded messages.
type LocalSpawner struct {
	affinity bool
	kernels  map[MessageType]Kernel
	logger   *zap.Logger
}

// NewLocalSpawner returns a spawner running the default Levenshtein and
// trigram kernels.
func NewLocalSpawner(opts ...LocalOption) *LocalSpawner {
	s := &LocalSpawner{
		kernels: map[MessageType]Kernel{
			TypeLevenshteinBatch: similarity.LevenshteinBatch,
			TypeTrigramBatch:     similarity.TrigramBatch,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Spawn starts the unit for index. The unit reports ready from its own
// goroutine once its setup is done.
func (s *LocalSpawner) Spawn(index int, sink Sink) (Unit, error) {
	if sink == nil {
		return nil, fmt.Errorf("spawn unit %d: nil sink", index)
	}

	ctx, cancel := context.WithCancel(context.Background())
	u := &Local{
		index:    index,
		sink:     sink,
		box:      newMailbox(),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		affinity: s.affinity,
		logger:   s.logger.With(zap.Int("unit", index)),
	}

	kernels := make(map[MessageType]Kernel, len(s.kernels))
	for op, k := range s.kernels {
		kernels[op] = k
	}

	go u.run(kernels)
	return u, nil
}

// Local is a unit backed by one goroutine.
type Local struct {
	index    int
	sink     Sink
	box      *mailbox
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
	affinity bool
	logger   *zap.Logger
}

// Post queues an encoded message for the unit.
func (u *Local) Post(data []byte) error {
	if !u.box.push(data) {
		return ErrUnitClosed
	}
	return nil
}

// Terminate cancels any in-progress kernel, drops queued messages and waits
// for the unit goroutine to exit.
func (u *Local) Terminate() {
	u.stopOnce.Do(func() {
		u.cancel()
		u.box.close()
	})
	<-u.done
}

func (u *Local) run(kernels map[MessageType]Kernel) {
	defer close(u.done)
	defer u.box.close()

	if u.affinity {
		release, err := cpu.PinUnit(u.index)
		defer release()
		if err != nil {
			u.logger.Warn("cpu pinning failed", zap.Error(err))
		}
	}

	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			u.fault(fmt.Errorf("unit %d panic: %v\nstack trace:\n%s", u.index, r, buf[:n]))
		}
	}()

	if err := u.emit(Message{Type: TypeReady}); err != nil {
		u.fault(err)
		return
	}
	u.logger.Debug("unit ready")

	for {
		data, ok := u.box.pop(u.ctx)
		if !ok {
			return
		}
		if err := u.handle(kernels, data); err != nil {
			u.fault(err)
			return
		}
	}
}

// handle runs one request. A returned error is a fault of the unit itself;
// request-level failures are reported back as TypeError messages.
func (u *Local) handle(kernels map[MessageType]Kernel, data []byte) error {
	msg, err := Decode(data)
	if err != nil {
		return fmt.Errorf("unit %d: %w", u.index, err)
	}

	kernel, ok := kernels[msg.Type]
	if !ok {
		return u.emit(Message{
			Type:  TypeError,
			ID:    msg.ID,
			Error: fmt.Sprintf("unsupported operation %q", msg.Type),
		})
	}

	scores, err := kernel(u.ctx, msg.Query, msg.Targets)
	if err != nil {
		if u.ctx.Err() != nil {
			return nil
		}
		return u.emit(Message{Type: TypeError, ID: msg.ID, Error: err.Error()})
	}

	if len(scores) != len(msg.Targets) {
		return u.emit(Message{
			Type:  TypeError,
			ID:    msg.ID,
			Error: fmt.Sprintf("kernel returned %d scores for %d targets", len(scores), len(msg.Targets)),
		})
	}

	return u.emit(Message{Type: TypeResult, ID: msg.ID, Results: scores})
}

func (u *Local) emit(m Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	u.sink(Event{Unit: u.index, Data: data})
	return nil
}

func (u *Local) fault(err error) {
	u.logger.Error("unit faulted", zap.Error(err))
	u.sink(Event{Unit: u.index, Fault: err})
}
