package pool

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/utkarsh5026/scorepool/internal/unit"
)

// envelope tags a unit event with the pool generation and slot incarnation
// of the unit that emitted it.
type envelope struct {
	gen         uint64
	slot        int
	incarnation uint64
	event       unit.Event
}

// eventLoop delivers unit events to the controller one at a time. Every
// handler runs to completion under the controller's lock, so a lookup and
// the completion decision it leads to are never split.
type eventLoop struct {
	inbox chan envelope
	stop  chan struct{}
	done  chan struct{}
}

func (c *Controller) startLoop() *eventLoop {
	l := &eventLoop{
		inbox: make(chan envelope, c.conf.poolSize*8),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	go func() {
		defer close(l.done)
		for {
			select {
			case env := <-l.inbox:
				c.handleEvent(env)
			case <-l.stop:
				return
			}
		}
	}()

	return l
}

// sink returns the callback handed to the unit in slot. Events sent after
// the loop stopped are dropped.
func (l *eventLoop) sink(gen uint64, slot int, incarnation uint64) unit.Sink {
	return func(e unit.Event) {
		select {
		case l.inbox <- envelope{gen: gen, slot: slot, incarnation: incarnation, event: e}:
		case <-l.stop:
		}
	}
}

func (l *eventLoop) close() {
	close(l.stop)
	<-l.done
}

func (c *Controller) handleEvent(env envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.terminating || env.gen != c.generation || env.slot < 0 || env.slot >= len(c.slots) {
		c.logger.Debug("ignoring stray unit event", zap.Int("unit", env.slot))
		return
	}

	slot := c.slots[env.slot]
	if env.incarnation != slot.incarnation {
		return
	}

	if env.event.Fault != nil {
		c.handleFault(slot, env.event.Fault)
		return
	}

	msg, err := unit.Decode(env.event.Data)
	if err != nil {
		c.handleFault(slot, err)
		return
	}

	if slot.faulted {
		c.logger.Debug("ignoring message from faulted unit", zap.Int("unit", slot.index), zap.String("id", msg.ID))
		return
	}

	switch msg.Type {
	case unit.TypeReady:
		c.handleReady(slot)
	case unit.TypeResult:
		c.handleResult(slot, msg)
	case unit.TypeError:
		c.handleRequestError(slot, msg)
	default:
		c.logger.Warn("unexpected message from unit",
			zap.Int("unit", slot.index),
			zap.String("type", string(msg.Type)),
		)
	}
}

func (c *Controller) handleReady(slot *unitSlot) {
	if slot.ready {
		return
	}
	slot.ready = true
	c.readyCount++
	c.metrics.readyUnits.Set(float64(c.readyCount))

	if slot.respawns > 0 {
		slot.backoff.Reset()
		slot.respawns = 0
		c.logger.Info("respawned worker unit ready", zap.Int("unit", slot.index))
	}

	if !c.initialized && c.readyCount == len(c.slots) {
		c.initialized = true
		c.logger.Info("worker pool ready", zap.Int("pool_size", len(c.slots)))
		c.init.finish(nil)
	}
}

func (c *Controller) handleResult(slot *unitSlot, msg unit.Message) {
	p, ok := c.reg.lookup(msg.ID)
	if !ok {
		c.logger.Debug("ignoring result for unknown request", zap.String("id", msg.ID))
		return
	}

	index := 0
	if p.fanOut {
		_, idx, ok := parseChunkID(msg.ID)
		if !ok || idx >= len(p.partial) {
			c.reg.release(p)
			c.reject(p, &RequestError{ID: msg.ID, Unit: slot.index, Message: "malformed chunk identifier"}, failureRequestError)
			return
		}
		index = idx
	}

	if len(msg.Results) != p.expect[index] {
		c.reg.release(p)
		c.reject(p, &RequestError{
			ID:      msg.ID,
			Unit:    slot.index,
			Message: fmt.Sprintf("returned %d scores for %d targets", len(msg.Results), p.expect[index]),
		}, failureRequestError)
		return
	}

	c.reg.remove(msg.ID)

	if !p.fanOut {
		c.resolve(p, msg.Results)
		return
	}

	p.partial[index] = msg.Results
	p.completed++
	c.logger.Debug("chunk completed",
		zap.String("id", p.id),
		zap.Int("chunk", index),
		zap.Int("completed", p.completed),
		zap.Int("total", len(p.partial)),
	)

	if p.completed == len(p.partial) {
		c.resolve(p, mergeChunks(p.partial))
	}
}

// handleRequestError rejects the whole request the failed id belongs to.
// Scores already received for sibling chunks are discarded.
func (c *Controller) handleRequestError(slot *unitSlot, msg unit.Message) {
	p, ok := c.reg.lookup(msg.ID)
	if !ok {
		c.logger.Debug("ignoring error for unknown request", zap.String("id", msg.ID))
		return
	}

	c.logger.Warn("worker unit failed request",
		zap.Int("unit", slot.index),
		zap.String("id", msg.ID),
		zap.String("error", msg.Error),
	)

	c.reg.release(p)
	c.reject(p, &RequestError{ID: msg.ID, Unit: slot.index, Message: msg.Error}, failureRequestError)
}

// handleFault takes slot out of rotation and rejects, once each, the
// requests it owned. Requests owned only by other units are untouched.
func (c *Controller) handleFault(slot *unitSlot, fault error) {
	if slot.faulted {
		return
	}
	slot.faulted = true
	if slot.ready {
		slot.ready = false
		c.readyCount--
		c.metrics.readyUnits.Set(float64(c.readyCount))
	}
	c.metrics.unitFaults.Inc()

	faultErr := &UnitFaultError{Unit: slot.index, Err: fault}
	rejected := make(map[*pendingRequest]struct{})
	for _, id := range c.reg.ownedBy(slot.index) {
		p, ok := c.reg.lookup(id)
		if !ok {
			continue
		}
		if _, done := rejected[p]; done {
			continue
		}
		rejected[p] = struct{}{}
		c.reg.release(p)
		c.reject(p, faultErr, failureUnitFault)
	}

	c.logger.Error("worker unit faulted",
		zap.Int("unit", slot.index),
		zap.Int("rejected_requests", len(rejected)),
		zap.Error(fault),
	)

	c.reap(slot.unit)

	if c.conf.respawn != nil {
		c.scheduleRespawn(slot, fault)
	}
}

// reap destroys a faulted unit off the lock; Terminate waits for it.
func (c *Controller) reap(u unit.Unit) {
	if u == nil {
		return
	}
	c.background.Add(1)
	go func() {
		defer c.background.Done()
		u.Terminate()
	}()
}

func (c *Controller) resolve(p *pendingRequest, scores []float64) {
	if p.future.Resolve(p.id, scores) {
		c.metrics.pending.Dec()
	}
}

func (c *Controller) reject(p *pendingRequest, err error, kind string) {
	if p.future.Reject(p.id, err) {
		c.metrics.pending.Dec()
		c.metrics.failures.WithLabelValues(kind).Inc()
	}
}
