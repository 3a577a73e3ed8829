package pool

import (
	"time"

	"go.uber.org/zap"
)

// scheduleRespawn arms a timer that replaces the unit in slot. Each
// consecutive fault of the slot lengthens the delay.
func (c *Controller) scheduleRespawn(slot *unitSlot, fault error) {
	delay := slot.backoff.NextDelay(slot.respawns, fault)
	slot.respawns++
	gen := c.generation

	c.background.Add(1)
	slot.timer = time.AfterFunc(delay, func() {
		defer c.background.Done()
		c.respawn(gen, slot)
	})

	c.logger.Info("worker unit respawn scheduled",
		zap.Int("unit", slot.index),
		zap.Int("attempt", slot.respawns),
		zap.Duration("delay", delay),
	)
}

func (c *Controller) respawn(gen uint64, slot *unitSlot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	slot.timer = nil
	if c.terminating || gen != c.generation {
		return
	}

	slot.incarnation++
	u, err := c.conf.spawner.Spawn(slot.index, c.loop.sink(gen, slot.index, slot.incarnation))
	if err != nil {
		c.logger.Error("respawning worker unit failed", zap.Int("unit", slot.index), zap.Error(err))
		c.scheduleRespawn(slot, err)
		return
	}

	slot.unit = u
	slot.faulted = false
	c.metrics.respawns.Inc()
}
