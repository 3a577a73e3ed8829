package pool

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/utkarsh5026/scorepool/internal/types"
	"github.com/utkarsh5026/scorepool/internal/unit"
)

// LevenshteinBatch returns the edit distance between query and each target,
// in target order. ctx bounds only the caller's wait: a request abandoned
// through ctx keeps its registry entry until its unit answers.
func (c *Controller) LevenshteinBatch(ctx context.Context, query string, targets []string) ([]int, error) {
	scores, err := c.await(ctx, unit.TypeLevenshteinBatch, query, targets)
	if err != nil {
		return nil, err
	}

	distances := make([]int, len(scores))
	for i, s := range scores {
		distances[i] = int(math.Round(s))
	}
	return distances, nil
}

// TrigramBatch returns the trigram similarity in [0, 1] between query and
// each target, in target order.
func (c *Controller) TrigramBatch(ctx context.Context, query string, targets []string) ([]float64, error) {
	return c.await(ctx, unit.TypeTrigramBatch, query, targets)
}

// SubmitLevenshtein dispatches an edit-distance batch and returns without
// waiting for the scores. The returned error covers only pool readiness;
// request failures settle the future.
func (c *Controller) SubmitLevenshtein(ctx context.Context, query string, targets []string) (*Future, error) {
	return c.submit(ctx, unit.TypeLevenshteinBatch, query, targets)
}

// SubmitTrigram dispatches a trigram batch and returns without waiting for
// the scores.
func (c *Controller) SubmitTrigram(ctx context.Context, query string, targets []string) (*Future, error) {
	return c.submit(ctx, unit.TypeTrigramBatch, query, targets)
}

func (c *Controller) await(ctx context.Context, op unit.MessageType, query string, targets []string) ([]float64, error) {
	future, err := c.submit(ctx, op, query, targets)
	if err != nil {
		return nil, err
	}

	scores, _, err := future.GetWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return scores, nil
}

// submit waits for the pool, then registers and posts the request. Batches
// of at most ChunkSize targets go to one unit chosen round-robin by the
// request counter; larger batches are chunked and chunk i goes to unit
// i mod PoolSize.
func (c *Controller) submit(ctx context.Context, op unit.MessageType, query string, targets []string) (*Future, error) {
	if err := c.EnsurePool(ctx); err != nil {
		return nil, err
	}

	if len(targets) == 0 {
		f := types.NewFuture[[]float64, string]()
		f.Resolve("", []float64{})
		return f, nil
	}

	chunks := splitChunks(targets, c.conf.chunkSize)
	if c.conf.limiter != nil {
		for range chunks {
			if err := c.conf.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.terminating {
		return nil, ErrPoolTerminating
	}
	if !c.initialized {
		return nil, ErrPoolTerminated
	}

	c.counter++
	id := requestID(c.counter, time.Now())

	var p *pendingRequest
	if len(chunks) == 1 {
		p = newSimpleRequest(id, op, len(targets))
	} else {
		p = newFanOutRequest(id, op, chunks)
	}
	c.metrics.requests.WithLabelValues(string(op), p.mode()).Inc()
	c.metrics.pending.Inc()

	for i, chunk := range chunks {
		n := uint64(i)
		if !p.fanOut {
			n = c.counter
		}

		slot, ok := c.pickUnit(n)
		if !ok {
			c.reg.release(p)
			c.reject(p, ErrNoLiveUnits, failureNoLiveUnits)
			break
		}

		c.reg.add(p.ids[i], p, slot.index)
		c.post(slot, p, p.ids[i], query, chunk)

		// A failed post faults the unit, which rejects p.
		if p.future.IsReady() {
			break
		}
	}

	return p.future, nil
}

// pickUnit returns the unit at n mod PoolSize, moving forward past units that
// are not ready.
func (c *Controller) pickUnit(n uint64) (*unitSlot, bool) {
	size := len(c.slots)
	if size == 0 {
		return nil, false
	}

	start := int(n % uint64(size))
	for k := range size {
		slot := c.slots[(start+k)%size]
		if slot.ready {
			return slot, true
		}
	}
	return nil, false
}

func (c *Controller) post(slot *unitSlot, p *pendingRequest, id, query string, targets []string) {
	data, err := unit.Encode(unit.Message{
		Type:    p.op,
		ID:      id,
		Query:   query,
		Targets: targets,
	})
	if err != nil {
		c.reg.release(p)
		c.reject(p, fmt.Errorf("dispatch %s: %w", id, err), failureDispatch)
		return
	}

	if err := slot.unit.Post(data); err != nil {
		c.handleFault(slot, fmt.Errorf("post %s: %w", id, err))
		return
	}

	c.metrics.chunks.WithLabelValues(string(p.op)).Inc()
	c.logger.Debug("dispatched",
		zap.String("id", id),
		zap.String("op", string(p.op)),
		zap.Int("unit", slot.index),
		zap.Int("targets", len(targets)),
	)
}
