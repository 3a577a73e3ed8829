package pool

import (
	"slices"

	"github.com/utkarsh5026/scorepool/internal/types"
	"github.com/utkarsh5026/scorepool/internal/unit"
)

// Future is the handle returned by the Submit methods. It settles with one
// score per target, in target order, keyed by the request identifier.
type Future = types.Future[[]float64, string]

// pendingRequest is one caller-facing request awaiting its response(s).
//
// A simple request waits for a single response under id. A fan-out request
// waits for one response per chunk; chunk i is registered under ids[i] and
// its scores land in partial[i].
type pendingRequest struct {
	id     string
	op     unit.MessageType
	future *Future

	fanOut    bool
	ids       []string
	expect    []int
	partial   [][]float64
	completed int
}

func newSimpleRequest(id string, op unit.MessageType, n int) *pendingRequest {
	return &pendingRequest{
		id:     id,
		op:     op,
		future: types.NewFuture[[]float64, string](),
		ids:    []string{id},
		expect: []int{n},
	}
}

func newFanOutRequest(id string, op unit.MessageType, chunks [][]string) *pendingRequest {
	p := &pendingRequest{
		id:      id,
		op:      op,
		future:  types.NewFuture[[]float64, string](),
		fanOut:  true,
		ids:     make([]string, len(chunks)),
		expect:  make([]int, len(chunks)),
		partial: make([][]float64, len(chunks)),
	}
	for i, chunk := range chunks {
		p.ids[i] = chunkID(id, i)
		p.expect[i] = len(chunk)
	}
	return p
}

func (p *pendingRequest) mode() string {
	if p.fanOut {
		return "fanout"
	}
	return "simple"
}

// registry maps outstanding request and chunk identifiers to their pending
// record and to the index of the unit that owns them. Both maps always hold
// the same key set.
type registry struct {
	pending map[string]*pendingRequest
	owners  map[string]int
}

func newRegistry() *registry {
	return &registry{
		pending: make(map[string]*pendingRequest),
		owners:  make(map[string]int),
	}
}

func (r *registry) add(id string, p *pendingRequest, unitIndex int) {
	r.pending[id] = p
	r.owners[id] = unitIndex
}

func (r *registry) lookup(id string) (*pendingRequest, bool) {
	p, ok := r.pending[id]
	return p, ok
}

func (r *registry) remove(id string) {
	delete(r.pending, id)
	delete(r.owners, id)
}

// release removes every identifier belonging to p, so late responses for
// p's other chunks are treated as strays.
func (r *registry) release(p *pendingRequest) {
	for _, id := range p.ids {
		if r.pending[id] == p {
			r.remove(id)
		}
	}
}

// ownedBy lists the identifiers currently assigned to unitIndex, sorted.
func (r *registry) ownedBy(unitIndex int) []string {
	var ids []string
	for id, owner := range r.owners {
		if owner == unitIndex {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// drain empties the registry and returns each distinct pending record once.
func (r *registry) drain() []*pendingRequest {
	seen := make(map[*pendingRequest]struct{}, len(r.pending))
	records := make([]*pendingRequest, 0, len(r.pending))
	for _, p := range r.pending {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		records = append(records, p)
	}

	clear(r.pending)
	clear(r.owners)
	return records
}

// records counts distinct pending records.
func (r *registry) records() int {
	seen := make(map[*pendingRequest]struct{}, len(r.pending))
	for _, p := range r.pending {
		seen[p] = struct{}{}
	}
	return len(seen)
}

func (r *registry) len() int {
	return len(r.pending)
}
