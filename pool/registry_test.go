package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utkarsh5026/scorepool/internal/unit"
)

func (r *registry) owner(id string) (int, bool) {
	u, ok := r.owners[id]
	return u, ok
}

func TestRegistry(t *testing.T) {
	t.Run("fan-out request tracks every chunk", func(t *testing.T) {
		r := newRegistry()
		p := newFanOutRequest("req_1_1", unit.TypeTrigramBatch, [][]string{{"a", "b"}, {"c"}})

		for i, id := range p.ids {
			r.add(id, p, i)
		}

		assert.Equal(t, []string{"req_1_1_chunk0", "req_1_1_chunk1"}, p.ids)
		assert.Equal(t, []int{2, 1}, p.expect)
		assert.Equal(t, "fanout", p.mode())
		assert.Equal(t, 2, r.len())
		assert.Equal(t, 1, r.records())

		owner, ok := r.owner("req_1_1_chunk1")
		require.True(t, ok)
		assert.Equal(t, 1, owner)
	})

	t.Run("release drops siblings only", func(t *testing.T) {
		r := newRegistry()
		p := newFanOutRequest("req_1_1", unit.TypeTrigramBatch, [][]string{{"a"}, {"b"}, {"c"}})
		q := newSimpleRequest("req_2_1", unit.TypeLevenshteinBatch, 1)

		for i, id := range p.ids {
			r.add(id, p, i%2)
		}
		r.add(q.id, q, 0)

		r.remove(p.ids[1])
		r.release(p)

		assert.Equal(t, 1, r.len())
		got, ok := r.lookup(q.id)
		require.True(t, ok)
		assert.Same(t, q, got)
		_, ok = r.owner(p.ids[0])
		assert.False(t, ok)
	})

	t.Run("owned identifiers are sorted", func(t *testing.T) {
		r := newRegistry()
		p := newFanOutRequest("req_1_1", unit.TypeTrigramBatch, [][]string{{"a"}, {"b"}, {"c"}})
		q := newSimpleRequest("req_0_1", unit.TypeLevenshteinBatch, 1)

		r.add(p.ids[2], p, 0)
		r.add(p.ids[1], p, 1)
		r.add(p.ids[0], p, 0)
		r.add(q.id, q, 0)

		assert.Equal(t, []string{"req_0_1", "req_1_1_chunk0", "req_1_1_chunk2"}, r.ownedBy(0))
		assert.Equal(t, []string{"req_1_1_chunk1"}, r.ownedBy(1))
		assert.Empty(t, r.ownedBy(2))
	})

	t.Run("drain returns each record once", func(t *testing.T) {
		r := newRegistry()
		p := newFanOutRequest("req_1_1", unit.TypeTrigramBatch, [][]string{{"a"}, {"b"}})
		q := newSimpleRequest("req_2_1", unit.TypeLevenshteinBatch, 1)

		r.add(p.ids[0], p, 0)
		r.add(p.ids[1], p, 1)
		r.add(q.id, q, 0)

		records := r.drain()
		assert.ElementsMatch(t, []*pendingRequest{p, q}, records)
		assert.Equal(t, 0, r.len())
		assert.Equal(t, 0, r.records())
		assert.Empty(t, r.ownedBy(0))
	})

	t.Run("simple request", func(t *testing.T) {
		p := newSimpleRequest("req_3_1", unit.TypeLevenshteinBatch, 4)
		assert.Equal(t, []string{"req_3_1"}, p.ids)
		assert.Equal(t, []int{4}, p.expect)
		assert.Equal(t, "simple", p.mode())
		assert.False(t, p.future.IsReady())
	})
}
