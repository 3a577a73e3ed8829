package pool

import (
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitChunks(t *testing.T) {
	tests := []struct {
		name string
		n    int
		size int
		want []int
	}{
		{"empty", 0, 500, nil},
		{"below chunk size", 3, 500, []int{3}},
		{"exactly chunk size", 500, 500, []int{500}},
		{"one over", 501, 500, []int{500, 1}},
		{"remainder", 1200, 500, []int{500, 500, 200}},
		{"even split", 1000, 500, []int{500, 500}},
		{"chunk size one", 3, 1, []int{1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets := make([]string, tt.n)
			for i := range targets {
				targets[i] = strconv.Itoa(i)
			}

			chunks := splitChunks(targets, tt.size)

			var sizes []int
			var flat []string
			for _, c := range chunks {
				sizes = append(sizes, len(c))
				flat = append(flat, c...)
			}
			assert.Equal(t, tt.want, sizes)
			if tt.n > 0 {
				assert.Equal(t, targets, flat)
			}

			k, r := tt.n/tt.size, tt.n%tt.size
			if r > 0 {
				k++
			}
			assert.Len(t, chunks, k)
		})
	}
}

func TestSplitChunks_ChunksDoNotAlias(t *testing.T) {
	targets := []string{"a", "b", "c", "d"}
	chunks := splitChunks(targets, 2)

	grown := append(chunks[0], "x")
	assert.Equal(t, "x", grown[2])
	assert.Equal(t, []string{"c", "d"}, chunks[1])
}

func TestMergeChunks(t *testing.T) {
	merged := mergeChunks([][]float64{{1, 2}, {3}, {}, {4, 5}})
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, merged)
	assert.Empty(t, mergeChunks(nil))
}

func TestChunkID(t *testing.T) {
	base := requestID(7, time.Unix(0, 42))
	assert.Equal(t, "req_7_42", base)
	assert.Regexp(t, regexp.MustCompile(`^req_\d+_\d+$`), requestID(1, time.Now()))

	id := chunkID(base, 12)
	assert.Equal(t, "req_7_42_chunk12", id)

	gotBase, idx, ok := parseChunkID(id)
	require.True(t, ok)
	assert.Equal(t, base, gotBase)
	assert.Equal(t, 12, idx)
}

func TestParseChunkID_Invalid(t *testing.T) {
	for _, id := range []string{
		"req_1_2",
		"req_1_2_chunk",
		"req_1_2_chunkx",
		"req_1_2_chunk-1",
	} {
		t.Run(id, func(t *testing.T) {
			_, _, ok := parseChunkID(id)
			assert.False(t, ok)
		})
	}
}
