package pool

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const chunkSuffix = "_chunk"

// requestID builds the identifier of a logical request from the dispatch
// counter and the current time.
func requestID(counter uint64, now time.Time) string {
	return fmt.Sprintf("req_%d_%d", counter, now.UnixNano())
}

// chunkID derives the identifier of chunk index from its request identifier.
// Units echo the identifier back untouched, so the suffix is the only record
// of which chunk a response belongs to.
func chunkID(base string, index int) string {
	return base + chunkSuffix + strconv.Itoa(index)
}

// parseChunkID splits a chunk identifier into its request identifier and
// chunk index. ok is false for identifiers without a chunk suffix.
func parseChunkID(id string) (base string, index int, ok bool) {
	at := strings.LastIndex(id, chunkSuffix)
	if at < 0 {
		return "", 0, false
	}

	index, err := strconv.Atoi(id[at+len(chunkSuffix):])
	if err != nil || index < 0 {
		return "", 0, false
	}

	return id[:at], index, true
}

// splitChunks cuts targets into contiguous chunks of at most size elements.
// Chunk i holds targets[i*size : (i+1)*size]. The chunks share targets'
// backing array but cannot grow into each other.
func splitChunks(targets []string, size int) [][]string {
	if len(targets) == 0 {
		return nil
	}

	chunks := make([][]string, 0, (len(targets)+size-1)/size)
	for lo := 0; lo < len(targets); lo += size {
		hi := min(lo+size, len(targets))
		chunks = append(chunks, targets[lo:hi:hi])
	}
	return chunks
}

// mergeChunks flattens per-chunk scores in chunk-index order.
func mergeChunks(parts [][]float64) []float64 {
	n := 0
	for _, p := range parts {
		n += len(p)
	}

	merged := make([]float64, 0, n)
	for _, p := range parts {
		merged = append(merged, p...)
	}
	return merged
}
