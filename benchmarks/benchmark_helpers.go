// Package benchmarks measures batch scoring throughput across pool and chunk
// sizes.
package benchmarks

import (
	"math"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/utkarsh5026/scorepool/pool"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// poolConfig names one controller setup under test.
type poolConfig struct {
	name string
	opts []pool.Option
}

// newWords returns n random lowercase words of 3 to 12 letters.
func newWords(seed uint64, n int) []string {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	words := make([]string, n)
	for i := range words {
		b := make([]byte, 3+rng.IntN(10))
		for j := range b {
			b[j] = alphabet[rng.IntN(len(alphabet))]
		}
		words[i] = string(b)
	}
	return words
}

// runPoolBenchmark runs benchFunc once per config against a warmed pool.
func runPoolBenchmark(b *testing.B, configs []poolConfig, benchFunc func(b *testing.B, ctrl *pool.Controller)) {
	for _, cfg := range configs {
		b.Run(cfg.name, func(b *testing.B) {
			ctrl := pool.New(cfg.opts...)
			defer ctrl.Terminate()

			if err := ctrl.EnsurePool(b.Context()); err != nil {
				b.Fatal(err)
			}
			b.ResetTimer()
			benchFunc(b, ctrl)
		})
	}
}

// reportTargetRate reports scored targets per second over the elapsed time.
func reportTargetRate(b *testing.B, targetsPerOp int) {
	nsPerOp := float64(b.Elapsed().Nanoseconds()) / float64(b.N)
	b.ReportMetric(float64(targetsPerOp)/nsPerOp*1e9, "targets/sec")
}

func percentile(latencies []time.Duration, p float64) time.Duration {
	if len(latencies) == 0 {
		return 0
	}

	sorted := slices.Clone(latencies)
	slices.Sort(sorted)

	// Nearest rank: p=0.50 over 100 samples picks index 49.
	index := max(int(math.Round(p*float64(len(sorted)-1))), 0)
	return sorted[min(index, len(sorted)-1)]
}
