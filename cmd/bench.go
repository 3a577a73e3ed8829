package cmd

import (
	"cmp"
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/utkarsh5026/scorepool/cmd/util"
	"github.com/utkarsh5026/scorepool/pool"
)

const (
	benchSizeFlag       = "size"
	benchSizeConf       = "bench.size"
	benchChunkSizesFlag = "chunk-sizes"
	benchChunkSizesConf = "bench.chunk-sizes"
	benchIterationsFlag = "iterations"
	benchIterationsConf = "bench.iterations"
	benchMetricFlag     = "metric"
	benchMetricConf     = "bench.metric"
	benchSeedFlag       = "seed"
	benchSeedConf       = "bench.seed"
)

const benchAlphabet = "abcdefghijklmnopqrstuvwxyz"

// NewBenchCommand times one synthetic batch across several chunk sizes.
func NewBenchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bench",
		Short:   "Compare chunk sizes on a synthetic target list",
		Example: `  simbatch bench --size 20000 --chunk-sizes 100,500,2000 --pool-size 4`,
		Args:    cobra.NoArgs,
		RunE:    runBench,
	}

	flags := cmd.Flags()

	flags.Int(benchSizeFlag, 10000, "number of synthetic targets")
	util.MustBindPFlag(benchSizeConf, flags.Lookup(benchSizeFlag))

	flags.IntSlice(benchChunkSizesFlag, []int{100, 500, 2000}, "chunk sizes to compare")
	util.MustBindPFlag(benchChunkSizesConf, flags.Lookup(benchChunkSizesFlag))

	flags.Int(benchIterationsFlag, 5, "timed batches per chunk size")
	util.MustBindPFlag(benchIterationsConf, flags.Lookup(benchIterationsFlag))

	flags.String(benchMetricFlag, metricLevenshtein, "levenshtein or trigram")
	util.MustBindPFlag(benchMetricConf, flags.Lookup(benchMetricFlag))

	flags.Uint64(benchSeedFlag, 1, "seed for the synthetic targets")
	util.MustBindPFlag(benchSeedConf, flags.Lookup(benchSeedFlag))

	return cmd
}

func runBench(cmd *cobra.Command, _ []string) error {
	size := viper.GetInt(benchSizeConf)
	iterations := viper.GetInt(benchIterationsConf)
	chunkSizes := viper.GetIntSlice(benchChunkSizesConf)
	metric := viper.GetString(benchMetricConf)

	if size <= 0 || iterations <= 0 {
		return fmt.Errorf("--%s and --%s must be positive", benchSizeFlag, benchIterationsFlag)
	}
	if len(chunkSizes) == 0 {
		return fmt.Errorf("--%s must list at least one size", benchChunkSizesFlag)
	}
	if metric != metricLevenshtein && metric != metricTrigram {
		return fmt.Errorf("unknown metric: %s", metric)
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	query, targets := syntheticBatch(viper.GetUint64(benchSeedConf), size)

	bar := newProgressBar(cmd.ErrOrStderr(), len(chunkSizes), "Benchmarking chunk sizes", false)
	results := make([]benchResult, 0, len(chunkSizes))
	for _, chunkSize := range chunkSizes {
		if chunkSize <= 0 {
			return fmt.Errorf("invalid chunk size: %d", chunkSize)
		}

		bar.Describe(fmt.Sprintf("Chunk size %d", chunkSize))
		opts, err := controllerOptions(log, pool.WithChunkSize(chunkSize))
		if err != nil {
			return err
		}

		res, err := benchChunkSize(cmd.Context(), pool.New(opts...), metric, query, targets, iterations)
		if err != nil {
			return fmt.Errorf("chunk size %d: %w", chunkSize, err)
		}
		results = append(results, res)
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	slices.SortStableFunc(results, func(a, b benchResult) int {
		return cmp.Compare(a.Total, b.Total)
	})
	return renderBench(cmd.OutOrStdout(), size, iterations, results)
}

// benchChunkSize times iterations batches on ctrl after its pool is up, then
// terminates it.
func benchChunkSize(ctx context.Context, ctrl *pool.Controller, metric, query string, targets []string, iterations int) (benchResult, error) {
	defer ctrl.Terminate()

	if err := ctrl.EnsurePool(ctx); err != nil {
		return benchResult{}, err
	}

	start := time.Now()
	for range iterations {
		if _, err := scoreQuery(ctx, ctrl, metric, query, targets); err != nil {
			return benchResult{}, err
		}
	}
	total := time.Since(start)

	chunks := (len(targets) + ctrl.ChunkSize() - 1) / ctrl.ChunkSize()
	return benchResult{
		ChunkSize: ctrl.ChunkSize(),
		Chunks:    chunks,
		Total:     total,
		PerBatch:  total / time.Duration(iterations),
		Rate:      float64(len(targets)*iterations) / total.Seconds(),
	}, nil
}

// syntheticBatch returns a random query and size random targets of 3 to 12
// lowercase letters.
func syntheticBatch(seed uint64, size int) (string, []string) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	word := func() string {
		b := make([]byte, 3+rng.IntN(10))
		for i := range b {
			b[i] = benchAlphabet[rng.IntN(len(benchAlphabet))]
		}
		return string(b)
	}

	targets := make([]string, size)
	for i := range targets {
		targets[i] = word()
	}
	return word(), targets
}
