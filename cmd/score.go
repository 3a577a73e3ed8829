package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/utkarsh5026/scorepool/cmd/util"
	"github.com/utkarsh5026/scorepool/pool"
)

const (
	metricLevenshtein = "levenshtein"
	metricTrigram     = "trigram"

	queryFlag      = "query"
	queryConf      = "score.query"
	targetsFlag    = "targets"
	targetsConf    = "score.targets"
	metricFlag     = "metric"
	metricConf     = "score.metric"
	topFlag        = "top"
	topConf        = "score.top"
	noProgressFlag = "no-progress"
	noProgressConf = "score.no-progress"
)

// match is one target with its score for a query.
type match struct {
	Index  int
	Target string
	Score  float64
}

// queryResult holds the best matches of one query.
type queryResult struct {
	Query   string
	Matches []match
}

// NewScoreCommand scores every --query against the target list.
func NewScoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score queries against a target list",
		Long: `Score each --query against every line of the --targets file ("-" reads
stdin). Queries run concurrently on the same worker pool.`,
		Example: `  simbatch score --query kitten --targets words.txt --metric trigram --top 5`,
		Args: cobra.NoArgs,
		RunE: runScore,
	}

	flags := cmd.Flags()

	flags.StringArray(queryFlag, nil, "query string to score; repeat for several queries")
	util.MustBindPFlag(queryConf, flags.Lookup(queryFlag))

	flags.String(targetsFlag, "-", "file with one target per line, or - for stdin")
	util.MustBindPFlag(targetsConf, flags.Lookup(targetsFlag))
	util.MustBindEnv(targetsConf, "SIMBATCH_TARGETS")

	flags.String(metricFlag, metricLevenshtein, "levenshtein or trigram")
	util.MustBindPFlag(metricConf, flags.Lookup(metricFlag))
	util.MustBindEnv(metricConf, "SIMBATCH_METRIC")

	flags.Int(topFlag, 10, "best matches shown per query (0 = all)")
	util.MustBindPFlag(topConf, flags.Lookup(topFlag))

	flags.Bool(noProgressFlag, false, "hide the progress bar")
	util.MustBindPFlag(noProgressConf, flags.Lookup(noProgressFlag))

	return cmd
}

func runScore(cmd *cobra.Command, _ []string) error {
	queries := viper.GetStringSlice(queryConf)
	if len(queries) == 0 {
		return errors.New("at least one --query is required")
	}

	metric := viper.GetString(metricConf)
	if metric != metricLevenshtein && metric != metricTrigram {
		return fmt.Errorf("unknown metric: %s", metric)
	}

	targets, err := loadTargets(viper.GetString(targetsConf), cmd.InOrStdin())
	if err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	opts, err := controllerOptions(log)
	if err != nil {
		return err
	}
	ctrl := pool.New(opts...)
	defer ctrl.Terminate()

	bar := newProgressBar(cmd.ErrOrStderr(), len(queries), "Scoring queries", viper.GetBool(noProgressConf))

	top := viper.GetInt(topConf)
	results := make([]queryResult, len(queries))

	g, ctx := errgroup.WithContext(cmd.Context())
	for i, query := range queries {
		g.Go(func() error {
			scores, err := scoreQuery(ctx, ctrl, metric, query, targets)
			if err != nil {
				return fmt.Errorf("query %q: %w", query, err)
			}
			results[i] = queryResult{Query: query, Matches: rankMatches(metric, targets, scores, top)}
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if bar != nil {
		_ = bar.Finish()
	}

	return renderScores(cmd.OutOrStdout(), metric, len(targets), results)
}

func scoreQuery(ctx context.Context, ctrl *pool.Controller, metric, query string, targets []string) ([]float64, error) {
	if metric == metricTrigram {
		return ctrl.TrigramBatch(ctx, query, targets)
	}

	distances, err := ctrl.LevenshteinBatch(ctx, query, targets)
	if err != nil {
		return nil, err
	}
	scores := make([]float64, len(distances))
	for i, d := range distances {
		scores[i] = float64(d)
	}
	return scores, nil
}

// rankMatches orders targets best first: smallest distance for levenshtein,
// highest similarity for trigram. Ties keep target order. top <= 0 keeps
// every match.
func rankMatches(metric string, targets []string, scores []float64, top int) []match {
	matches := make([]match, len(targets))
	for i, target := range targets {
		matches[i] = match{Index: i, Target: target, Score: scores[i]}
	}

	slices.SortStableFunc(matches, func(a, b match) int {
		if metric == metricTrigram {
			a, b = b, a
		}
		switch {
		case a.Score < b.Score:
			return -1
		case a.Score > b.Score:
			return 1
		}
		return 0
	})

	if top > 0 && top < len(matches) {
		matches = matches[:top]
	}
	return matches
}

// loadTargets reads one target per non-empty line from path, or from stdin
// when path is "-".
func loadTargets(path string, stdin io.Reader) ([]string, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open targets: %w", err)
		}
		defer f.Close()
		r = f
	}

	var targets []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		targets = append(targets, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read targets: %w", err)
	}
	return targets, nil
}
