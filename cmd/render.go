package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
)

var (
	bold   = color.New(color.Bold)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	blue   = color.New(color.FgBlue)
)

// newProgressBar returns nil when hidden.
func newProgressBar(w io.Writer, total int, description string, hidden bool) *progressbar.ProgressBar {
	if hidden {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
	)
}

func printSectionHeader(w io.Writer, title string, lines ...string) {
	_, _ = fmt.Fprintln(w)
	_, _ = bold.Fprintln(w, title)
	for _, line := range lines {
		_, _ = fmt.Fprintln(w, line)
	}
}

func renderScores(w io.Writer, metric string, targetCount int, results []queryResult) error {
	for _, res := range results {
		printSectionHeader(w, fmt.Sprintf("QUERY %q", res.Query),
			fmt.Sprintf("  %s over %s targets", metric, formatNumber(targetCount)))

		table := tablewriter.NewWriter(w)
		table.Header("Rank", "Target", "Line", scoreHeader(metric))
		for i, m := range res.Matches {
			if err := table.Append(
				strconv.Itoa(i+1),
				m.Target,
				strconv.Itoa(m.Index+1),
				formatScore(metric, m.Score),
			); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return fmt.Errorf("render results: %w", err)
		}
	}
	return nil
}

// benchResult is the timing of one chunk size.
type benchResult struct {
	ChunkSize int
	Chunks    int
	Total     time.Duration
	PerBatch  time.Duration
	Rate      float64 // targets per second
}

func renderBench(w io.Writer, size, iterations int, results []benchResult) error {
	if len(results) == 0 {
		return nil
	}

	printSectionHeader(w, "CHUNK SIZE COMPARISON",
		fmt.Sprintf("  %s targets, %d iterations per chunk size", formatNumber(size), iterations))

	fastest := results[0].Total
	table := tablewriter.NewWriter(w)
	table.Header("Rank", "Chunk Size", "Chunks", "Per Batch", "Targets/sec", "vs Fastest")
	for i, r := range results {
		if err := table.Append(
			rankLabel(i+1),
			formatNumber(r.ChunkSize),
			strconv.Itoa(r.Chunks),
			formatLatency(r.PerBatch),
			formatNumber(int(r.Rate)),
			vsFastest(r.Total, fastest, i+1),
		); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render bench results: %w", err)
	}

	_, _ = fmt.Fprintln(w)
	_, _ = green.Fprintf(w, "Best chunk size: %s\n", formatNumber(results[0].ChunkSize))
	return nil
}

func scoreHeader(metric string) string {
	if metric == metricTrigram {
		return "Similarity"
	}
	return "Distance"
}

func formatScore(metric string, score float64) string {
	if metric == metricTrigram {
		return strconv.FormatFloat(score, 'f', 4, 64)
	}
	return strconv.Itoa(int(score))
}

func rankLabel(rank int) string {
	switch rank {
	case 1:
		return green.Sprint("1st")
	case 2:
		return yellow.Sprint("2nd")
	case 3:
		return blue.Sprint("3rd")
	default:
		return fmt.Sprintf("%dth", rank)
	}
}

func vsFastest(d, fastest time.Duration, rank int) string {
	if rank == 1 || fastest <= 0 {
		return "baseline"
	}
	return fmt.Sprintf("+%.1f%%", (float64(d)/float64(fastest)-1)*100)
}

// formatNumber formats an integer with comma separators.
func formatNumber(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// formatLatency formats a duration in the most appropriate unit.
func formatLatency(d time.Duration) string {
	switch {
	case d <= 0:
		return "0"
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	case d < time.Millisecond:
		return fmt.Sprintf("%.1fµs", float64(d)/float64(time.Microsecond))
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}
