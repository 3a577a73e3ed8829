package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTargets(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "targets.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o600))
	return path
}

func TestScoreCommand(t *testing.T) {
	t.Run("ranks targets by distance", func(t *testing.T) {
		path := writeTargets(t, "dog", "bat", "cat")

		out, err := executeRoot(t, "score",
			"--query", "cat",
			"--targets", path,
			"--pool-size", "2",
			"--no-progress",
		)
		require.NoError(t, err)
		assert.Contains(t, out, `QUERY "cat"`)

		body := out[strings.Index(out, "over 3 targets"):]
		assert.Less(t, strings.Index(body, "cat"), strings.Index(body, "bat"))
		assert.Less(t, strings.Index(body, "bat"), strings.Index(body, "dog"))
	})

	t.Run("several queries", func(t *testing.T) {
		path := writeTargets(t, "kitten", "sitting", "mitten")

		out, err := executeRoot(t, "score",
			"--query", "kitten",
			"--query", "sitting",
			"--targets", path,
			"--metric", "trigram",
			"--chunk-size", "1",
			"--top", "2",
			"--no-progress",
		)
		require.NoError(t, err)
		assert.Contains(t, out, `QUERY "kitten"`)
		assert.Contains(t, out, `QUERY "sitting"`)
		assert.Contains(t, out, "1.0000")
	})

	t.Run("requires a query", func(t *testing.T) {
		path := writeTargets(t, "a")
		_, err := executeRoot(t, "score", "--targets", path, "--no-progress")
		require.ErrorContains(t, err, "--query")
	})

	t.Run("rejects an unknown metric", func(t *testing.T) {
		path := writeTargets(t, "a")
		_, err := executeRoot(t, "score", "--query", "a", "--targets", path, "--metric", "cosine")
		require.ErrorContains(t, err, "unknown metric")
	})

	t.Run("rejects an unknown respawn backoff", func(t *testing.T) {
		path := writeTargets(t, "a")
		_, err := executeRoot(t, "score", "--query", "a", "--targets", path, "--respawn", "linear", "--no-progress")
		require.ErrorContains(t, err, "unknown respawn backoff")
	})
}

func TestBenchCommand(t *testing.T) {
	out, err := executeRoot(t, "bench",
		"--size", "300",
		"--chunk-sizes", "50,300",
		"--iterations", "1",
		"--pool-size", "2",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "CHUNK SIZE COMPARISON")
	assert.Contains(t, out, "Best chunk size")
}

func TestRankMatches(t *testing.T) {
	targets := []string{"a", "b", "c", "d"}

	t.Run("levenshtein ascending", func(t *testing.T) {
		got := rankMatches(metricLevenshtein, targets, []float64{3, 1, 2, 1}, 0)
		var order []string
		for _, m := range got {
			order = append(order, m.Target)
		}
		assert.Equal(t, []string{"b", "d", "c", "a"}, order)
	})

	t.Run("trigram descending with top", func(t *testing.T) {
		got := rankMatches(metricTrigram, targets, []float64{0.1, 0.9, 0.5, 0.9}, 3)
		require.Len(t, got, 3)
		assert.Equal(t, "b", got[0].Target)
		assert.Equal(t, "d", got[1].Target)
		assert.Equal(t, "c", got[2].Target)
		assert.Equal(t, 2, got[2].Index)
	})
}

func TestLoadTargets(t *testing.T) {
	t.Run("stdin", func(t *testing.T) {
		got, err := loadTargets("-", strings.NewReader("cat\r\n\n  \nbat\ndog"))
		require.NoError(t, err)
		assert.Equal(t, []string{"cat", "bat", "dog"}, got)
	})

	t.Run("file", func(t *testing.T) {
		got, err := loadTargets(writeTargets(t, "x", "y"), nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, got)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadTargets(filepath.Join(t.TempDir(), "nope"), nil)
		require.ErrorContains(t, err, "open targets")
	})
}

func TestFormatting(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-4200, "-4,200"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatNumber(tt.n))
	}

	assert.Equal(t, "0", formatLatency(0))
	assert.Equal(t, "500ns", formatLatency(500*time.Nanosecond))
	assert.Equal(t, "1.5µs", formatLatency(1500*time.Nanosecond))
	assert.Equal(t, "2.50ms", formatLatency(2500*time.Microsecond))
	assert.Equal(t, "1.20s", formatLatency(1200*time.Millisecond))

	assert.Equal(t, "baseline", vsFastest(time.Second, time.Second, 1))
	assert.Equal(t, "+50.0%", vsFastest(1500*time.Millisecond, time.Second, 2))
	assert.Equal(t, "3", formatScore(metricLevenshtein, 3))
	assert.Equal(t, "0.1429", formatScore(metricTrigram, 1.0/7))
}

func TestSyntheticBatch(t *testing.T) {
	q1, t1 := syntheticBatch(7, 50)
	q2, t2 := syntheticBatch(7, 50)
	assert.Equal(t, q1, q2)
	assert.Equal(t, t1, t2)
	for _, w := range t1 {
		assert.GreaterOrEqual(t, len(w), 3)
		assert.LessOrEqual(t, len(w), 12)
	}
}
