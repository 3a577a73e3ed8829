package similarity

import (
	"context"

	"github.com/agnivade/levenshtein"
)

// ctxCheckEvery is how many targets a batch scores between context checks.
const ctxCheckEvery = 64

// Levenshtein returns the rune-level edit distance between a and b.
func Levenshtein(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// LevenshteinBatch scores every target against query. It stops early with the
// context's error when ctx is cancelled.
func LevenshteinBatch(ctx context.Context, query string, targets []string) ([]float64, error) {
	scores := make([]float64, len(targets))
	for i, target := range targets {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		scores[i] = float64(Levenshtein(query, target))
	}
	return scores, nil
}
