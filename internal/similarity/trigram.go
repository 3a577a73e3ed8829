package similarity

import (
	"context"
	"strings"
	"unicode"
)

type trigramSet map[string]struct{}

// Trigrams extracts the set of trigrams of s. Words are lower-cased and
// padded with two leading spaces and one trailing space, so "cat" yields
// "  c", " ca", "cat" and "at ".
func Trigrams(s string) trigramSet {
	set := make(trigramSet)
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, word := range words {
		padded := []rune("  " + word + " ")
		for i := 0; i+3 <= len(padded); i++ {
			set[string(padded[i:i+3])] = struct{}{}
		}
	}
	return set
}

// Trigram returns the Jaccard similarity of the trigram sets of a and b, in
// the range [0, 1]. Two strings without any trigram score 0.
func Trigram(a, b string) float64 {
	return overlap(Trigrams(a), Trigrams(b))
}

// TrigramBatch scores every target against query, extracting the query's
// trigrams once. It stops early with the context's error when ctx is cancelled.
func TrigramBatch(ctx context.Context, query string, targets []string) ([]float64, error) {
	q := Trigrams(query)
	scores := make([]float64, len(targets))
	for i, target := range targets {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		scores[i] = overlap(q, Trigrams(target))
	}
	return scores, nil
}

func overlap(a, b trigramSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}

	shared := 0
	for tri := range small {
		if _, ok := large[tri]; ok {
			shared++
		}
	}

	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}
