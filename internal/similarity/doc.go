// Package similarity holds the string scoring kernels executed inside worker
// units: Levenshtein edit distance and trigram overlap.
package similarity
