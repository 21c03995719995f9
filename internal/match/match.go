// Package match maps a query face embedding to the best-matching known
// identity by cosine similarity.
package match

import (
	"errors"
	"math"

	"github.com/kozaktomas/face-attendance/internal/roster"
)

var (
	// ErrDimensionMismatch is returned when the query embedding length
	// disagrees with the store's embedding dimension.
	ErrDimensionMismatch = errors.New("match: query embedding dimension does not match store")

	// ErrDegenerateEmbedding is returned for a zero-norm query, which
	// cannot be normalized and carries no identity information.
	ErrDegenerateEmbedding = errors.New("match: query embedding has zero norm")
)

// Result is the outcome of matching one query embedding against the store.
type Result struct {
	// Index is the insertion index of the best-matching identity,
	// or -1 when the store is empty.
	Index       int
	ID          string
	DisplayName string
	// Score is the cosine similarity of the best match, in [-1, 1].
	Score float64
	// Matched reports whether Score reached the threshold.
	Matched bool
}

// Normalize scales v to unit length in place.
func Normalize(v []float32) error {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return ErrDegenerateEmbedding
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return nil
}

// Best returns the single best-matching identity for the query embedding.
// Stored embeddings are unit length, so similarity reduces to a dot product.
// The scan keeps the first index achieving the maximum score, so exact ties
// resolve to the lowest insertion index; library argmax helpers with
// unspecified tie-breaks must not replace it.
//
// An empty store returns Matched=false without scanning. The query is not
// modified. Safe to call concurrently for different queries.
func Best(query []float32, store *roster.Store, threshold float64) (Result, error) {
	if store.Size() == 0 {
		return Result{Index: -1}, nil
	}
	if len(query) != store.Dim() {
		return Result{Index: -1}, ErrDimensionMismatch
	}

	q := make([]float32, len(query))
	copy(q, query)
	if err := Normalize(q); err != nil {
		return Result{Index: -1}, err
	}

	bestIdx := 0
	bestScore := dot(q, store.At(0).Embedding)
	for i := 1; i < store.Size(); i++ {
		if score := dot(q, store.At(i).Embedding); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	best := store.At(bestIdx)
	return Result{
		Index:       bestIdx,
		ID:          best.ID,
		DisplayName: best.DisplayName,
		Score:       bestScore,
		Matched:     bestScore >= threshold,
	}, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
