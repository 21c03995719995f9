// Package roster holds the set of known identities and their face embeddings.
// The embedding store is built once per run from the roster store and is
// immutable for the duration of a session.
package roster

import (
	"context"
	"errors"
	"math"
)

// MinEmbeddingLength is the sanity floor for stored embeddings. Anything
// shorter cannot be a real face embedding and is dropped on load.
const MinEmbeddingLength = 16

// ErrEmptyStore is returned by RequireNonEmpty when no usable identity
// survived loading.
var ErrEmptyStore = errors.New("roster: no usable identities loaded")

// Record is a raw roster row as read from the roster store. The embedding
// may be missing for identities enrolled without a usable portrait.
type Record struct {
	ID          string
	DisplayName string
	Embedding   []float32
}

// Identity is a known person with an L2-normalized face embedding.
type Identity struct {
	ID          string
	DisplayName string
	Embedding   []float32
}

// Source provides read access to the raw roster records.
type Source interface {
	// ListRecords returns all roster records in stable id order.
	ListRecords(ctx context.Context) ([]Record, error)
}

// Store is the in-memory embedding store used for matching. Insertion order
// is stable because the matcher's tie-break depends on it.
type Store struct {
	identities []Identity
	byID       map[string]int
	dim        int
}

// Load builds a Store from raw records. Records with a missing embedding,
// an embedding shorter than minLen, a zero-norm embedding, or a dimension
// that disagrees with the first loaded record are skipped. The skipped ids
// are returned so the caller can warn about them; skipping is never fatal
// and an empty store is a valid degenerate value.
func Load(records []Record, minLen int) (*Store, []string) {
	if minLen <= 0 {
		minLen = MinEmbeddingLength
	}

	s := &Store{byID: make(map[string]int, len(records))}
	var skipped []string

	for _, rec := range records {
		if len(rec.Embedding) < minLen {
			skipped = append(skipped, rec.ID)
			continue
		}
		if s.dim != 0 && len(rec.Embedding) != s.dim {
			skipped = append(skipped, rec.ID)
			continue
		}
		if _, dup := s.byID[rec.ID]; dup {
			skipped = append(skipped, rec.ID)
			continue
		}

		emb := make([]float32, len(rec.Embedding))
		copy(emb, rec.Embedding)
		if !normalize(emb) {
			skipped = append(skipped, rec.ID)
			continue
		}

		if s.dim == 0 {
			s.dim = len(emb)
		}
		s.byID[rec.ID] = len(s.identities)
		s.identities = append(s.identities, Identity{
			ID:          rec.ID,
			DisplayName: rec.DisplayName,
			Embedding:   emb,
		})
	}

	return s, skipped
}

// RequireNonEmpty returns ErrEmptyStore if the store holds no identities.
func (s *Store) RequireNonEmpty() error {
	if len(s.identities) == 0 {
		return ErrEmptyStore
	}
	return nil
}

// Size returns the number of loaded identities.
func (s *Store) Size() int {
	return len(s.identities)
}

// Dim returns the embedding dimension, or 0 for an empty store.
func (s *Store) Dim() int {
	return s.dim
}

// At returns the identity at the given insertion index.
func (s *Store) At(i int) Identity {
	return s.identities[i]
}

// Identities returns all identities in insertion order. The returned slice
// is shared and must not be modified.
func (s *Store) Identities() []Identity {
	return s.identities
}

// Has reports whether an identity with the given id was loaded.
func (s *Store) Has(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// normalize scales v to unit length in place. Returns false for a
// zero-norm vector, which cannot be normalized.
func normalize(v []float32) bool {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return false
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return true
}
