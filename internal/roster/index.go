package roster

import (
	"math"
	"sync"

	"github.com/coder/hnsw"
)

const indexMaxNeighbors = 16

// Neighbor is a near-duplicate candidate returned by Index.Nearest.
type Neighbor struct {
	ID          string
	DisplayName string
	Similarity  float64
}

// Index is an in-memory HNSW index over roster embeddings. It is used
// during enrollment to flag portraits that look like an already enrolled
// identity before a new record is written.
type Index struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[string]
	names map[string]string
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{names: make(map[string]string)}
}

// BuildFromRecords builds the index from raw roster records. Records
// without a usable embedding are ignored.
func (ix *Index) BuildFromRecords(records []Record) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	g := hnsw.NewGraph[string]()
	g.M = indexMaxNeighbors
	g.Ml = 1.0 / float64(indexMaxNeighbors)
	g.Distance = hnsw.CosineDistance

	ix.names = make(map[string]string, len(records))
	for _, rec := range records {
		if len(rec.Embedding) < MinEmbeddingLength {
			continue
		}
		g.Add(hnsw.MakeNode(rec.ID, rec.Embedding))
		ix.names[rec.ID] = rec.DisplayName
	}
	ix.graph = g
}

// Add inserts a single identity into the index.
func (ix *Index) Add(id, displayName string, embedding []float32) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if len(embedding) < MinEmbeddingLength {
		return
	}
	if ix.graph == nil {
		g := hnsw.NewGraph[string]()
		g.M = indexMaxNeighbors
		g.Ml = 1.0 / float64(indexMaxNeighbors)
		g.Distance = hnsw.CosineDistance
		ix.graph = g
	}
	ix.graph.Add(hnsw.MakeNode(id, embedding))
	ix.names[id] = displayName
}

// Count returns the number of indexed identities.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.names)
}

// Nearest returns up to k indexed identities closest to the query,
// with cosine similarity computed from the stored node vectors.
func (ix *Index) Nearest(query []float32, k int) []Neighbor {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.graph == nil || len(ix.names) == 0 {
		return nil
	}

	nodes := ix.graph.Search(query, k)
	neighbors := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		if _, ok := ix.names[n.Key]; !ok {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			ID:          n.Key,
			DisplayName: ix.names[n.Key],
			Similarity:  cosineSimilarity(query, n.Value),
		})
	}
	return neighbors
}

// cosineSimilarity computes the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical; zero-norm
// input yields 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
