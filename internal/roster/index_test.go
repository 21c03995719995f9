package roster

import (
	"math"
	"testing"
)

// axisVector returns a 16-dim unit vector pointing along the given axis.
func axisVector(axis int) []float32 {
	v := make([]float32, MinEmbeddingLength)
	v[axis] = 1
	return v
}

func TestIndex_Nearest(t *testing.T) {
	ix := NewIndex()
	ix.BuildFromRecords([]Record{
		{ID: "1", DisplayName: "Alice", Embedding: axisVector(0)},
		{ID: "2", DisplayName: "Bob", Embedding: axisVector(1)},
		{ID: "3", DisplayName: "Carol", Embedding: axisVector(2)},
	})

	if ix.Count() != 3 {
		t.Fatalf("Count = %d, want 3", ix.Count())
	}

	neighbors := ix.Nearest(axisVector(1), 1)
	if len(neighbors) != 1 {
		t.Fatalf("got %d neighbors, want 1", len(neighbors))
	}
	if neighbors[0].ID != "2" || neighbors[0].DisplayName != "Bob" {
		t.Errorf("nearest = %s (%s), want 2 (Bob)", neighbors[0].ID, neighbors[0].DisplayName)
	}
	if math.Abs(neighbors[0].Similarity-1.0) > 1e-6 {
		t.Errorf("Similarity = %v, want 1.0", neighbors[0].Similarity)
	}
}

func TestIndex_SkipsShortEmbeddings(t *testing.T) {
	ix := NewIndex()
	ix.BuildFromRecords([]Record{
		{ID: "1", DisplayName: "Alice", Embedding: []float32{1, 0}},
		{ID: "2", DisplayName: "Bob", Embedding: axisVector(0)},
	})

	if ix.Count() != 1 {
		t.Errorf("Count = %d, want 1", ix.Count())
	}
}

func TestIndex_Add(t *testing.T) {
	ix := NewIndex()
	if got := ix.Nearest(axisVector(0), 1); got != nil {
		t.Fatalf("empty index Nearest = %v, want nil", got)
	}

	ix.Add("1", "Alice", axisVector(0))
	ix.Add("2", "Bob", axisVector(1))

	neighbors := ix.Nearest(axisVector(0), 1)
	if len(neighbors) != 1 || neighbors[0].ID != "1" {
		t.Errorf("nearest after Add = %v, want identity 1", neighbors)
	}
}
