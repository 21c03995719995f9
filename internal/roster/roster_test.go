package roster

import (
	"errors"
	"math"
	"testing"
)

func TestLoad_SkipsUnusableRecords(t *testing.T) {
	records := []Record{
		{ID: "1", DisplayName: "Alice", Embedding: []float32{1, 0, 0}},
		{ID: "2", DisplayName: "Bob", Embedding: []float32{0, 1}},       // wrong dim
		{ID: "3", DisplayName: "Carol", Embedding: nil},                 // no embedding
		{ID: "1", DisplayName: "Alice again", Embedding: []float32{0, 1, 0}}, // duplicate id
		{ID: "4", DisplayName: "Dave", Embedding: []float32{0, 0, 0}},   // zero norm
		{ID: "5", DisplayName: "Eve", Embedding: []float32{0, 0, 1}},
	}

	store, skipped := Load(records, 2)

	if store.Size() != 2 {
		t.Errorf("Size = %d, want 2", store.Size())
	}
	if store.Dim() != 3 {
		t.Errorf("Dim = %d, want 3", store.Dim())
	}
	if len(skipped) != 4 {
		t.Errorf("skipped = %v, want 4 entries", skipped)
	}
	if !store.Has("1") || !store.Has("5") {
		t.Error("expected identities 1 and 5 to be loaded")
	}
	if store.Has("2") || store.Has("4") {
		t.Error("unusable identities must not be loaded")
	}
}

func TestLoad_NormalizesEmbeddings(t *testing.T) {
	store, skipped := Load([]Record{
		{ID: "1", DisplayName: "Alice", Embedding: []float32{3, 4}},
	}, 2)
	if len(skipped) != 0 {
		t.Fatalf("unexpected skipped records: %v", skipped)
	}

	emb := store.At(0).Embedding
	var sum float64
	for _, x := range emb {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Errorf("stored embedding norm^2 = %v, want 1.0", sum)
	}
}

func TestLoad_DoesNotModifyInput(t *testing.T) {
	original := []float32{3, 4}
	records := []Record{{ID: "1", DisplayName: "Alice", Embedding: original}}

	Load(records, 2)

	if original[0] != 3 || original[1] != 4 {
		t.Errorf("input embedding was modified: %v", original)
	}
}

func TestLoad_MinLengthFloor(t *testing.T) {
	// 8 values is below the default floor of 16.
	emb := make([]float32, 8)
	emb[0] = 1
	store, skipped := Load([]Record{
		{ID: "1", DisplayName: "Alice", Embedding: emb},
	}, 0)

	if store.Size() != 0 {
		t.Errorf("Size = %d, want 0", store.Size())
	}
	if len(skipped) != 1 {
		t.Errorf("skipped = %v, want 1 entry", skipped)
	}
}

func TestRequireNonEmpty(t *testing.T) {
	store, _ := Load(nil, 2)
	if err := store.RequireNonEmpty(); !errors.Is(err, ErrEmptyStore) {
		t.Errorf("error = %v, want ErrEmptyStore", err)
	}

	store, _ = Load([]Record{
		{ID: "1", DisplayName: "Alice", Embedding: []float32{1, 0}},
	}, 2)
	if err := store.RequireNonEmpty(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStore_InsertionOrder(t *testing.T) {
	store, _ := Load([]Record{
		{ID: "b", DisplayName: "Bob", Embedding: []float32{1, 0}},
		{ID: "a", DisplayName: "Alice", Embedding: []float32{0, 1}},
	}, 2)

	if store.At(0).ID != "b" || store.At(1).ID != "a" {
		t.Error("identities must keep insertion order, not sort by id")
	}
}
