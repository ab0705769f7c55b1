package retrieval

import (
	"context"
	"math"
	"testing"

	"docuchat/pkg/domain"
	"docuchat/pkg/store"
)

func seedChunks(t *testing.T, s store.ChunkStore, owner, filename string, vecs map[string][]float32, order []string) {
	t.Helper()
	chunks := make([]domain.Chunk, 0, len(order))
	for i, text := range order {
		chunks = append(chunks, domain.Chunk{
			ID:        text,
			Owner:     owner,
			Filename:  filename,
			Seq:       i,
			Content:   text,
			Embedding: vecs[text],
		})
	}
	if err := s.ReplaceChunks(context.Background(), owner, filename, chunks); err != nil {
		t.Fatalf("seed chunks: %v", err)
	}
}

func TestCosineSelfSimilarityAndSymmetry(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{-2, 0.5, 4}
	if got := cosine(a, a, norm(a)); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("self similarity = %v, want 1.0", got)
	}
	ab := cosine(a, b, norm(a))
	ba := cosine(b, a, norm(b))
	if math.Abs(ab-ba) > 1e-9 {
		t.Fatalf("similarity not symmetric: %v vs %v", ab, ba)
	}
}

func TestRetrieveEmptyScope(t *testing.T) {
	r := NewRetriever(store.NewMemoryStore())
	got, err := r.Retrieve(context.Background(), []float32{1, 0}, "a@b.c", "none.txt", 5)
	if err != nil {
		t.Fatalf("empty scope must not error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestRetrieveRanksBySimilarity(t *testing.T) {
	s := store.NewMemoryStore()
	seedChunks(t, s, "a@b.c", "doc.txt", map[string][]float32{
		"orthogonal": {0, 1},
		"aligned":    {2, 0},
		"opposite":   {-1, 0},
		"diagonal":   {1, 1},
	}, []string{"orthogonal", "aligned", "opposite", "diagonal"})

	r := NewRetriever(s)
	got, err := r.Retrieve(context.Background(), []float32{1, 0}, "a@b.c", "doc.txt", 3)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	want := []string{"aligned", "diagonal", "orthogonal"}
	if len(got) != len(want) {
		t.Fatalf("got %d results, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rank %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRetrieveTiesKeepInsertionOrder(t *testing.T) {
	s := store.NewMemoryStore()
	// Same direction, different magnitudes: identical cosine scores.
	seedChunks(t, s, "a@b.c", "doc.txt", map[string][]float32{
		"first":  {1, 0},
		"second": {5, 0},
		"third":  {0.5, 0},
	}, []string{"first", "second", "third"})

	r := NewRetriever(s)
	got, err := r.Retrieve(context.Background(), []float32{1, 0}, "a@b.c", "doc.txt", 3)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	want := []string{"first", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tie order broken at %d: got %v", i, got)
		}
	}
}

func TestRetrieveCapsAtTopK(t *testing.T) {
	s := store.NewMemoryStore()
	seedChunks(t, s, "a@b.c", "doc.txt", map[string][]float32{
		"a": {1, 0}, "b": {0.9, 0.1}, "c": {0.8, 0.2},
	}, []string{"a", "b", "c"})

	r := NewRetriever(s)
	got, err := r.Retrieve(context.Background(), []float32{1, 0}, "a@b.c", "doc.txt", 2)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
}

func TestRetrieveToleratesDegenerateChunk(t *testing.T) {
	s := store.NewMemoryStore()
	seedChunks(t, s, "a@b.c", "doc.txt", map[string][]float32{
		"zero":   {0, 0},
		"useful": {1, 0},
	}, []string{"zero", "useful"})

	r := NewRetriever(s)
	got, err := r.Retrieve(context.Background(), []float32{1, 0}, "a@b.c", "doc.txt", 2)
	if err != nil {
		t.Fatalf("degenerate chunk must not break retrieval: %v", err)
	}
	if len(got) != 2 || got[0] != "useful" || got[1] != "zero" {
		t.Fatalf("degenerate chunk should rank last: %v", got)
	}
}

func TestRetrieveZeroNormQuery(t *testing.T) {
	s := store.NewMemoryStore()
	seedChunks(t, s, "a@b.c", "doc.txt", map[string][]float32{"a": {1, 0}}, []string{"a"})

	r := NewRetriever(s)
	got, err := r.Retrieve(context.Background(), []float32{0, 0}, "a@b.c", "doc.txt", 5)
	if err != nil {
		t.Fatalf("zero-norm query must not error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result for zero-norm query, got %v", got)
	}
}
