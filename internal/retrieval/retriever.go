// Package retrieval ranks stored chunks against a query vector by cosine
// similarity. The scan is brute-force over one document's chunks; building
// an ANN index is out of scope at this scale.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"

	"docuchat/pkg/store"
)

// DefaultTopK bounds result size when the caller passes no explicit limit.
const DefaultTopK = 5

// Retriever searches a chunk store scope for the most similar chunks.
type Retriever struct {
	chunks store.ChunkStore
}

// NewRetriever creates a Retriever over the given chunk store.
func NewRetriever(chunks store.ChunkStore) *Retriever {
	return &Retriever{chunks: chunks}
}

type scoredChunk struct {
	text  string
	score float64
}

// Retrieve returns the texts of the topK chunks in the (owner, filename)
// scope most similar to queryVec, best first. Ties keep insertion order.
// An empty scope yields an empty result, not an error. A zero-norm stored
// vector scores negative infinity so a single degenerate chunk never breaks
// retrieval.
func (r *Retriever) Retrieve(ctx context.Context, queryVec []float32, owner, filename string, topK int) ([]string, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	chunks, err := r.chunks.QueryScope(ctx, owner, filename)
	if err != nil {
		return nil, fmt.Errorf("query scope: %w", err)
	}
	if len(chunks) == 0 {
		return []string{}, nil
	}
	queryNorm := norm(queryVec)
	if queryNorm == 0 {
		return []string{}, nil
	}
	scored := make([]scoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		scored = append(scored, scoredChunk{
			text:  chunk.Content,
			score: cosine(queryVec, chunk.Embedding, queryNorm),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if topK > len(scored) {
		topK = len(scored)
	}
	texts := make([]string, 0, topK)
	for _, s := range scored[:topK] {
		texts = append(texts, s.text)
	}
	return texts, nil
}

// cosine computes dot(a,b) / (|a|*|b|) with the query norm precomputed.
// A degenerate candidate (zero norm or dimension mismatch) scores negative
// infinity, ranking it last instead of failing the query.
func cosine(query, candidate []float32, queryNorm float64) float64 {
	if len(candidate) != len(query) {
		return math.Inf(-1)
	}
	candidateNorm := norm(candidate)
	if candidateNorm == 0 {
		return math.Inf(-1)
	}
	var dot float64
	for i := range query {
		dot += float64(query[i]) * float64(candidate[i])
	}
	return dot / (queryNorm * candidateNorm)
}

func norm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
