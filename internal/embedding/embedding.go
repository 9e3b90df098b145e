// Package embedding implements the embedding adapter (C5): asymmetric
// query/passage encodings over the configured LLM provider's Embed
// endpoint, L2-normalized to the expected dimension.
package embedding

import (
	"context"
	"fmt"
	"math"

	"github.com/itsimonfredlingjack/svenskrag/internal/llm"
	"github.com/itsimonfredlingjack/svenskrag/internal/ragerr"
)

// Task selects the asymmetric encoding side. Mixing query and passage
// vectors in the same comparison is a defect the caller must not commit.
type Task string

const (
	TaskQuery   Task = "query"
	TaskPassage Task = "passage"
)

// taskPrefixes mirrors the instruction-prefix convention used by
// asymmetric embedding models (BGE-M3/Jina-v3 style, per spec §9's note
// that the spec is provenance-agnostic as long as the asymmetry holds).
var taskPrefixes = map[Task]string{
	TaskQuery:   "query: ",
	TaskPassage: "passage: ",
}

// Adapter wraps an llm.Provider's Embed call with task prefixing and
// dimension validation.
type Adapter struct {
	provider llm.Provider
	dim      int
}

// New constructs an Adapter. dim is the expected embedding dimension
// (EXPECTED_EMBEDDING_DIM); vectors of any other length are rejected.
func New(provider llm.Provider, dim int) *Adapter {
	return &Adapter{provider: provider, dim: dim}
}

// EmbedQuery embeds texts using the query task encoding.
func (a *Adapter) EmbedQuery(ctx context.Context, texts []string) ([][]float32, error) {
	return a.embed(ctx, TaskQuery, texts)
}

// EmbedPassage embeds texts using the passage task encoding.
func (a *Adapter) EmbedPassage(ctx context.Context, texts []string) ([][]float32, error) {
	return a.embed(ctx, TaskPassage, texts)
}

func (a *Adapter) embed(ctx context.Context, task Task, texts []string) ([][]float32, error) {
	prefix := taskPrefixes[task]
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = prefix + t
	}

	vectors, err := a.provider.Embed(ctx, prefixed)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding %s batch: %v", ragerr.ErrDependencyUnavailable, task, err)
	}

	for i, v := range vectors {
		if a.dim > 0 && len(v) != a.dim {
			return nil, fmt.Errorf("%w: embedding dimension mismatch: got %d want %d", ragerr.ErrDependencyUnavailable, len(v), a.dim)
		}
		vectors[i] = l2Normalize(v)
	}
	return vectors, nil
}

func l2Normalize(v []float32) []float32 {
	var sumSq float64
	for _, f := range v {
		sumSq += float64(f) * float64(f)
	}
	if sumSq == 0 {
		return v
	}
	norm := float32(math.Sqrt(sumSq))
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = f / norm
	}
	return out
}
