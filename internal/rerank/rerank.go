// Package rerank implements the cross-encoder reranker adapter (C9):
// scores (query, candidate) pairs through an external reranker backend,
// applies a threshold then a top-N cut. The Reranker wraps each Scorer call
// in the avast/retry-go backoff also used for LLM calls.
package rerank

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/itsimonfredlingjack/svenskrag/internal/ragerr"
	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
)

// DefaultThreshold and DefaultTopN are spec §4.9 defaults.
const (
	DefaultThreshold = 0.3
	DefaultTopN      = 5
)

// Scorer is the narrow cross-encoder contract: score one (query, document)
// pair.
type Scorer interface {
	Score(ctx context.Context, query, document string) (float64, error)
}

// Reranker applies threshold + top-N cut over candidates scored by a Scorer.
type Reranker struct {
	scorer    Scorer
	threshold float64
	topN      int
}

// New constructs a Reranker. threshold<=0 and topN<=0 use spec defaults.
func New(scorer Scorer, threshold float64, topN int) *Reranker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Reranker{scorer: scorer, threshold: threshold, topN: topN}
}

// Rerank scores every candidate, drops those under threshold, and keeps the
// top-N survivors by score. Disabled for CHAT mode or fewer than 2
// candidates — callers are expected to check that precondition themselves
// since it depends on orchestrator mode, not reranker internals.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []ragtypes.SearchResult) ([]ragtypes.SearchResult, error) {
	if len(candidates) < 2 {
		return candidates, nil
	}

	scored := make([]ragtypes.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		score, err := r.scoreWithRetry(ctx, query, c.Snippet)
		if err != nil {
			return nil, fmt.Errorf("%w: reranking %s: %v", ragerr.ErrDependencyUnavailable, c.ID, err)
		}
		if score < r.threshold {
			continue
		}
		c.Score = score
		scored = append(scored, c)
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if len(scored) > r.topN {
		scored = scored[:r.topN]
	}
	return scored, nil
}

func (r *Reranker) scoreWithRetry(ctx context.Context, query, document string) (float64, error) {
	var score float64
	err := retry.Do(
		func() error {
			s, err := r.scorer.Score(ctx, query, document)
			if err != nil {
				return err
			}
			score = s
			return nil
		},
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
	)
	return score, err
}
