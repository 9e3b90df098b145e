package rerank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
)

type fakeScorer struct {
	scores map[string]float64
}

func (f fakeScorer) Score(ctx context.Context, query, document string) (float64, error) {
	return f.scores[document], nil
}

func TestRerank_ThresholdAndTopN(t *testing.T) {
	scorer := fakeScorer{scores: map[string]float64{
		"high": 0.9, "mid": 0.5, "low": 0.1,
	}}
	r := New(scorer, 0.3, 1)
	candidates := []ragtypes.SearchResult{
		{ID: "a", Snippet: "high"},
		{ID: "b", Snippet: "mid"},
		{ID: "c", Snippet: "low"},
	}

	out, err := r.Rerank(context.Background(), "q", candidates)

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)
}

func TestRerank_FewerThanTwoCandidatesPassthrough(t *testing.T) {
	r := New(fakeScorer{}, 0, 0)

	out, err := r.Rerank(context.Background(), "q", []ragtypes.SearchResult{{ID: "only"}})

	require.NoError(t, err)
	assert.Len(t, out, 1)
}
