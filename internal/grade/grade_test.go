package grade

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/itsimonfredlingjack/svenskrag/internal/llm"
	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
)

type fakeProvider struct {
	responses map[string]string
}

func (f fakeProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{Content: f.responses[req.Messages[0].Content]}, nil
}

func (f fakeProvider) ChatStream(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	return nil, nil
}

func (f fakeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}

func TestGrade_KeepsRelevantDropsIrrelevant(t *testing.T) {
	relevantPrompt := promptFor("q", "relevant text")
	irrelevantPrompt := promptFor("q", "irrelevant text")
	provider := fakeProvider{responses: map[string]string{
		relevantPrompt:   `{"relevance": "yes"}`,
		irrelevantPrompt: `{"relevance": "no"}`,
	}}
	g := New(provider, 0)

	result := g.Grade(context.Background(), "q", []ragtypes.SearchResult{
		{ID: "a", Snippet: "relevant text"},
		{ID: "b", Snippet: "irrelevant text"},
	})

	assert.Equal(t, []string{"a"}, result.KeepIDs)
	assert.InDelta(t, 0.5, result.AggregateConfidence, 1e-9)
}

func TestGrade_NonJSONOutputScoresZero(t *testing.T) {
	prompt := promptFor("q", "garbled")
	provider := fakeProvider{responses: map[string]string{prompt: "not json at all"}}
	g := New(provider, 0)

	result := g.Grade(context.Background(), "q", []ragtypes.SearchResult{{ID: "a", Snippet: "garbled"}})

	assert.False(t, result.PerDoc[0].Relevant)
	assert.Equal(t, 0.0, result.PerDoc[0].Score)
}

func TestGrade_AllRejectedMeansNoKeepIDs(t *testing.T) {
	prompt := promptFor("q", "irrelevant")
	provider := fakeProvider{responses: map[string]string{prompt: `{"relevance": "no"}`}}
	g := New(provider, 0)

	result := g.Grade(context.Background(), "q", []ragtypes.SearchResult{{ID: "a", Snippet: "irrelevant"}})

	assert.Empty(t, result.KeepIDs)
}
