package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsimonfredlingjack/svenskrag/internal/llm"
)

type fakeProvider struct {
	lastTexts []string
}

func (f *fakeProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	return nil, nil
}

func (f *fakeProvider) ChatStream(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	return nil, nil
}

func (f *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.lastTexts = texts
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{3, 4} // norm 5
	}
	return out, nil
}

func TestEmbedQuery_PrefixesAndNormalizes(t *testing.T) {
	fp := &fakeProvider{}
	a := New(fp, 2)

	vecs, err := a.EmbedQuery(context.Background(), []string{"samtycke enligt GDPR"})

	require.NoError(t, err)
	assert.Equal(t, "query: samtycke enligt GDPR", fp.lastTexts[0])
	norm := math.Sqrt(float64(vecs[0][0])*float64(vecs[0][0]) + float64(vecs[0][1])*float64(vecs[0][1]))
	assert.InDelta(t, 1.0, norm, 1e-6)
}

func TestEmbedPassage_UsesDifferentPrefixThanQuery(t *testing.T) {
	fp := &fakeProvider{}
	a := New(fp, 2)

	_, err := a.EmbedPassage(context.Background(), []string{"2 kap. 1 §"})

	require.NoError(t, err)
	assert.Equal(t, "passage: 2 kap. 1 §", fp.lastTexts[0])
}

func TestEmbed_DimensionMismatchRejected(t *testing.T) {
	fp := &fakeProvider{}
	a := New(fp, 99)

	_, err := a.EmbedQuery(context.Background(), []string{"x"})

	assert.Error(t, err)
}
