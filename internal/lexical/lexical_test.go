package lexical

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
)

func TestSanitize_StripsOperatorsAndQuotesPhrase(t *testing.T) {
	got := Sanitize(`personuppgifter AND (samtycke OR "intresseavvägning")`, false)

	assert.NotContains(t, got, "(")
	assert.NotContains(t, got, ")")
	assert.Contains(t, got, "personuppgifter")
}

func TestSanitize_ExpandsCompounds(t *testing.T) {
	got := Sanitize("dataskyddslagen", true)

	assert.Contains(t, got, "dataskydds")
	assert.Contains(t, got, "lagen")
}

func TestExpandCompounds_ShortTokenUnchanged(t *testing.T) {
	got := ExpandCompounds("lag")

	assert.Equal(t, []string{"lag"}, got)
}

type fakeIndex struct{}

func (fakeIndex) FTSSearch(ctx context.Context, collection, query string, limit int) ([]ragtypes.SearchResult, error) {
	return []ragtypes.SearchResult{
		{ID: "a", Score: 1.2, SourceCollection: collection},
		{ID: "b", Score: 0.8, SourceCollection: collection},
	}, nil
}

func TestSearch_TagsResultsBM25(t *testing.T) {
	r := New(fakeIndex{}, false)

	res, err := r.Search(context.Background(), "sfs", "samtycke", ragtypes.TierPrimary, 10)

	require.NoError(t, err)
	for _, s := range res {
		assert.Equal(t, ragtypes.RetrieverBM25, s.RetrieverTag)
	}
}

func TestGetDocScores_FiltersToRequestedIDs(t *testing.T) {
	r := New(fakeIndex{}, false)

	scores, err := r.GetDocScores(context.Background(), "sfs", "samtycke", []string{"a"}, 10)

	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"a": 1.2}, scores)
}
