package dense

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
)

// TestMain verifies the semaphore-bounded fan-out in SearchAll leaves no
// goroutines running past test completion.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeStore struct {
	fail map[string]bool
}

func (f *fakeStore) VectorSearch(ctx context.Context, collection string, q []float32, k int) ([]ragtypes.SearchResult, error) {
	if f.fail[collection] {
		return nil, errors.New("backend unavailable")
	}
	return []ragtypes.SearchResult{{ID: collection + "-1", SourceCollection: collection, Score: 0.9}}, nil
}

func TestSearchAll_FanOutAcrossVariantsAndCollections(t *testing.T) {
	store := &fakeStore{}
	r := New(store, 4)
	routing := ragtypes.RoutingConfig{Primary: []string{"sfs", "riksdag"}}
	variants := []Variant{{Text: "q1", Embedding: []float32{1, 0}}, {Text: "q2", Embedding: []float32{0, 1}}}

	legs := r.SearchAll(context.Background(), variants, routing, 10)

	require.Len(t, legs, 4)
	for _, leg := range legs {
		require.NoError(t, leg.Err)
		require.Len(t, leg.Results, 1)
		assert.Equal(t, ragtypes.TierPrimary, leg.Results[0].Tier)
	}
}

func TestSearchAll_PerLegFailureIsolated(t *testing.T) {
	store := &fakeStore{fail: map[string]bool{"riksdag": true}}
	r := New(store, 4)
	routing := ragtypes.RoutingConfig{Primary: []string{"sfs", "riksdag"}}
	variants := []Variant{{Text: "q1", Embedding: []float32{1, 0}}}

	legs := r.SearchAll(context.Background(), variants, routing, 10)

	var sfsOK, riksdagFailed bool
	for _, leg := range legs {
		if leg.Collection == "sfs" {
			sfsOK = leg.Err == nil
		}
		if leg.Collection == "riksdag" {
			riksdagFailed = leg.Err != nil
		}
	}
	assert.True(t, sfsOK)
	assert.True(t, riksdagFailed)
}
