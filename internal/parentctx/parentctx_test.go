package parentctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
)

type fakeStore struct {
	childToParent map[string]string
	parents       map[string]*ragtypes.ParentContext
}

func (f fakeStore) ParentIDForChunk(ctx context.Context, chunkID string) (string, error) {
	return f.childToParent[chunkID], nil
}

func (f fakeStore) GetParent(ctx context.Context, parentID string) (*ragtypes.ParentContext, error) {
	pc, ok := f.parents[parentID]
	if !ok {
		return nil, nil
	}
	cp := *pc
	return &cp, nil
}

func sfsResult(id, parentID string) ragtypes.SearchResult {
	return ragtypes.SearchResult{ID: id, Metadata: &ragtypes.SFSMetadata{ParentChapterID: parentID}}
}

// Three siblings from the same kapitel collapse to one parent with
// ChildCount populated (spec §4.11).
func TestExpand_DedupesSiblingsWithChildCount(t *testing.T) {
	store := fakeStore{parents: map[string]*ragtypes.ParentContext{
		"2018:218_1_kap": {ParentID: "2018:218_1_kap", Kapitel: "1"},
	}}
	r := New(store)

	out := r.Expand(context.Background(), []ragtypes.SearchResult{
		sfsResult("a", "2018:218_1_kap"),
		sfsResult("b", "2018:218_1_kap"),
		sfsResult("c", "2018:218_1_kap"),
	})

	require.Len(t, out, 1)
	assert.Equal(t, 3, out[0].ChildCount)
}

// Non-SFS results (no metadata) never produce parent context.
func TestExpand_NonSFSPassesThroughWithoutExpansion(t *testing.T) {
	store := fakeStore{parents: map[string]*ragtypes.ParentContext{}}
	r := New(store)

	out := r.Expand(context.Background(), []ragtypes.SearchResult{
		{ID: "diva-1", Metadata: nil},
	})

	assert.Empty(t, out)
}

// Missing store data degrades to no expansion, never a failure.
func TestExpand_MissingParentIsNotAFailure(t *testing.T) {
	store := fakeStore{parents: map[string]*ragtypes.ParentContext{}}
	r := New(store)

	out := r.Expand(context.Background(), []ragtypes.SearchResult{sfsResult("a", "nope")})

	assert.Empty(t, out)
}

// A nil store (parent expansion disabled) never panics.
func TestExpand_NilStoreReturnsEmpty(t *testing.T) {
	r := New(nil)

	out := r.Expand(context.Background(), []ragtypes.SearchResult{sfsResult("a", "p")})

	assert.Empty(t, out)
}

// Phase two: when no explicit ParentChapterID or child->parent mapping row
// exists, the parent id is reconstructed from the chunk-id grammar.
func TestExpand_FallsBackToChunkIDGrammar(t *testing.T) {
	store := fakeStore{
		childToParent: map[string]string{},
		parents: map[string]*ragtypes.ParentContext{
			"2018:218_1a_kap": {ParentID: "2018:218_1a_kap"},
		},
	}
	r := New(store)

	out := r.Expand(context.Background(), []ragtypes.SearchResult{
		{ID: "sfs_2018_218_1akap_3§_abcdef012345", Metadata: &ragtypes.SFSMetadata{}},
	})

	require.Len(t, out, 1)
	assert.Equal(t, "2018:218_1a_kap", out[0].ParentID)
}
