// Package parentctx implements the parent-context resolver (C11): it
// expands SFS child chunks to their kapitel-level parent text over a
// read-only store, tolerating a missing or partial store as "no
// expansion" rather than a pipeline failure.
package parentctx

import (
	"context"

	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
)

// Store is the narrow parent-lookup contract satisfied by internal/store.
type Store interface {
	// ParentIDForChunk resolves a child chunk's explicit parent mapping.
	// Returns "" (no error) when no mapping row exists.
	ParentIDForChunk(ctx context.Context, chunkID string) (string, error)
	// GetParent fetches a parent record by id. Returns nil, nil when the
	// parent id is unknown to the store.
	GetParent(ctx context.Context, parentID string) (*ragtypes.ParentContext, error)
}

// Resolver expands search results carrying SFS metadata to parent context.
type Resolver struct {
	store Store
}

// New constructs a Resolver over the given parent store.
func New(store Store) *Resolver {
	return &Resolver{store: store}
}

// Expand resolves parent context for every SFS result among candidates.
// Non-SFS results (Metadata == nil) pass through unchanged and are not
// included in the returned parent slice. Parents are deduplicated by id:
// when several siblings share a kapitel, the parent is returned once with
// ChildCount populated. A nil store, or any per-chunk resolution failure,
// degrades to "no expansion" rather than aborting the batch.
func (r *Resolver) Expand(ctx context.Context, candidates []ragtypes.SearchResult) []ragtypes.ParentContext {
	if r.store == nil {
		return nil
	}

	order := make([]string, 0, len(candidates))
	counts := make(map[string]int)
	parents := make(map[string]*ragtypes.ParentContext)

	for _, c := range candidates {
		if c.Metadata == nil {
			continue
		}
		parentID := r.resolveParentID(ctx, c)
		if parentID == "" {
			continue
		}
		counts[parentID]++
		if _, seen := parents[parentID]; seen {
			continue
		}
		pc, err := r.store.GetParent(ctx, parentID)
		if err != nil || pc == nil {
			continue
		}
		parents[parentID] = pc
		order = append(order, parentID)
	}

	out := make([]ragtypes.ParentContext, 0, len(order))
	for _, id := range order {
		pc := *parents[id]
		pc.ChildCount = counts[id]
		out = append(out, pc)
	}
	return out
}

// resolveParentID implements the lookup of spec §4.11: first the chunk's
// own ParentChapterID metadata, then the explicit child->parent map,
// falling back to the id reconstructed from the chunk-id grammar when no
// explicit mapping row exists.
func (r *Resolver) resolveParentID(ctx context.Context, c ragtypes.SearchResult) string {
	if c.Metadata.ParentChapterID != "" {
		return c.Metadata.ParentChapterID
	}
	if id, err := r.store.ParentIDForChunk(ctx, c.ID); err == nil && id != "" {
		return id
	}
	return ragtypes.ParentIDFromChunkID(c.ID)
}
