// Package dense implements the dense retriever (C6): per (query-variant,
// collection) top-K nearest-neighbor search, fanned out concurrently under
// a bounded semaphore, grounded on the teacher's retrieval.Engine.Search
// concurrent-channel fan-out pattern.
package dense

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/itsimonfredlingjack/svenskrag/internal/ragerr"
	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
)

// DefaultConcurrency is the default fan-out semaphore weight (spec §5).
const DefaultConcurrency = 8

// Store is the narrow vector-store contract (spec §6's "Vector store
// contract"): a single-collection top-K similarity search.
type Store interface {
	VectorSearch(ctx context.Context, collection string, queryEmbedding []float32, k int) ([]ragtypes.SearchResult, error)
}

// Variant is one query form to search with (original, standalone, or an
// expansion) paired with its already-computed embedding.
type Variant struct {
	Text      string
	Embedding []float32
}

// LegResult is one (variant, collection) search outcome, including failures
// so callers can record per-leg metrics without losing the remaining legs.
type LegResult struct {
	Variant    string
	Collection string
	Tier       ragtypes.Tier
	Results    []ragtypes.SearchResult
	Err        error
}

// Retriever runs dense search fan-out against a Store.
type Retriever struct {
	store       Store
	concurrency int64
}

// New constructs a Retriever. concurrency <= 0 uses DefaultConcurrency.
func New(store Store, concurrency int) *Retriever {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Retriever{store: store, concurrency: int64(concurrency)}
}

// collectionTier pairs a collection name with the routing tier it was
// resolved under, so results carry the right tier downstream.
type collectionTier struct {
	name string
	tier ragtypes.Tier
}

// SearchAll fans out variants × collections concurrently, bounded by the
// retriever's semaphore. Any individual leg's failure is recorded in its
// LegResult rather than aborting the whole search (spec §5: per-leg
// failure isolation).
func (r *Retriever) SearchAll(ctx context.Context, variants []Variant, routing ragtypes.RoutingConfig, k int) []LegResult {
	collections := make([]collectionTier, 0, len(routing.Primary)+len(routing.Support)+len(routing.Secondary))
	for _, c := range routing.Primary {
		collections = append(collections, collectionTier{c, ragtypes.TierPrimary})
	}
	for _, c := range routing.Support {
		collections = append(collections, collectionTier{c, ragtypes.TierSupport})
	}
	for _, c := range routing.Secondary {
		collections = append(collections, collectionTier{c, ragtypes.TierSecondary})
	}

	sem := semaphore.NewWeighted(r.concurrency)
	results := make([]LegResult, len(variants)*len(collections))

	var wg sync.WaitGroup
	idx := 0
	for _, v := range variants {
		for _, c := range collections {
			leg := idx
			idx++
			v, c := v, c
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := sem.Acquire(ctx, 1); err != nil {
					results[leg] = LegResult{Variant: v.Text, Collection: c.name, Tier: c.tier, Err: err}
					return
				}
				defer sem.Release(1)

				res, err := r.store.VectorSearch(ctx, c.name, v.Embedding, k)
				if err != nil {
					results[leg] = LegResult{
						Variant: v.Text, Collection: c.name, Tier: c.tier,
						Err: fmt.Errorf("%w: dense search %s/%s: %v", ragerr.ErrDependencyUnavailable, v.Text, c.name, err),
					}
					return
				}
				for i := range res {
					res[i].Tier = c.tier
				}
				results[leg] = LegResult{Variant: v.Text, Collection: c.name, Tier: c.tier, Results: res}
			}()
		}
	}
	wg.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Variant != results[j].Variant {
			return results[i].Variant < results[j].Variant
		}
		return results[i].Collection < results[j].Collection
	})
	return results
}
