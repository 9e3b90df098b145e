// Package fusion implements the RRF fusion engine (C8): plain and hybrid
// reciprocal rank fusion across dense variants and BM25, with the metrics
// and fallback rules from spec §4.8. Grounded on the teacher's
// retrieval/rrf.go fuseRRF exactly (same constant k=60, same score
// accumulation formula).
package fusion

import (
	"sort"

	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
)

// DefaultK is the RRF rank-damping constant.
const DefaultK = 60

// DefaultBM25Weight is the hybrid weight applied to BM25-ranked docs.
const DefaultBM25Weight = 1.5

// MinFusionGain is the threshold below which the orchestrator should
// prefer the single best input set over the fused result.
const MinFusionGain = 0.05

// ResultSet is one ranked input to fusion: a dense variant's result list,
// or the BM25 result list.
type ResultSet struct {
	Source  ragtypes.RetrieverTag
	Results []ragtypes.SearchResult
}

// FusedEntry is one fused document with its provenance.
type FusedEntry struct {
	Doc             ragtypes.SearchResult
	Score           float64
	FoundByBM25     bool
	RetrieverSources []ragtypes.RetrieverTag
}

// Metrics is the fusion diagnostic record (spec §4.8).
type Metrics struct {
	OverlapCount     int
	UniqueDocsBefore int
	UniqueDocsAfter  int
	FusionGain       float64
}

// entryAccumulator tracks per-document fused state across input sets.
type entryAccumulator struct {
	doc          ragtypes.SearchResult
	score        float64
	sources      []ragtypes.RetrieverTag
	foundByBM25  bool
	firstRankKey int // for stable tie-break by (retriever_tag, original_rank)
}

// Fuse implements hybrid RRF: each result set contributes 1/(k+rank) per
// document (1-indexed rank), weighted w=bm25Weight for BM25 sets. When no
// BM25 set is present, this degenerates to plain RRF (P10). A bm25Weight of
// 0 or less is replaced by DefaultBM25Weight.
func Fuse(sets []ResultSet, k int, bm25Weight float64) ([]FusedEntry, Metrics) {
	if k <= 0 {
		k = DefaultK
	}
	if bm25Weight <= 0 {
		bm25Weight = DefaultBM25Weight
	}

	acc := make(map[string]*entryAccumulator)
	order := make([]string, 0)
	nonEmptySets := 0

	for _, set := range sets {
		if len(set.Results) == 0 {
			continue
		}
		nonEmptySets++
		for rank, doc := range set.Results {
			if doc.ID == "" {
				continue
			}

			weight := 1.0
			if set.Source == ragtypes.RetrieverBM25 {
				weight = bm25Weight
			}
			contribution := weight / float64(k+rank+1)

			e, ok := acc[doc.ID]
			if !ok {
				e = &entryAccumulator{doc: doc, firstRankKey: rank}
				acc[doc.ID] = e
				order = append(order, doc.ID)
			}
			e.score += contribution
			e.sources = append(e.sources, set.Source)
			if set.Source == ragtypes.RetrieverBM25 {
				e.foundByBM25 = true
			}
		}
	}

	entries := make([]FusedEntry, 0, len(order))
	for _, id := range order {
		e := acc[id]
		doc := e.doc
		doc.RetrieverTag = ragtypes.RetrieverFused
		doc.Score = e.score
		entries = append(entries, FusedEntry{
			Doc:              doc,
			Score:            e.score,
			FoundByBM25:      e.foundByBM25,
			RetrieverSources: e.sources,
		})
	}
	rankKeys := make(map[string]int, len(order))
	for _, id := range order {
		rankKeys[id] = acc[id].firstRankKey
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		ti, tj := tieBreakTag(entries[i]), tieBreakTag(entries[j])
		if ti != tj {
			return ti < tj
		}
		return rankKeys[entries[i].Doc.ID] < rankKeys[entries[j].Doc.ID]
	})

	overlap := 0
	for _, id := range order {
		if len(acc[id].sources) >= 2 {
			overlap++
		}
	}

	metrics := Metrics{
		OverlapCount:     overlap,
		UniqueDocsBefore: uniqueDocsInBaselineSet(sets),
		UniqueDocsAfter:  len(entries),
	}
	before := metrics.UniqueDocsBefore
	if before == 0 {
		before = 1
	}
	metrics.FusionGain = float64(metrics.UniqueDocsAfter-metrics.UniqueDocsBefore) / float64(before)

	return entries, metrics
}

// uniqueDocsInBaselineSet counts the distinct document IDs in the first
// input set, matching the original implementation's "before" baseline
// (the lead result set alone, not the union of every input set) so
// FusionGain can be genuinely positive when fusion surfaces new documents.
func uniqueDocsInBaselineSet(sets []ResultSet) int {
	if len(sets) == 0 {
		return 0
	}
	seen := make(map[string]bool, len(sets[0].Results))
	for _, doc := range sets[0].Results {
		if doc.ID == "" {
			continue
		}
		seen[doc.ID] = true
	}
	return len(seen)
}

// ShouldFallbackToSingleSet reports whether the orchestrator should skip
// fusion and use the single best input set instead (spec §4.8).
func ShouldFallbackToSingleSet(metrics Metrics, nonEmptySets int) bool {
	return metrics.FusionGain < MinFusionGain || nonEmptySets < 2
}

func tieBreakTag(e FusedEntry) ragtypes.RetrieverTag {
	if len(e.RetrieverSources) > 0 {
		return e.RetrieverSources[0]
	}
	return ragtypes.RetrieverFused
}
