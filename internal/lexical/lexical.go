// Package lexical implements the BM25 lexical retriever (C7): FTS query
// sanitization, optional Swedish compound-word expansion, and per-id score
// lookup for hybrid reranking. Sanitization is grounded on the teacher's
// retrieval/helpers.go sanitizeFTSQuery.
package lexical

import (
	"context"
	"fmt"
	"strings"

	"github.com/itsimonfredlingjack/svenskrag/internal/ragerr"
	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
)

// Index is the narrow BM25 contract (spec §6): a prebuilt inverted index
// opened read-only, queried per collection.
type Index interface {
	FTSSearch(ctx context.Context, collection, query string, limit int) ([]ragtypes.SearchResult, error)
}

// reservedTokens are FTS5 boolean operators that must not leak into a
// sanitized OR-query as bare words.
var reservedTokens = map[string]bool{
	"AND": true, "OR": true, "NOT": true, "NEAR": true,
}

var ftsSpecialCharsReplacer = strings.NewReplacer(
	`"`, "", "'", "", "(", "", ")", "", "*", "", "^", "",
	":", "", "{", "", "}", "", "[", "", "]", "", "~", "",
)

// compoundSuffixes is the placeholder Swedish compound-splitting lexicon
// (spec §9 Open Question: "implementers should supply one"). It handles
// the common legal compounding boundary where a law name is glued to a
// generic suffix, e.g. "dataskyddslagen" -> "dataskydds" + "lagen".
// Not a general Swedish compound splitter; sufficient to demonstrate the
// interface the spec requires.
var compoundSuffixes = []string{"lagen", "förordningen", "balken", "stadgan"}

// ExpandCompounds splits known legal-compound suffixes off a lowercased
// token, returning the token itself plus any split parts. Short tokens and
// tokens without a recognized suffix are returned unchanged.
func ExpandCompounds(token string) []string {
	lower := strings.ToLower(token)
	out := []string{token}
	for _, suffix := range compoundSuffixes {
		if len(lower) > len(suffix)+3 && strings.HasSuffix(lower, suffix) {
			stem := lower[:len(lower)-len(suffix)]
			out = append(out, stem, suffix)
			break
		}
	}
	return out
}

// Sanitize strips FTS5 operator syntax and reserved boolean tokens, then
// builds a phrase+term OR-query, optionally expanding compound words
// first. Mirrors the teacher's sanitizeFTSQuery shape (phrase first, then
// individual significant terms, then extra terms appended).
func Sanitize(query string, expandCompounds bool) string {
	cleaned := ftsSpecialCharsReplacer.Replace(query)
	words := strings.Fields(cleaned)
	if len(words) == 0 {
		return ""
	}

	var parts []string
	if len(words) > 1 {
		parts = append(parts, `"`+strings.Join(words, " ")+`"`)
	}

	seen := map[string]bool{}
	for _, w := range words {
		if len(w) <= 2 || reservedTokens[strings.ToUpper(w)] {
			continue
		}
		terms := []string{w}
		if expandCompounds {
			terms = ExpandCompounds(w)
		}
		for _, t := range terms {
			lower := strings.ToLower(t)
			if len(lower) <= 2 || seen[lower] {
				continue
			}
			seen[lower] = true
			parts = append(parts, t)
		}
	}

	if len(parts) == 0 {
		return strings.Join(words, " OR ")
	}
	return strings.Join(parts, " OR ")
}

// Retriever runs lexical search against an Index.
type Retriever struct {
	index           Index
	expandCompounds bool
}

// New constructs a Retriever.
func New(index Index, expandCompounds bool) *Retriever {
	return &Retriever{index: index, expandCompounds: expandCompounds}
}

// Search runs a sanitized BM25 search scoped to one collection, tagging
// every result retriever=bm25 and the given tier.
func (r *Retriever) Search(ctx context.Context, collection, query string, tier ragtypes.Tier, limit int) ([]ragtypes.SearchResult, error) {
	sanitized := Sanitize(query, r.expandCompounds)
	res, err := r.index.FTSSearch(ctx, collection, sanitized, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: bm25 search %s: %v", ragerr.ErrDependencyUnavailable, collection, err)
	}
	for i := range res {
		res[i].RetrieverTag = ragtypes.RetrieverBM25
		res[i].Tier = tier
	}
	return res, nil
}

// GetDocScores returns per-id BM25 scores for a caller-supplied candidate
// set, used by hybrid reranking. It runs the same sanitized search and
// filters to the requested ids, preserving the index's own scoring.
func (r *Retriever) GetDocScores(ctx context.Context, collection, query string, ids []string, limit int) (map[string]float64, error) {
	res, err := r.Search(ctx, collection, query, ragtypes.TierPrimary, limit)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	scores := make(map[string]float64, len(ids))
	for _, r := range res {
		if want[r.ID] {
			scores[r.ID] = r.Score
		}
	}
	return scores, nil
}
