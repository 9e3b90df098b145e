// Package grade implements the relevance grader (C10): a grammar-constrained
// yes/no relevance call per candidate, parsed defensively, aggregated into
// a keep/refusal decision.
package grade

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itsimonfredlingjack/svenskrag/internal/llm"
	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
)

// relevanceGrammar constrains output to exactly {"relevance": "yes"|"no"}.
const relevanceGrammar = `root ::= "{" "\"relevance\"" ":" value "}"
value ::= "\"yes\"" | "\"no\""`

// DefaultThreshold is the minimum per-doc score to keep a document.
const DefaultThreshold = 0.5

const gradePrompt = `Fråga: %s

Dokument: %s

Är detta dokument relevant för att besvara frågan? Svara enbart med JSON: {"relevance": "yes"} eller {"relevance": "no"}.`

// Grader scores each candidate's relevance to the query via the LLM.
type Grader struct {
	provider  llm.Provider
	threshold float64
}

// New constructs a Grader. threshold<=0 uses DefaultThreshold.
func New(provider llm.Provider, threshold float64) *Grader {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Grader{provider: provider, threshold: threshold}
}

// Grade grades every candidate and returns the aggregate GradingResult.
func (g *Grader) Grade(ctx context.Context, query string, candidates []ragtypes.SearchResult) ragtypes.GradingResult {
	var perDoc []ragtypes.GradedDoc
	var keepIDs []string
	var sum float64

	for _, c := range candidates {
		score, reason := g.gradeOne(ctx, query, c.Snippet)
		relevant := score >= g.threshold
		perDoc = append(perDoc, ragtypes.GradedDoc{
			DocID:    c.ID,
			Relevant: relevant,
			Score:    score,
			Reason:   reason,
		})
		sum += score
		if relevant {
			keepIDs = append(keepIDs, c.ID)
		}
	}

	var aggregate float64
	if len(perDoc) > 0 {
		aggregate = sum / float64(len(perDoc))
	}

	return ragtypes.GradingResult{
		PerDoc:              perDoc,
		AggregateConfidence: aggregate,
		KeepIDs:             keepIDs,
	}
}

type relevanceResponse struct {
	Relevance string `json:"relevance"`
}

func (g *Grader) gradeOne(ctx context.Context, query, document string) (float64, string) {
	resp, err := g.provider.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{{Role: "user", Content: promptFor(query, document)}},
		Grammar:  relevanceGrammar,
	})
	if err != nil {
		return 0.0, "llm unavailable, defaulting to not relevant"
	}

	var parsed relevanceResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &parsed); err != nil {
		return 0.0, "non-JSON grader output, confidence=low"
	}
	switch strings.ToLower(parsed.Relevance) {
	case "yes":
		return 1.0, "graded relevant"
	case "no":
		return 0.0, "graded not relevant"
	default:
		return 0.0, "unrecognized relevance value, confidence=low"
	}
}

func promptFor(query, document string) string {
	return fmt.Sprintf(gradePrompt, query, document)
}
