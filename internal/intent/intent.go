// Package intent implements the intent classifier (C2): a deterministic
// rule stage with an LLM fallback for anything the rules can't resolve,
// grounded on the teacher's routing-style keyword dispatch in
// retrieval/retrieval.go's detectIdentifiers.
package intent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/itsimonfredlingjack/svenskrag/internal/llm"
	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
)

var (
	sfsNumberPattern = regexp.MustCompile(`\d{4}:\d{2,}`)
	kapParPattern    = regexp.MustCompile(`§|\bkap\.?\b`)
)

var parliamentWords = []string{"proposition", "motion", "utskott", "prop.", "betänkande"}
var researchWords = []string{"forskning", "studie", "avhandling"}
var smalltalkWords = []string{"hej", "tjena", "hejsan", "god morgon", "godkväll", "läget", "tack"}

// Classifier labels a rewritten query into the fixed intent taxonomy.
type Classifier struct {
	provider llm.Provider // optional; nil disables the LLM fallback stage
}

// New constructs a Classifier. provider may be nil, in which case unresolved
// queries fall through to UNKNOWN rather than invoking an LLM fallback.
func New(provider llm.Provider) *Classifier {
	return &Classifier{provider: provider}
}

// Classify runs the rule stage first; only when the rules produce no match
// does it consult the LLM (when configured).
func (c *Classifier) Classify(ctx context.Context, standalone string) (ragtypes.Intent, error) {
	if in := ruleClassify(standalone); in != ragtypes.IntentUnknown {
		return in, nil
	}
	if c.provider == nil {
		return ragtypes.IntentUnknown, nil
	}
	return c.llmClassify(ctx, standalone)
}

func ruleClassify(q string) ragtypes.Intent {
	lower := strings.ToLower(strings.TrimSpace(q))

	if isSmalltalk(lower) {
		return ragtypes.IntentSmalltalk
	}
	if sfsNumberPattern.MatchString(q) || kapParPattern.MatchString(q) {
		return ragtypes.IntentLegalText
	}
	if containsAny(lower, parliamentWords) {
		return ragtypes.IntentParliamentTrace
	}
	if containsAny(lower, researchWords) {
		return ragtypes.IntentResearchSynthesis
	}
	return ragtypes.IntentUnknown
}

func isSmalltalk(lower string) bool {
	words := strings.Fields(lower)
	if len(words) > 4 {
		return false
	}
	for _, w := range smalltalkWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

const classifyPrompt = `Klassificera följande svenska juridiska fråga i exakt en av kategorierna:
LEGAL_TEXT, PARLIAMENT_TRACE, POLICY_ARGUMENTS, RESEARCH_SYNTHESIS, PRACTICAL_PROCESS, EDGE_ABBREVIATION, EDGE_CLARIFICATION, SMALLTALK, UNKNOWN.
Svara endast med kategorinamnet.

Fråga: %s`

func (c *Classifier) llmClassify(ctx context.Context, standalone string) (ragtypes.Intent, error) {
	resp, err := c.provider.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "user", Content: fmt.Sprintf(classifyPrompt, standalone)},
		},
		Temperature: 0,
		MaxTokens:   16,
	})
	if err != nil {
		// Classification failures degrade to UNKNOWN (broad retrieval)
		// rather than aborting the request; CLASSIFY is mandatory but its
		// fallback is always defined.
		return ragtypes.IntentUnknown, nil
	}
	return normalizeIntent(resp.Content), nil
}

func normalizeIntent(raw string) ragtypes.Intent {
	candidate := ragtypes.Intent(strings.ToUpper(strings.TrimSpace(raw)))
	switch candidate {
	case ragtypes.IntentLegalText, ragtypes.IntentParliamentTrace, ragtypes.IntentPolicyArguments,
		ragtypes.IntentResearchSynthesis, ragtypes.IntentPracticalProcess, ragtypes.IntentEdgeAbbreviation,
		ragtypes.IntentEdgeClarification, ragtypes.IntentSmalltalk:
		return candidate
	default:
		return ragtypes.IntentUnknown
	}
}
