// Package rewrite implements the query rewriter (C1): it turns a
// possibly-elliptical follow-up question plus conversation history into a
// standalone, entity-preserving query, grounded on the teacher's
// chunker/legal.go regex style and retrieval/helpers.go entity extraction.
package rewrite

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
)

var (
	sfsPattern      = regexp.MustCompile(`\d{4}:\d{2,}`)
	kapitelPattern  = regexp.MustCompile(`(\d+[a-z]?)\s*kap\.?`)
	paragrafPattern = regexp.MustCompile(`(\d+[a-z]?)\s*§`)
)

// referentialPronouns is the closed set whose presence triggers a rewrite.
var referentialPronouns = []string{
	"den här", "det där", // multi-word forms checked first
	"den", "det", "dessa", "detta", "denna", "ovanstående", "nämnda",
}

// abbreviations is the closed dictionary of legal abbreviations that count
// as entities on their own, expanded to their canonical full names for the
// lexical form.
var abbreviations = map[string]string{
	"TF":   "Tryckfrihetsförordningen",
	"YGL":  "Yttrandefrihetsgrundlagen",
	"RF":   "Regeringsformen",
	"OSL":  "Offentlighets- och sekretesslagen",
	"FL":   "Förvaltningslagen",
	"GDPR": "Dataskyddsförordningen",
	"LAS":  "Lagen om anställningsskydd",
}

// authorityNames is a closed set of myndighet entities recognized by name.
var authorityNames = []string{
	"Integritetsskyddsmyndigheten", "IMY",
	"Skatteverket", "Justitiekanslern", "JO",
	"Riksdagen", "Regeringen", "Domstolsverket",
}

// interrogatives are stripped from the lexical form.
var interrogatives = []string{
	"vad", "vilken", "vilket", "vilka", "hur", "när", "var", "varför",
}

// Rewriter produces a RewriteResult from a question and its history.
type Rewriter struct{}

// New constructs a Rewriter. It has no dependencies; all rules are local.
func New() *Rewriter {
	return &Rewriter{}
}

// Rewrite implements C1 in full: entity detection, decontextualization,
// must-include computation, and lexical-form derivation.
func (r *Rewriter) Rewrite(original string, history []ragtypes.HistoryTurn) ragtypes.RewriteResult {
	start := time.Now()

	entities := extractEntities(original)
	needsRewrite := containsReferentialPronoun(original) || (wordCount(original) <= 3 && len(entities) == 0)

	standalone := original
	if needsRewrite {
		historyText := joinHistory(history)
		historyEntities := extractEntities(historyText)
		if target := pickSalient(historyEntities); target != nil {
			standalone = substitutePronoun(original, target.Value)
		}
	}

	mustInclude := uniqueValues(entities)
	if needsRewrite && standalone != original {
		for _, e := range extractEntities(standalone) {
			mustInclude = appendUnique(mustInclude, e.Value)
		}
	}

	lexical := buildLexicalForm(standalone)

	return ragtypes.RewriteResult{
		Original:         original,
		Standalone:       standalone,
		Lexical:          lexical,
		MustInclude:      mustInclude,
		DetectedEntities: entities,
		NeedsRewrite:     needsRewrite,
		LatencyMs:        time.Since(start).Milliseconds(),
	}
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func containsReferentialPronoun(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range referentialPronouns {
		if containsWord(lower, p) {
			return true
		}
	}
	return false
}

// containsWord checks for p as a whole-word (or whole-phrase) match within s.
func containsWord(s, p string) bool {
	for from := 0; from < len(s); {
		i := strings.Index(s[from:], p)
		if i < 0 {
			return false
		}
		idx := from + i
		before := idx == 0 || !unicode.IsLetter(rune(s[idx-1]))
		after := idx+len(p) >= len(s) || !unicode.IsLetter(rune(s[idx+len(p)]))
		if before && after {
			return true
		}
		from = idx + 1
	}
	return false
}

// extractEntities pulls SFS numbers, kapitel/paragraf references, legal
// abbreviations, and known authority names out of free text.
func extractEntities(text string) []ragtypes.Entity {
	var entities []ragtypes.Entity

	for _, m := range sfsPattern.FindAllString(text, -1) {
		entities = append(entities, ragtypes.Entity{Type: ragtypes.EntitySFS, Value: m})
	}
	for _, m := range kapitelPattern.FindAllStringSubmatch(text, -1) {
		entities = append(entities, ragtypes.Entity{Type: ragtypes.EntityKapitel, Value: m[1] + " kap."})
	}
	for _, m := range paragrafPattern.FindAllStringSubmatch(text, -1) {
		entities = append(entities, ragtypes.Entity{Type: ragtypes.EntityParagraf, Value: m[1] + " §"})
	}

	words := strings.Fields(text)
	for _, w := range words {
		clean := strings.Trim(w, ".,;:!?()[]")
		if _, ok := abbreviations[strings.ToUpper(clean)]; ok {
			entities = append(entities, ragtypes.Entity{Type: ragtypes.EntityLag, Value: strings.ToUpper(clean)})
		}
	}
	for _, name := range authorityNames {
		if strings.Contains(text, name) {
			entities = append(entities, ragtypes.Entity{Type: ragtypes.EntityMyndighet, Value: name})
		}
	}

	return dedupEntities(entities)
}

func dedupEntities(entities []ragtypes.Entity) []ragtypes.Entity {
	seen := make(map[string]bool, len(entities))
	out := make([]ragtypes.Entity, 0, len(entities))
	for _, e := range entities {
		key := string(e.Type) + "|" + e.Value
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}

// pickSalient returns the highest-priority entity (lag > myndighet > others).
func pickSalient(entities []ragtypes.Entity) *ragtypes.Entity {
	var best *ragtypes.Entity
	bestPriority := -1
	for i := range entities {
		p := entities[i].Type.Priority()
		if p > bestPriority {
			bestPriority = p
			best = &entities[i]
		}
	}
	return best
}

// substitutePronoun replaces the first referential pronoun in s with value,
// preserving everything else.
func substitutePronoun(s, value string) string {
	lower := strings.ToLower(s)
	for _, p := range referentialPronouns {
		if idx := indexOfWord(lower, p); idx >= 0 {
			return s[:idx] + value + s[idx+len(p):]
		}
	}
	return s
}

func indexOfWord(s, p string) int {
	idx := strings.Index(s, p)
	if idx < 0 {
		return -1
	}
	before := idx == 0 || !unicode.IsLetter(rune(s[idx-1]))
	after := idx+len(p) >= len(s) || !unicode.IsLetter(rune(s[idx+len(p)]))
	if before && after {
		return idx
	}
	return -1
}

func joinHistory(history []ragtypes.HistoryTurn) string {
	var b strings.Builder
	for _, h := range history {
		b.WriteString(h.Content)
		b.WriteString(" ")
	}
	return b.String()
}

func uniqueValues(entities []ragtypes.Entity) []string {
	seen := make(map[string]bool, len(entities))
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		if seen[e.Value] {
			continue
		}
		seen[e.Value] = true
		out = append(out, e.Value)
	}
	return out
}

func appendUnique(values []string, v string) []string {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}

// buildLexicalForm strips interrogatives, expands abbreviations, and folds
// case while preserving åäö, producing a form better suited to sparse
// (BM25) matching than the natural-language standalone form.
func buildLexicalForm(s string) string {
	words := strings.Fields(s)
	out := make([]string, 0, len(words))
	for _, w := range words {
		clean := strings.Trim(w, ".,;:!?")
		lower := strings.ToLower(clean)
		if isInterrogative(lower) {
			continue
		}
		if full, ok := abbreviations[strings.ToUpper(clean)]; ok {
			out = append(out, lower, strings.ToLower(full))
			continue
		}
		out = append(out, lower)
	}
	return strings.Join(out, " ")
}

func isInterrogative(w string) bool {
	for _, q := range interrogatives {
		if w == q {
			return true
		}
	}
	return false
}
