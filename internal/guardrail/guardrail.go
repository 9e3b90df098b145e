// Package guardrail implements the guardrail/policy stage (C13): query
// safety rejection, outdated-term corrections, citation validation, the
// evidence-level classifier, and the refusal decision. All stages are
// side-effect-free except for metrics the caller records separately.
// Grounded on the teacher's reasoning.validate/ComputeConfidence/
// ExtractCitations trio, generalized from English-contract heuristics to
// the spec's fixed Swedish policy rules.
package guardrail

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/itsimonfredlingjack/svenskrag/internal/ragerr"
	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
)

const maxQueryLength = 2000

// injectionPhrases is the closed dictionary of prompt-injection markers
// (spec §4.13.1). Swedish and English variants both appear since user
// queries arrive in either language.
var injectionPhrases = []string{
	"ignore instructions", "ignorera instruktionerna",
	"reveal system prompt", "visa systemprompten",
	"forget", "glöm",
	"pretend", "låtsas",
}

// CheckQuerySafety rejects queries that are abusively long, shouted,
// symbol-dense, or that match a known prompt-injection phrase.
func CheckQuerySafety(query string) error {
	if len(query) > maxQueryLength {
		return &ragerr.SecurityViolationError{Reason: "query exceeds maximum length"}
	}
	runes := []rune(query)
	if len(runes) > 50 {
		if ratio := uppercaseRatio(query); ratio > 0.8 {
			return &ragerr.SecurityViolationError{Reason: fmt.Sprintf("uppercase ratio %.2f exceeds threshold", ratio)}
		}
		if density := specialCharDensity(query); density > 0.3 {
			return &ragerr.SecurityViolationError{Reason: fmt.Sprintf("special-character density %.2f exceeds threshold", density)}
		}
	}
	lower := strings.ToLower(query)
	for _, phrase := range injectionPhrases {
		if strings.Contains(lower, phrase) {
			return &ragerr.SecurityViolationError{Reason: "matched prompt-injection phrase: " + phrase}
		}
	}
	return nil
}

func uppercaseRatio(s string) float64 {
	var upper, letters int
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(upper) / float64(letters)
}

func specialCharDensity(s string) float64 {
	var special, total int
	for _, r := range s {
		total++
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			special++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(special) / float64(total)
}

// outdatedTerm is one dictionary-driven substitution rule.
type outdatedTerm struct {
	pattern    *regexp.Regexp
	to         string
	confidence float64
}

// outdatedTerms is the spec §4.13.2 correction dictionary.
var outdatedTerms = []outdatedTerm{
	{regexp.MustCompile(`(?i)\bDatainspektionen\b`), "Integritetsskyddsmyndigheten (IMY)", 0.95},
	{regexp.MustCompile(`(?i)\bPersonuppgiftslagen\b`), "GDPR och Dataskyddslagen (2018:218)", 0.9},
	{regexp.MustCompile(`(?i)\bPuL\b`), "GDPR och Dataskyddslagen (2018:218)", 0.9},
}

// ApplyCorrections substitutes every outdated term found in answer and
// returns the corrected text plus the corrections that fired.
func ApplyCorrections(answer string) (string, []ragtypes.Correction) {
	corrected := answer
	var corrections []ragtypes.Correction
	for _, t := range outdatedTerms {
		matches := t.pattern.FindAllString(corrected, -1)
		if len(matches) == 0 {
			continue
		}
		corrected = t.pattern.ReplaceAllString(corrected, t.to)
		for _, m := range matches {
			corrections = append(corrections, ragtypes.Correction{From: m, To: t.to, Confidence: t.confidence})
		}
	}
	return corrected, corrections
}

func aggregateCorrectionConfidence(corrections []ragtypes.Correction) float64 {
	if len(corrections) == 0 {
		return 1.0
	}
	var sum float64
	for _, c := range corrections {
		sum += c.Confidence
	}
	return sum / float64(len(corrections))
}

// citationMarkerPattern matches "[Källa N]" style markers.
var citationMarkerPattern = regexp.MustCompile(`\[Källa\s+(\d+)\]`)

// ValidateCitations checks every citation marker in answer maps to an
// available source index (spec §4.13.3, evidence mode only).
func ValidateCitations(answer string, availableSources int) []string {
	var issues []string
	for _, m := range citationMarkerPattern.FindAllStringSubmatch(answer, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > availableSources {
			issues = append(issues, fmt.Sprintf("%s does not map to an available source", m[0]))
		}
	}
	return issues
}

func averageScore(results []ragtypes.SearchResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.Score
	}
	return sum / float64(len(results))
}

func filterByDocType(results []ragtypes.SearchResult, types ...string) []ragtypes.SearchResult {
	want := make(map[string]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var out []ragtypes.SearchResult
	for _, r := range results {
		if want[r.DocType] {
			out = append(out, r)
		}
	}
	return out
}

// ClassifyEvidence implements the exact threshold ladder of spec §4.13.4.
func ClassifyEvidence(kept []ragtypes.SearchResult) ragtypes.EvidenceLevel {
	if len(kept) == 0 {
		return ragtypes.EvidenceNone
	}
	overallAvg := averageScore(kept)
	statutory := filterByDocType(kept, "sfs", "proposition")

	switch {
	case (len(statutory) >= 2 && averageScore(statutory) > 0.55) || overallAvg > 0.60:
		return ragtypes.EvidenceHigh
	case len(kept) >= 2 && overallAvg > 0.45:
		return ragtypes.EvidenceMedium
	case len(kept) >= 1 && overallAvg > 0.30:
		return ragtypes.EvidenceLow
	default:
		return ragtypes.EvidenceNone
	}
}

// ShouldRefuse implements spec §4.13.5: evidence mode refuses to generate
// when no usable evidence was kept.
func ShouldRefuse(mode ragtypes.Mode, level ragtypes.EvidenceLevel) bool {
	return mode == ragtypes.ModeEvidence && level == ragtypes.EvidenceNone
}

// Evaluate runs the post-generation guardrail stages (2-5) over a
// generated answer and its kept sources, and returns the aggregate
// decision the orchestrator acts on.
func Evaluate(mode ragtypes.Mode, answer string, kept []ragtypes.SearchResult) ragtypes.GuardrailResult {
	corrected, corrections := ApplyCorrections(answer)

	var issues []string
	if mode == ragtypes.ModeEvidence {
		issues = ValidateCitations(corrected, len(kept))
	}

	level := ClassifyEvidence(kept)

	return ragtypes.GuardrailResult{
		Corrections:          corrections,
		CorrectionConfidence: aggregateCorrectionConfidence(corrections),
		CorrectedAnswer:      corrected,
		CitationIssues:       issues,
		EvidenceLevel:        level,
		Refuse:               ShouldRefuse(mode, level),
	}
}
