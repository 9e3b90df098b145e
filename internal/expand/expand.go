// Package expand implements the query expander (C4): a grammar-constrained
// LLM call producing paraphrase/lexical variants, with the fallback chain
// from spec §9 (retry without grammar, regex extraction, line-split
// parsing) when grammar-constrained decoding fails.
package expand

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/itsimonfredlingjack/svenskrag/internal/llm"
)

// DefaultCount is the default number of variants requested.
const DefaultCount = 3

// jsonArrayGrammar demands a JSON array of exactly n quoted strings.
func jsonArrayGrammar(n int) string {
	return `root ::= "[" ` + strings.Repeat(`ws string "," `, n-1) + `ws string ws "]"
string ::= "\"" [^"]* "\""
ws ::= [ \t\n]*`
}

var bracketPattern = regexp.MustCompile(`\[.*\]`)
var numberedLinePattern = regexp.MustCompile(`^\s*\d+[.):]\s*(.+)$`)

// Expander generates query variants via the configured LLM provider.
type Expander struct {
	provider llm.Provider
	useGrammar bool
}

// New constructs an Expander. useGrammar toggles whether grammar-constrained
// decoding is attempted first (QUERY_EXPANSION_USE_GRAMMAR).
func New(provider llm.Provider, useGrammar bool) *Expander {
	return &Expander{provider: provider, useGrammar: useGrammar}
}

const expandPrompt = `Generera %d alternativa formuleringar av följande svenska juridiska fråga, som fångar samma informationsbehov med andra ord. Svara som en JSON-lista med exakt %d strängar.

Fråga: %s`

// Expand returns up to count paraphrase variants of standalone, deduplicated
// case-insensitively and excluding the original query. On total failure it
// fails open, returning just the original query.
func (e *Expander) Expand(ctx context.Context, standalone string, count int) []string {
	if count <= 0 {
		count = DefaultCount
	}
	if e.provider == nil {
		return []string{standalone}
	}

	prompt := fmt.Sprintf(expandPrompt, count, count, standalone)

	var content string
	var err error
	if e.useGrammar {
		var resp *llm.ChatResponse
		resp, err = e.provider.Chat(ctx, llm.ChatRequest{
			Messages: []llm.Message{{Role: "user", Content: prompt}},
			Grammar:  jsonArrayGrammar(count),
		})
		if err == nil {
			content = resp.Content
		}
	}

	if content == "" {
		// Retry once without the grammar constraint.
		resp, retryErr := e.provider.Chat(ctx, llm.ChatRequest{
			Messages: []llm.Message{{Role: "user", Content: prompt}},
		})
		if retryErr == nil {
			content = resp.Content
		} else {
			err = retryErr
		}
	}

	if content == "" {
		return failOpen(standalone, nil)
	}

	variants := parseVariants(content)
	if len(variants) == 0 {
		return failOpen(standalone, nil)
	}

	return dedupExcludingOriginal(standalone, variants)
}

// parseVariants runs the fallback chain: JSON array extraction, then
// line-split numbered-list parsing.
func parseVariants(content string) []string {
	if m := bracketPattern.FindString(content); m != "" {
		if vs := parseJSONStringArray(m); len(vs) > 0 {
			return vs
		}
	}
	return parseNumberedLines(content)
}

func parseJSONStringArray(arr string) []string {
	inner := strings.TrimSpace(arr)
	inner = strings.TrimPrefix(inner, "[")
	inner = strings.TrimSuffix(inner, "]")
	var out []string
	for _, part := range splitTopLevelCommas(inner) {
		s := strings.TrimSpace(part)
		s = strings.Trim(s, `"`)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// splitTopLevelCommas splits on commas that are not inside quotes.
func splitTopLevelCommas(s string) []string {
	var parts []string
	var cur strings.Builder
	inQuote := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == ',' && !inQuote:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

func parseNumberedLines(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		if m := numberedLinePattern.FindStringSubmatch(line); len(m) == 2 {
			s := strings.TrimSpace(m[1])
			if s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func dedupExcludingOriginal(original string, variants []string) []string {
	lowerOriginal := strings.ToLower(strings.TrimSpace(original))
	seen := map[string]bool{lowerOriginal: true}
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		lower := strings.ToLower(strings.TrimSpace(v))
		if seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, v)
	}
	if len(out) == 0 {
		return failOpen(original, nil)
	}
	return out
}

func failOpen(original string, _ error) []string {
	return []string{original}
}
