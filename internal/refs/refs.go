// Package refs implements the reference extractor (C12): an ordered regex
// battery over free-form legal prose, producing typed, deduplicated
// LegalReference values the prompt composer surfaces as "Se även ..."
// annotations. The pattern style and suppression logic are grounded on the
// teacher's chunker.DetectCrossReferences, generalized from English
// contract idioms (clause/section/article) to Swedish statute idioms
// (stycke/kapitel/paragraf/SFS/förarbeten/praxis/EU-rätt).
package refs

import (
	"regexp"
	"strings"

	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
)

// matcher pairs a kind with the pattern that detects it. Order matters:
// the battery runs in priority order and earlier matches suppress
// lower-priority duplicates over the same target.
type matcher struct {
	kind    ragtypes.ReferenceKind
	pattern *regexp.Regexp
}

const (
	idxKapParagraf  = 1
	idxSFSExplicit  = 2
	idxImplicitSFS  = 10
	idxBareSection  = 11
)

var battery = []matcher{
	// stycke: "3 st." / "tredje stycket" attached to a preceding paragraf.
	{ragtypes.RefSection, regexp.MustCompile(`(?i)(\d+\s*§)\s*(\d+\s*st\.?|(?:första|andra|tredje|fjärde|femte)\s*stycket)`)},
	// kap+§: "3 kap. 2 §"
	{ragtypes.RefSection, regexp.MustCompile(`(?i)(\d+)\s*kap\.?\s*(\d+\s*[a-z]?)\s*§`)},
	// SFS-explicit: "SFS 1998:204", explicitly labeled.
	{ragtypes.RefSFS, regexp.MustCompile(`(?i)\bSFS\s*(\d{4}:\d+)`)},
	// proposition: "prop. 2017/18:105"
	{ragtypes.RefProposition, regexp.MustCompile(`(?i)\bprop\.?\s*(\d{4}/\d{2}:\d+)`)},
	// SOU: "SOU 2016:41"
	{ragtypes.RefSOU, regexp.MustCompile(`\bSOU\s*(\d{4}:\d+)`)},
	// Ds: "Ds 2019:23"
	{ragtypes.RefDs, regexp.MustCompile(`\bDs\s*(\d{4}:\d+)`)},
	// betänkande: "bet. 2018/19:KU24"
	{ragtypes.RefBetankande, regexp.MustCompile(`(?i)\bbet\.?\s*(\d{4}/\d{2}:\w+)`)},
	// NJA: "NJA 2015 s. 417"
	{ragtypes.RefNJA, regexp.MustCompile(`\bNJA\s*(\d{4}\s*s\.?\s*\d+)`)},
	// HFD: "HFD 2020 ref. 15"
	{ragtypes.RefHFD, regexp.MustCompile(`\bHFD\s*(\d{4}\s*ref\.?\s*\d+)`)},
	// EU: directive/regulation references.
	{ragtypes.RefEU, regexp.MustCompile(`(?i)\b((?:förordning|direktiv)\s*\(EU\)\s*\d+/\d+)`)},
	// implicit-SFS: a bare "year:num" not already labeled "SFS ", suppressed
	// when it is (index 10, see idxImplicitSFS).
	{ragtypes.RefSFS, regexp.MustCompile(`\b(\d{4}:\d{1,4})\b`)},
	// bare §: "12 §" with no preceding kapitel (index 11, see idxBareSection).
	{ragtypes.RefSection, regexp.MustCompile(`(\d+\s*[a-z]?)\s*§`)},
}

// Extract scans text with the ordered battery and returns deduplicated,
// suppression-filtered LegalReference values in first-seen order.
func Extract(text string) []ragtypes.LegalReference {
	seen := make(map[string]bool)
	capturedSections := make(map[string]bool) // section numbers already claimed by a kap+§ match
	var out []ragtypes.LegalReference

	for i, m := range battery {
		locs := m.pattern.FindAllStringSubmatchIndex(text, -1)
		for _, loc := range locs {
			raw := text[loc[0]:loc[1]]
			key := string(m.kind) + "|" + raw
			if seen[key] {
				continue
			}

			switch i {
			case idxKapParagraf:
				kap := group(text, loc, 1)
				sec := normalizeSection(group(text, loc, 2))
				capturedSections[sec] = true
				seen[key] = true
				out = append(out, ragtypes.LegalReference{
					Kind: m.kind, RawMatch: raw,
					TargetChapter: strings.TrimSpace(kap),
					TargetSection: sec,
					Display:       strings.TrimSpace(raw),
				})
			case idxSFSExplicit:
				seen[key] = true
				out = append(out, ragtypes.LegalReference{
					Kind: m.kind, RawMatch: raw, TargetSFS: group(text, loc, 1), Display: raw,
				})
			case idxImplicitSFS:
				if adjacentToSFSPrefix(text, loc[0]) {
					continue // explicit SFS already captured it
				}
				seen[key] = true
				out = append(out, ragtypes.LegalReference{
					Kind: m.kind, RawMatch: raw, TargetSFS: group(text, loc, 1), Display: raw,
				})
			case idxBareSection:
				sec := normalizeSection(group(text, loc, 1))
				if capturedSections[sec] {
					continue // already surfaced via kap+§
				}
				seen[key] = true
				out = append(out, ragtypes.LegalReference{
					Kind: m.kind, RawMatch: raw, TargetSection: sec, Display: strings.TrimSpace(raw),
				})
			default:
				seen[key] = true
				out = append(out, ragtypes.LegalReference{Kind: m.kind, RawMatch: raw, Display: strings.TrimSpace(raw)})
			}
		}
	}
	return out
}

// group returns the n-th (1-based) capturing group of a
// FindAllStringSubmatchIndex location, or "" if it did not participate.
func group(text string, loc []int, n int) string {
	start, end := loc[2*n], loc[2*n+1]
	if start < 0 {
		return ""
	}
	return text[start:end]
}

func normalizeSection(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// adjacentToSFSPrefix reports whether the text immediately preceding an
// implicit-SFS match already reads "SFS " (spec §4.12 suppression rule).
func adjacentToSFSPrefix(text string, matchStart int) bool {
	trimmed := strings.TrimRight(text[:matchStart], " ")
	return strings.HasSuffix(trimmed, "SFS")
}
