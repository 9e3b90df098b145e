package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
)

func TestCompose_EvidenceModeIncludesContextAndGroundingPolicy(t *testing.T) {
	sources := []ragtypes.SearchResult{{Title: "Offentlighets- och sekretesslagen", Snippet: "Handlingar ska..."}}

	out := Compose(ragtypes.ModeEvidence, "Vad gäller?", sources, false)

	assert.Contains(t, out, "[Källa 1: Offentlighets- och sekretesslagen]")
	assert.Contains(t, out, "Citera källtexten ordagrant")
	assert.Contains(t, out, "{{CONSTITUTIONAL_EXAMPLES}}")
}

func TestCompose_ChatModeSkipsContextBlock(t *testing.T) {
	sources := []ragtypes.SearchResult{{Title: "Irrelevant", Snippet: "text"}}

	out := Compose(ragtypes.ModeChat, "Hej!", sources, false)

	assert.NotContains(t, out, "[Källa 1")
	assert.Contains(t, out, "Inget källunderlag")
}

func TestCompose_StructuredOutputInjectsSchema(t *testing.T) {
	out := Compose(ragtypes.ModeEvidence, "Fråga", nil, true)

	assert.Contains(t, out, "saknas_underlag")
}

func TestContextBlock_SFSEntryCarriesPriorityMarkerAndAnnotations(t *testing.T) {
	sources := []ragtypes.SearchResult{{
		Title:   "2018:218",
		Snippet: "Lagtext",
		Metadata: &ragtypes.SFSMetadata{
			StyckeCount:  2,
			CrossRefs:    []string{"3 kap. 2 §"},
			AmendmentRef: "2022:123",
		},
	}}

	out := ContextBlock(sources)

	assert.True(t, strings.HasPrefix(out, "★"))
	assert.Contains(t, out, "2 stycken")
	assert.Contains(t, out, "Se även 3 kap. 2 §")
	assert.Contains(t, out, "Senast ändrad 2022:123")
}

func TestContextBlock_NonSFSEntryHasNoPriorityMarker(t *testing.T) {
	out := ContextBlock([]ragtypes.SearchResult{{Title: "DiVA-rapport", Snippet: "text"}})

	assert.False(t, strings.HasPrefix(out, "★"))
}

func TestIsTruncated_FlagsColonEnding(t *testing.T) {
	assert.True(t, IsTruncated("Följande gäller:"))
}

func TestIsTruncated_FlagsTrailingListCue(t *testing.T) {
	assert.True(t, IsTruncated("Detta gäller för lagen och"))
}

func TestIsTruncated_FalseForCompleteAnswer(t *testing.T) {
	assert.False(t, IsTruncated("Detta är ett komplett svar."))
}

func TestIsTruncated_FalseForEmptyAnswer(t *testing.T) {
	assert.False(t, IsTruncated(""))
}
