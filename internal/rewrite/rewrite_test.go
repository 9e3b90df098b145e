package rewrite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
)

func TestRewrite_PronounResolution(t *testing.T) {
	r := New()
	history := []ragtypes.HistoryTurn{{Role: "user", Content: "Berätta om GDPR"}}

	result := r.Rewrite("Vad säger den om samtycke?", history)

	require.True(t, result.NeedsRewrite)
	assert.Contains(t, result.Standalone, "GDPR")
}

func TestRewrite_NoHistoryNoPronoun_Unchanged(t *testing.T) {
	r := New()

	result := r.Rewrite("Vad gäller för personuppgiftsbehandling enligt GDPR artikel 6?", nil)

	assert.Equal(t, result.Original, result.Standalone)
}

// P4: no entity appears in standalone that is absent from original ∪ history.
func TestRewrite_NoHallucinatedEntities(t *testing.T) {
	r := New()
	history := []ragtypes.HistoryTurn{{Role: "user", Content: "Vad säger Regeringsformen om yttrandefrihet?"}}

	result := r.Rewrite("Vad innebär detta i praktiken?", history)

	historyPlusOriginal := "Vad säger Regeringsformen om yttrandefrihet? Vad innebär detta i praktiken?"
	for _, e := range extractEntities(result.Standalone) {
		assert.True(t, strings.Contains(historyPlusOriginal, e.Value),
			"entity %q in standalone absent from original∪history", e.Value)
	}
}

func TestRewrite_LengthRatioBounds(t *testing.T) {
	r := New()
	history := []ragtypes.HistoryTurn{{Role: "user", Content: "Berätta om Skatteverket"}}

	result := r.Rewrite("Vad gör den?", history)

	ratio := float64(len(result.Standalone)) / float64(len(result.Original))
	assert.GreaterOrEqual(t, ratio, 0.5)
	assert.LessOrEqual(t, ratio, 3.0)
}

func TestBuildLexicalForm_ExpandsAbbreviationsAndStripsInterrogatives(t *testing.T) {
	got := buildLexicalForm("Vad säger GDPR om samtycke?")

	assert.NotContains(t, got, "vad")
	assert.Contains(t, got, "gdpr")
	assert.Contains(t, got, "dataskyddsförordningen")
}

func TestExtractEntities_SFSKapitelParagraf(t *testing.T) {
	entities := extractEntities("1974:152 2 kap. 1 §")

	var kinds []ragtypes.EntityType
	for _, e := range entities {
		kinds = append(kinds, e.Type)
	}
	assert.Contains(t, kinds, ragtypes.EntitySFS)
	assert.Contains(t, kinds, ragtypes.EntityKapitel)
	assert.Contains(t, kinds, ragtypes.EntityParagraf)
}
