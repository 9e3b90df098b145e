package refs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
)

func kinds(refs []ragtypes.LegalReference) []ragtypes.ReferenceKind {
	out := make([]ragtypes.ReferenceKind, len(refs))
	for i, r := range refs {
		out[i] = r.Kind
	}
	return out
}

func TestExtract_KapParagrafRecognized(t *testing.T) {
	out := Extract("Se 3 kap. 2 § i lagen.")

	require.NotEmpty(t, out)
	assert.Equal(t, ragtypes.RefSection, out[0].Kind)
	assert.Equal(t, "3", out[0].TargetChapter)
	assert.Equal(t, "2", out[0].TargetSection)
}

// Once a kap+§ claims a section number, a bare § for the same number is
// suppressed (spec §4.12).
func TestExtract_BareSectionSuppressedAfterKapParagraf(t *testing.T) {
	out := Extract("Enligt 3 kap. 2 § gäller även 2 § i övrigt.")

	count := 0
	for _, r := range out {
		if r.Kind == ragtypes.RefSection {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

// implicit-SFS is suppressed when the match is immediately preceded by the
// literal "SFS " label, since SFS-explicit already captured it.
func TestExtract_ImplicitSFSSuppressedAfterExplicitLabel(t *testing.T) {
	out := Extract("Se SFS 1998:204 för detaljer.")

	count := 0
	for _, r := range out {
		if r.Kind == ragtypes.RefSFS {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, "1998:204", out[0].TargetSFS)
}

func TestExtract_BareYearColonNumberCapturedAsImplicit(t *testing.T) {
	out := Extract("jfr 1998:204 angående personuppgifter")

	require.Len(t, out, 1)
	assert.Equal(t, ragtypes.RefSFS, out[0].Kind)
}

func TestExtract_PropositionAndSOU(t *testing.T) {
	out := Extract("Se prop. 2017/18:105 och SOU 2016:41.")

	got := kinds(out)
	assert.Contains(t, got, ragtypes.RefProposition)
	assert.Contains(t, got, ragtypes.RefSOU)
}

func TestExtract_DeduplicatesByKindAndRawMatch(t *testing.T) {
	out := Extract("3 kap. 2 § och igen 3 kap. 2 §.")

	count := 0
	for _, r := range out {
		if r.RawMatch == "3 kap. 2 §" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

// P8: idempotency — extracting twice over the same text yields the same
// result.
func TestExtract_Idempotent(t *testing.T) {
	text := "Se 3 kap. 2 § och SFS 1998:204, prop. 2017/18:105."
	first := Extract(text)
	second := Extract(text)
	assert.Equal(t, first, second)
}
