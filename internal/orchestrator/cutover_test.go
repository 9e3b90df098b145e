package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
)

func withCollectionsFilter(names ...string) map[string]interface{} {
	list := make([]interface{}, len(names))
	for i, n := range names {
		list[i] = n
	}
	return map[string]interface{}{"collections": list}
}

// Cutover disabled: a legacy collection name is served, but the violation
// is recorded on the terminal metrics rather than failing the request.
func TestRun_CutoverDisabledRecordsViolationWithoutFailing(t *testing.T) {
	provider := fakeProvider{gradeAllRelevant: true, tokens: []string{"Svar."}}
	o := New(newTestDeps(provider), Options{CutoverEnforce: false})

	events := collectEvents(o, ragtypes.QueryEnvelope{
		Question: "Vad säger 3 kap. 2 § om saken?",
		Mode:     ragtypes.ModeAssist,
		Filter:   withCollectionsFilter("legacy_sfs_v1"),
	})

	doneIdx := indexOfType(events, ragtypes.EventDone)
	require.NotEqual(t, -1, doneIdx)
	assert.Equal(t, -1, indexOfType(events, ragtypes.EventError))
	assert.True(t, events[doneIdx].Done.Metrics.CutoverViolated)
}

// Cutover enforced: a legacy collection name not on the allowlist fails the
// request with a single CutoverViolation error event (spec §7 item 4).
func TestRun_CutoverEnforcedRejectsUnlistedLegacyCollection(t *testing.T) {
	provider := fakeProvider{gradeAllRelevant: true, tokens: []string{"Svar."}}
	o := New(newTestDeps(provider), Options{CutoverEnforce: true})

	events := collectEvents(o, ragtypes.QueryEnvelope{
		Question: "Vad säger 3 kap. 2 § om saken?",
		Mode:     ragtypes.ModeAssist,
		Filter:   withCollectionsFilter("legacy_sfs_v1"),
	})

	errIdx := indexOfType(events, ragtypes.EventError)
	require.NotEqual(t, -1, errIdx)
	assert.Equal(t, ragtypes.ErrKindCutoverViolation, events[errIdx].Error.Kind)
	assert.Equal(t, -1, indexOfType(events, ragtypes.EventDone))

	terminals := 0
	for _, e := range events {
		if e.Type == ragtypes.EventDone || e.Type == ragtypes.EventError {
			terminals++
		}
	}
	assert.Equal(t, 1, terminals)
}

// An allow-listed legacy collection is never a violation, even with
// enforcement on.
func TestRun_CutoverAllowlistOverridesBlock(t *testing.T) {
	provider := fakeProvider{gradeAllRelevant: true, tokens: []string{"Svar."}}
	o := New(newTestDeps(provider), Options{
		CutoverEnforce:                    true,
		CutoverAllowedFallbackCollections: []string{"legacy_sfs_v1"},
	})

	events := collectEvents(o, ragtypes.QueryEnvelope{
		Question: "Vad säger 3 kap. 2 § om saken?",
		Mode:     ragtypes.ModeAssist,
		Filter:   withCollectionsFilter("legacy_sfs_v1"),
	})

	doneIdx := indexOfType(events, ragtypes.EventDone)
	require.NotEqual(t, -1, doneIdx)
	assert.Equal(t, -1, indexOfType(events, ragtypes.EventError))
	assert.False(t, events[doneIdx].Done.Metrics.CutoverViolated)
}

// A request without a collections filter is never a cutover concern.
func TestRun_NoFilterOverrideNeverViolatesCutover(t *testing.T) {
	provider := fakeProvider{gradeAllRelevant: true, tokens: []string{"Svar."}}
	o := New(newTestDeps(provider), Options{CutoverEnforce: true})

	events := collectEvents(o, ragtypes.QueryEnvelope{
		Question: "Vad säger 3 kap. 2 § om saken?",
		Mode:     ragtypes.ModeAssist,
	})

	doneIdx := indexOfType(events, ragtypes.EventDone)
	require.NotEqual(t, -1, doneIdx)
	assert.False(t, events[doneIdx].Done.Metrics.CutoverViolated)
}
