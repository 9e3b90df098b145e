// Package routing implements the fixed routing table (C3): intent maps
// deterministically to a RoutingConfig. The table is spec-fixed (§4.3) and
// exposes no mutation entry points.
package routing

import "github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"

// Collection names as used by the corpus store's collection column.
const (
	CollectionSFS     = "sfs"
	CollectionDiVA    = "diva"
	CollectionRiksdag = "riksdag"
	CollectionGov     = "gov"
	CollectionGuides  = "guides"
)

// table is the unexported literal routing map. LEGAL_TEXT must never
// reference DiVA in any tier (P2); this is enforced structurally here, not
// just by convention, since the map is the single source of truth.
var table = map[ragtypes.Intent]ragtypes.RoutingConfig{
	ragtypes.IntentLegalText: {
		Primary: []string{CollectionSFS},
	},
	ragtypes.IntentResearchSynthesis: {
		Primary: []string{CollectionDiVA},
	},
	ragtypes.IntentParliamentTrace: {
		Primary:         []string{CollectionRiksdag, CollectionGov},
		Secondary:       []string{CollectionDiVA},
		SecondaryBudget: 2,
	},
	ragtypes.IntentPolicyArguments: {
		Primary:           []string{CollectionRiksdag, CollectionSFS},
		Secondary:         []string{CollectionDiVA},
		SecondaryBudget:   2,
		RequireSeparation: true,
	},
	ragtypes.IntentPracticalProcess: {
		Primary: []string{CollectionGuides, CollectionSFS},
	},
	ragtypes.IntentSmalltalk: {},
	ragtypes.IntentUnknown: {
		Primary:         []string{CollectionSFS, CollectionRiksdag, CollectionGov},
		Secondary:       []string{CollectionDiVA},
		SecondaryBudget: 2,
	},
}

// Route returns the RoutingConfig for an intent. Intents absent from the
// table (EDGE_ABBREVIATION, EDGE_CLARIFICATION) route the same as UNKNOWN:
// broad retrieval is the safe default when an edge-case label carries no
// collection guidance of its own.
func Route(in ragtypes.Intent) ragtypes.RoutingConfig {
	if cfg, ok := table[in]; ok {
		return cfg
	}
	return table[ragtypes.IntentUnknown]
}

// knownCollections is the set of current, non-legacy collection names. A
// client filter naming anything outside this set is requesting a legacy
// collection and falls under the cutover policy (spec §5).
var knownCollections = map[string]bool{
	CollectionSFS:     true,
	CollectionDiVA:    true,
	CollectionRiksdag: true,
	CollectionGov:     true,
	CollectionGuides:  true,
}

// IsKnownCollection reports whether name is one of the current collection
// names, as opposed to a deprecated/legacy one.
func IsKnownCollection(name string) bool {
	return knownCollections[name]
}
