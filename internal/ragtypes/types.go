// Package ragtypes holds the data model shared by every pipeline stage:
// the query envelope, legal references, entities, search results, and the
// discriminated stream-event union. Types here are immutable per request
// except where a field's doc comment says otherwise.
package ragtypes

// Mode selects the answering posture for a request.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeChat     Mode = "chat"
	ModeAssist   Mode = "assist"
	ModeEvidence Mode = "evidence"
)

// HistoryTurn is one turn of the short per-request conversation window.
type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// QueryEnvelope is the immutable request payload for one query.
type QueryEnvelope struct {
	Question string                 `json:"question"`
	Mode     Mode                   `json:"mode"`
	History  []HistoryTurn          `json:"history,omitempty"`
	K        int                    `json:"k,omitempty"`
	Filter   map[string]interface{} `json:"filter,omitempty"`
}

// ReferenceKind is the sum-type tag for LegalReference.
type ReferenceKind string

const (
	RefSFS          ReferenceKind = "sfs"
	RefSection      ReferenceKind = "section"
	RefProposition  ReferenceKind = "proposition"
	RefSOU          ReferenceKind = "sou"
	RefDs           ReferenceKind = "ds"
	RefBetankande   ReferenceKind = "betankande"
	RefNJA          ReferenceKind = "nja"
	RefHFD          ReferenceKind = "hfd"
	RefEU           ReferenceKind = "eu"
)

// LegalReference is a typed reference extracted from free-form legal prose.
type LegalReference struct {
	Kind           ReferenceKind `json:"kind"`
	RawMatch       string        `json:"raw_match"`
	TargetSFS      string        `json:"target_sfs,omitempty"`
	TargetChapter  string        `json:"target_chapter,omitempty"`
	TargetSection  string        `json:"target_section,omitempty"`
	Display        string        `json:"display"`
}

// EntityType is the sum-type tag for Entity.
type EntityType string

const (
	EntitySFS      EntityType = "sfs"
	EntityKapitel  EntityType = "kapitel"
	EntityParagraf EntityType = "paragraf"
	EntityLag      EntityType = "lag"
	EntityMyndighet EntityType = "myndighet"
)

// entityPriority ranks entity types for decontextualization and pronoun
// resolution: lag outranks myndighet outranks everything else.
var entityPriority = map[EntityType]int{
	EntityLag:       3,
	EntityMyndighet: 2,
	EntitySFS:       1,
	EntityKapitel:   1,
	EntityParagraf:  1,
}

// Priority returns the decontextualization priority of an entity type.
func (t EntityType) Priority() int {
	return entityPriority[t]
}

// Entity is a structured mention extracted from a question.
type Entity struct {
	Type  EntityType `json:"type"`
	Value string     `json:"value"`
}

// RewriteResult is the output of the query rewriter (C1).
type RewriteResult struct {
	Original          string   `json:"original"`
	Standalone        string   `json:"standalone"`
	Expanded          []string `json:"expanded,omitempty"`
	Lexical           string   `json:"lexical"`
	MustInclude       []string `json:"must_include"`
	DetectedEntities  []Entity `json:"detected_entities"`
	NeedsRewrite      bool     `json:"needs_rewrite"`
	LatencyMs         int64    `json:"latency_ms"`
}

// RetrieverTag identifies which retrieval method produced a SearchResult.
type RetrieverTag string

const (
	RetrieverDense RetrieverTag = "dense"
	RetrieverBM25  RetrieverTag = "bm25"
	RetrieverFused RetrieverTag = "fused"
)

// Tier is the routing tier a result was retrieved under.
type Tier string

const (
	TierPrimary   Tier = "primary"
	TierSupport   Tier = "support"
	TierSecondary Tier = "secondary"
)

// SFSMetadata carries the hierarchical structure of an SFS statute chunk.
type SFSMetadata struct {
	SFSNummer      string   `json:"sfs_nummer,omitempty"`
	Kortnamn       string   `json:"kortnamn,omitempty"`
	Kapitel        string   `json:"kapitel,omitempty"`
	KapitelRubrik  string   `json:"kapitel_rubrik,omitempty"`
	Paragraf       string   `json:"paragraf,omitempty"`
	StyckeCount    int      `json:"stycke_count,omitempty"`
	PunktCount     int      `json:"punkt_count,omitempty"`
	CrossRefs      []string `json:"cross_refs,omitempty"`
	AmendmentRef   string   `json:"amendment_ref,omitempty"`
	ParentChapterID string  `json:"parent_chapter_id,omitempty"`
	PrevParagrafID string   `json:"prev_paragraf_id,omitempty"`
	NextParagrafID string   `json:"next_paragraf_id,omitempty"`
	ContentHash    string   `json:"content_hash,omitempty"`
}

// SearchResult is a retrieved document with its fusion/rerank-mutable score.
// Score is the only mutable field after construction (rewritten by fusion
// and rerank stages); Metrics accumulation elsewhere is append-only.
type SearchResult struct {
	ID               string       `json:"id"`
	Title            string       `json:"title"`
	Snippet          string       `json:"snippet"`
	Score            float64      `json:"score"`
	SourceCollection string       `json:"source_collection"`
	DocType          string       `json:"doc_type"`
	RetrieverTag     RetrieverTag `json:"retriever_tag"`
	Tier             Tier         `json:"tier"`
	Metadata         *SFSMetadata `json:"metadata,omitempty"`
}

// ParentContext is the kapitel-level parent text a child chunk expands to.
type ParentContext struct {
	ParentID      string           `json:"parent_id"`
	SFSNummer     string           `json:"sfs_nummer"`
	LawName       string           `json:"law_name"`
	Kortnamn      string           `json:"kortnamn"`
	Kapitel       string           `json:"kapitel"`
	KapitelRubrik string           `json:"kapitel_rubrik"`
	FullText      string           `json:"full_text"`
	ChildCount    int              `json:"child_count"`
	References    []LegalReference `json:"references,omitempty"`
}

// RoutingConfig is the resolved collection routing for one request.
type RoutingConfig struct {
	Primary          []string `json:"primary"`
	Support          []string `json:"support"`
	Secondary        []string `json:"secondary"`
	SecondaryBudget  int      `json:"secondary_budget"`
	RequireSeparation bool    `json:"require_separation"`
}

// GradedDoc is the per-document output of the relevance grader.
type GradedDoc struct {
	DocID     string  `json:"doc_id"`
	Relevant  bool    `json:"relevant"`
	Score     float64 `json:"score"`
	Reason    string  `json:"reason"`
}

// GradingResult is the aggregate output of the grader (C10).
type GradingResult struct {
	PerDoc             []GradedDoc `json:"per_doc"`
	AggregateConfidence float64    `json:"aggregate_confidence"`
	KeepIDs            []string    `json:"keep_ids"`
}

// EvidenceLevel classifies how well-supported an answer is.
type EvidenceLevel string

const (
	EvidenceHigh   EvidenceLevel = "HIGH"
	EvidenceMedium EvidenceLevel = "MEDIUM"
	EvidenceLow    EvidenceLevel = "LOW"
	EvidenceNone   EvidenceLevel = "NONE"
)

// Intent is the fixed classification taxonomy (C2).
type Intent string

const (
	IntentLegalText         Intent = "LEGAL_TEXT"
	IntentParliamentTrace    Intent = "PARLIAMENT_TRACE"
	IntentPolicyArguments    Intent = "POLICY_ARGUMENTS"
	IntentResearchSynthesis  Intent = "RESEARCH_SYNTHESIS"
	IntentPracticalProcess   Intent = "PRACTICAL_PROCESS"
	IntentEdgeAbbreviation   Intent = "EDGE_ABBREVIATION"
	IntentEdgeClarification  Intent = "EDGE_CLARIFICATION"
	IntentSmalltalk          Intent = "SMALLTALK"
	IntentUnknown            Intent = "UNKNOWN"
)

// Correction is one outdated-term substitution applied to a generated
// answer (C13 stage 2).
type Correction struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Confidence float64 `json:"confidence"`
}

// GuardrailResult is the aggregate output of the guardrail/policy stage
// (C13): citation validation, evidence-level classification, and the
// refusal decision, plus any term corrections applied to the answer.
type GuardrailResult struct {
	Corrections           []Correction  `json:"corrections,omitempty"`
	CorrectionConfidence  float64       `json:"correction_confidence"`
	CorrectedAnswer       string        `json:"corrected_answer"`
	CitationIssues        []string      `json:"citation_issues,omitempty"`
	EvidenceLevel         EvidenceLevel `json:"evidence_level"`
	Refuse                bool          `json:"refuse"`
}
