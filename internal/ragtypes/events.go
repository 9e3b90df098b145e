package ragtypes

// EventType discriminates the streamed SSE event union (C15).
type EventType string

const (
	EventMetadata        EventType = "metadata"
	EventPhase           EventType = "phase"
	EventDecontextualized EventType = "decontextualized"
	EventToken           EventType = "token"
	EventCorrections     EventType = "corrections"
	EventDone            EventType = "done"
	EventError           EventType = "error"
)

// ErrorKind is the coarse error-kind tag carried on error events (spec §7).
type ErrorKind string

const (
	ErrKindSecurityViolation   ErrorKind = "security_violation"
	ErrKindInput               ErrorKind = "input"
	ErrKindDependencyUnavailable ErrorKind = "dependency_unavailable"
	ErrKindCutoverViolation    ErrorKind = "cutover_violation"
	ErrKindTimeout             ErrorKind = "timeout"
	ErrKindInternal            ErrorKind = "internal"
)

// PhaseEvent marks a stage boundary in the orchestrator state machine.
type PhaseEvent struct {
	Phase string `json:"phase"`
}

// DecontextualizedEvent reports the rewrite result when a rewrite occurred.
type DecontextualizedEvent struct {
	Original   string   `json:"original"`
	Rewritten  string   `json:"rewritten"`
	Entities   []Entity `json:"entities,omitempty"`
}

// MetadataEvent precedes the first token event. Sources is the post-grade,
// pre-generation kept set (P1: always a subset of the graded keep set).
type MetadataEvent struct {
	Mode          Mode           `json:"mode"`
	Sources       []SearchResult `json:"sources"`
	EvidenceLevel EvidenceLevel  `json:"evidence_level"`
	Refusal       bool           `json:"refusal"`
}

// TokenEvent is one streamed text delta from the LLM, in production order.
type TokenEvent struct {
	Delta string `json:"delta"`
}

// TermCorrection is a single outdated-term substitution applied to the
// final answer.
type TermCorrection struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Confidence float64 `json:"confidence"`
}

// CorrectionsEvent is emitted once after generation if any corrections fired.
// It always precedes the terminal done event.
type CorrectionsEvent struct {
	Corrections []TermCorrection `json:"corrections"`
}

// Metrics is the append-only aggregate metrics record attached to done.
type Metrics struct {
	StageLatenciesMs map[string]int64 `json:"stage_latencies_ms"`
	RetrieverCounts  map[string]int   `json:"retriever_counts"`
	CutoverViolated  bool             `json:"cutover_violated"`
	FusionGain       float64          `json:"fusion_gain,omitempty"`
}

// DoneEvent is the terminal success event. At most one of Done/Error is
// ever emitted per stream (P7).
type DoneEvent struct {
	Answer  string  `json:"answer"`
	Metrics Metrics `json:"metrics"`
}

// ErrorEvent is the terminal failure event.
type ErrorEvent struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// StreamEvent is the discriminated union sent over SSE. Exactly one of the
// typed payload fields is non-nil, matching Type.
type StreamEvent struct {
	Type             EventType               `json:"type"`
	Phase            *PhaseEvent             `json:"phase,omitempty"`
	Decontextualized *DecontextualizedEvent  `json:"decontextualized,omitempty"`
	Metadata         *MetadataEvent          `json:"metadata,omitempty"`
	Token            *TokenEvent             `json:"token,omitempty"`
	Corrections      *CorrectionsEvent       `json:"corrections,omitempty"`
	Done             *DoneEvent              `json:"done,omitempty"`
	Error            *ErrorEvent             `json:"error,omitempty"`
}
