// Package metrics implements per-request tracing and aggregate counters
// (C16): a Trace record mirroring one request's full stage breakdown, and
// a Collector that rolls traces up into running totals for the stats
// surface. Grounded on the teacher's retrieval.SearchTrace, generalized
// from one hybrid-search call into the full multi-stage pipeline.
package metrics

import (
	"context"
	"log/slog"
	"sync"

	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
)

type requestIDKey struct{}

// WithRequestID attaches a request ID to ctx, for later retrieval by
// RequestIDFromContext when a trace is recorded.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID attached by WithRequestID, or
// "" if none was set.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Trace records the full breakdown of one request, for logging and for
// the /stats admin surface.
type Trace struct {
	RequestID        string           `json:"request_id"`
	Mode             ragtypes.Mode    `json:"mode"`
	Intent           ragtypes.Intent  `json:"intent"`
	DenseResults     int              `json:"dense_results"`
	BM25Results      int              `json:"bm25_results"`
	FusedResults     int              `json:"fused_results"`
	FusionGain       float64          `json:"fusion_gain"`
	RerankApplied    bool             `json:"rerank_applied"`
	KeptAfterGrade   int              `json:"kept_after_grade"`
	ParentsExpanded  int              `json:"parents_expanded"`
	EvidenceLevel    ragtypes.EvidenceLevel `json:"evidence_level"`
	Refused          bool             `json:"refused"`
	CorrectionsFired int              `json:"corrections_fired"`
	CutoverViolated  bool             `json:"cutover_violated"`
	StageLatenciesMs map[string]int64 `json:"stage_latencies_ms"`
	ErrorKind        string           `json:"error_kind,omitempty"`
}

// Log emits the trace as one structured slog record at Info level (Debug
// when the request ended in refusal, since refusals are routine and would
// otherwise flood the info stream).
func (t Trace) Log() {
	args := []any{
		"request_id", t.RequestID,
		"mode", t.Mode,
		"intent", t.Intent,
		"dense_results", t.DenseResults,
		"bm25_results", t.BM25Results,
		"fused_results", t.FusedResults,
		"fusion_gain", t.FusionGain,
		"rerank_applied", t.RerankApplied,
		"kept_after_grade", t.KeptAfterGrade,
		"evidence_level", t.EvidenceLevel,
		"refused", t.Refused,
		"corrections_fired", t.CorrectionsFired,
		"cutover_violated", t.CutoverViolated,
		"total_ms", t.StageLatenciesMs["total"],
		"error_kind", t.ErrorKind,
	}
	if t.Refused {
		slog.Debug("query: request complete", args...)
		return
	}
	slog.Info("query: request complete", args...)
}

// Aggregate is the running set of counters exposed by /stats.
type Aggregate struct {
	TotalRequests    int64            `json:"total_requests"`
	RefusalCount     int64            `json:"refusal_count"`
	ErrorCount       int64            `json:"error_count"`
	ByIntent         map[ragtypes.Intent]int64       `json:"by_intent"`
	ByEvidenceLevel  map[ragtypes.EvidenceLevel]int64 `json:"by_evidence_level"`
	AvgTotalMs       float64          `json:"avg_total_ms"`
	AvgFusionGain    float64          `json:"avg_fusion_gain"`
	totalMsSum       int64
	fusionGainSum    float64
}

// Collector aggregates Trace records under a mutex, for concurrent request
// handlers sharing one process-wide stats surface.
type Collector struct {
	mu  sync.Mutex
	agg Aggregate
}

// NewCollector constructs an empty Collector.
func NewCollector() *Collector {
	return &Collector{agg: Aggregate{
		ByIntent:        make(map[ragtypes.Intent]int64),
		ByEvidenceLevel: make(map[ragtypes.EvidenceLevel]int64),
	}}
}

// Record folds one completed request's trace into the running aggregate
// and logs it.
func (c *Collector) Record(t Trace) {
	t.Log()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.agg.TotalRequests++
	if t.Refused {
		c.agg.RefusalCount++
	}
	if t.ErrorKind != "" {
		c.agg.ErrorCount++
	}
	c.agg.ByIntent[t.Intent]++
	c.agg.ByEvidenceLevel[t.EvidenceLevel]++
	c.agg.totalMsSum += t.StageLatenciesMs["total"]
	c.agg.fusionGainSum += t.FusionGain
	c.agg.AvgTotalMs = float64(c.agg.totalMsSum) / float64(c.agg.TotalRequests)
	c.agg.AvgFusionGain = c.agg.fusionGainSum / float64(c.agg.TotalRequests)
}

// Snapshot returns a copy of the current aggregate, safe to serialize
// from a concurrent /stats handler.
func (c *Collector) Snapshot() Aggregate {
	c.mu.Lock()
	defer c.mu.Unlock()

	byIntent := make(map[ragtypes.Intent]int64, len(c.agg.ByIntent))
	for k, v := range c.agg.ByIntent {
		byIntent[k] = v
	}
	byLevel := make(map[ragtypes.EvidenceLevel]int64, len(c.agg.ByEvidenceLevel))
	for k, v := range c.agg.ByEvidenceLevel {
		byLevel[k] = v
	}
	out := c.agg
	out.ByIntent = byIntent
	out.ByEvidenceLevel = byLevel
	return out
}
