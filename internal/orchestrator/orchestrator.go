// Package orchestrator implements the streaming state machine (C15) that
// drives one request from raw question to a streamed, guardrailed answer:
// INIT -> SAFETY -> CLASSIFY -> (CHAT_GEN | REWRITE -> EXPAND -> RETRIEVE ->
// FUSE -> RERANK -> GRADE -> EXPAND_PARENTS -> COMPOSE -> GEN) -> POST ->
// DONE, with ERROR reachable from any state. Grounded on the teacher's
// engine.Query sequential-stage pipeline (goreason.go), generalized from a
// single synchronous call into an event-emitting state machine.
package orchestrator

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/itsimonfredlingjack/svenskrag/internal/dense"
	"github.com/itsimonfredlingjack/svenskrag/internal/embedding"
	"github.com/itsimonfredlingjack/svenskrag/internal/expand"
	"github.com/itsimonfredlingjack/svenskrag/internal/fusion"
	"github.com/itsimonfredlingjack/svenskrag/internal/grade"
	"github.com/itsimonfredlingjack/svenskrag/internal/guardrail"
	"github.com/itsimonfredlingjack/svenskrag/internal/intent"
	"github.com/itsimonfredlingjack/svenskrag/internal/lexical"
	"github.com/itsimonfredlingjack/svenskrag/internal/llm"
	"github.com/itsimonfredlingjack/svenskrag/internal/metrics"
	"github.com/itsimonfredlingjack/svenskrag/internal/parentctx"
	"github.com/itsimonfredlingjack/svenskrag/internal/prompt"
	"github.com/itsimonfredlingjack/svenskrag/internal/ragerr"
	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
	"github.com/itsimonfredlingjack/svenskrag/internal/rerank"
	"github.com/itsimonfredlingjack/svenskrag/internal/rewrite"
	"github.com/itsimonfredlingjack/svenskrag/internal/routing"
)

// Emit delivers one stream event to the request's SSE connection, in
// production order.
type Emit func(ragtypes.StreamEvent)

// Deps are the pipeline stage implementations the orchestrator wires
// together. Reranker may be nil to disable the rerank stage; Lexical may
// be nil to force dense-only retrieval (spec §5 BM25-unavailable fallback).
type Deps struct {
	Rewriter   *rewrite.Rewriter
	Classifier *intent.Classifier
	Expander   *expand.Expander
	Embedder   *embedding.Adapter
	Dense      *dense.Retriever
	Lexical    *lexical.Retriever
	Reranker   *rerank.Reranker
	Grader     *grade.Grader
	Parents    *parentctx.Resolver
	Provider   llm.Provider
	Metrics    *metrics.Collector // optional; nil disables trace recording
}

// Options configures retrieval width and output formatting.
type Options struct {
	StructuredOutput bool
	RetrieveK        int
	ExpandCount      int
	RRFK             int
	BM25Weight       float64

	// CutoverEnforce and CutoverAllowedFallbackCollections implement the
	// legacy-collection cutover policy (spec §5).
	CutoverEnforce                    bool
	CutoverAllowedFallbackCollections []string
}

// Orchestrator runs one request at a time, reentrant across concurrent
// callers: each Run call holds only its own local state.
type Orchestrator struct {
	deps Deps
	opts Options
}

// New constructs an Orchestrator. RetrieveK<=0 defaults to 20, ExpandCount<=0
// defaults to 3.
func New(deps Deps, opts Options) *Orchestrator {
	if opts.RetrieveK <= 0 {
		opts.RetrieveK = 20
	}
	if opts.ExpandCount <= 0 {
		opts.ExpandCount = 3
	}
	return &Orchestrator{deps: deps, opts: opts}
}

// Run drives req through the full state machine, delivering events via
// emit. Run never panics on pipeline errors; every failure path terminates
// with exactly one error event (P7: at most one of done/error per stream).
func (o *Orchestrator) Run(ctx context.Context, req ragtypes.QueryEnvelope, emit Emit) {
	start := time.Now()
	stages := map[string]int64{}
	tr := metrics.Trace{RequestID: metrics.RequestIDFromContext(ctx)}

	fail := func(err error) {
		emitError(emit, err)
		tr.ErrorKind = string(ragerr.KindOf(err))
		o.recordTrace(tr, stages, start)
	}

	emit(phaseEvent("INIT"))
	emit(phaseEvent("SAFETY"))
	if err := guardrail.CheckQuerySafety(req.Question); err != nil {
		fail(err)
		return
	}

	emit(phaseEvent("CLASSIFY"))
	t0 := time.Now()
	rewriteResult := o.deps.Rewriter.Rewrite(req.Question, req.History)
	standalone := rewriteResult.Standalone

	in, err := o.deps.Classifier.Classify(ctx, standalone)
	if err != nil {
		fail(err)
		return
	}
	stages["classify"] = time.Since(t0).Milliseconds()
	tr.Intent = in

	mode := resolveMode(req.Mode, in)
	tr.Mode = mode

	if mode == ragtypes.ModeChat {
		o.runChat(ctx, standalone, emit, stages, start, tr)
		return
	}

	if rewriteResult.NeedsRewrite && rewriteResult.Standalone != rewriteResult.Original {
		emit(ragtypes.StreamEvent{
			Type: ragtypes.EventDecontextualized,
			Decontextualized: &ragtypes.DecontextualizedEvent{
				Original:  rewriteResult.Original,
				Rewritten: rewriteResult.Standalone,
				Entities:  rewriteResult.DetectedEntities,
			},
		})
	}
	emit(phaseEvent("REWRITE"))

	emit(phaseEvent("EXPAND"))
	t0 = time.Now()
	expansions := o.deps.Expander.Expand(ctx, standalone, o.opts.ExpandCount)
	stages["expand"] = time.Since(t0).Milliseconds()

	emit(phaseEvent("RETRIEVE"))
	t0 = time.Now()
	routingCfg := routing.Route(in)
	cutoverViolated := false
	if override := collectionOverride(req.Filter); len(override) > 0 {
		offending := cutoverOffenders(override, o.opts.CutoverAllowedFallbackCollections)
		if len(offending) > 0 {
			cutoverViolated = true
			if o.opts.CutoverEnforce {
				fail(&ragerr.CutoverViolationError{Collections: offending})
				return
			}
		}
		routingCfg = ragtypes.RoutingConfig{Primary: override}
	}
	tr.CutoverViolated = cutoverViolated
	candidates, fusionMetrics, retrieveErr := o.retrieve(ctx, standalone, expansions, routingCfg)
	stages["retrieve"] = time.Since(t0).Milliseconds()
	if retrieveErr != nil {
		fail(retrieveErr)
		return
	}
	tr.FusedResults = len(candidates)
	tr.FusionGain = fusionMetrics.FusionGain
	emit(phaseEvent("FUSE"))

	emit(phaseEvent("RERANK"))
	t0 = time.Now()
	if o.deps.Reranker != nil && len(candidates) >= 2 {
		if reranked, rerr := o.deps.Reranker.Rerank(ctx, standalone, candidates); rerr == nil {
			candidates = reranked
			tr.RerankApplied = true
		}
	}
	stages["rerank"] = time.Since(t0).Milliseconds()

	emit(phaseEvent("GRADE"))
	t0 = time.Now()
	gradeResult := o.deps.Grader.Grade(ctx, standalone, candidates)
	kept := filterKept(candidates, gradeResult.KeepIDs)
	stages["grade"] = time.Since(t0).Milliseconds()
	tr.KeptAfterGrade = len(kept)

	emit(phaseEvent("EXPAND_PARENTS"))
	t0 = time.Now()
	var parents []ragtypes.ParentContext
	if o.deps.Parents != nil {
		parents = o.deps.Parents.Expand(ctx, kept)
	}
	stages["expand_parents"] = time.Since(t0).Milliseconds()
	tr.ParentsExpanded = len(parents)

	evidenceLevel := guardrail.ClassifyEvidence(kept)
	refuse := guardrail.ShouldRefuse(mode, evidenceLevel)
	tr.EvidenceLevel = evidenceLevel
	tr.Refused = refuse

	emit(ragtypes.StreamEvent{
		Type: ragtypes.EventMetadata,
		Metadata: &ragtypes.MetadataEvent{
			Mode: mode, Sources: kept, EvidenceLevel: evidenceLevel, Refusal: refuse,
		},
	})

	if refuse {
		emit(doneEvent(refusalAnswer, stages, fusionMetrics, cutoverViolated, start))
		o.recordTrace(tr, stages, start)
		return
	}

	emit(phaseEvent("COMPOSE"))
	t0 = time.Now()
	composed := prompt.Compose(mode, standalone, append(kept, parentResults(parents)...), o.opts.StructuredOutput)
	stages["compose"] = time.Since(t0).Milliseconds()

	emit(phaseEvent("GEN"))
	t0 = time.Now()
	answer, genErr := o.generate(ctx, composed, emit)
	stages["gen"] = time.Since(t0).Milliseconds()
	if genErr != nil {
		fail(genErr)
		return
	}

	emit(phaseEvent("POST"))
	guardResult := guardrail.Evaluate(mode, answer, kept)
	if len(guardResult.Corrections) > 0 {
		emit(correctionsEvent(guardResult.Corrections))
	}
	tr.CorrectionsFired = len(guardResult.Corrections)

	emit(doneEvent(guardResult.CorrectedAnswer, stages, fusionMetrics, cutoverViolated, start))
	o.recordTrace(tr, stages, start)
}

// recordTrace finalizes stage latencies and folds the trace into the
// configured Collector, when one is wired.
func (o *Orchestrator) recordTrace(tr metrics.Trace, stages map[string]int64, start time.Time) {
	if o.deps.Metrics == nil {
		return
	}
	stages["total"] = time.Since(start).Milliseconds()
	tr.StageLatenciesMs = stages
	o.deps.Metrics.Record(tr)
}

const refusalAnswer = "Jag har inte tillräckligt underlag i källorna för att besvara frågan."

// runChat handles the CHAT_GEN branch: retrieval is skipped entirely.
func (o *Orchestrator) runChat(ctx context.Context, standalone string, emit Emit, stages map[string]int64, start time.Time, tr metrics.Trace) {
	tr.EvidenceLevel = ragtypes.EvidenceNone
	emit(ragtypes.StreamEvent{
		Type:     ragtypes.EventMetadata,
		Metadata: &ragtypes.MetadataEvent{Mode: ragtypes.ModeChat, EvidenceLevel: ragtypes.EvidenceNone},
	})

	emit(phaseEvent("COMPOSE"))
	composed := prompt.Compose(ragtypes.ModeChat, standalone, nil, false)

	emit(phaseEvent("GEN"))
	t0 := time.Now()
	answer, err := o.generate(ctx, composed, emit)
	stages["gen"] = time.Since(t0).Milliseconds()
	if err != nil {
		emitError(emit, err)
		tr.ErrorKind = string(ragerr.KindOf(err))
		o.recordTrace(tr, stages, start)
		return
	}

	emit(phaseEvent("POST"))
	guardResult := guardrail.Evaluate(ragtypes.ModeChat, answer, nil)
	if len(guardResult.Corrections) > 0 {
		emit(correctionsEvent(guardResult.Corrections))
	}
	tr.CorrectionsFired = len(guardResult.Corrections)
	emit(doneEvent(guardResult.CorrectedAnswer, stages, fusion.Metrics{}, false, start))
	o.recordTrace(tr, stages, start)
}

// retrieve runs the dense fan-out plus BM25 (when available) and fuses
// them into one ranked candidate list.
func (o *Orchestrator) retrieve(ctx context.Context, standalone string, expansions []string, routingCfg ragtypes.RoutingConfig) ([]ragtypes.SearchResult, fusion.Metrics, error) {
	variantTexts := append([]string{standalone}, expansions...)
	embeddings, err := o.deps.Embedder.EmbedQuery(ctx, variantTexts)
	if err != nil {
		return nil, fusion.Metrics{}, err
	}
	variants := make([]dense.Variant, len(variantTexts))
	for i, t := range variantTexts {
		variants[i] = dense.Variant{Text: t, Embedding: embeddings[i]}
	}
	legResults := o.deps.Dense.SearchAll(ctx, variants, routingCfg, o.opts.RetrieveK)
	sets := resultSetsFromLegs(legResults)

	if o.deps.Lexical != nil {
		var bm25Results []ragtypes.SearchResult
		for _, c := range allCollections(routingCfg) {
			res, lerr := o.deps.Lexical.Search(ctx, c.name, standalone, c.tier, o.opts.RetrieveK)
			if lerr != nil {
				continue // per-leg failure isolation; dense-only fallback still applies
			}
			bm25Results = append(bm25Results, res...)
		}
		if len(bm25Results) > 0 {
			sets = append(sets, fusion.ResultSet{Source: ragtypes.RetrieverBM25, Results: bm25Results})
		}
	}

	fused, fuseMetrics := fusion.Fuse(sets, o.opts.RRFK, o.opts.BM25Weight)
	if fusion.ShouldFallbackToSingleSet(fuseMetrics, nonEmptyResultSets(sets)) {
		return bestResultSet(sets), fuseMetrics, nil
	}
	return toSearchResults(fused), fuseMetrics, nil
}

// nonEmptyResultSets counts the input sets that contributed at least one
// result; fusion.ShouldFallbackToSingleSet takes it to gate fallback.
func nonEmptyResultSets(sets []fusion.ResultSet) int {
	n := 0
	for _, s := range sets {
		if len(s.Results) > 0 {
			n++
		}
	}
	return n
}

// bestResultSet returns the results of the single input set whose top-ranked
// result has the highest score, used when fusion gain is too low or fewer
// than two sets are non-empty (spec §4.8 fallback).
func bestResultSet(sets []fusion.ResultSet) []ragtypes.SearchResult {
	var best []ragtypes.SearchResult
	bestScore := -1.0
	for _, s := range sets {
		if len(s.Results) == 0 {
			continue
		}
		if s.Results[0].Score > bestScore {
			bestScore = s.Results[0].Score
			best = s.Results
		}
	}
	return best
}

// generate streams the LLM's answer, forwarding each delta as a token
// event in production order.
func (o *Orchestrator) generate(ctx context.Context, composedPrompt string, emit Emit) (string, error) {
	stream, err := o.deps.Provider.ChatStream(ctx, llm.ChatRequest{
		Messages: []llm.Message{{Role: "system", Content: composedPrompt}},
	})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for chunk := range stream {
		if chunk.Err != nil {
			return b.String(), chunk.Err
		}
		if chunk.Delta == "" {
			continue
		}
		b.WriteString(chunk.Delta)
		emit(ragtypes.StreamEvent{Type: ragtypes.EventToken, Token: &ragtypes.TokenEvent{Delta: chunk.Delta}})
	}
	return b.String(), nil
}

func resolveMode(requested ragtypes.Mode, in ragtypes.Intent) ragtypes.Mode {
	if requested != ragtypes.ModeAuto && requested != "" {
		return requested
	}
	switch in {
	case ragtypes.IntentSmalltalk:
		return ragtypes.ModeChat
	case ragtypes.IntentLegalText:
		return ragtypes.ModeEvidence
	default:
		return ragtypes.ModeAssist
	}
}

type namedTier struct {
	name string
	tier ragtypes.Tier
}

func allCollections(r ragtypes.RoutingConfig) []namedTier {
	out := make([]namedTier, 0, len(r.Primary)+len(r.Support)+len(r.Secondary))
	for _, c := range r.Primary {
		out = append(out, namedTier{c, ragtypes.TierPrimary})
	}
	for _, c := range r.Support {
		out = append(out, namedTier{c, ragtypes.TierSupport})
	}
	for _, c := range r.Secondary {
		out = append(out, namedTier{c, ragtypes.TierSecondary})
	}
	return out
}

// resultSetsFromLegs groups per-(variant,collection) dense legs back into
// one ResultSet per variant, ranked by score, skipping failed legs.
func resultSetsFromLegs(legs []dense.LegResult) []fusion.ResultSet {
	grouped := make(map[string][]ragtypes.SearchResult)
	var order []string
	for _, leg := range legs {
		if leg.Err != nil {
			continue
		}
		if _, ok := grouped[leg.Variant]; !ok {
			order = append(order, leg.Variant)
		}
		grouped[leg.Variant] = append(grouped[leg.Variant], leg.Results...)
	}
	sets := make([]fusion.ResultSet, 0, len(order))
	for _, v := range order {
		results := grouped[v]
		sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
		sets = append(sets, fusion.ResultSet{Source: ragtypes.RetrieverDense, Results: results})
	}
	return sets
}

func toSearchResults(fused []fusion.FusedEntry) []ragtypes.SearchResult {
	out := make([]ragtypes.SearchResult, len(fused))
	for i, f := range fused {
		out[i] = f.Doc
	}
	return out
}

// parentResults renders resolved parent context as additional context-block
// entries, appended after the kept child chunks so the prompt carries the
// full kapitel text alongside the cited passages.
func parentResults(parents []ragtypes.ParentContext) []ragtypes.SearchResult {
	out := make([]ragtypes.SearchResult, len(parents))
	for i, p := range parents {
		title := p.LawName
		if p.Kapitel != "" {
			title = p.Kapitel + " kap. " + p.KapitelRubrik
		}
		out[i] = ragtypes.SearchResult{
			ID:      p.ParentID,
			Title:   title,
			Snippet: p.FullText,
			DocType: "sfs",
			Metadata: &ragtypes.SFSMetadata{
				SFSNummer: p.SFSNummer, Kortnamn: p.Kortnamn,
				Kapitel: p.Kapitel, KapitelRubrik: p.KapitelRubrik,
			},
		}
	}
	return out
}

func filterKept(candidates []ragtypes.SearchResult, keepIDs []string) []ragtypes.SearchResult {
	want := make(map[string]bool, len(keepIDs))
	for _, id := range keepIDs {
		want[id] = true
	}
	var out []ragtypes.SearchResult
	for _, c := range candidates {
		if want[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

func phaseEvent(phase string) ragtypes.StreamEvent {
	return ragtypes.StreamEvent{Type: ragtypes.EventPhase, Phase: &ragtypes.PhaseEvent{Phase: phase}}
}

func emitError(emit Emit, err error) {
	emit(ragtypes.StreamEvent{
		Type:  ragtypes.EventError,
		Error: &ragtypes.ErrorEvent{Kind: ragtypes.ErrorKind(ragerr.KindOf(err)), Message: err.Error()},
	})
}

func correctionsEvent(corrections []ragtypes.Correction) ragtypes.StreamEvent {
	out := make([]ragtypes.TermCorrection, len(corrections))
	for i, c := range corrections {
		out[i] = ragtypes.TermCorrection{From: c.From, To: c.To, Confidence: c.Confidence}
	}
	return ragtypes.StreamEvent{Type: ragtypes.EventCorrections, Corrections: &ragtypes.CorrectionsEvent{Corrections: out}}
}

func doneEvent(answer string, stages map[string]int64, fm fusion.Metrics, cutoverViolated bool, start time.Time) ragtypes.StreamEvent {
	stages["total"] = time.Since(start).Milliseconds()
	return ragtypes.StreamEvent{
		Type: ragtypes.EventDone,
		Done: &ragtypes.DoneEvent{
			Answer: answer,
			Metrics: ragtypes.Metrics{
				StageLatenciesMs: stages,
				FusionGain:       fm.FusionGain,
				CutoverViolated:  cutoverViolated,
			},
		},
	}
}

// collectionOverride extracts a client-requested collection list from the
// request filter (spec §6's free-form `filter` field). The cutover policy
// checks these names, and when the request proceeds they replace the
// intent's routing as the primary collections.
func collectionOverride(filter map[string]interface{}) []string {
	raw, ok := filter["collections"]
	if !ok {
		return nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// cutoverOffenders returns the requested collections that are neither
// current (routing.IsKnownCollection) nor explicitly allow-listed, i.e. the
// legacy collections the cutover policy (spec §5) cares about.
func cutoverOffenders(requested, allowlist []string) []string {
	allowed := make(map[string]bool, len(allowlist))
	for _, c := range allowlist {
		allowed[c] = true
	}
	var offending []string
	for _, c := range requested {
		if routing.IsKnownCollection(c) || allowed[c] {
			continue
		}
		offending = append(offending, c)
	}
	return offending
}
