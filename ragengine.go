// Package ragengine wires the pipeline stages (rewrite, intent, expand,
// dense/lexical retrieval, fusion, rerank, grade, parent expansion,
// guardrail, prompt, generation) into one engine that answers a streamed
// query against the read-only SFS-oriented corpus database. Grounded on
// the teacher's top-level Engine interface and New(cfg) constructor
// (goreason.go), generalized from the teacher's synchronous
// ingest-then-reason Query into a streaming-only Query over a
// pre-populated, offline-built corpus (document ingestion is a spec
// non-goal: there is no Ingest/Update/Delete surface here).
package ragengine

import (
	"context"
	"fmt"

	"github.com/itsimonfredlingjack/svenskrag/internal/dense"
	"github.com/itsimonfredlingjack/svenskrag/internal/embedding"
	"github.com/itsimonfredlingjack/svenskrag/internal/expand"
	"github.com/itsimonfredlingjack/svenskrag/internal/grade"
	"github.com/itsimonfredlingjack/svenskrag/internal/intent"
	"github.com/itsimonfredlingjack/svenskrag/internal/lexical"
	"github.com/itsimonfredlingjack/svenskrag/internal/llm"
	"github.com/itsimonfredlingjack/svenskrag/internal/metrics"
	"github.com/itsimonfredlingjack/svenskrag/internal/orchestrator"
	"github.com/itsimonfredlingjack/svenskrag/internal/parentctx"
	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
	"github.com/itsimonfredlingjack/svenskrag/internal/rerank"
	"github.com/itsimonfredlingjack/svenskrag/internal/rewrite"
	"github.com/itsimonfredlingjack/svenskrag/internal/store"
)

// Engine answers streamed queries against the corpus database.
type Engine interface {
	// Query drives one request through the full pipeline, delivering
	// events to emit in production order (see internal/orchestrator).
	Query(ctx context.Context, req ragtypes.QueryEnvelope, emit orchestrator.Emit)

	// Stats returns a snapshot of the running request aggregate.
	Stats() metrics.Aggregate

	// Store exposes the underlying corpus store.
	Store() *store.Store

	// Close releases the corpus database handle.
	Close() error
}

type engine struct {
	cfg          Config
	store        *store.Store
	orchestrator *orchestrator.Orchestrator
	metrics      *metrics.Collector
}

// New constructs an Engine from cfg: opens the corpus database, builds the
// configured LLM providers, and wires every pipeline stage.
func New(cfg Config) (Engine, error) {
	dbPath := cfg.resolveDBPath()
	if cfg.EmbeddingDim == 0 {
		cfg.EmbeddingDim = 768
	}

	s, err := store.Open(dbPath, cfg.EmbeddingDim, false)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	chatLLM, err := llm.NewProvider(llm.Config(cfg.Chat))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating chat provider: %w", err)
	}

	embedLLM, err := llm.NewProvider(llm.Config(cfg.Embedding))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}

	expansionLLM := chatLLM
	if cfg.Expansion.Provider != "" {
		expansionLLM, err = llm.NewProvider(llm.Config(cfg.Expansion))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("creating expansion provider: %w", err)
		}
	}

	gradingLLM := chatLLM
	if cfg.Grading.Provider != "" {
		gradingLLM, err = llm.NewProvider(llm.Config(cfg.Grading))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("creating grading provider: %w", err)
		}
	}

	var lexicalRetriever *lexical.Retriever
	if !cfg.DisableBM25 {
		lexicalRetriever = lexical.New(s, true)
	}

	var reranker *rerank.Reranker
	if !cfg.DisableRerank {
		scorer := rerank.NewHTTPScorer(cfg.RerankURL, cfg.RerankAPIKey)
		reranker = rerank.New(scorer, cfg.RerankThreshold, cfg.RerankTopN)
	}

	collector := metrics.NewCollector()

	deps := orchestrator.Deps{
		Rewriter:   rewrite.New(),
		Classifier: intent.New(chatLLM),
		Expander:   expand.New(expansionLLM, true),
		Embedder:   embedding.New(embedLLM, cfg.EmbeddingDim),
		Dense:      dense.New(s, cfg.DenseConcurrency),
		Lexical:    lexicalRetriever,
		Reranker:   reranker,
		Grader:     grade.New(gradingLLM, cfg.GradeThreshold),
		Parents:    parentctx.New(s),
		Provider:   chatLLM,
		Metrics:    collector,
	}
	opts := orchestrator.Options{
		StructuredOutput:                  cfg.StructuredOutput,
		RetrieveK:                         cfg.RetrieveK,
		ExpandCount:                       cfg.ExpandCount,
		RRFK:                              cfg.RRFK,
		BM25Weight:                        cfg.BM25Weight,
		CutoverEnforce:                    cfg.CutoverEnforce,
		CutoverAllowedFallbackCollections: cfg.CutoverAllowedFallbackCollections,
	}

	return &engine{
		cfg:          cfg,
		store:        s,
		orchestrator: orchestrator.New(deps, opts),
		metrics:      collector,
	}, nil
}

func (e *engine) Query(ctx context.Context, req ragtypes.QueryEnvelope, emit orchestrator.Emit) {
	e.orchestrator.Run(ctx, req, emit)
}

func (e *engine) Stats() metrics.Aggregate {
	return e.metrics.Snapshot()
}

func (e *engine) Store() *store.Store {
	return e.store
}

func (e *engine) Close() error {
	return e.store.Close()
}
