package ragengine

import (
	"os"
	"path/filepath"
)

// Config holds all configuration for the svenskrag engine.
type Config struct {
	// DBPath is the full path to the read-only corpus database. If empty,
	// defaults to ~/.svenskrag/<DBName>.db.
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName names the database file when DBPath is not set. Defaults to
	// "svenskrag".
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is resolved when DBPath is
	// not explicitly set. "home" (default) uses ~/.svenskrag/, "local"
	// uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// LLM providers. Expansion and Grading default to Chat when left zero.
	Chat      LLMConfig `json:"chat" yaml:"chat"`
	Embedding LLMConfig `json:"embedding" yaml:"embedding"`
	Expansion LLMConfig `json:"expansion" yaml:"expansion"`
	Grading   LLMConfig `json:"grading" yaml:"grading"`

	// Retrieval
	EmbeddingDim     int     `json:"embedding_dim" yaml:"embedding_dim"`
	RetrieveK        int     `json:"retrieve_k" yaml:"retrieve_k"`
	ExpandCount      int     `json:"expand_count" yaml:"expand_count"`
	RRFK             int     `json:"rrf_k" yaml:"rrf_k"`
	BM25Weight       float64 `json:"bm25_weight" yaml:"bm25_weight"`
	DenseConcurrency int     `json:"dense_concurrency" yaml:"dense_concurrency"`
	DisableBM25      bool    `json:"disable_bm25" yaml:"disable_bm25"`
	DisableRerank    bool    `json:"disable_rerank" yaml:"disable_rerank"`

	// Reranking and grading
	RerankURL       string  `json:"rerank_url" yaml:"rerank_url"`
	RerankAPIKey    string  `json:"rerank_api_key" yaml:"rerank_api_key"`
	RerankThreshold float64 `json:"rerank_threshold" yaml:"rerank_threshold"`
	RerankTopN      int     `json:"rerank_top_n" yaml:"rerank_top_n"`
	GradeThreshold  float64 `json:"grade_threshold" yaml:"grade_threshold"`

	// StructuredOutput enables strict-JSON answer output in evidence mode.
	StructuredOutput bool `json:"structured_output" yaml:"structured_output"`

	// CutoverEnforce turns on the legacy-collection cutover policy (spec
	// §5): when true, a request filter naming a collection outside
	// routing's known set and outside CutoverAllowedFallbackCollections
	// fails with a CutoverViolation error instead of being served.
	CutoverEnforce bool `json:"cutover_enforce" yaml:"cutover_enforce"`

	// CutoverAllowedFallbackCollections whitelists specific legacy
	// collection names that are still servable even when CutoverEnforce
	// is on.
	CutoverAllowedFallbackCollections []string `json:"cutover_allowed_fallback_collections" yaml:"cutover_allowed_fallback_collections"`
}

// LLMConfig configures a single LLM provider endpoint.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"` // ollama, lmstudio, openrouter, xai, gemini, groq, openai, custom
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// DefaultConfig returns a Config tuned for local inference against a
// SFS-oriented corpus database.
func DefaultConfig() Config {
	return Config{
		DBName:     "svenskrag",
		StorageDir: "home",
		Chat: LLMConfig{
			Provider: "ollama",
			Model:    "llama3.1:8b",
			BaseURL:  "http://localhost:11434",
		},
		Embedding: LLMConfig{
			Provider: "ollama",
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},
		EmbeddingDim:     768,
		RetrieveK:        20,
		ExpandCount:      3,
		RRFK:             60,
		BM25Weight:       1.5,
		DenseConcurrency: 8,
		RerankURL:        "http://localhost:8081",
		RerankThreshold:  0.3,
		RerankTopN:       10,
		GradeThreshold:   0.5,
	}
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	name := c.DBName
	if name == "" {
		name = "svenskrag"
	}
	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db"
		}
		return filepath.Join(home, ".svenskrag", name+".db")
	}
}
