package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/itsimonfredlingjack/svenskrag/internal/ragerr"
)

// HTTPScorer talks to a cross-encoder reranker server exposing a single
// /rerank endpoint (the TEI/infinity-style wire shape: one query against a
// batch of documents, scores back in request order).
type HTTPScorer struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPScorer constructs a Scorer backed by an HTTP cross-encoder service
// at baseURL.
func NewHTTPScorer(baseURL, apiKey string) *HTTPScorer {
	return &HTTPScorer{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankResponseEntry struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Score scores a single (query, document) pair by sending a one-document
// batch. This client does not retry; the Reranker retries each call and
// scores candidates one at a time.
func (s *HTTPScorer) Score(ctx context.Context, query, document string) (float64, error) {
	body := rerankRequest{Query: query, Texts: []string{document}}
	data, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/rerank", bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: reranker request: %v", ragerr.ErrDependencyUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("reading reranker response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: reranker error %d: %s", ragerr.ErrDependencyUnavailable, resp.StatusCode, string(respBody))
	}

	var entries []rerankResponseEntry
	if err := json.Unmarshal(respBody, &entries); err != nil {
		return 0, fmt.Errorf("%w: decoding reranker response: %v", ragerr.ErrDependencyUnavailable, err)
	}
	if len(entries) == 0 {
		return 0, fmt.Errorf("%w: empty reranker response", ragerr.ErrDependencyUnavailable)
	}
	return entries[0].Score, nil
}
