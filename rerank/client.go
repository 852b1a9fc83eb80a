// Package rerank provides the two reranking backends the retrieval pipeline
// tries in order: a commercial reranking API, and an LLM-based listwise
// reranker used when the commercial service is unavailable.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxErrorBodySize limits the size of error response bodies.
const maxErrorBodySize = 4096

// Ranked is one reranked document: its index in the input slice and the
// relevance score the reranker assigned.
type Ranked struct {
	Index int     `json:"index"`
	Score float64 `json:"relevance_score"`
}

// Client calls a commercial reranking API (Cohere-compatible payload).
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a reranker client. An empty baseURL marks the client
// as unconfigured; Available reports that so the pipeline can skip straight
// to its fallback.
func NewClient(baseURL, apiKey, model string) *Client {
	if model == "" {
		model = "rerank-v3.5"
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Available reports whether the commercial reranker is configured.
func (c *Client) Available() bool {
	return c != nil && c.baseURL != ""
}

// Rerank sends query and documents to the reranking API and returns
// relevance-ordered indices with scores.
func (c *Client) Rerank(ctx context.Context, query string, documents []string, topN int) ([]Ranked, error) {
	if !c.Available() {
		return nil, fmt.Errorf("reranker not configured")
	}
	if len(documents) == 0 {
		return nil, nil
	}

	payload := map[string]any{
		"model":     c.model,
		"query":     query,
		"documents": documents,
		"top_n":     topN,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, fmt.Errorf("reranker returned %d: %s", resp.StatusCode, string(errBody))
	}

	var parsed struct {
		Results []Ranked `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}
	return parsed.Results, nil
}
