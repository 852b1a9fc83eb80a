// Package vector provides the HTTP client for the vector-similarity search
// gateway, covering the three document kinds the pipeline fetches in
// parallel: content chunks, entity embeddings, and belief nodes.
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/33prime/aios-req-engine-sub007/evidence"
)

// maxErrorBodySize limits the size of error response bodies.
const maxErrorBodySize = 4096

// Client queries the vector similarity gateway.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a vector gateway client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// searchRequest is the gateway's search payload.
type searchRequest struct {
	ProjectID   string   `json:"project_id"`
	Query       string   `json:"query"`
	TopK        int      `json:"top_k"`
	EntityTypes []string `json:"entity_types,omitempty"`
}

// SearchChunks returns the top-k content chunks for a query.
func (c *Client) SearchChunks(ctx context.Context, query, projectID string, topK int) ([]evidence.Chunk, error) {
	var out struct {
		Chunks []evidence.Chunk `json:"chunks"`
	}
	req := searchRequest{ProjectID: projectID, Query: query, TopK: topK}
	if err := c.post(ctx, "/search/chunks", req, &out); err != nil {
		return nil, err
	}
	return out.Chunks, nil
}

// SearchEntities returns the top-k entity matches, optionally restricted to
// the given entity types.
func (c *Client) SearchEntities(ctx context.Context, query, projectID string, topK int, entityTypes []string) ([]evidence.EntityMatch, error) {
	var out struct {
		Entities []evidence.EntityMatch `json:"entities"`
	}
	req := searchRequest{ProjectID: projectID, Query: query, TopK: topK, EntityTypes: entityTypes}
	if err := c.post(ctx, "/search/entities", req, &out); err != nil {
		return nil, err
	}
	return out.Entities, nil
}

// SearchBeliefs returns the top-k belief node matches.
func (c *Client) SearchBeliefs(ctx context.Context, query, projectID string, topK int) ([]evidence.Belief, error) {
	var out struct {
		Beliefs []evidence.Belief `json:"beliefs"`
	}
	req := searchRequest{ProjectID: projectID, Query: query, TopK: topK}
	if err := c.post(ctx, "/search/beliefs", req, &out); err != nil {
		return nil, err
	}
	return out.Beliefs, nil
}

// post sends a JSON request and decodes the JSON response.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Limit error body size to prevent memory issues
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return fmt.Errorf("vector gateway returned %d: %s", resp.StatusCode, string(errBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
