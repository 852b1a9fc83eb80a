// Package graphquery provides the client for the graph-neighborhood query
// service via its GraphQL gateway.
package graphquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/33prime/aios-req-engine-sub007/evidence"
)

// maxErrorBodySize limits the size of error response bodies.
const maxErrorBodySize = 4096

// Client queries the graph gateway.
type Client struct {
	gatewayURL string
	httpClient *http.Client
}

// NewClient creates a graph gateway client.
func NewClient(gatewayURL string) *Client {
	return &Client{
		gatewayURL: gatewayURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NeighborhoodRequest parameterizes a neighborhood query.
type NeighborhoodRequest struct {
	EntityID        string   `json:"entity_id"`
	EntityType      string   `json:"entity_type,omitempty"`
	ProjectID       string   `json:"project_id"`
	MaxRelated      int      `json:"max_related,omitempty"`
	MinWeight       float64  `json:"min_weight,omitempty"`
	EntityTypes     []string `json:"entity_types,omitempty"`
	Depth           int      `json:"depth,omitempty"`
	ApplyRecency    bool     `json:"apply_recency,omitempty"`
	ApplyConfidence bool     `json:"apply_confidence,omitempty"`
}

// graphQLResponse represents a GraphQL response envelope.
type graphQLResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

const neighborhoodQuery = `query($id: String!, $type: String, $project: String!, $maxRelated: Int!, $minWeight: Float!, $types: [String!], $depth: Int!, $recency: Boolean!, $confidence: Boolean!) {
	neighborhood(entityId: $id, entityType: $type, projectId: $project, maxRelated: $maxRelated, minWeight: $minWeight, entityTypes: $types, depth: $depth, applyRecency: $recency, applyConfidence: $confidence) {
		entity { id type name description similarity }
		evidence_chunks { id document_id content similarity }
		related { entity_id entity_type entity_name shared_chunks }
	}
}`

// GetEntityNeighborhood fetches the 1-or-2-hop neighborhood of an entity:
// its metadata, associated evidence chunks, and related entities with
// shared-chunk counts.
func (c *Client) GetEntityNeighborhood(ctx context.Context, req NeighborhoodRequest) (*evidence.Neighborhood, error) {
	depth := req.Depth
	if depth < 1 {
		depth = 1
	}
	if depth > 2 {
		depth = 2
	}
	maxRelated := req.MaxRelated
	if maxRelated <= 0 {
		maxRelated = 10
	}

	variables := map[string]any{
		"id":         sanitizeGraphQLString(req.EntityID),
		"type":       sanitizeGraphQLString(req.EntityType),
		"project":    sanitizeGraphQLString(req.ProjectID),
		"maxRelated": maxRelated,
		"minWeight":  req.MinWeight,
		"types":      req.EntityTypes,
		"depth":      depth,
		"recency":    req.ApplyRecency,
		"confidence": req.ApplyConfidence,
	}

	data, err := c.execute(ctx, neighborhoodQuery, variables)
	if err != nil {
		return nil, err
	}

	raw, ok := data["neighborhood"]
	if !ok || string(raw) == "null" {
		return nil, fmt.Errorf("entity not found: %s", req.EntityID)
	}

	var nb evidence.Neighborhood
	if err := json.Unmarshal(raw, &nb); err != nil {
		return nil, fmt.Errorf("decode neighborhood: %w", err)
	}
	return &nb, nil
}

// execute runs a GraphQL query with variables against the gateway.
func (c *Client) execute(ctx context.Context, query string, variables map[string]any) (map[string]json.RawMessage, error) {
	body, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL+"/graphql", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Limit error body size to prevent memory issues
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, fmt.Errorf("graph gateway returned %d: %s", resp.StatusCode, string(errBody))
	}

	var result graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", result.Errors[0].Message)
	}
	return result.Data, nil
}

// Ping probes the gateway with a throwaway neighborhood lookup. A "not
// found" GraphQL error still proves the pipeline is working, so it counts
// as success.
func (c *Client) Ping(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := c.GetEntityNeighborhood(probeCtx, NeighborhoodRequest{
		EntityID:  "__readiness_probe__",
		ProjectID: "__readiness_probe__",
	})
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "not found") {
		return nil
	}
	return err
}

// WaitForReady polls Ping until the gateway responds or the budget expires.
func (c *Client) WaitForReady(ctx context.Context, budget time.Duration) error {
	deadline := time.Now().Add(budget)
	var lastErr error
	for time.Now().Before(deadline) {
		if lastErr = c.Ping(ctx); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("graph gateway not ready within %s: %w", budget, lastErr)
}

// sanitizeGraphQLString removes potentially dangerous characters from
// GraphQL string inputs alongside parameterized queries.
func sanitizeGraphQLString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "\\", "\\\\")
	return s
}
