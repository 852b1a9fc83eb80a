package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/33prime/aios-req-engine-sub007/llm"
)

// decompositionWordThreshold is the query length below which decomposition
// is skipped: short queries are almost always a single concern.
const decompositionWordThreshold = 7

// maxSubQueries caps how many sub-queries one decomposition may produce.
const maxSubQueries = 4

// shouldDecompose decides heuristically whether a query is worth splitting.
// Short queries without a question mark go straight to fetch.
func shouldDecompose(query string) bool {
	if strings.Contains(query, "?") {
		return true
	}
	return len(strings.Fields(query)) >= decompositionWordThreshold
}

// Completer is the LLM surface the decomposer needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// LLMDecomposer splits compound queries into sub-queries with one fast LLM
// call expecting a strict JSON array of strings.
type LLMDecomposer struct {
	client Completer
	logger *slog.Logger
}

// NewLLMDecomposer creates a decomposer over the given LLM client.
func NewLLMDecomposer(client Completer, logger *slog.Logger) *LLMDecomposer {
	return &LLMDecomposer{client: client, logger: logger}
}

// Decompose splits a compound query. Callers treat any error as a signal to
// fall back to the raw query.
func (d *LLMDecomposer) Decompose(ctx context.Context, query string) ([]string, error) {
	prompt := fmt.Sprintf(
		"Split this question into at most %d independent search queries, one per distinct concern. "+
			"If it covers a single concern, return it unchanged.\n\nQuestion: %s\n\n"+
			"Respond with ONLY a JSON array of strings.", maxSubQueries, query)

	temperature := 0.0
	resp, err := d.client.Complete(ctx, llm.Request{
		Capability:  llm.CapabilityDecomposition,
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("decomposition completion: %w", err)
	}

	raw := llm.ExtractJSONArray(resp.Content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON array in decomposition response")
	}

	var subQueries []string
	if err := json.Unmarshal([]byte(raw), &subQueries); err != nil {
		return nil, fmt.Errorf("parse sub-queries: %w", err)
	}

	cleaned := make([]string, 0, len(subQueries))
	for _, q := range subQueries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		cleaned = append(cleaned, q)
		if len(cleaned) == maxSubQueries {
			break
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("decomposition produced no sub-queries")
	}
	return cleaned, nil
}
