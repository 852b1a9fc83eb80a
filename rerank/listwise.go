package rerank

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/33prime/aios-req-engine-sub007/llm"
)

// summaryChars is how much of each document the listwise prompt includes.
const summaryChars = 150

// Completer is the LLM surface the listwise reranker needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// ListwiseReranker ranks documents with a single LLM call: the prompt shows
// numbered document summaries and asks for a strict JSON array of 1-based
// ranks, most relevant first.
type ListwiseReranker struct {
	client Completer
	logger *slog.Logger
}

// NewListwiseReranker creates an LLM-based reranker.
func NewListwiseReranker(client Completer, logger *slog.Logger) *ListwiseReranker {
	return &ListwiseReranker{client: client, logger: logger}
}

// Rank returns 0-based indices of the documents ordered by relevance, best
// first. The output may rank fewer documents than were given; callers are
// expected to pad from the original order. Duplicate and out-of-range ranks
// in the model output are discarded.
func (r *ListwiseReranker) Rank(ctx context.Context, query string, documents []string, topN int) ([]int, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Rank the following documents by relevance to the query.\n\nQuery: %s\n\nDocuments:\n", query)
	for i, doc := range documents {
		summary := doc
		if len(summary) > summaryChars {
			summary = summary[:summaryChars] + "..."
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, summary)
	}
	fmt.Fprintf(&sb, "\nRespond with ONLY a JSON array of the %d most relevant document numbers, most relevant first. Example: [3,1,2]", topN)

	temperature := 0.0
	resp, err := r.client.Complete(ctx, llm.Request{
		Capability:  llm.CapabilityReranking,
		Messages:    []llm.Message{{Role: "user", Content: sb.String()}},
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("listwise rerank completion: %w", err)
	}

	raw := llm.ExtractJSONArray(resp.Content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON array in rerank response")
	}

	var ranks []int
	if err := json.Unmarshal([]byte(raw), &ranks); err != nil {
		return nil, fmt.Errorf("parse rerank ranks: %w", err)
	}

	seen := make(map[int]bool, len(ranks))
	indices := make([]int, 0, len(ranks))
	for _, rank := range ranks {
		idx := rank - 1 // model speaks 1-based
		if idx < 0 || idx >= len(documents) || seen[idx] {
			continue
		}
		seen[idx] = true
		indices = append(indices, idx)
	}

	if len(indices) == 0 {
		return nil, fmt.Errorf("rerank response contained no valid ranks")
	}
	return indices, nil
}
