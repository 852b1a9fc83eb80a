// Package retrieval implements the multi-stage evidence retrieval pipeline:
// query decomposition, parallel multi-source fetch, graph-neighborhood
// expansion, reranking with graceful fallback, and prompt-ready formatting.
// Every stage degrades independently; the pipeline answers with partial
// evidence rather than failing.
package retrieval

import (
	"context"

	"github.com/33prime/aios-req-engine-sub007/evidence"
	"github.com/33prime/aios-req-engine-sub007/graphquery"
	"github.com/33prime/aios-req-engine-sub007/rerank"
)

// Request parameterizes one retrieval call.
type Request struct {
	Query     string `json:"query"`
	ProjectID string `json:"project_id"`

	// MaxRounds bounds the fetch-evaluate loop. 0 means one round.
	MaxRounds int `json:"max_rounds,omitempty"`

	// Stage skip flags.
	SkipDecomposition bool `json:"skip_decomposition,omitempty"`
	SkipReranking     bool `json:"skip_reranking,omitempty"`
	SkipEvaluation    bool `json:"skip_evaluation,omitempty"`

	// ContextHint is appended to broadened queries on later rounds.
	ContextHint string `json:"context_hint,omitempty"`

	// EntityTypes restricts entity search to the given types.
	EntityTypes []string `json:"entity_types,omitempty"`

	// GraphDepth controls neighborhood expansion: 0 skips it, 1 and 2 set
	// the hop count.
	GraphDepth int `json:"graph_depth,omitempty"`

	// ApplyRecency and ApplyConfidence are forwarded to the graph service.
	ApplyRecency    bool `json:"apply_recency,omitempty"`
	ApplyConfidence bool `json:"apply_confidence,omitempty"`

	// TopK caps the final chunk count. 0 uses the retriever default.
	TopK int `json:"top_k,omitempty"`
}

// Result is the ephemeral, request-scoped retrieval aggregate. It is never
// persisted; its lifetime is one retrieval call.
type Result struct {
	Chunks        []evidence.Chunk       `json:"chunks"`
	Entities      []evidence.EntityMatch `json:"entities"`
	Beliefs       []evidence.Belief      `json:"beliefs"`
	SourceQueries []string               `json:"source_queries"`
}

// VectorSearcher is the vector-similarity service surface.
type VectorSearcher interface {
	SearchChunks(ctx context.Context, query, projectID string, topK int) ([]evidence.Chunk, error)
	SearchEntities(ctx context.Context, query, projectID string, topK int, entityTypes []string) ([]evidence.EntityMatch, error)
	SearchBeliefs(ctx context.Context, query, projectID string, topK int) ([]evidence.Belief, error)
}

// GraphQuerier is the graph-neighborhood service surface.
type GraphQuerier interface {
	GetEntityNeighborhood(ctx context.Context, req graphquery.NeighborhoodRequest) (*evidence.Neighborhood, error)
}

// CommercialReranker is the external reranking API surface.
type CommercialReranker interface {
	Available() bool
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]rerank.Ranked, error)
}

// ListwiseRanker is the LLM fallback reranking surface.
type ListwiseRanker interface {
	Rank(ctx context.Context, query string, documents []string, topN int) ([]int, error)
}

// Decomposer splits a compound query into sub-queries.
type Decomposer interface {
	Decompose(ctx context.Context, query string) ([]string, error)
}
