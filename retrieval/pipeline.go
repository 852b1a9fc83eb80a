package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/33prime/aios-req-engine-sub007/metrics"
)

// Default fetch sizes per source.
const (
	defaultChunkTopK  = 10
	defaultEntityTopK = 10
	defaultBeliefTopK = 5
)

// minSufficientChunks is the evaluation bar: fewer chunks than this after a
// round triggers a broadened retry when rounds remain.
const minSufficientChunks = 3

// Retriever is the single entry point of the evidence pipeline.
type Retriever struct {
	vectors    VectorSearcher
	graph      GraphQuerier
	commercial CommercialReranker
	listwise   ListwiseRanker
	decomposer Decomposer
	logger     *slog.Logger
	topK       int
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithGraphQuerier enables graph-neighborhood expansion.
func WithGraphQuerier(g GraphQuerier) RetrieverOption {
	return func(r *Retriever) { r.graph = g }
}

// WithCommercialReranker sets the first-choice reranker.
func WithCommercialReranker(c CommercialReranker) RetrieverOption {
	return func(r *Retriever) { r.commercial = c }
}

// WithListwiseRanker sets the LLM fallback reranker.
func WithListwiseRanker(l ListwiseRanker) RetrieverOption {
	return func(r *Retriever) { r.listwise = l }
}

// WithDecomposer enables query decomposition.
func WithDecomposer(d Decomposer) RetrieverOption {
	return func(r *Retriever) { r.decomposer = d }
}

// WithTopK sets the default final chunk count.
func WithTopK(k int) RetrieverOption {
	return func(r *Retriever) { r.topK = k }
}

// NewRetriever creates a retriever over the vector search service. All
// other stages are optional; a retriever with only vectors still works, it
// just skips decomposition, expansion, and reranking fallbacks.
func NewRetriever(vectors VectorSearcher, logger *slog.Logger, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		vectors: vectors,
		logger:  logger,
		topK:    defaultChunkTopK,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve runs the full pipeline for one query. It never fails: every
// stage degrades independently, and the worst case is an empty result.
func (r *Retriever) Retrieve(ctx context.Context, req Request) *Result {
	started := time.Now()
	metrics.RetrievalRequests.Inc()
	defer func() {
		metrics.RetrievalDuration.Observe(time.Since(started).Seconds())
	}()

	subQueries := r.decompose(ctx, req)

	topK := req.TopK
	if topK <= 0 {
		topK = r.topK
	}

	rounds := req.MaxRounds
	if rounds <= 0 {
		rounds = 1
	}

	result := &Result{SourceQueries: subQueries}
	queries := subQueries
	for round := 1; round <= rounds; round++ {
		r.fetchAll(ctx, req, queries, result)

		if req.SkipEvaluation || len(result.Chunks) >= minSufficientChunks {
			break
		}
		if round == rounds {
			break
		}
		// Broaden: retry with the raw query plus the context hint.
		broadened := req.Query
		if req.ContextHint != "" {
			broadened += " " + req.ContextHint
		}
		queries = []string{broadened}
		result.SourceQueries = append(result.SourceQueries, broadened)
		r.logger.Debug("Evidence insufficient, broadening query",
			"round", round, "chunks", len(result.Chunks))
	}

	sortBySimilarity(result)

	if req.GraphDepth > 0 && r.graph != nil {
		r.expandViaGraph(ctx, req, result)
	}

	if !req.SkipReranking {
		result.Chunks = r.rerankChunks(ctx, req.Query, result.Chunks, topK)
	} else if len(result.Chunks) > topK {
		result.Chunks = result.Chunks[:topK]
	}

	r.logger.Debug("Retrieval complete",
		"project_id", req.ProjectID,
		"sub_queries", len(subQueries),
		"chunks", len(result.Chunks),
		"entities", len(result.Entities),
		"beliefs", len(result.Beliefs))

	return result
}

// decompose resolves the sub-query list for a request. Decomposition
// failure falls back to the raw query; it is never fatal.
func (r *Retriever) decompose(ctx context.Context, req Request) []string {
	if req.SkipDecomposition || r.decomposer == nil || !shouldDecompose(req.Query) {
		return []string{req.Query}
	}
	subQueries, err := r.decomposer.Decompose(ctx, req.Query)
	if err != nil {
		metrics.StageFailures.WithLabelValues("decomposition").Inc()
		r.logger.Debug("Decomposition failed, using raw query", "error", err)
		return []string{req.Query}
	}
	return subQueries
}

// fetchAll runs the three vector sources for every sub-query concurrently
// and merges the results with ID dedup. A failing source contributes an
// empty list; partial evidence is still useful.
func (r *Retriever) fetchAll(ctx context.Context, req Request, queries []string, result *Result) {
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, q := range queries {
		query := q

		wg.Add(3)
		go func() {
			defer wg.Done()
			chunks, err := r.vectors.SearchChunks(ctx, query, req.ProjectID, defaultChunkTopK)
			if err != nil {
				metrics.StageFailures.WithLabelValues("fetch_chunks").Inc()
				r.logger.Debug("Chunk search failed", "query", query, "error", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			result.Chunks = mergeChunks(result.Chunks, chunks)
		}()
		go func() {
			defer wg.Done()
			entities, err := r.vectors.SearchEntities(ctx, query, req.ProjectID, defaultEntityTopK, req.EntityTypes)
			if err != nil {
				metrics.StageFailures.WithLabelValues("fetch_entities").Inc()
				r.logger.Debug("Entity search failed", "query", query, "error", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			result.Entities = mergeEntities(result.Entities, entities)
		}()
		go func() {
			defer wg.Done()
			beliefs, err := r.vectors.SearchBeliefs(ctx, query, req.ProjectID, defaultBeliefTopK)
			if err != nil {
				metrics.StageFailures.WithLabelValues("fetch_beliefs").Inc()
				r.logger.Debug("Belief search failed", "query", query, "error", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			result.Beliefs = mergeBeliefs(result.Beliefs, beliefs)
		}()
	}

	wg.Wait()
}

func sortBySimilarity(result *Result) {
	sort.SliceStable(result.Chunks, func(i, j int) bool {
		return result.Chunks[i].Similarity > result.Chunks[j].Similarity
	})
	sort.SliceStable(result.Entities, func(i, j int) bool {
		return result.Entities[i].Similarity > result.Entities[j].Similarity
	})
	sort.SliceStable(result.Beliefs, func(i, j int) bool {
		return result.Beliefs[i].Similarity > result.Beliefs[j].Similarity
	})
}
