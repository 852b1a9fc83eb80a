package retrieval

import (
	"context"

	"github.com/33prime/aios-req-engine-sub007/evidence"
	"github.com/33prime/aios-req-engine-sub007/metrics"
)

const (
	commercialRerankLimit = 25
	commercialChunkChars  = 500
	listwiseRerankLimit   = 20
)

// rerankChunks reorders chunks by relevance to the query and truncates to
// topK. Three tiers: commercial reranker, then LLM listwise ranking, then
// plain truncation of the similarity-sorted input.
func (r *Retriever) rerankChunks(ctx context.Context, query string, chunks []evidence.Chunk, topK int) []evidence.Chunk {
	if len(chunks) <= topK {
		return chunks
	}

	if r.commercial != nil && r.commercial.Available() {
		if reranked, ok := r.commercialRerank(ctx, query, chunks, topK); ok {
			return reranked
		}
	}

	if r.listwise != nil {
		if reranked, ok := r.listwiseRerank(ctx, query, chunks, topK); ok {
			return reranked
		}
	}

	return chunks[:topK]
}

func (r *Retriever) commercialRerank(ctx context.Context, query string, chunks []evidence.Chunk, topK int) ([]evidence.Chunk, bool) {
	candidates := chunks
	if len(candidates) > commercialRerankLimit {
		candidates = candidates[:commercialRerankLimit]
	}

	docs := make([]string, len(candidates))
	for i, c := range candidates {
		content := c.Content
		if len(content) > commercialChunkChars {
			content = content[:commercialChunkChars]
		}
		docs[i] = content
	}

	ranked, err := r.commercial.Rerank(ctx, query, docs, topK)
	if err != nil {
		metrics.StageFailures.WithLabelValues("rerank_commercial").Inc()
		r.logger.Debug("Commercial rerank failed, falling back", "error", err)
		return nil, false
	}

	out := make([]evidence.Chunk, 0, topK)
	for _, rk := range ranked {
		if rk.Index < 0 || rk.Index >= len(candidates) {
			continue
		}
		out = append(out, candidates[rk.Index])
		if len(out) == topK {
			break
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

func (r *Retriever) listwiseRerank(ctx context.Context, query string, chunks []evidence.Chunk, topK int) ([]evidence.Chunk, bool) {
	candidates := chunks
	if len(candidates) > listwiseRerankLimit {
		candidates = candidates[:listwiseRerankLimit]
	}

	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Content
	}

	indices, err := r.listwise.Rank(ctx, query, docs, topK)
	if err != nil {
		metrics.StageFailures.WithLabelValues("rerank_listwise").Inc()
		r.logger.Debug("Listwise rerank failed, truncating", "error", err)
		return nil, false
	}

	out := make([]evidence.Chunk, 0, topK)
	used := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(candidates) || used[idx] {
			continue
		}
		used[idx] = true
		out = append(out, candidates[idx])
		if len(out) == topK {
			break
		}
	}
	// Pad with unranked candidates in original order if the model ranked
	// fewer than topK.
	for idx := range candidates {
		if len(out) == topK {
			break
		}
		if used[idx] {
			continue
		}
		used[idx] = true
		out = append(out, candidates[idx])
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}
