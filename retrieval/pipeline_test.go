package retrieval_test

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/33prime/aios-req-engine-sub007/evidence"
	"github.com/33prime/aios-req-engine-sub007/graphquery"
	"github.com/33prime/aios-req-engine-sub007/rerank"
	"github.com/33prime/aios-req-engine-sub007/retrieval"
)

type fakeVectors struct {
	mu            sync.Mutex
	chunkQueries  []string
	chunks        []evidence.Chunk
	chunksByQuery map[string][]evidence.Chunk
	entities      []evidence.EntityMatch
	beliefs       []evidence.Belief
	chunksErr     error
	entitiesErr   error
	beliefsErr    error
}

func (v *fakeVectors) SearchChunks(_ context.Context, query, _ string, _ int) ([]evidence.Chunk, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.chunkQueries = append(v.chunkQueries, query)
	if v.chunksErr != nil {
		return nil, v.chunksErr
	}
	if v.chunksByQuery != nil {
		return v.chunksByQuery[query], nil
	}
	return v.chunks, nil
}

func (v *fakeVectors) SearchEntities(_ context.Context, _, _ string, _ int, _ []string) ([]evidence.EntityMatch, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.entitiesErr != nil {
		return nil, v.entitiesErr
	}
	return v.entities, nil
}

func (v *fakeVectors) SearchBeliefs(_ context.Context, _, _ string, _ int) ([]evidence.Belief, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.beliefsErr != nil {
		return nil, v.beliefsErr
	}
	return v.beliefs, nil
}

type fakeGraph struct {
	mu    sync.Mutex
	seeds []string
	hoods map[string]*evidence.Neighborhood
	err   error
}

func (g *fakeGraph) GetEntityNeighborhood(_ context.Context, req graphquery.NeighborhoodRequest) (*evidence.Neighborhood, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seeds = append(g.seeds, req.EntityID)
	if g.err != nil {
		return nil, g.err
	}
	hood, ok := g.hoods[req.EntityID]
	if !ok {
		return &evidence.Neighborhood{}, nil
	}
	return hood, nil
}

type fakeCommercial struct {
	available bool
	ranked    []rerank.Ranked
	err       error
	called    bool
}

func (c *fakeCommercial) Available() bool { return c.available }

func (c *fakeCommercial) Rerank(_ context.Context, _ string, _ []string, _ int) ([]rerank.Ranked, error) {
	c.called = true
	if c.err != nil {
		return nil, c.err
	}
	return c.ranked, nil
}

type fakeListwise struct {
	indices []int
	err     error
	called  bool
}

func (l *fakeListwise) Rank(_ context.Context, _ string, _ []string, _ int) ([]int, error) {
	l.called = true
	if l.err != nil {
		return nil, l.err
	}
	return l.indices, nil
}

type fakeDecomposer struct {
	subs   []string
	err    error
	called bool
}

func (d *fakeDecomposer) Decompose(_ context.Context, _ string) ([]string, error) {
	d.called = true
	if d.err != nil {
		return nil, d.err
	}
	return d.subs, nil
}

func chunkN(id string, sim float64) evidence.Chunk {
	return evidence.Chunk{ID: id, Content: "content " + id, Similarity: sim, Source: evidence.SourceVector}
}

func entityN(id string, sim float64) evidence.EntityMatch {
	return evidence.EntityMatch{ID: id, Type: "feature", Name: "entity " + id, Similarity: sim, Source: evidence.SourceVector}
}

func TestRetrieve_SortsBySimilarityAndTruncates(t *testing.T) {
	vectors := &fakeVectors{
		chunks: []evidence.Chunk{chunkN("c1", 0.2), chunkN("c2", 0.9), chunkN("c3", 0.5)},
	}
	r := retrieval.NewRetriever(vectors, slog.Default())

	result := r.Retrieve(context.Background(), retrieval.Request{
		Query:         "payment reconciliation flow",
		ProjectID:     "proj-1",
		SkipReranking: true,
		TopK:          2,
	})

	require.Len(t, result.Chunks, 2)
	assert.Equal(t, "c2", result.Chunks[0].ID)
	assert.Equal(t, "c3", result.Chunks[1].ID)
}

func TestRetrieve_DecompositionErrorFallsBackToRawQuery(t *testing.T) {
	vectors := &fakeVectors{chunks: []evidence.Chunk{chunkN("c1", 0.9)}}
	dec := &fakeDecomposer{err: fmt.Errorf("model unavailable")}
	r := retrieval.NewRetriever(vectors, slog.Default(), retrieval.WithDecomposer(dec))

	query := "how do refunds interact with the loyalty program and invoicing?"
	result := r.Retrieve(context.Background(), retrieval.Request{Query: query, ProjectID: "proj-1"})

	assert.True(t, dec.called)
	assert.Equal(t, []string{query}, result.SourceQueries)
	assert.Len(t, result.Chunks, 1)
}

func TestRetrieve_ShortQuerySkipsDecomposition(t *testing.T) {
	vectors := &fakeVectors{}
	dec := &fakeDecomposer{subs: []string{"a", "b"}}
	r := retrieval.NewRetriever(vectors, slog.Default(), retrieval.WithDecomposer(dec))

	r.Retrieve(context.Background(), retrieval.Request{Query: "refund status", ProjectID: "proj-1"})

	assert.False(t, dec.called)
}

func TestRetrieve_SubQueriesAllFetched(t *testing.T) {
	vectors := &fakeVectors{chunksByQuery: map[string][]evidence.Chunk{
		"billing": {chunkN("c1", 0.9)},
		"refunds": {chunkN("c2", 0.8), chunkN("c1", 0.9)},
	}}
	dec := &fakeDecomposer{subs: []string{"billing", "refunds"}}
	r := retrieval.NewRetriever(vectors, slog.Default(), retrieval.WithDecomposer(dec))

	result := r.Retrieve(context.Background(), retrieval.Request{
		Query:         "how does billing relate to refunds in this engagement?",
		ProjectID:     "proj-1",
		SkipReranking: true,
	})

	assert.Equal(t, []string{"billing", "refunds"}, result.SourceQueries)
	// c1 appears in both sub-query results but is merged once.
	require.Len(t, result.Chunks, 2)
	assert.ElementsMatch(t, []string{"billing", "refunds"}, vectors.chunkQueries)
}

func TestRetrieve_BroadensWhenInsufficient(t *testing.T) {
	vectors := &fakeVectors{chunksByQuery: map[string][]evidence.Chunk{
		"sparse topic":          {chunkN("c1", 0.9)},
		"sparse topic checkout": {chunkN("c2", 0.8), chunkN("c3", 0.7), chunkN("c4", 0.6)},
	}}
	r := retrieval.NewRetriever(vectors, slog.Default())

	result := r.Retrieve(context.Background(), retrieval.Request{
		Query:         "sparse topic",
		ProjectID:     "proj-1",
		MaxRounds:     2,
		ContextHint:   "checkout",
		SkipReranking: true,
	})

	assert.Contains(t, result.SourceQueries, "sparse topic checkout")
	assert.Len(t, result.Chunks, 4)
}

func TestRetrieve_SourceFailureDegrades(t *testing.T) {
	vectors := &fakeVectors{
		chunksErr: fmt.Errorf("vector service down"),
		entities:  []evidence.EntityMatch{entityN("e1", 0.9)},
		beliefs:   []evidence.Belief{{ID: "b1", Statement: "latency matters", Similarity: 0.8}},
	}
	r := retrieval.NewRetriever(vectors, slog.Default())

	result := r.Retrieve(context.Background(), retrieval.Request{Query: "anything", ProjectID: "proj-1"})

	assert.Empty(t, result.Chunks)
	assert.Len(t, result.Entities, 1)
	assert.Len(t, result.Beliefs, 1)
}

func TestRetrieve_GraphExpansionSeedsAndDedup(t *testing.T) {
	vectors := &fakeVectors{entities: []evidence.EntityMatch{
		entityN("e1", 0.95), entityN("e2", 0.90), entityN("e3", 0.85), entityN("e4", 0.50),
	}}
	graph := &fakeGraph{hoods: map[string]*evidence.Neighborhood{
		"e1": {Related: []evidence.RelatedEntity{
			{EntityID: "e2", EntityName: "already matched"},
			{EntityID: "n1", EntityName: "neighbor one"},
		}},
		"e2": {Related: []evidence.RelatedEntity{
			{EntityID: "n1", EntityName: "neighbor one"},
			{EntityID: "n2", EntityName: "neighbor two"},
		}},
	}}
	r := retrieval.NewRetriever(vectors, slog.Default(), retrieval.WithGraphQuerier(graph))

	result := r.Retrieve(context.Background(), retrieval.Request{
		Query:         "expansion",
		ProjectID:     "proj-1",
		GraphDepth:    1,
		SkipReranking: true,
	})

	// Only the three highest-similarity matches seed the expansion.
	assert.Equal(t, []string{"e1", "e2", "e3"}, graph.seeds)

	ids := make(map[string]int)
	for _, e := range result.Entities {
		ids[e.ID]++
	}
	assert.Equal(t, 1, ids["n1"])
	assert.Equal(t, 1, ids["n2"])
	assert.Equal(t, 1, ids["e2"])
	assert.Len(t, result.Entities, 6)

	for _, e := range result.Entities {
		if e.ID == "n1" || e.ID == "n2" {
			assert.Equal(t, evidence.SourceGraphExpansion, e.Source)
		}
	}
}

func TestRetrieve_GraphExpansionCapped(t *testing.T) {
	vectors := &fakeVectors{entities: []evidence.EntityMatch{entityN("e1", 0.95)}}
	var related []evidence.RelatedEntity
	for i := 0; i < 40; i++ {
		related = append(related, evidence.RelatedEntity{EntityID: fmt.Sprintf("n%d", i)})
	}
	graph := &fakeGraph{hoods: map[string]*evidence.Neighborhood{"e1": {Related: related}}}
	r := retrieval.NewRetriever(vectors, slog.Default(), retrieval.WithGraphQuerier(graph))

	result := r.Retrieve(context.Background(), retrieval.Request{
		Query:         "expansion",
		ProjectID:     "proj-1",
		GraphDepth:    2,
		SkipReranking: true,
	})

	// One matched entity plus at most fifteen expansion entities.
	assert.Len(t, result.Entities, 16)
}

func TestRetrieve_GraphExpansionFailureLeavesResultUnchanged(t *testing.T) {
	vectors := &fakeVectors{
		entities: []evidence.EntityMatch{entityN("e1", 0.95), entityN("e2", 0.90)},
		chunks:   []evidence.Chunk{chunkN("c1", 0.9)},
	}
	graph := &fakeGraph{err: fmt.Errorf("graph service down")}
	r := retrieval.NewRetriever(vectors, slog.Default(), retrieval.WithGraphQuerier(graph))

	result := r.Retrieve(context.Background(), retrieval.Request{
		Query:         "expansion",
		ProjectID:     "proj-1",
		GraphDepth:    1,
		SkipReranking: true,
	})

	assert.Len(t, result.Entities, 2)
	assert.Len(t, result.Chunks, 1)
}

func fiveChunks() []evidence.Chunk {
	return []evidence.Chunk{
		chunkN("c0", 0.9), chunkN("c1", 0.8), chunkN("c2", 0.7),
		chunkN("c3", 0.6), chunkN("c4", 0.5),
	}
}

func TestRerank_SkippedWhenWithinTopK(t *testing.T) {
	vectors := &fakeVectors{chunks: fiveChunks()[:2]}
	commercial := &fakeCommercial{available: true}
	listwise := &fakeListwise{}
	r := retrieval.NewRetriever(vectors, slog.Default(),
		retrieval.WithCommercialReranker(commercial),
		retrieval.WithListwiseRanker(listwise),
		retrieval.WithTopK(3))

	result := r.Retrieve(context.Background(), retrieval.Request{Query: "q", ProjectID: "proj-1"})

	assert.False(t, commercial.called)
	assert.False(t, listwise.called)
	assert.Len(t, result.Chunks, 2)
}

func TestRerank_CommercialReorders(t *testing.T) {
	vectors := &fakeVectors{chunks: fiveChunks()}
	commercial := &fakeCommercial{
		available: true,
		ranked:    []rerank.Ranked{{Index: 3}, {Index: 1}, {Index: 0}},
	}
	listwise := &fakeListwise{}
	r := retrieval.NewRetriever(vectors, slog.Default(),
		retrieval.WithCommercialReranker(commercial),
		retrieval.WithListwiseRanker(listwise),
		retrieval.WithTopK(3))

	result := r.Retrieve(context.Background(), retrieval.Request{Query: "q", ProjectID: "proj-1"})

	require.Len(t, result.Chunks, 3)
	assert.Equal(t, "c3", result.Chunks[0].ID)
	assert.Equal(t, "c1", result.Chunks[1].ID)
	assert.Equal(t, "c0", result.Chunks[2].ID)
	assert.False(t, listwise.called)
}

func TestRerank_FallsBackToListwise(t *testing.T) {
	vectors := &fakeVectors{chunks: fiveChunks()}
	commercial := &fakeCommercial{available: true, err: fmt.Errorf("quota exhausted")}
	listwise := &fakeListwise{indices: []int{2, 4}}
	r := retrieval.NewRetriever(vectors, slog.Default(),
		retrieval.WithCommercialReranker(commercial),
		retrieval.WithListwiseRanker(listwise),
		retrieval.WithTopK(3))

	result := r.Retrieve(context.Background(), retrieval.Request{Query: "q", ProjectID: "proj-1"})

	assert.True(t, commercial.called)
	require.True(t, listwise.called)
	require.Len(t, result.Chunks, 3)
	assert.Equal(t, "c2", result.Chunks[0].ID)
	assert.Equal(t, "c4", result.Chunks[1].ID)
	// Ranked fewer than topK: padded with the first unranked candidate.
	assert.Equal(t, "c0", result.Chunks[2].ID)
}

func TestRerank_BothFailTruncates(t *testing.T) {
	vectors := &fakeVectors{chunks: fiveChunks()}
	commercial := &fakeCommercial{available: true, err: fmt.Errorf("down")}
	listwise := &fakeListwise{err: fmt.Errorf("also down")}
	r := retrieval.NewRetriever(vectors, slog.Default(),
		retrieval.WithCommercialReranker(commercial),
		retrieval.WithListwiseRanker(listwise),
		retrieval.WithTopK(3))

	result := r.Retrieve(context.Background(), retrieval.Request{Query: "q", ProjectID: "proj-1"})

	require.Len(t, result.Chunks, 3)
	assert.Equal(t, "c0", result.Chunks[0].ID)
	assert.Equal(t, "c1", result.Chunks[1].ID)
	assert.Equal(t, "c2", result.Chunks[2].ID)
}

func TestRerank_InvalidIndicesIgnored(t *testing.T) {
	vectors := &fakeVectors{chunks: fiveChunks()}
	listwise := &fakeListwise{indices: []int{7, -1, 2, 2, 0}}
	r := retrieval.NewRetriever(vectors, slog.Default(),
		retrieval.WithListwiseRanker(listwise),
		retrieval.WithTopK(2))

	result := r.Retrieve(context.Background(), retrieval.Request{Query: "q", ProjectID: "proj-1"})

	require.Len(t, result.Chunks, 2)
	assert.Equal(t, "c2", result.Chunks[0].ID)
	assert.Equal(t, "c0", result.Chunks[1].ID)
}
