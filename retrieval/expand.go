package retrieval

import (
	"context"

	"github.com/33prime/aios-req-engine-sub007/evidence"
	"github.com/33prime/aios-req-engine-sub007/graphquery"
	"github.com/33prime/aios-req-engine-sub007/metrics"
)

const (
	maxExpansionSeeds    = 3
	maxExpansionEntities = 15
)

// expandViaGraph grows the entity set from the top-scored matched entities
// by asking the graph service for their neighborhoods. Seed failures are
// skipped individually; an empty entity set means no expansion at all.
func (r *Retriever) expandViaGraph(ctx context.Context, req Request, result *Result) {
	if len(result.Entities) == 0 {
		return
	}

	seeds := result.Entities
	if len(seeds) > maxExpansionSeeds {
		seeds = seeds[:maxExpansionSeeds]
	}

	seenEntities := make(map[string]bool, len(result.Entities))
	for _, e := range result.Entities {
		seenEntities[e.ID] = true
	}
	seenChunks := make(map[string]bool, len(result.Chunks))
	for _, c := range result.Chunks {
		seenChunks[c.ID] = true
	}

	added := 0
	for _, seed := range seeds {
		if added >= maxExpansionEntities {
			break
		}
		hood, err := r.graph.GetEntityNeighborhood(ctx, graphquery.NeighborhoodRequest{
			EntityID:        seed.ID,
			EntityType:      seed.Type,
			ProjectID:       req.ProjectID,
			Depth:           req.GraphDepth,
			EntityTypes:     req.EntityTypes,
			ApplyRecency:    req.ApplyRecency,
			ApplyConfidence: req.ApplyConfidence,
		})
		if err != nil {
			metrics.StageFailures.WithLabelValues("graph_expansion").Inc()
			r.logger.Debug("Neighborhood lookup failed, skipping seed",
				"entity_id", seed.ID, "error", err)
			continue
		}

		for _, rel := range hood.Related {
			if added >= maxExpansionEntities {
				break
			}
			if seenEntities[rel.EntityID] {
				continue
			}
			seenEntities[rel.EntityID] = true
			result.Entities = append(result.Entities, evidence.EntityMatch{
				ID:     rel.EntityID,
				Type:   rel.EntityType,
				Name:   rel.EntityName,
				Source: evidence.SourceGraphExpansion,
			})
			added++
		}

		for _, chunk := range hood.EvidenceChunks {
			if seenChunks[chunk.ID] {
				continue
			}
			seenChunks[chunk.ID] = true
			chunk.Source = evidence.SourceGraphExpansion
			result.Chunks = append(result.Chunks, chunk)
		}
	}
}

func mergeChunks(dst, src []evidence.Chunk) []evidence.Chunk {
	seen := make(map[string]bool, len(dst))
	for _, c := range dst {
		seen[c.ID] = true
	}
	for _, c := range src {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		dst = append(dst, c)
	}
	return dst
}

func mergeEntities(dst, src []evidence.EntityMatch) []evidence.EntityMatch {
	seen := make(map[string]bool, len(dst))
	for _, e := range dst {
		seen[e.ID] = true
	}
	for _, e := range src {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		dst = append(dst, e)
	}
	return dst
}

func mergeBeliefs(dst, src []evidence.Belief) []evidence.Belief {
	seen := make(map[string]bool, len(dst))
	for _, b := range dst {
		seen[b.ID] = true
	}
	for _, b := range src {
		if seen[b.ID] {
			continue
		}
		seen[b.ID] = true
		dst = append(dst, b)
	}
	return dst
}
