package compound

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/33prime/aios-req-engine-sub007/entity"
	"github.com/33prime/aios-req-engine-sub007/metrics"
)

const (
	// maxTraversalDepth bounds the BFS neighborhood.
	maxTraversalDepth = 2

	// alignmentGate is the minimum alignment score that makes a node a
	// traversal source (h1) or a qualifying consequence (h2/h3).
	alignmentGate = 0.5
)

// Recommendation tiers by compound score.
const (
	RecommendBuildRight   = "build_right"
	RecommendArchitectNow = "architect_now"
	RecommendBuildNow     = "build_now"
)

// Decision is one detected compound decision: a near-term entity whose
// dependency neighborhood contains a long-horizon consequence.
type Decision struct {
	EntityID       string  `json:"entity_id"`
	EntityName     string  `json:"entity_name"`
	NeighborID     string  `json:"neighbor_id"`
	NeighborName   string  `json:"neighbor_name"`
	Horizon        string  `json:"horizon"` // "h2" or "h3", whichever drove the score
	CompoundScore  float64 `json:"compound_score"`
	PathStrength   float64 `json:"path_strength"`
	Depth          int     `json:"depth"`
	Recommendation string  `json:"recommendation"`
}

// Store is the persistence surface the engine needs.
type Store interface {
	ListEntities(ctx context.Context, projectID string, types ...entity.Type) ([]*entity.Entity, error)
	ListDependencies(ctx context.Context, projectID string) ([]*entity.Dependency, error)
	UpdateEntity(ctx context.Context, e *entity.Entity) error
}

// Engine detects compound decisions for a project.
type Engine struct {
	store  Store
	logger *slog.Logger
}

// NewEngine creates a compound-decision engine.
func NewEngine(store Store, logger *slog.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// Detect builds the project's dependency graph, traverses it from every
// near-term entity, and returns compound decisions sorted by descending
// score. As a side effect it writes the best compound score and
// recommendation back onto each source entity's alignment; this keeps cached
// recommendations fresh without a separate write path, and failures there
// never fail the analysis.
func (e *Engine) Detect(ctx context.Context, projectID string) ([]Decision, error) {
	entities, err := e.store.ListEntities(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	deps, err := e.store.ListDependencies(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list dependencies: %w", err)
	}

	byID := make(map[string]*entity.Entity, len(entities))
	for _, ent := range entities {
		byID[ent.ID] = ent
	}

	edges := make([]edge, 0, len(deps))
	for _, d := range deps {
		edges = append(edges, edge{source: d.SourceID, target: d.TargetID, strength: d.Strength})
	}
	adj := buildAdjacency(edges)

	var decisions []Decision
	bestPerSource := make(map[string]Decision)

	for _, src := range entities {
		align := src.Alignment()
		if align.H1 <= alignmentGate {
			continue
		}

		for nbID, r := range traverse(adj, src.ID, maxTraversalDepth) {
			nb, ok := byID[nbID]
			if !ok {
				continue
			}
			nbAlign := nb.Alignment()
			if nbAlign.H2 <= alignmentGate && nbAlign.H3 <= alignmentGate {
				continue
			}

			h2Weighted := nbAlign.H2 * r.strength
			h3Weighted := nbAlign.H3 * r.strength
			weighted := h2Weighted
			horizon := "h2"
			if h3Weighted > h2Weighted {
				weighted = h3Weighted
				horizon = "h3"
			}

			score := round3(align.H1 * weighted)
			d := Decision{
				EntityID:       src.ID,
				EntityName:     src.Name(),
				NeighborID:     nb.ID,
				NeighborName:   nb.Name(),
				Horizon:        horizon,
				CompoundScore:  score,
				PathStrength:   r.strength,
				Depth:          r.depth,
				Recommendation: recommendationFor(score),
			}
			decisions = append(decisions, d)

			if prev, ok := bestPerSource[src.ID]; !ok || d.CompoundScore > prev.CompoundScore {
				bestPerSource[src.ID] = d
			}
		}
	}

	sort.SliceStable(decisions, func(i, j int) bool {
		return decisions[i].CompoundScore > decisions[j].CompoundScore
	})

	e.persistRecommendations(ctx, byID, bestPerSource)

	return decisions, nil
}

// persistRecommendations writes compound score and recommendation back onto
// each affected entity's alignment. Best-effort: failures are logged and
// skipped.
func (e *Engine) persistRecommendations(ctx context.Context, byID map[string]*entity.Entity, best map[string]Decision) {
	for id, d := range best {
		ent, ok := byID[id]
		if !ok {
			continue
		}
		align := ent.Alignment()
		align.Compound = d.CompoundScore
		align.Recommendation = d.Recommendation
		ent.SetAlignment(align)

		if err := e.store.UpdateEntity(ctx, ent); err != nil {
			e.logger.Warn("Failed to persist compound recommendation",
				"entity_id", id, "error", err)
			continue
		}
		metrics.CompoundDecisions.WithLabelValues(d.Recommendation).Inc()
	}
}

// recommendationFor maps a compound score onto its recommendation tier.
func recommendationFor(score float64) string {
	switch {
	case score > 0.7:
		return RecommendBuildRight
	case score > 0.4:
		return RecommendArchitectNow
	default:
		return RecommendBuildNow
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
