package compound_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/33prime/aios-req-engine-sub007/compound"
	"github.com/33prime/aios-req-engine-sub007/entity"
)

type fakeStore struct {
	entities []*entity.Entity
	deps     []*entity.Dependency
	updated  map[string]*entity.Entity
}

func (s *fakeStore) ListEntities(_ context.Context, _ string, _ ...entity.Type) ([]*entity.Entity, error) {
	return s.entities, nil
}

func (s *fakeStore) ListDependencies(_ context.Context, _ string) ([]*entity.Dependency, error) {
	return s.deps, nil
}

func (s *fakeStore) UpdateEntity(_ context.Context, e *entity.Entity) error {
	if s.updated == nil {
		s.updated = make(map[string]*entity.Entity)
	}
	s.updated[e.ID] = e
	return nil
}

func alignedEntity(id string, h1, h2, h3 float64) *entity.Entity {
	e := &entity.Entity{
		ID:        id,
		Type:      entity.TypeFeature,
		ProjectID: "proj-1",
		Fields:    map[string]any{"name": id},
	}
	e.SetAlignment(entity.HorizonAlignment{H1: h1, H2: h2, H3: h3})
	return e
}

func dep(source, target string, strength float64) *entity.Dependency {
	return &entity.Dependency{ProjectID: "proj-1", SourceID: source, TargetID: target, Strength: strength}
}

func TestDetect_ScoreAndRecommendation(t *testing.T) {
	store := &fakeStore{
		entities: []*entity.Entity{
			alignedEntity("feat-a", 0.8, 0, 0),
			alignedEntity("feat-b", 0, 0.9, 0),
		},
		deps: []*entity.Dependency{dep("feat-a", "feat-b", 0.5)},
	}

	engine := compound.NewEngine(store, slog.Default())

	decisions, err := engine.Detect(context.Background(), "proj-1")
	require.NoError(t, err)
	require.Len(t, decisions, 1)

	d := decisions[0]
	assert.Equal(t, "feat-a", d.EntityID)
	assert.Equal(t, "feat-b", d.NeighborID)
	assert.Equal(t, "h2", d.Horizon)
	assert.Equal(t, 0.36, d.CompoundScore)
	assert.Equal(t, compound.RecommendBuildNow, d.Recommendation)
	assert.Equal(t, 1, d.Depth)

	// Best decision written back onto the source entity.
	require.Contains(t, store.updated, "feat-a")
	align := store.updated["feat-a"].Alignment()
	assert.Equal(t, 0.36, align.Compound)
	assert.Equal(t, compound.RecommendBuildNow, align.Recommendation)
}

func TestDetect_RecommendationTiers(t *testing.T) {
	tests := []struct {
		name     string
		h1       float64
		h3       float64
		strength float64
		want     string
	}{
		{name: "strong consequence builds right", h1: 0.95, h3: 0.95, strength: 0.9, want: compound.RecommendBuildRight},
		{name: "moderate consequence architects now", h1: 0.8, h3: 0.8, strength: 0.8, want: compound.RecommendArchitectNow},
		{name: "weak consequence builds now", h1: 0.6, h3: 0.6, strength: 0.6, want: compound.RecommendBuildNow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{
				entities: []*entity.Entity{
					alignedEntity("src", tt.h1, 0, 0),
					alignedEntity("dst", 0, 0, tt.h3),
				},
				deps: []*entity.Dependency{dep("src", "dst", tt.strength)},
			}
			engine := compound.NewEngine(store, slog.Default())

			decisions, err := engine.Detect(context.Background(), "proj-1")
			require.NoError(t, err)
			require.Len(t, decisions, 1)
			assert.Equal(t, tt.want, decisions[0].Recommendation)
			assert.Equal(t, "h3", decisions[0].Horizon)
		})
	}
}

func TestDetect_MaxStrengthPathWins(t *testing.T) {
	// Two paths from src to dst: a direct weak edge (0.2) and a two-hop
	// strong route through mid (0.9 * 0.9 = 0.81).
	store := &fakeStore{
		entities: []*entity.Entity{
			alignedEntity("src", 0.9, 0, 0),
			alignedEntity("mid", 0, 0, 0),
			alignedEntity("dst", 0, 0.9, 0),
		},
		deps: []*entity.Dependency{
			dep("src", "dst", 0.2),
			dep("src", "mid", 0.9),
			dep("mid", "dst", 0.9),
		},
	}
	engine := compound.NewEngine(store, slog.Default())

	decisions, err := engine.Detect(context.Background(), "proj-1")
	require.NoError(t, err)
	require.Len(t, decisions, 1)

	d := decisions[0]
	assert.Equal(t, 0.81, d.PathStrength)
	assert.Equal(t, 2, d.Depth)
	// 0.9 * (0.9 * 0.81) = 0.6561 -> 0.656
	assert.Equal(t, 0.656, d.CompoundScore)
}

func TestDetect_DepthBound(t *testing.T) {
	// dst sits three hops away; the traversal stops at two.
	store := &fakeStore{
		entities: []*entity.Entity{
			alignedEntity("src", 0.9, 0, 0),
			alignedEntity("a", 0, 0, 0),
			alignedEntity("b", 0, 0, 0),
			alignedEntity("dst", 0, 0.9, 0.9),
		},
		deps: []*entity.Dependency{
			dep("src", "a", 0.9),
			dep("a", "b", 0.9),
			dep("b", "dst", 0.9),
		},
	}
	engine := compound.NewEngine(store, slog.Default())

	decisions, err := engine.Detect(context.Background(), "proj-1")
	require.NoError(t, err)
	assert.Empty(t, decisions)
}

func TestDetect_AlignmentGates(t *testing.T) {
	store := &fakeStore{
		entities: []*entity.Entity{
			// Source below the near-term gate.
			alignedEntity("weak-src", 0.5, 0, 0),
			// Neighbor below both long-horizon gates.
			alignedEntity("strong-src", 0.9, 0, 0),
			alignedEntity("weak-dst", 0, 0.5, 0.5),
		},
		deps: []*entity.Dependency{
			dep("weak-src", "weak-dst", 0.9),
			dep("strong-src", "weak-dst", 0.9),
		},
	}
	engine := compound.NewEngine(store, slog.Default())

	decisions, err := engine.Detect(context.Background(), "proj-1")
	require.NoError(t, err)
	assert.Empty(t, decisions)
	assert.Empty(t, store.updated)
}

func TestDetect_SortedByScoreDescending(t *testing.T) {
	store := &fakeStore{
		entities: []*entity.Entity{
			alignedEntity("src", 0.9, 0, 0),
			alignedEntity("big", 0, 0.9, 0),
			alignedEntity("small", 0, 0.6, 0),
		},
		deps: []*entity.Dependency{
			dep("src", "big", 0.9),
			dep("src", "small", 0.9),
		},
	}
	engine := compound.NewEngine(store, slog.Default())

	decisions, err := engine.Detect(context.Background(), "proj-1")
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	assert.Equal(t, "big", decisions[0].NeighborID)
	assert.Equal(t, "small", decisions[1].NeighborID)
	assert.Greater(t, decisions[0].CompoundScore, decisions[1].CompoundScore)
}
