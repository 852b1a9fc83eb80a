package awareness

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/33prime/aios-req-engine-sub007/entity"
)

const maxRecentUnlocks = 5

// Store is the persistence surface the builder reads from.
type Store interface {
	ListEntities(ctx context.Context, projectID string, types ...entity.Type) ([]*entity.Entity, error)
}

// Builder assembles snapshots from project entities. All sub-queries run
// concurrently and degrade to empty on failure; a snapshot is always
// produced.
type Builder struct {
	store  Store
	logger *slog.Logger
}

// NewBuilder creates a snapshot builder.
func NewBuilder(store Store, logger *slog.Logger) *Builder {
	return &Builder{store: store, logger: logger}
}

// Build assembles a fresh snapshot for a project.
func (b *Builder) Build(ctx context.Context, projectID, projectName string) *Snapshot {
	snap := &Snapshot{
		ProjectID:   projectID,
		ProjectName: projectName,
		BuiltAt:     time.Now(),
	}

	var (
		wg        sync.WaitGroup
		steps     []*entity.Entity
		workflows []*entity.Entity
		counts    map[string]int
		sessions  int
		unlocks   []string
		people    []string
	)

	wg.Add(5)
	go func() {
		defer wg.Done()
		steps = b.list(ctx, projectID, entity.TypeSolutionFlowStep)
	}()
	go func() {
		defer wg.Done()
		workflows = b.list(ctx, projectID, entity.TypeWorkflow)
	}()
	go func() {
		defer wg.Done()
		counts, sessions = b.countEntities(ctx, projectID)
	}()
	go func() {
		defer wg.Done()
		unlocks = b.recentUnlocks(ctx, projectID)
	}()
	go func() {
		defer wg.Done()
		people = b.stakeholderNames(ctx, projectID)
	}()
	wg.Wait()

	snap.Flow = buildFlow(steps)
	for _, step := range snap.Flow {
		if step.Health == HealthConfirmed {
			snap.ConfirmedSteps++
		}
	}
	snap.EntityCounts = counts
	snap.PrototypeSessions = sessions
	snap.RecentUnlocks = unlocks
	snap.Stakeholders = people

	confirmedFlows := 0
	for _, w := range workflows {
		if w.Status() == "confirmed" {
			confirmedFlows++
		}
	}
	snap.Phase = DetectPhase(sessions, confirmedFlows, len(snap.Flow), snap.ConfirmedSteps)

	return snap
}

func (b *Builder) list(ctx context.Context, projectID string, t entity.Type) []*entity.Entity {
	entities, err := b.store.ListEntities(ctx, projectID, t)
	if err != nil {
		b.logger.Debug("Snapshot sub-query failed", "entity_type", t, "error", err)
		return nil
	}
	return entities
}

// countEntities tallies all entity types in one scan. Prototype sessions
// are inferred from unlock entities originating in prototype work.
func (b *Builder) countEntities(ctx context.Context, projectID string) (map[string]int, int) {
	entities, err := b.store.ListEntities(ctx, projectID)
	if err != nil {
		b.logger.Debug("Entity count sub-query failed", "error", err)
		return nil, 0
	}
	counts := make(map[string]int)
	sessions := 0
	seenSessions := make(map[string]bool)
	for _, e := range entities {
		counts[e.Type.String()]++
		if e.Type == entity.TypeUnlock {
			if sid := e.StringField("session_id"); sid != "" && !seenSessions[sid] {
				seenSessions[sid] = true
				sessions++
			}
		}
	}
	return counts, sessions
}

func (b *Builder) recentUnlocks(ctx context.Context, projectID string) []string {
	unlocks := b.list(ctx, projectID, entity.TypeUnlock)
	sort.SliceStable(unlocks, func(i, j int) bool {
		return unlocks[i].CreatedAt.After(unlocks[j].CreatedAt)
	})
	if len(unlocks) > maxRecentUnlocks {
		unlocks = unlocks[:maxRecentUnlocks]
	}
	names := make([]string, 0, len(unlocks))
	for _, u := range unlocks {
		names = append(names, u.Name())
	}
	return names
}

func (b *Builder) stakeholderNames(ctx context.Context, projectID string) []string {
	stakeholders := b.list(ctx, projectID, entity.TypeStakeholder)
	names := make([]string, 0, len(stakeholders))
	for _, s := range stakeholders {
		names = append(names, s.Name())
	}
	sort.Strings(names)
	return names
}

// buildFlow orders steps and classifies each one.
func buildFlow(steps []*entity.Entity) []FlowStep {
	flow := make([]FlowStep, 0, len(steps))
	for _, s := range steps {
		order := 0
		if f, ok := s.FloatField("order"); ok {
			order = int(f)
		}
		flow = append(flow, FlowStep{
			ID:           s.ID,
			Name:         s.Name(),
			Order:        order,
			Health:       ClassifyStepHealth(s),
			Completeness: StepCompleteness(s),
		})
	}
	sort.SliceStable(flow, func(i, j int) bool { return flow[i].Order < flow[j].Order })
	return flow
}
