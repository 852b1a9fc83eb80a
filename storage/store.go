// Package storage provides keyed CRUD persistence for the intelligence core
// backed by NATS JetStream KV. Each record family lives in its own bucket;
// filtered reads are bucket scans that skip entries that fail to load.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/oklog/ulid/v2"

	"github.com/33prime/aios-req-engine-sub007/entity"
)

// Bucket names for each record family.
const (
	BucketEntities     = "REQENGINE_ENTITIES"
	BucketHorizons     = "REQENGINE_HORIZONS"
	BucketOutcomes     = "REQENGINE_OUTCOMES"
	BucketMeasurements = "REQENGINE_MEASUREMENTS"
	BucketRevisions    = "REQENGINE_REVISIONS"
	BucketDependencies = "REQENGINE_DEPENDENCIES"
)

// Store provides record storage operations backed by NATS KV.
type Store struct {
	entities     jetstream.KeyValue
	horizons     jetstream.KeyValue
	outcomes     jetstream.KeyValue
	measurements jetstream.KeyValue
	revisions    jetstream.KeyValue
	dependencies jetstream.KeyValue
}

// NewStore creates a new Store with the given JetStream context.
// It creates the necessary KV buckets if they don't exist.
func NewStore(ctx context.Context, js jetstream.JetStream) (*Store, error) {
	s := &Store{}
	buckets := []struct {
		name string
		dst  *jetstream.KeyValue
	}{
		{BucketEntities, &s.entities},
		{BucketHorizons, &s.horizons},
		{BucketOutcomes, &s.outcomes},
		{BucketMeasurements, &s.measurements},
		{BucketRevisions, &s.revisions},
		{BucketDependencies, &s.dependencies},
	}
	for _, b := range buckets {
		kv, err := getOrCreateBucket(ctx, js, b.name)
		if err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", b.name, err)
		}
		*b.dst = kv
	}
	return s, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Req-engine %s storage", strings.ToLower(strings.TrimPrefix(name, "REQENGINE_"))),
		History:     5,
	})
}

// NewID generates a lexically sortable unique record ID.
func NewID() string {
	return ulid.Make().String()
}

func entityKey(t entity.Type, id string) string {
	return fmt.Sprintf("%s.%s", t, id)
}

// InsertEntity stores a new entity, stamping create/update times.
func (s *Store) InsertEntity(ctx context.Context, e *entity.Entity) error {
	if e.ID == "" {
		e.ID = NewID()
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entity: %w", err)
	}
	if _, err := s.entities.Create(ctx, entityKey(e.Type, e.ID), data); err != nil {
		return fmt.Errorf("store entity: %w", err)
	}
	return nil
}

// GetEntity retrieves an entity by type and ID.
func (s *Store) GetEntity(ctx context.Context, t entity.Type, id string) (*entity.Entity, error) {
	entry, err := s.entities.Get(ctx, entityKey(t, id))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get entity: %w", err)
	}
	var e entity.Entity
	if err := json.Unmarshal(entry.Value(), &e); err != nil {
		return nil, fmt.Errorf("unmarshal entity: %w", err)
	}
	return &e, nil
}

// UpdateEntity overwrites an existing entity, bumping its update time.
func (s *Store) UpdateEntity(ctx context.Context, e *entity.Entity) error {
	e.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entity: %w", err)
	}
	if _, err := s.entities.Put(ctx, entityKey(e.Type, e.ID), data); err != nil {
		return fmt.Errorf("update entity: %w", err)
	}
	return nil
}

// DeleteEntity removes an entity record.
func (s *Store) DeleteEntity(ctx context.Context, t entity.Type, id string) error {
	if err := s.entities.Delete(ctx, entityKey(t, id)); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete entity: %w", err)
	}
	return nil
}

// ListEntities returns all entities for a project, optionally restricted to
// the given types. Entries that fail to load are skipped.
func (s *Store) ListEntities(ctx context.Context, projectID string, types ...entity.Type) ([]*entity.Entity, error) {
	keys, err := s.entities.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list entity keys: %w", err)
	}

	typeSet := make(map[entity.Type]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	out := make([]*entity.Entity, 0, len(keys))
	for _, key := range keys {
		entry, err := s.entities.Get(ctx, key)
		if err != nil {
			continue // Skip entries that fail to load
		}
		var e entity.Entity
		if err := json.Unmarshal(entry.Value(), &e); err != nil {
			continue
		}
		if e.ProjectID != projectID {
			continue
		}
		if len(typeSet) > 0 && !typeSet[e.Type] {
			continue
		}
		out = append(out, &e)
	}
	return out, nil
}

// InsertHorizon stores a new horizon.
func (s *Store) InsertHorizon(ctx context.Context, h *entity.Horizon) error {
	if h.ID == "" {
		h.ID = NewID()
	}
	now := time.Now().UTC()
	h.CreatedAt = now
	h.UpdatedAt = now
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshal horizon: %w", err)
	}
	if _, err := s.horizons.Create(ctx, h.ID, data); err != nil {
		return fmt.Errorf("store horizon: %w", err)
	}
	return nil
}

// UpdateHorizon overwrites an existing horizon.
func (s *Store) UpdateHorizon(ctx context.Context, h *entity.Horizon) error {
	h.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshal horizon: %w", err)
	}
	if _, err := s.horizons.Put(ctx, h.ID, data); err != nil {
		return fmt.Errorf("update horizon: %w", err)
	}
	return nil
}

// GetHorizon retrieves a horizon by ID.
func (s *Store) GetHorizon(ctx context.Context, id string) (*entity.Horizon, error) {
	entry, err := s.horizons.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get horizon: %w", err)
	}
	var h entity.Horizon
	if err := json.Unmarshal(entry.Value(), &h); err != nil {
		return nil, fmt.Errorf("unmarshal horizon: %w", err)
	}
	return &h, nil
}

// ListHorizons returns all horizons for a project sorted by horizon number.
func (s *Store) ListHorizons(ctx context.Context, projectID string) ([]*entity.Horizon, error) {
	keys, err := s.horizons.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list horizon keys: %w", err)
	}

	out := make([]*entity.Horizon, 0, 3)
	for _, key := range keys {
		entry, err := s.horizons.Get(ctx, key)
		if err != nil {
			continue
		}
		var h entity.Horizon
		if err := json.Unmarshal(entry.Value(), &h); err != nil {
			continue
		}
		if h.ProjectID == projectID {
			out = append(out, &h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HorizonNumber < out[j].HorizonNumber })
	return out, nil
}

// InsertOutcome stores a new outcome.
func (s *Store) InsertOutcome(ctx context.Context, o *entity.Outcome) error {
	if o.ID == "" {
		o.ID = NewID()
	}
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	if _, err := s.outcomes.Create(ctx, o.ID, data); err != nil {
		return fmt.Errorf("store outcome: %w", err)
	}
	return nil
}

// UpdateOutcome overwrites an existing outcome.
func (s *Store) UpdateOutcome(ctx context.Context, o *entity.Outcome) error {
	o.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	if _, err := s.outcomes.Put(ctx, o.ID, data); err != nil {
		return fmt.Errorf("update outcome: %w", err)
	}
	return nil
}

// GetOutcome retrieves an outcome by ID.
func (s *Store) GetOutcome(ctx context.Context, id string) (*entity.Outcome, error) {
	entry, err := s.outcomes.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get outcome: %w", err)
	}
	var o entity.Outcome
	if err := json.Unmarshal(entry.Value(), &o); err != nil {
		return nil, fmt.Errorf("unmarshal outcome: %w", err)
	}
	return &o, nil
}

// ListOutcomesByHorizon returns all outcomes attached to a horizon.
func (s *Store) ListOutcomesByHorizon(ctx context.Context, horizonID string) ([]*entity.Outcome, error) {
	keys, err := s.outcomes.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list outcome keys: %w", err)
	}

	out := make([]*entity.Outcome, 0)
	for _, key := range keys {
		entry, err := s.outcomes.Get(ctx, key)
		if err != nil {
			continue
		}
		var o entity.Outcome
		if err := json.Unmarshal(entry.Value(), &o); err != nil {
			continue
		}
		if o.HorizonID == horizonID {
			out = append(out, &o)
		}
	}
	return out, nil
}

// InsertMeasurement stores a new measurement, stamping the observation time
// if the caller didn't.
func (s *Store) InsertMeasurement(ctx context.Context, m *entity.Measurement) error {
	if m.ID == "" {
		m.ID = NewID()
	}
	if m.MeasuredAt.IsZero() {
		m.MeasuredAt = time.Now().UTC()
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal measurement: %w", err)
	}
	if _, err := s.measurements.Create(ctx, m.ID, data); err != nil {
		return fmt.Errorf("store measurement: %w", err)
	}
	return nil
}

// ListMeasurements returns all measurements for an outcome, newest first.
func (s *Store) ListMeasurements(ctx context.Context, outcomeID string) ([]*entity.Measurement, error) {
	keys, err := s.measurements.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list measurement keys: %w", err)
	}

	out := make([]*entity.Measurement, 0)
	for _, key := range keys {
		entry, err := s.measurements.Get(ctx, key)
		if err != nil {
			continue
		}
		var m entity.Measurement
		if err := json.Unmarshal(entry.Value(), &m); err != nil {
			continue
		}
		if m.OutcomeID == outcomeID {
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MeasuredAt.After(out[j].MeasuredAt) })
	return out, nil
}

// InsertRevision stores a new audit revision.
func (s *Store) InsertRevision(ctx context.Context, r *entity.Revision) error {
	if r.ID == "" {
		r.ID = NewID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal revision: %w", err)
	}
	if _, err := s.revisions.Create(ctx, r.ID, data); err != nil {
		return fmt.Errorf("store revision: %w", err)
	}
	return nil
}

// ListRevisions returns all revisions for an entity sorted by revision number.
func (s *Store) ListRevisions(ctx context.Context, entityType entity.Type, entityID string) ([]*entity.Revision, error) {
	keys, err := s.revisions.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list revision keys: %w", err)
	}

	out := make([]*entity.Revision, 0)
	for _, key := range keys {
		entry, err := s.revisions.Get(ctx, key)
		if err != nil {
			continue
		}
		var r entity.Revision
		if err := json.Unmarshal(entry.Value(), &r); err != nil {
			continue
		}
		if r.EntityType == entityType && r.EntityID == entityID {
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RevisionNumber < out[j].RevisionNumber })
	return out, nil
}

// LastRevisionNumber returns the highest revision number recorded for an
// entity, or 0 if none exist. Not transactionally safe against concurrent
// writers to the same entity; callers accept the documented duplicate risk.
func (s *Store) LastRevisionNumber(ctx context.Context, entityType entity.Type, entityID string) (int, error) {
	revs, err := s.ListRevisions(ctx, entityType, entityID)
	if err != nil {
		return 0, err
	}
	if len(revs) == 0 {
		return 0, nil
	}
	return revs[len(revs)-1].RevisionNumber, nil
}

// InsertDependency stores a new dependency edge.
func (s *Store) InsertDependency(ctx context.Context, d *entity.Dependency) error {
	if d.ID == "" {
		d.ID = NewID()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal dependency: %w", err)
	}
	if _, err := s.dependencies.Create(ctx, d.ID, data); err != nil {
		return fmt.Errorf("store dependency: %w", err)
	}
	return nil
}

// ListDependencies returns all dependency edges for a project.
func (s *Store) ListDependencies(ctx context.Context, projectID string) ([]*entity.Dependency, error) {
	keys, err := s.dependencies.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list dependency keys: %w", err)
	}

	out := make([]*entity.Dependency, 0)
	for _, key := range keys {
		entry, err := s.dependencies.Get(ctx, key)
		if err != nil {
			continue
		}
		var d entity.Dependency
		if err := json.Unmarshal(entry.Value(), &d); err != nil {
			continue
		}
		if d.ProjectID == projectID {
			out = append(out, &d)
		}
	}
	return out, nil
}

// DeleteDependenciesFor removes every edge touching the given entity ID.
// Returns the number of edges removed; individual delete failures are
// skipped so a partial cascade never blocks the primary deletion.
func (s *Store) DeleteDependenciesFor(ctx context.Context, projectID, entityID string) (int, error) {
	deps, err := s.ListDependencies(ctx, projectID)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, d := range deps {
		if d.SourceID != entityID && d.TargetID != entityID {
			continue
		}
		if err := s.dependencies.Delete(ctx, d.ID); err != nil {
			continue
		}
		removed++
	}
	return removed, nil
}

// isNotFound checks if an error indicates a key was not found.
func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "key not found")
}
