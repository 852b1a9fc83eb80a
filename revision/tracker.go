package revision

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/33prime/aios-req-engine-sub007/entity"
	"github.com/33prime/aios-req-engine-sub007/metrics"
)

// Store is the persistence surface the tracker needs.
type Store interface {
	LastRevisionNumber(ctx context.Context, entityType entity.Type, entityID string) (int, error)
	InsertRevision(ctx context.Context, r *entity.Revision) error
}

// Change describes one entity mutation to be audited.
type Change struct {
	EntityType   entity.Type
	EntityID     string
	ProjectID    string
	Old          map[string]any // nil for creation
	New          map[string]any // nil for deletion
	TriggerEvent string
	CreatedBy    string
}

// Tracker is the single write path for audit revisions.
type Tracker struct {
	store        Store
	logger       *slog.Logger
	ignoreFields []string
	largeFields  []string
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithIgnoreFields overrides the default ignore set.
func WithIgnoreFields(fields []string) TrackerOption {
	return func(t *Tracker) { t.ignoreFields = fields }
}

// WithLargeFields overrides the default large-field set.
func WithLargeFields(fields []string) TrackerOption {
	return func(t *Tracker) { t.largeFields = fields }
}

// NewTracker creates a revision tracker.
func NewTracker(store Store, logger *slog.Logger, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		store:        store,
		logger:       logger,
		ignoreFields: DefaultIgnoreFields,
		largeFields:  DefaultLargeFields,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TrackEntityChange records a revision for an entity mutation.
//
// A nil Old snapshot records a created revision with the new fields verbatim
// (compacted for storage). A nil New snapshot records a deleted revision.
// Otherwise the diff is computed and, when it comes back empty, the tracker
// returns nil without persisting anything: no-op updates produce no audit
// noise, which makes repeated identical writes idempotent from the audit's
// point of view.
//
// Revision numbering reads the last revision's number and adds one. This is
// not transactionally safe against concurrent writers to the same entity;
// duplicate numbers under true concurrency are an accepted, documented risk.
//
// Persistence failures are logged and swallowed: change tracking must never
// block or fail the primary mutation it is auditing.
func (t *Tracker) TrackEntityChange(ctx context.Context, change Change) *entity.Revision {
	rev, err := t.buildRevision(ctx, change)
	if err != nil {
		t.logger.Warn("Failed to prepare revision, change not audited",
			"entity_type", change.EntityType,
			"entity_id", change.EntityID,
			"error", err)
		return nil
	}
	if rev == nil {
		// Nothing changed after ignore filtering.
		return nil
	}

	if err := t.store.InsertRevision(ctx, rev); err != nil {
		t.logger.Warn("Failed to persist revision, change not audited",
			"entity_type", change.EntityType,
			"entity_id", change.EntityID,
			"revision_number", rev.RevisionNumber,
			"error", err)
		return nil
	}

	metrics.RevisionsWritten.WithLabelValues(string(rev.RevisionType)).Inc()

	t.logger.Debug("Revision recorded",
		"entity_type", change.EntityType,
		"entity_id", change.EntityID,
		"revision_type", rev.RevisionType,
		"revision_number", rev.RevisionNumber,
		"changed_fields", len(rev.FieldDiff))

	return rev
}

// buildRevision assembles the revision record, returning (nil, nil) for
// empty-diff updates.
func (t *Tracker) buildRevision(ctx context.Context, change Change) (*entity.Revision, error) {
	last, err := t.store.LastRevisionNumber(ctx, change.EntityType, change.EntityID)
	if err != nil {
		return nil, fmt.Errorf("read last revision number: %w", err)
	}

	rev := &entity.Revision{
		EntityType:     change.EntityType,
		EntityID:       change.EntityID,
		ProjectID:      change.ProjectID,
		RevisionNumber: last + 1,
		TriggerEvent:   change.TriggerEvent,
		CreatedBy:      change.CreatedBy,
	}

	switch {
	case change.Old == nil:
		rev.RevisionType = entity.RevisionCreated
		rev.FieldDiff = creationDiff(change.New, t.ignoreFields)
		rev.DiffSummary = fmt.Sprintf("created %s", change.EntityType)
	case change.New == nil:
		rev.RevisionType = entity.RevisionDeleted
		rev.DiffSummary = fmt.Sprintf("deleted %s", change.EntityType)
	default:
		diff := ComputeDiff(change.Old, change.New, t.ignoreFields, t.largeFields)
		if len(diff) == 0 {
			return nil, nil
		}
		rev.RevisionType = entity.RevisionUpdated
		rev.FieldDiff = diff
		rev.DiffSummary = SummarizeDiff(diff)
	}

	return rev, nil
}

// creationDiff records the initial field values of a created entity.
func creationDiff(fields map[string]any, ignoreFields []string) map[string]entity.FieldChange {
	ignore := toSet(ignoreFields)
	diff := make(map[string]entity.FieldChange, len(fields))
	for field, val := range fields {
		if ignore[field] {
			continue
		}
		diff[field] = entity.FieldChange{Old: nil, New: compactValue(val)}
	}
	return diff
}

// EntityStore is the wider persistence surface audited deletions need.
type EntityStore interface {
	GetEntity(ctx context.Context, t entity.Type, id string) (*entity.Entity, error)
	DeleteEntity(ctx context.Context, t entity.Type, id string) error
	DeleteDependenciesFor(ctx context.Context, projectID, entityID string) (int, error)
}

// DeleteEntity removes an entity, removes every dependency edge touching it,
// and records a deleted revision. The entity delete is the primary operation;
// edge cleanup and the audit write are best-effort and never fail the call.
func (t *Tracker) DeleteEntity(ctx context.Context, store EntityStore, typ entity.Type, id, triggerEvent, createdBy string) error {
	e, err := store.GetEntity(ctx, typ, id)
	if err != nil {
		return fmt.Errorf("load entity for deletion: %w", err)
	}
	if err := store.DeleteEntity(ctx, typ, id); err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}

	if n, err := store.DeleteDependenciesFor(ctx, e.ProjectID, id); err != nil {
		t.logger.Warn("Failed to remove dependency edges for deleted entity",
			"entity_type", typ,
			"entity_id", id,
			"error", err)
	} else if n > 0 {
		t.logger.Debug("Removed dependency edges for deleted entity",
			"entity_id", id,
			"edges", n)
	}

	t.TrackEntityChange(ctx, Change{
		EntityType:   typ,
		EntityID:     id,
		ProjectID:    e.ProjectID,
		Old:          e.Fields,
		TriggerEvent: triggerEvent,
		CreatedBy:    createdBy,
	})
	return nil
}

// TrackBulkChanges applies TrackEntityChange per change, continuing past
// individual failures, and returns the number of changes actually recorded.
func (t *Tracker) TrackBulkChanges(ctx context.Context, changes []Change) int {
	tracked := 0
	for _, change := range changes {
		if rev := t.TrackEntityChange(ctx, change); rev != nil {
			tracked++
		}
	}
	return tracked
}
