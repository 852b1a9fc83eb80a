package entity

import "time"

// RevisionType classifies an audit revision.
type RevisionType string

const (
	RevisionCreated RevisionType = "created"
	RevisionUpdated RevisionType = "updated"
	RevisionDeleted RevisionType = "deleted"
)

// FieldChange records the before/after values of a single field.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Revision is an immutable append-only audit record of an entity mutation.
// RevisionNumber is monotonic per (entity_type, entity_id), starting at 1.
type Revision struct {
	ID             string                 `json:"id"`
	EntityType     Type                   `json:"entity_type"`
	EntityID       string                 `json:"entity_id"`
	ProjectID      string                 `json:"project_id"`
	RevisionType   RevisionType           `json:"revision_type"`
	FieldDiff      map[string]FieldChange `json:"field_diff,omitempty"`
	DiffSummary    string                 `json:"diff_summary,omitempty"`
	RevisionNumber int                    `json:"revision_number"`
	TriggerEvent   string                 `json:"trigger_event,omitempty"`
	CreatedBy      string                 `json:"created_by,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// HorizonStatus is the lifecycle state of a horizon tier.
type HorizonStatus string

const (
	HorizonActive   HorizonStatus = "active"
	HorizonAchieved HorizonStatus = "achieved"
)

// Horizon is one of exactly three ordered planning tiers per project.
// HorizonNumber is always in {1,2,3}; a shift renumbers, it never grows
// a fourth concurrently active tier.
type Horizon struct {
	ID             string        `json:"id"`
	ProjectID      string        `json:"project_id"`
	HorizonNumber  int           `json:"horizon_number"`
	Title          string        `json:"title"`
	Description    string        `json:"description,omitempty"`
	Status         HorizonStatus `json:"status"`
	ReadinessPct   float64       `json:"readiness_pct"`
	OriginatedFrom string        `json:"originated_from_horizon_id,omitempty"`
	AchievedAt     *time.Time    `json:"achieved_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// ThresholdType selects the progress computation for an outcome.
type ThresholdType string

const (
	ThresholdValueTarget    ThresholdType = "value_target"
	ThresholdSeverityTarget ThresholdType = "severity_target"
	ThresholdCompletion     ThresholdType = "completion"
	ThresholdAdoption       ThresholdType = "adoption"
	ThresholdCustom         ThresholdType = "custom"
)

// OutcomeStatus is the tracking state of an outcome.
type OutcomeStatus string

const (
	OutcomeTracking OutcomeStatus = "tracking"
	OutcomeAchieved OutcomeStatus = "achieved"
	OutcomeAtRisk   OutcomeStatus = "at_risk"
)

// Trend describes the direction of an outcome's recent measurements.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
	TrendUnknown   Trend = "unknown"
)

// Outcome tracks one driver's success threshold under a horizon.
type Outcome struct {
	ID             string        `json:"id"`
	HorizonID      string        `json:"horizon_id"`
	ProjectID      string        `json:"project_id"`
	DriverID       string        `json:"driver_id,omitempty"`
	Title          string        `json:"title"`
	ThresholdType  ThresholdType `json:"threshold_type"`
	ThresholdValue string        `json:"threshold_value"`
	BaselineValue  string        `json:"baseline_value,omitempty"`
	CurrentValue   string        `json:"current_value,omitempty"`
	Weight         float64       `json:"weight"`
	IsBlocking     bool          `json:"is_blocking"`
	ProgressPct    float64       `json:"progress_pct"`
	ProgressError  string        `json:"progress_error,omitempty"`
	Trend          Trend         `json:"trend"`
	Status         OutcomeStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Measurement is an immutable timestamped observation of an outcome's value.
type Measurement struct {
	ID         string    `json:"id"`
	OutcomeID  string    `json:"outcome_id"`
	ProjectID  string    `json:"project_id"`
	Value      string    `json:"value"`
	IsBaseline bool      `json:"is_baseline"`
	Source     string    `json:"source,omitempty"`
	Note       string    `json:"note,omitempty"`
	MeasuredAt time.Time `json:"measured_at"`
}

// Dependency is a directed edge between two entities in the same project.
// The compound-decision engine traverses it bidirectionally.
type Dependency struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"project_id"`
	SourceID       string    `json:"source_id"`
	TargetID       string    `json:"target_id"`
	DependencyType string    `json:"dependency_type"`
	Strength       float64   `json:"strength"` // in (0,1]
	CreatedAt      time.Time `json:"created_at"`
}
