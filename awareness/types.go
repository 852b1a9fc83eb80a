// Package awareness builds the per-project situational snapshot consumed by
// the frame compiler: flow health, detected phase, entity counts, and the
// recent-unlock narrative. Snapshots are cached per project with a short TTL.
package awareness

import "time"

// Phase is the detected lifecycle stage of a project.
type Phase string

const (
	PhaseBRD          Phase = "brd"
	PhaseSolutionFlow Phase = "solution_flow"
	PhasePrototype    Phase = "prototype"
)

// StepHealth classifies how settled a solution flow step is.
type StepHealth string

const (
	HealthConfirmed  StepHealth = "confirmed"
	HealthEvolved    StepHealth = "evolved"
	HealthReady      StepHealth = "ready"
	HealthStructured StepHealth = "structured"
	HealthDrafting   StepHealth = "drafting"
)

// FlowStep is the snapshot view of one solution flow step.
type FlowStep struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Order        int        `json:"order"`
	Health       StepHealth `json:"health"`
	Completeness float64    `json:"completeness"`
}

// Snapshot is the assembled project state. BuiltAt drives TTL expiry in the
// cache; everything else is display and frame-selection input.
type Snapshot struct {
	ProjectID         string         `json:"project_id"`
	ProjectName       string         `json:"project_name"`
	Phase             Phase          `json:"phase"`
	Flow              []FlowStep     `json:"flow,omitempty"`
	ConfirmedSteps    int            `json:"confirmed_steps"`
	EntityCounts      map[string]int `json:"entity_counts,omitempty"`
	PrototypeSessions int            `json:"prototype_sessions"`
	RecentUnlocks     []string       `json:"recent_unlocks,omitempty"`
	Stakeholders      []string       `json:"stakeholders,omitempty"`
	BuiltAt           time.Time      `json:"built_at"`
}

// ConfirmedRatio is the share of flow steps whose health is confirmed.
func (s *Snapshot) ConfirmedRatio() float64 {
	if len(s.Flow) == 0 {
		return 0
	}
	return float64(s.ConfirmedSteps) / float64(len(s.Flow))
}
