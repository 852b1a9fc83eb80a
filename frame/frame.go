// Package frame selects the per-turn cognitive frame and compiles it, with
// retrieved context, into the two-part prompt. Selection is a fixed set of
// lookup tables; identical inputs always produce the identical frame.
package frame

import "github.com/33prime/aios-req-engine-sub007/awareness"

// Mode is how the assistant should think this turn.
type Mode string

const (
	ModeDiscover   Mode = "discover"
	ModeSynthesize Mode = "synthesize"
	ModeRefine     Mode = "refine"
	ModeExecute    Mode = "execute"
	ModeEvolve     Mode = "evolve"
)

// Temporal is which slice of time the turn should emphasize.
type Temporal string

const (
	TemporalRetrospective  Temporal = "retrospective"
	TemporalPresentState   Temporal = "present_state"
	TemporalForwardLooking Temporal = "forward_looking"
)

// Scope is how wide the evidence lens should be.
type Scope string

const (
	ScopePanoramic  Scope = "panoramic"
	ScopeContextual Scope = "contextual"
	ScopeZoomedIn   Scope = "zoomed_in"
)

// Posture is how much confidence the assistant should project.
type Posture string

const (
	PostureExploratory Posture = "exploratory"
	PostureConfirming  Posture = "confirming"
	PostureEvolving    Posture = "evolving"
	PostureAssertive   Posture = "assertive"
)

// CognitiveFrame is the selected 4-tuple for one chat turn. It is never
// persisted; it exists for the turn and is logged for observability.
type CognitiveFrame struct {
	Mode     Mode     `json:"mode"`
	Temporal Temporal `json:"temporal"`
	Scope    Scope    `json:"scope"`
	Posture  Posture  `json:"posture"`
}

// Intent values recognized by the mode table.
const (
	IntentDiscuss = "discuss"
	IntentPlan    = "plan"
	IntentCreate  = "create"
	IntentUpdate  = "update"
	IntentReview  = "review"
	IntentFlow    = "flow"
	IntentSearch  = "search"
)

// Page contexts with special handling in the tables.
const (
	PageOverview        = "overview"
	PageBusinessContext = "business_context"
)

// HorizonState carries the outcome-engine signals frame selection needs.
type HorizonState struct {
	BlockingOutcomes int     `json:"blocking_outcomes"`
	H1Readiness      float64 `json:"h1_readiness"`
}

// Inputs are the full selection inputs for one turn.
type Inputs struct {
	Intent          string
	PageContext     string
	FocusedEntityID string
	Snapshot        *awareness.Snapshot
	Horizon         HorizonState
}

// SelectFrame resolves the frame from the fixed tables. Pure and
// deterministic.
func SelectFrame(in Inputs) CognitiveFrame {
	phase := awareness.PhaseBRD
	if in.Snapshot != nil {
		phase = in.Snapshot.Phase
	}
	return CognitiveFrame{
		Mode:     selectMode(phase, in.Intent),
		Temporal: selectTemporal(phase, in),
		Scope:    selectScope(in),
		Posture:  selectPosture(phase, in),
	}
}

func selectMode(phase awareness.Phase, intent string) Mode {
	if phase == awareness.PhasePrototype {
		return ModeEvolve
	}
	switch phase {
	case awareness.PhaseBRD:
		switch intent {
		case IntentDiscuss, IntentPlan:
			return ModeDiscover
		case IntentCreate, IntentUpdate:
			return ModeSynthesize
		}
	case awareness.PhaseSolutionFlow:
		switch intent {
		case IntentDiscuss, IntentReview:
			return ModeRefine
		case IntentFlow:
			return ModeExecute
		}
	}
	return ModeSynthesize
}

func selectTemporal(phase awareness.Phase, in Inputs) Temporal {
	if phase == awareness.PhasePrototype && in.Snapshot != nil && len(in.Snapshot.RecentUnlocks) > 0 {
		return TemporalRetrospective
	}
	if in.Horizon.BlockingOutcomes > 0 || in.PageContext == PageOverview || in.PageContext == PageBusinessContext {
		return TemporalForwardLooking
	}
	return TemporalPresentState
}

func selectScope(in Inputs) Scope {
	if in.PageContext == PageOverview || in.Intent == IntentPlan {
		return ScopePanoramic
	}
	if in.FocusedEntityID != "" && (in.Intent == IntentUpdate || in.Intent == IntentFlow) {
		return ScopeZoomedIn
	}
	return ScopeContextual
}

// phaseDefaultPosture applies when the project has no flow steps yet.
var phaseDefaultPosture = map[awareness.Phase]Posture{
	awareness.PhaseBRD:          PostureExploratory,
	awareness.PhaseSolutionFlow: PostureConfirming,
	awareness.PhasePrototype:    PostureEvolving,
}

func selectPosture(phase awareness.Phase, in Inputs) Posture {
	step, ok := activeStep(in)
	if !ok {
		if p, ok := phaseDefaultPosture[phase]; ok {
			return p
		}
		return PostureExploratory
	}
	switch step.Health {
	case awareness.HealthConfirmed:
		return PostureAssertive
	case awareness.HealthReady, awareness.HealthStructured:
		return PostureConfirming
	case awareness.HealthEvolved:
		return PostureEvolving
	default:
		return PostureExploratory
	}
}

// activeStep picks the flow step posture derives from: the focused step,
// else the first non-confirmed one, else the first.
func activeStep(in Inputs) (awareness.FlowStep, bool) {
	if in.Snapshot == nil || len(in.Snapshot.Flow) == 0 {
		return awareness.FlowStep{}, false
	}
	flow := in.Snapshot.Flow
	if in.FocusedEntityID != "" {
		for _, s := range flow {
			if s.ID == in.FocusedEntityID {
				return s, true
			}
		}
	}
	for _, s := range flow {
		if s.Health != awareness.HealthConfirmed {
			return s, true
		}
	}
	return flow[0], true
}
