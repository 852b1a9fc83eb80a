package frame

// RetrievalPlan is the frame's feedback into the evidence pipeline: how
// deep to walk the graph, whether to weight recency, and which posture
// boosts apply.
type RetrievalPlan struct {
	GraphDepth      int  `json:"graph_depth"`
	ApplyRecency    bool `json:"apply_recency"`
	ApplyConfidence bool `json:"apply_confidence"`
	BoostBeliefs    bool `json:"boost_beliefs"`
}

// PlanRetrieval derives the retrieval plan from the frame alone.
// Panoramic turns skip graph expansion entirely and lean on broad vector
// hits; zoomed-in turns walk the full two-hop neighborhood of the focus.
func PlanRetrieval(f CognitiveFrame) RetrievalPlan {
	plan := RetrievalPlan{}

	switch f.Scope {
	case ScopePanoramic:
		plan.GraphDepth = 0
	case ScopeZoomedIn:
		plan.GraphDepth = 2
	default:
		plan.GraphDepth = 1
	}

	plan.ApplyRecency = f.Temporal == TemporalRetrospective

	switch f.Posture {
	case PostureAssertive, PostureConfirming:
		plan.ApplyConfidence = true
	case PostureExploratory:
		plan.BoostBeliefs = true
	}

	return plan
}
