package awareness

// confirmedRatioThreshold moves a project into the solution_flow phase once
// enough of its steps are confirmed, even before any whole flow is.
const confirmedRatioThreshold = 0.3

// DetectPhase applies the phase decision table. Prototype activity
// dominates; flow confirmation comes next; everything else is still BRD.
// confirmedFlows counts fully confirmed workflows; the step ratio catches
// projects whose flows are partially confirmed.
func DetectPhase(prototypeSessions, confirmedFlows, totalSteps, confirmedSteps int) Phase {
	if prototypeSessions > 0 {
		return PhasePrototype
	}
	if confirmedFlows > 0 {
		return PhaseSolutionFlow
	}
	if totalSteps > 0 && float64(confirmedSteps)/float64(totalSteps) > confirmedRatioThreshold {
		return PhaseSolutionFlow
	}
	return PhaseBRD
}
