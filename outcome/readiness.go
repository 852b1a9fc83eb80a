package outcome

import "github.com/33prime/aios-req-engine-sub007/entity"

// blockedReadinessCap is the ceiling applied while any blocking outcome has
// made zero progress: a horizon cannot be "mostly ready" when a hard blocker
// hasn't started.
const blockedReadinessCap = 10

// HorizonReadiness aggregates a horizon's outcomes into a readiness percent:
// the weighted mean of outcome progress, hard-capped while an unstarted
// blocking outcome exists. Zero total weight yields zero readiness.
func HorizonReadiness(outcomes []*entity.Outcome) float64 {
	var weightSum, weighted float64
	blocked := false

	for _, o := range outcomes {
		if o.Weight < 0 {
			continue
		}
		weighted += o.Weight * o.ProgressPct
		weightSum += o.Weight
		if o.IsBlocking && o.ProgressPct == 0 {
			blocked = true
		}
	}

	if weightSum == 0 {
		return 0
	}

	readiness := weighted / weightSum
	if blocked && readiness > blockedReadinessCap {
		readiness = blockedReadinessCap
	}
	return readiness
}
