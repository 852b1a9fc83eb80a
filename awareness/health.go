package awareness

import (
	"math"

	"github.com/33prime/aios-req-engine-sub007/entity"
)

// infoFields are the structured detail fields a flow step can carry beyond
// goal and actors. Their count feeds both the health tree and the
// completeness score.
var infoFields = []string{
	"inputs",
	"outputs",
	"systems",
	"business_rules",
	"exceptions",
	"data_needs",
}

// ClassifyStepHealth walks the fixed decision tree for one flow step.
// Confirmation wins outright; a pending update marks an evolved step; a
// fully described step with no open questions is ready; any structure at
// all is structured; otherwise the step is still drafting.
func ClassifyStepHealth(step *entity.Entity) StepHealth {
	if step.Status() == "confirmed" || boolField(step, "confirmed") {
		return HealthConfirmed
	}
	if boolField(step, "pending_update") {
		return HealthEvolved
	}

	hasGoal := step.StringField("goal") != ""
	hasActors := fieldPopulated(step, "actors")
	info := infoFieldCount(step)
	openQuestions := listLen(step, "open_questions")

	if hasGoal && hasActors && info >= 2 && openQuestions == 0 {
		return HealthReady
	}
	if hasGoal || hasActors || info > 0 {
		return HealthStructured
	}
	return HealthDrafting
}

// StepCompleteness scores how described a step is, in [0,1].
func StepCompleteness(step *entity.Entity) float64 {
	score := 0.0
	if step.StringField("goal") != "" {
		score++
	}
	if fieldPopulated(step, "actors") {
		score++
	}
	score += math.Min(float64(infoFieldCount(step)), 3)
	return math.Min(1, score/5)
}

func infoFieldCount(step *entity.Entity) int {
	n := 0
	for _, f := range infoFields {
		if fieldPopulated(step, f) {
			n++
		}
	}
	return n
}

// fieldPopulated reports whether a field holds a non-empty value, treating
// empty strings and empty lists as absent.
func fieldPopulated(e *entity.Entity, name string) bool {
	v, ok := e.Field(name)
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

func listLen(e *entity.Entity, name string) int {
	v, ok := e.Field(name)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case []any:
		return len(t)
	case []string:
		return len(t)
	}
	return 0
}

func boolField(e *entity.Entity, name string) bool {
	v, ok := e.Field(name)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
