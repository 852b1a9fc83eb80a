// Package outcome implements deterministic math over outcome measurements:
// progress computation by threshold type, trend detection, horizon readiness
// aggregation, and the horizon promotion state machine.
package outcome

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/33prime/aios-req-engine-sub007/entity"
)

// Progress is the result of a progress computation. ParseError is set when
// inputs could not be interpreted; computation never fails outright, it
// reports zero progress with the flag instead.
type Progress struct {
	Pct        float64
	ParseError string
}

// severityScores maps severity labels to ordinal progress values.
// Lower severity means more progress toward resolution.
var severityScores = map[string]float64{
	"critical": 0,
	"high":     25,
	"medium":   50,
	"low":      75,
	"none":     100,
}

// completionValues are the boolean-like strings that count as complete.
var completionValues = map[string]bool{
	"complete": true,
	"done":     true,
	"true":     true,
	"1":        true,
	"yes":      true,
}

// ComputeProgress computes progress percent for an outcome given its
// threshold type, baseline, current, and target values. The dispatch and
// math follow the threshold semantics exactly:
//
//   - value_target: linear interpolation from baseline to target, clamped.
//   - severity_target: ordinal severity lookup on the current value.
//   - completion: boolean-like parse of the current value.
//   - adoption: percentage parse of the current value, clamped.
//   - custom: always zero; custom outcomes are scored by hand.
func ComputeProgress(t entity.ThresholdType, baseline, current, target string) Progress {
	switch t {
	case entity.ThresholdValueTarget:
		return valueTargetProgress(baseline, current, target)
	case entity.ThresholdSeverityTarget:
		score, ok := severityScores[strings.ToLower(strings.TrimSpace(current))]
		if !ok {
			return Progress{Pct: 0}
		}
		return Progress{Pct: score}
	case entity.ThresholdCompletion:
		if completionValues[strings.ToLower(strings.TrimSpace(current))] {
			return Progress{Pct: 100}
		}
		return Progress{Pct: 0}
	case entity.ThresholdAdoption:
		return adoptionProgress(current)
	case entity.ThresholdCustom:
		return Progress{Pct: 0}
	default:
		return Progress{Pct: 0, ParseError: fmt.Sprintf("unknown threshold type: %s", t)}
	}
}

func valueTargetProgress(baseline, current, target string) Progress {
	b, err := parseNumber(baseline)
	if err != nil {
		return Progress{Pct: 0, ParseError: fmt.Sprintf("baseline: %v", err)}
	}
	c, err := parseNumber(current)
	if err != nil {
		return Progress{Pct: 0, ParseError: fmt.Sprintf("current: %v", err)}
	}
	tgt, err := parseNumber(target)
	if err != nil {
		return Progress{Pct: 0, ParseError: fmt.Sprintf("target: %v", err)}
	}

	// Degenerate case: no distance between baseline and target.
	if tgt == b {
		if c >= tgt {
			return Progress{Pct: 100}
		}
		return Progress{Pct: 0}
	}

	pct := (c - b) / (tgt - b) * 100
	return Progress{Pct: clamp(pct, 0, 100)}
}

func adoptionProgress(current string) Progress {
	s := strings.TrimSpace(current)
	s = strings.TrimSuffix(s, "%")
	v, err := parseNumber(s)
	if err != nil {
		return Progress{Pct: 0, ParseError: fmt.Sprintf("adoption value: %v", err)}
	}
	return Progress{Pct: clamp(v, 0, 100)}
}

func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("not numeric: %q", s)
	}
	return v, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
