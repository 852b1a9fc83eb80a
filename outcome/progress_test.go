package outcome

import (
	"testing"

	"github.com/33prime/aios-req-engine-sub007/entity"
)

func TestComputeProgress(t *testing.T) {
	tests := []struct {
		name      string
		threshold entity.ThresholdType
		baseline  string
		current   string
		target    string
		wantPct   float64
		wantErr   bool
	}{
		{
			name:      "value target halfway",
			threshold: entity.ThresholdValueTarget,
			baseline:  "0",
			current:   "50",
			target:    "100",
			wantPct:   50,
		},
		{
			name:      "value target overshoot clamps to 100",
			threshold: entity.ThresholdValueTarget,
			baseline:  "0",
			current:   "150",
			target:    "100",
			wantPct:   100,
		},
		{
			name:      "value target regression clamps to 0",
			threshold: entity.ThresholdValueTarget,
			baseline:  "10",
			current:   "5",
			target:    "100",
			wantPct:   0,
		},
		{
			name:      "value target decreasing toward target",
			threshold: entity.ThresholdValueTarget,
			baseline:  "100",
			current:   "75",
			target:    "50",
			wantPct:   50,
		},
		{
			name:      "value target malformed current",
			threshold: entity.ThresholdValueTarget,
			baseline:  "0",
			current:   "lots",
			target:    "100",
			wantPct:   0,
			wantErr:   true,
		},
		{
			name:      "severity critical",
			threshold: entity.ThresholdSeverityTarget,
			current:   "critical",
			wantPct:   0,
		},
		{
			name:      "severity none",
			threshold: entity.ThresholdSeverityTarget,
			current:   "none",
			wantPct:   100,
		},
		{
			name:      "severity medium case insensitive",
			threshold: entity.ThresholdSeverityTarget,
			current:   " Medium ",
			wantPct:   50,
		},
		{
			name:      "completion done",
			threshold: entity.ThresholdCompletion,
			current:   "done",
			wantPct:   100,
		},
		{
			name:      "completion anything else",
			threshold: entity.ThresholdCompletion,
			current:   "in progress",
			wantPct:   0,
		},
		{
			name:      "adoption percent string",
			threshold: entity.ThresholdAdoption,
			current:   "45%",
			wantPct:   45,
		},
		{
			name:      "adoption malformed",
			threshold: entity.ThresholdAdoption,
			current:   "most users",
			wantPct:   0,
			wantErr:   true,
		},
		{
			name:      "custom always zero",
			threshold: entity.ThresholdCustom,
			current:   "whatever",
			wantPct:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeProgress(tt.threshold, tt.baseline, tt.current, tt.target)
			if got.Pct != tt.wantPct {
				t.Errorf("ComputeProgress() pct = %v, want %v", got.Pct, tt.wantPct)
			}
			if (got.ParseError != "") != tt.wantErr {
				t.Errorf("ComputeProgress() parse error = %q, wantErr %v", got.ParseError, tt.wantErr)
			}
		})
	}
}

func TestHorizonReadiness(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []*entity.Outcome
		want     float64
	}{
		{
			name: "weighted mean",
			outcomes: []*entity.Outcome{
				{Weight: 1, ProgressPct: 100},
				{Weight: 1, ProgressPct: 50},
			},
			want: 75,
		},
		{
			name: "unstarted blocker caps readiness",
			outcomes: []*entity.Outcome{
				{Weight: 1, ProgressPct: 90},
				{Weight: 1, ProgressPct: 0, IsBlocking: true},
			},
			want: blockedReadinessCap,
		},
		{
			name: "started blocker does not cap",
			outcomes: []*entity.Outcome{
				{Weight: 1, ProgressPct: 90},
				{Weight: 1, ProgressPct: 10, IsBlocking: true},
			},
			want: 50,
		},
		{
			name:     "no outcomes",
			outcomes: nil,
			want:     0,
		},
		{
			name: "zero total weight",
			outcomes: []*entity.Outcome{
				{Weight: 0, ProgressPct: 100},
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HorizonReadiness(tt.outcomes); got != tt.want {
				t.Errorf("HorizonReadiness() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeTrend(t *testing.T) {
	measure := func(values ...string) []*entity.Measurement {
		ms := make([]*entity.Measurement, len(values))
		for i, v := range values {
			ms[i] = &entity.Measurement{Value: v}
		}
		return ms
	}

	tests := []struct {
		name         string
		measurements []*entity.Measurement
		want         entity.Trend
	}{
		{
			name:         "fewer than two measurements",
			measurements: measure("50"),
			want:         entity.TrendUnknown,
		},
		{
			name:         "numeric improving",
			measurements: measure("80", "70", "50", "40"),
			want:         entity.TrendImproving,
		},
		{
			name:         "numeric declining",
			measurements: measure("40", "50", "70", "80"),
			want:         entity.TrendDeclining,
		},
		{
			name:         "numeric stable within threshold",
			measurements: measure("100", "101", "100", "99"),
			want:         entity.TrendStable,
		},
		{
			name:         "ordinal severity improving",
			measurements: measure("low", "medium", "critical"),
			want:         entity.TrendImproving,
		},
		{
			name:         "ordinal severity declining",
			measurements: measure("critical", "medium", "low"),
			want:         entity.TrendDeclining,
		},
		{
			name:         "window limited to most recent five",
			measurements: measure("100", "100", "100", "100", "100", "0", "0"),
			want:         entity.TrendStable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeTrend(tt.measurements); got != tt.want {
				t.Errorf("ComputeTrend() = %v, want %v", got, tt.want)
			}
		})
	}
}
