package retrieval

import (
	"strings"
	"testing"

	"github.com/33prime/aios-req-engine-sub007/evidence"
)

func TestShouldDecompose(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"refund status", false},
		{"refunds?", true},
		{"how does billing interact with the loyalty program", true},
		{"one two three four five six", false},
		{"one two three four five six seven", true},
	}
	for _, tt := range tests {
		if got := shouldDecompose(tt.query); got != tt.want {
			t.Errorf("shouldDecompose(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func sampleResult() *Result {
	return &Result{
		Chunks: []evidence.Chunk{
			{ID: "c1", DocumentID: "doc-1", Content: "invoices settle nightly", Similarity: 0.91, Source: evidence.SourceVector},
			{ID: "c2", DocumentID: "doc-2", Content: "refunds post next day", Similarity: 0.74, Source: evidence.SourceGraphExpansion},
		},
		Entities: []evidence.EntityMatch{
			{ID: "e1", Type: "feature", Name: "Invoicing", Description: "monthly billing run"},
			{ID: "e2", Type: "feature", Name: "Refunds"},
			{ID: "e3", Type: "persona", Name: "Finance Lead"},
		},
		Beliefs: []evidence.Belief{
			{ID: "b1", Statement: "settlement must be same-day", Confidence: 0.9, Stance: evidence.StanceSupporting},
			{ID: "b2", Statement: "next-day settlement is acceptable", Confidence: 0.6, Stance: evidence.StanceContradicting},
		},
	}
}

func TestFormatEvidence_ChatStyle(t *testing.T) {
	out := FormatEvidence(sampleResult(), StyleChat, 0)

	for _, want := range []string{
		"## Evidence",
		"1. invoices settle nightly",
		"2. refunds post next day",
		"## Entities",
		"- Invoicing (feature)",
		"## Beliefs",
		"- settlement must be same-day",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("chat output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatEvidence_GenerationGroupsByType(t *testing.T) {
	out := FormatEvidence(sampleResult(), StyleGeneration, 0)

	featureIdx := strings.Index(out, "## feature")
	personaIdx := strings.Index(out, "## persona")
	if featureIdx < 0 || personaIdx < 0 {
		t.Fatalf("generation output missing type groups:\n%s", out)
	}
	if featureIdx > personaIdx {
		t.Errorf("feature group should precede persona group (first-seen order)")
	}
	if !strings.Contains(out, "- Invoicing: monthly billing run") {
		t.Errorf("generation output missing described entity:\n%s", out)
	}
	if !strings.Contains(out, "## Source material") {
		t.Errorf("generation output missing source material section:\n%s", out)
	}
}

func TestFormatEvidence_AnalysisSplitsByStance(t *testing.T) {
	out := FormatEvidence(sampleResult(), StyleAnalysis, 0)

	if !strings.Contains(out, "## Supporting beliefs") {
		t.Errorf("analysis output missing supporting section:\n%s", out)
	}
	if !strings.Contains(out, "## Contradicting beliefs") {
		t.Errorf("analysis output missing contradicting section:\n%s", out)
	}
	if strings.Contains(out, "## Neutral beliefs") {
		t.Errorf("empty stance group should be omitted:\n%s", out)
	}
	if !strings.Contains(out, "- [conf 0.90] settlement must be same-day") {
		t.Errorf("analysis output missing confidence annotation:\n%s", out)
	}
	if !strings.Contains(out, "[doc doc-1 | sim 0.91 | vector]") {
		t.Errorf("analysis output missing chunk provenance:\n%s", out)
	}
}

func TestFormatEvidence_BudgetDropsLowerRanked(t *testing.T) {
	result := &Result{
		Chunks: []evidence.Chunk{
			{ID: "c1", Content: strings.Repeat("a", 200), Similarity: 0.9},
			{ID: "c2", Content: strings.Repeat("b", 200), Similarity: 0.8},
		},
	}

	// Budget fits the header and first chunk only.
	out := FormatEvidence(result, StyleChat, 60)

	if !strings.Contains(out, "aaaa") {
		t.Errorf("top-ranked chunk should fit the budget:\n%s", out)
	}
	if strings.Contains(out, "bbbb") {
		t.Errorf("over-budget chunk should be dropped:\n%s", out)
	}
}

func TestFormatEvidence_Empty(t *testing.T) {
	if out := FormatEvidence(nil, StyleChat, 100); out != "" {
		t.Errorf("nil result should format to empty string, got %q", out)
	}
	if out := FormatEvidence(&Result{}, StyleChat, 100); out != "" {
		t.Errorf("empty result should format to empty string, got %q", out)
	}
}
