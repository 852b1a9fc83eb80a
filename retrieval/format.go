package retrieval

import (
	"fmt"
	"strings"

	"github.com/33prime/aios-req-engine-sub007/evidence"
)

// FormatStyle selects how evidence is rendered into prompt text.
type FormatStyle string

const (
	StyleChat       FormatStyle = "chat"
	StyleGeneration FormatStyle = "generation"
	StyleAnalysis   FormatStyle = "analysis"
)

// charsPerToken mirrors the coarse budget heuristic used across the LLM
// layer: one token is roughly four characters of English text.
const charsPerToken = 4

// FormatEvidence renders a retrieval result as context text within a token
// budget. Items append greedily in relevance order; once the budget would
// be exceeded the remaining lower-ranked items of that section are dropped.
func FormatEvidence(result *Result, style FormatStyle, maxTokens int) string {
	if result == nil {
		return ""
	}
	budget := maxTokens * charsPerToken
	if maxTokens <= 0 {
		budget = 1 << 20
	}

	w := &budgetWriter{budget: budget}

	switch style {
	case StyleGeneration:
		formatGeneration(w, result)
	case StyleAnalysis:
		formatAnalysis(w, result)
	default:
		formatChat(w, result)
	}

	return strings.TrimRight(w.String(), "\n")
}

// budgetWriter appends whole items until the character budget is hit, then
// drops everything further.
type budgetWriter struct {
	b      strings.Builder
	budget int
	full   bool
}

func (w *budgetWriter) add(s string) bool {
	if w.full || w.b.Len()+len(s) > w.budget {
		w.full = true
		return false
	}
	w.b.WriteString(s)
	return true
}

func (w *budgetWriter) String() string { return w.b.String() }

// formatChat numbers evidence chunks and appends compact entity and belief
// lists.
func formatChat(w *budgetWriter, result *Result) {
	if len(result.Chunks) > 0 {
		w.add("## Evidence\n")
		for i, c := range result.Chunks {
			if !w.add(fmt.Sprintf("%d. %s\n", i+1, c.Content)) {
				break
			}
		}
		w.add("\n")
	}
	if len(result.Entities) > 0 {
		w.add("## Entities\n")
		for _, e := range result.Entities {
			if !w.add(fmt.Sprintf("- %s (%s)\n", e.Name, e.Type)) {
				break
			}
		}
		w.add("\n")
	}
	if len(result.Beliefs) > 0 {
		w.add("## Beliefs\n")
		for _, bl := range result.Beliefs {
			if !w.add(fmt.Sprintf("- %s\n", bl.Statement)) {
				break
			}
		}
		w.add("\n")
	}
}

// formatGeneration groups entities by type with their full descriptions,
// then appends the chunk evidence.
func formatGeneration(w *budgetWriter, result *Result) {
	byType := make(map[string][]evidence.EntityMatch)
	var order []string
	for _, e := range result.Entities {
		if _, ok := byType[e.Type]; !ok {
			order = append(order, e.Type)
		}
		byType[e.Type] = append(byType[e.Type], e)
	}
	for _, t := range order {
		w.add(fmt.Sprintf("## %s\n", t))
		for _, e := range byType[t] {
			line := "- " + e.Name
			if e.Description != "" {
				line += ": " + e.Description
			}
			if !w.add(line + "\n") {
				break
			}
		}
		w.add("\n")
	}
	if len(result.Chunks) > 0 {
		w.add("## Source material\n")
		for _, c := range result.Chunks {
			if !w.add(c.Content + "\n\n") {
				break
			}
		}
	}
}

// formatAnalysis splits beliefs by stance and annotates chunks with their
// provenance.
func formatAnalysis(w *budgetWriter, result *Result) {
	stances := []struct {
		stance string
		header string
	}{
		{evidence.StanceSupporting, "## Supporting beliefs\n"},
		{evidence.StanceContradicting, "## Contradicting beliefs\n"},
		{evidence.StanceNeutral, "## Neutral beliefs\n"},
	}
	for _, s := range stances {
		var group []evidence.Belief
		for _, bl := range result.Beliefs {
			if bl.Stance == s.stance {
				group = append(group, bl)
			}
		}
		if len(group) == 0 {
			continue
		}
		w.add(s.header)
		for _, bl := range group {
			if !w.add(fmt.Sprintf("- [conf %.2f] %s\n", bl.Confidence, bl.Statement)) {
				break
			}
		}
		w.add("\n")
	}
	if len(result.Chunks) > 0 {
		w.add("## Evidence\n")
		for _, c := range result.Chunks {
			if !w.add(fmt.Sprintf("[doc %s | sim %.2f | %s]\n%s\n\n",
				c.DocumentID, c.Similarity, c.Source, c.Content)) {
				break
			}
		}
	}
}
