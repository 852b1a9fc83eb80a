package awareness

import (
	"fmt"
	"strings"
)

// FormatSnapshot renders the snapshot as the prompt-ready "patient chart".
// Sections with no data are omitted entirely.
func FormatSnapshot(s *Snapshot) string {
	if s == nil {
		return ""
	}
	var b strings.Builder

	fmt.Fprintf(&b, "Project: %s (phase: %s)\n", s.ProjectName, s.Phase)

	if len(s.Flow) > 0 {
		fmt.Fprintf(&b, "\nSolution flow (%d/%d confirmed):\n", s.ConfirmedSteps, len(s.Flow))
		for _, step := range s.Flow {
			fmt.Fprintf(&b, "  %d. %s [%s, %.0f%% complete]\n",
				step.Order, step.Name, step.Health, step.Completeness*100)
		}
	}

	if len(s.EntityCounts) > 0 {
		b.WriteString("\nKnowledge base:")
		for _, t := range []string{"feature", "persona", "workflow", "business_driver"} {
			if n := s.EntityCounts[t]; n > 0 {
				fmt.Fprintf(&b, " %d %ss", n, strings.ReplaceAll(t, "_", " "))
			}
		}
		b.WriteString("\n")
	}

	if s.PrototypeSessions > 0 {
		fmt.Fprintf(&b, "\nPrototype sessions: %d\n", s.PrototypeSessions)
	}

	if len(s.RecentUnlocks) > 0 {
		b.WriteString("\nRecent unlocks:\n")
		for _, u := range s.RecentUnlocks {
			fmt.Fprintf(&b, "  - %s\n", u)
		}
	}

	if len(s.Stakeholders) > 0 {
		fmt.Fprintf(&b, "\nStakeholders: %s\n", strings.Join(s.Stakeholders, ", "))
	}

	return strings.TrimRight(b.String(), "\n")
}
