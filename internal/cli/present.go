package cli

import (
	"fmt"
	"strings"

	"github.com/aromalbiju/truthlens-go/internal/analysis"
)

// renderResult formats the final verdict for terminal display. Sections with
// no content (reverse search hits, reasoning, heatmap) are omitted entirely.
func renderResult(t Theme, r *analysis.Result) string {
	var b strings.Builder

	verdictStyle := t.warnStyle()
	switch r.Verdict {
	case analysis.VerdictReal:
		verdictStyle = t.completedStyle()
	case analysis.VerdictAIGenerated:
		verdictStyle = t.errorStyle()
	}

	b.WriteString(verdictStyle.Render(fmt.Sprintf("Verdict: %s", r.Verdict)) + "\n")
	b.WriteString(fmt.Sprintf("Confidence: %.0f%%\n\n", r.Confidence))

	b.WriteString(fmt.Sprintf("  CNN ensemble score:    %5.1f / 100\n", r.MLScore))
	b.WriteString(fmt.Sprintf("  Frequency score:       %5.1f / 100\n", r.FrequencyScore))

	if r.Summary != "" {
		b.WriteString("\n" + r.Summary + "\n")
	}

	if len(r.AgentReasoning) > 0 {
		b.WriteString("\n" + t.statusStyle().Render("Agent reasoning:") + "\n")
		for _, step := range r.AgentReasoning {
			b.WriteString(fmt.Sprintf("  • %s\n", step))
		}
	}

	if len(r.ReverseSearch) > 0 {
		b.WriteString("\n" + t.statusStyle().Render("Found online:") + "\n")
		for _, hit := range r.ReverseSearch {
			line := fmt.Sprintf("  • %s", hit.Title)
			if hit.Date != "" {
				line += fmt.Sprintf(" (%s)", hit.Date)
			}
			b.WriteString(line + "\n")
			b.WriteString(t.hintStyle().Render("    "+hit.URL) + "\n")
		}
	}

	if r.Heatmap != "" {
		b.WriteString("\n" + t.hintStyle().Render("A manipulation heatmap is available via the web UI.") + "\n")
	}

	return b.String()
}
