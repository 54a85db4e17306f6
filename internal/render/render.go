// Package render formats outcomes, history, and panel listings for
// terminal display. Markdown bodies go through glamour when color output
// is enabled; otherwise everything renders as plain text.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/conclave-ai/conclave/internal/core"
)

// Color palette shared with the monitor.
var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	labelStyle = lipgloss.NewStyle().Faint(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

// Renderer turns engine artifacts into terminal output.
type Renderer struct {
	width    int
	color    bool
	markdown *glamour.TermRenderer
}

// New creates a renderer. With color enabled, markdown bodies are rendered
// through glamour with the terminal's detected style.
func New(width int, color bool) *Renderer {
	if width <= 0 {
		width = 80
	}
	r := &Renderer{width: width, color: color}
	if color {
		md, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err == nil {
			r.markdown = md
		}
	}
	return r
}

// Markdown renders markdown text, falling back to the raw input when the
// glamour renderer is unavailable.
func (r *Renderer) Markdown(text string) string {
	if r.markdown == nil {
		return text
	}
	out, err := r.markdown.Render(text)
	if err != nil {
		return text
	}
	return out
}

func (r *Renderer) styled(style lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return style.Render(text)
}

// Outcome renders whichever result the outcome carries.
func (r *Renderer) Outcome(o *core.Outcome) string {
	if o == nil {
		return ""
	}
	switch {
	case o.Consensus != nil:
		return r.Consensus(o.Consensus)
	case o.Singular != nil:
		return r.Singular(o.Singular)
	}
	return ""
}

// Consensus renders a synthesized panel result.
func (r *Renderer) Consensus(res *core.ConsensusResult) string {
	if res == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", r.styled(titleStyle, fmt.Sprintf("Consensus (%s)", res.Method)))

	threshold := fmt.Sprintf("threshold %s met", percent(res.Threshold))
	thresholdStyle := okStyle
	if !res.ThresholdMet {
		threshold = fmt.Sprintf("threshold %s not met", percent(res.Threshold))
		thresholdStyle = warnStyle
	}
	fmt.Fprintf(&b, "confidence %s | %s | %dms\n\n",
		percent(res.Confidence), r.styled(thresholdStyle, threshold), res.LatencyMs)

	b.WriteString(strings.TrimRight(r.Markdown(res.FinalText), "\n"))
	b.WriteString("\n")

	if len(res.ContributingExperts) > 0 {
		b.WriteString("\n" + r.styled(labelStyle, "Contributing experts") + "\n")
		for _, ce := range res.ContributingExperts {
			fmt.Fprintf(&b, "  %-14s weight %.2f  confidence %s\n",
				ce.ExpertID, ce.Weight, percent(ce.Confidence))
		}
	}

	if len(res.Omitted) > 0 {
		b.WriteString("\n" + r.styled(labelStyle, "Omitted") + "\n")
		for _, om := range res.Omitted {
			fmt.Fprintf(&b, "  %-14s %s\n", om.ExpertID, r.styled(failStyle, om.FailureReason))
		}
	}

	if len(res.Disagreements) > 0 {
		b.WriteString("\n" + r.styled(labelStyle, "Disagreements") + "\n")
		for _, d := range res.Disagreements {
			fmt.Fprintf(&b, "  %s vs %s (similarity %.2f)\n", d.ExpertA, d.ExpertB, d.Similarity)
		}
	}

	if res.Reasoning != "" {
		b.WriteString("\n" + r.styled(labelStyle, res.Reasoning) + "\n")
	}

	return b.String()
}

// Singular renders the per-expert result set.
func (r *Renderer) Singular(res *core.SingularResult) string {
	if res == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", r.styled(titleStyle,
		fmt.Sprintf("Singular (%d responses, %dms)", len(res.Responses), res.LatencyMs)))

	for _, resp := range res.Responses {
		fmt.Fprintf(&b, "\n%s %s\n",
			r.styled(titleStyle, resp.ExpertID),
			r.styled(labelStyle, fmt.Sprintf("confidence %s, %dms", percent(resp.Confidence), resp.LatencyMs)))
		b.WriteString(strings.TrimRight(r.Markdown(resp.Text), "\n"))
		b.WriteString("\n")
	}

	if len(res.Omitted) > 0 {
		b.WriteString("\n" + r.styled(labelStyle, "Omitted") + "\n")
		for _, om := range res.Omitted {
			fmt.Fprintf(&b, "  %-14s %s\n", om.ExpertID, r.styled(failStyle, om.FailureReason))
		}
	}

	return b.String()
}

// HistoryList renders outcome records as one line each, newest first.
func (r *Renderer) HistoryList(recs []*core.OutcomeRecord) string {
	if len(recs) == 0 {
		return r.styled(labelStyle, "no recorded outcomes") + "\n"
	}

	var b strings.Builder
	for _, rec := range recs {
		status := r.styled(okStyle, "met")
		if !rec.ThresholdMet {
			status = r.styled(warnStyle, "miss")
		}
		if rec.Mode == core.ModeSingular {
			status = r.styled(labelStyle, "-")
		}
		fmt.Fprintf(&b, "%-10s %-9s %4s %-4s %8s  %s\n",
			shortID(rec.RequestID), rec.Mode, percent(rec.Confidence), status,
			timeAgo(rec.CreatedAt), truncate(rec.Prompt, r.width-45))
	}
	return b.String()
}

// ExpertList renders the panel roster. available may be nil when provider
// reachability was not checked.
func (r *Renderer) ExpertList(panel []core.ExpertDescriptor, available map[string]bool) string {
	if len(panel) == 0 {
		return r.styled(labelStyle, "no experts registered") + "\n"
	}

	var b strings.Builder
	for _, d := range panel {
		line := fmt.Sprintf("%-12s %-24s %-9s weight %.2f  [%s]",
			d.ID, d.DisplayName, d.Domain, d.DefaultWeight, strings.Join(d.Capabilities, ", "))
		if available != nil {
			if available[d.ID] {
				line += "  " + r.styled(okStyle, "available")
			} else {
				line += "  " + r.styled(failStyle, "unreachable")
			}
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	if max < 8 {
		max = 8
	}
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// timeAgo formats a timestamp as a coarse relative age.
func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
