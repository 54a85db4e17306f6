package render

import (
	"strings"
	"testing"
	"time"

	"github.com/conclave-ai/conclave/internal/core"
)

// plain returns a renderer with color disabled so output carries no ANSI
// escapes and no glamour formatting.
func plain() *Renderer {
	return New(100, false)
}

func sampleConsensus() *core.ConsensusResult {
	return &core.ConsensusResult{
		RequestID:    "req-1",
		FinalText:    "Split the handler into transport and domain layers.",
		Confidence:   0.82,
		Method:       core.MethodWeighted,
		Threshold:    0.7,
		ThresholdMet: true,
		ContributingExperts: []core.ContributingExpert{
			{ExpertID: "architect", Weight: 0.6, Confidence: 0.85},
			{ExpertID: "reviewer", Weight: 0.4, Confidence: 0.78},
		},
		Omitted: []core.Omission{
			{ExpertID: "tester", FailureReason: "deadline exceeded"},
		},
		Disagreements: []core.Disagreement{
			{ExpertA: "architect", ExpertB: "reviewer", Similarity: 0.11},
		},
		Reasoning: "Weighted synthesis across 2 experts.",
		LatencyMs: 42,
	}
}

func TestConsensus_IncludesAllSections(t *testing.T) {
	out := plain().Consensus(sampleConsensus())

	for _, want := range []string{
		"Consensus (weighted)",
		"confidence 82%",
		"threshold 70% met",
		"Split the handler into transport and domain layers.",
		"architect",
		"weight 0.60",
		"tester",
		"deadline exceeded",
		"architect vs reviewer",
		"Weighted synthesis across 2 experts.",
		"42ms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Consensus() missing %q in:\n%s", want, out)
		}
	}
}

func TestConsensus_ThresholdMiss(t *testing.T) {
	res := sampleConsensus()
	res.ThresholdMet = false

	out := plain().Consensus(res)

	if !strings.Contains(out, "threshold 70% not met") {
		t.Errorf("Consensus() missing threshold miss marker in:\n%s", out)
	}
}

func TestSingular_ListsEachResponse(t *testing.T) {
	res := &core.SingularResult{
		RequestID: "req-2",
		Responses: []core.ExpertResponse{
			{ExpertID: "architect", Text: "Favor composition here.", Confidence: 0.9, LatencyMs: 12},
			{ExpertID: "automator", Text: "Add a make target.", Confidence: 0.7, LatencyMs: 15},
		},
		Omitted: []core.Omission{
			{ExpertID: "reviewer", FailureReason: "provider unreachable"},
		},
		LatencyMs: 20,
	}

	out := plain().Singular(res)

	for _, want := range []string{
		"Singular (2 responses, 20ms)",
		"architect",
		"Favor composition here.",
		"automator",
		"Add a make target.",
		"provider unreachable",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Singular() missing %q in:\n%s", want, out)
		}
	}
}

func TestOutcome_PicksModeResult(t *testing.T) {
	consensus := &core.Outcome{
		RequestID: "req-1",
		Mode:      core.ModeConsensus,
		Consensus: sampleConsensus(),
	}
	singular := &core.Outcome{
		RequestID: "req-2",
		Mode:      core.ModeSingular,
		Singular: &core.SingularResult{
			Responses: []core.ExpertResponse{{ExpertID: "architect", Text: "ok", Confidence: 0.9}},
		},
	}

	if out := plain().Outcome(consensus); !strings.Contains(out, "Consensus") {
		t.Errorf("Outcome(consensus) = %q, want consensus rendering", out)
	}
	if out := plain().Outcome(singular); !strings.Contains(out, "Singular") {
		t.Errorf("Outcome(singular) = %q, want singular rendering", out)
	}
	if out := plain().Outcome(nil); out != "" {
		t.Errorf("Outcome(nil) = %q, want empty", out)
	}
}

func TestHistoryList(t *testing.T) {
	recs := []*core.OutcomeRecord{
		{
			RequestID:    "req-abcdef123",
			Mode:         core.ModeConsensus,
			Prompt:       "harden the ingestion pipeline against partial failures",
			Confidence:   0.82,
			ThresholdMet: true,
			CreatedAt:    time.Now().Add(-5 * time.Minute),
		},
		{
			RequestID: "req-2",
			Mode:      core.ModeSingular,
			Prompt:    "short prompt",
			CreatedAt: time.Now().Add(-2 * time.Hour),
		},
	}

	out := plain().HistoryList(recs)

	for _, want := range []string{"req-abcd", "consensus", "82%", "met", "5m ago", "singular", "2h ago"} {
		if !strings.Contains(out, want) {
			t.Errorf("HistoryList() missing %q in:\n%s", want, out)
		}
	}
}

func TestHistoryList_Empty(t *testing.T) {
	out := plain().HistoryList(nil)
	if !strings.Contains(out, "no recorded outcomes") {
		t.Errorf("HistoryList(nil) = %q, want empty marker", out)
	}
}

func TestExpertList(t *testing.T) {
	panel := []core.ExpertDescriptor{
		{ID: "architect", DisplayName: "Architecture Strategist", Domain: "design", DefaultWeight: 0.2, Capabilities: []string{"architecture", "design"}},
		{ID: "automator", DisplayName: "Automation Engineer", Domain: "workflow", DefaultWeight: 0.15, Capabilities: []string{"automation"}},
	}
	available := map[string]bool{"architect": true}

	out := plain().ExpertList(panel, available)

	for _, want := range []string{
		"Architecture Strategist",
		"[architecture, design]",
		"available",
		"Automation Engineer",
		"unreachable",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("ExpertList() missing %q in:\n%s", want, out)
		}
	}
}

func TestExpertList_NoAvailability(t *testing.T) {
	panel := []core.ExpertDescriptor{
		{ID: "architect", DisplayName: "Architecture Strategist", Domain: "design", DefaultWeight: 0.2},
	}

	out := plain().ExpertList(panel, nil)

	if strings.Contains(out, "available") || strings.Contains(out, "unreachable") {
		t.Errorf("ExpertList() = %q, want no availability column", out)
	}
}

func TestMarkdown_PlainPassthrough(t *testing.T) {
	text := "# Heading\n\nbody"
	if got := plain().Markdown(text); got != text {
		t.Errorf("Markdown() = %q, want unchanged input", got)
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Now()
	tests := []struct {
		t    time.Time
		want string
	}{
		{now.Add(-10 * time.Second), "just now"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-50 * time.Hour), "2d ago"},
		{time.Time{}, "-"},
	}
	for _, tt := range tests {
		if got := timeAgo(tt.t); got != tt.want {
			t.Errorf("timeAgo(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 20, "short"},
		{"a much longer prompt that needs cutting", 20, "a much longer pro..."},
		{"line\nbreaks\nflattened", 30, "line breaks flattened"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
