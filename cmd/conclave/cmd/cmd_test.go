package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/conclave-ai/conclave/internal/config"
	"github.com/conclave-ai/conclave/internal/core"
)

func TestGetPrompt_FromArgs(t *testing.T) {
	prompt, err := getPrompt([]string{"should", "we", "split", "this"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prompt != "should we split this" {
		t.Errorf("expected joined args, got %q", prompt)
	}
}

func TestGetPrompt_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	promptFile := filepath.Join(tmpDir, "prompt.txt")
	if err := os.WriteFile(promptFile, []byte("file prompt content\n"), 0o600); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	prompt, err := getPrompt([]string{}, promptFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prompt != "file prompt content" {
		t.Errorf("expected trimmed file content, got %q", prompt)
	}
}

func TestGetPrompt_FileNotFound(t *testing.T) {
	_, err := getPrompt([]string{}, "/nonexistent/file.txt")
	if err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestGetPrompt_NoPrompt(t *testing.T) {
	_, err := getPrompt([]string{}, "")
	if err == nil {
		t.Error("expected error when no prompt provided")
	}
}

func TestRootCmd_Structure(t *testing.T) {
	if rootCmd.Use != "conclave" {
		t.Errorf("expected 'conclave', got %q", rootCmd.Use)
	}
	if rootCmd.Short == "" {
		t.Error("expected non-empty short description")
	}
}

func TestRootCmd_SubcommandsRegistered(t *testing.T) {
	want := []string{"ask", "experts", "serve", "watch", "history", "init", "doctor", "version"}
	registered := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		registered[strings.Fields(cmd.Use)[0]] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestFilterExperts(t *testing.T) {
	panel := []core.ExpertDescriptor{
		{ID: "architect", DisplayName: "Architecture Strategist", Capabilities: []string{"architecture", "design"}},
		{ID: "reviewer", DisplayName: "Code Review Lead", Capabilities: []string{"review", "quality"}},
		{ID: "tester", DisplayName: "Test Engineer", Capabilities: []string{"testing", "quality"}},
	}

	tests := []struct {
		name    string
		pattern string
		wantIDs []string
	}{
		{"by id fragment", "arch", []string{"architect"}},
		{"by capability", "quality", []string{"reviewer", "tester"}},
		{"case insensitive", "REVIEW", []string{"reviewer"}},
		{"no match", "zzzz", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterExperts(panel, tt.pattern)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("matched %d experts, want %d", len(got), len(tt.wantIDs))
			}
			for i, want := range tt.wantIDs {
				if got[i].ID != want {
					t.Errorf("match[%d] = %q, want %q", i, got[i].ID, want)
				}
			}
		})
	}
}

func TestEngineConfigFrom(t *testing.T) {
	cfg := &config.Config{
		Dispatch: config.DispatchConfig{
			ExpertTimeout:     "250ms",
			ConsensusDeadline: "600ms",
			SingularDeadline:  "300ms",
			MaxConcurrent:     4,
		},
		Weights: config.WeightsConfig{
			Strategy: "balanced",
			Profiles: map[string]config.ProfileConfig{
				"balanced": {Base: 0.5, Relevance: 0.3, Confidence: 0.2},
			},
		},
		Consensus: config.ConsensusConfig{
			BreadthBonus:        0.03,
			AgreementBonus:      0.05,
			MaxConfidence:       0.98,
			DivergenceThreshold: 0.5,
		},
		Relevance: config.RelevanceConfig{CacheSize: 128, DensityScale: 18},
	}

	ec := engineConfigFrom(cfg)

	if ec.Budgets.ExpertTimeout != 250*time.Millisecond {
		t.Errorf("ExpertTimeout = %v, want 250ms", ec.Budgets.ExpertTimeout)
	}
	if ec.Budgets.ConsensusDeadline != 600*time.Millisecond {
		t.Errorf("ConsensusDeadline = %v, want 600ms", ec.Budgets.ConsensusDeadline)
	}
	if ec.Budgets.MaxConcurrent != 4 {
		t.Errorf("MaxConcurrent = %d, want 4", ec.Budgets.MaxConcurrent)
	}
	if ec.Strategy != "balanced" {
		t.Errorf("Strategy = %q, want balanced", ec.Strategy)
	}
	if p, ok := ec.Profiles["balanced"]; !ok || p.Base != 0.5 {
		t.Errorf("Profiles[balanced] = %+v, want Base 0.5", p)
	}
	if ec.Resolver.MaxConfidence != 0.98 {
		t.Errorf("MaxConfidence = %v, want 0.98", ec.Resolver.MaxConfidence)
	}
	if ec.RelevanceCacheSize != 128 {
		t.Errorf("RelevanceCacheSize = %d, want 128", ec.RelevanceCacheSize)
	}
}

func TestPrimaryText(t *testing.T) {
	consensus := &core.Outcome{
		Mode:      core.ModeConsensus,
		Consensus: &core.ConsensusResult{FinalText: "synthesized answer"},
	}
	if got := primaryText(consensus); got != "synthesized answer" {
		t.Errorf("consensus primaryText = %q", got)
	}

	singular := &core.Outcome{
		Mode: core.ModeSingular,
		Singular: &core.SingularResult{
			Responses: []core.ExpertResponse{
				{ExpertID: "architect", Text: "first take"},
				{ExpertID: "reviewer", Text: "second take"},
			},
		},
	}
	got := primaryText(singular)
	for _, want := range []string{"[architect]", "first take", "[reviewer]", "second take"} {
		if !strings.Contains(got, want) {
			t.Errorf("singular primaryText missing %q:\n%s", want, got)
		}
	}

	if got := primaryText(nil); got != "" {
		t.Errorf("nil primaryText = %q, want empty", got)
	}
}

func TestTriggerPrompt(t *testing.T) {
	event := core.TriggerEvent{Path: "src/handler.go", Op: "write"}

	code := triggerPrompt(event, core.TriggerCodeMutation)
	if !strings.Contains(code, "src/handler.go") || !strings.Contains(code, "Review") {
		t.Errorf("code prompt = %q", code)
	}

	plan := triggerPrompt(core.TriggerEvent{Path: "docs/plan.md", Op: "write"}, core.TriggerPlanningDiscussion)
	if !strings.Contains(plan, "docs/plan.md") || !strings.Contains(plan, "plan") {
		t.Errorf("planning prompt = %q", plan)
	}
}

func TestOutcomeSummary(t *testing.T) {
	consensus := &core.Outcome{
		Consensus: &core.ConsensusResult{
			Confidence:   0.82,
			Method:       core.MethodWeighted,
			ThresholdMet: true,
			LatencyMs:    41,
		},
	}
	got := outcomeSummary("src/handler.go", consensus)
	for _, want := range []string{"src/handler.go", "82%", "weighted", "met", "41ms"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q: %s", want, got)
		}
	}

	singular := &core.Outcome{
		Singular: &core.SingularResult{
			Responses: []core.ExpertResponse{{ExpertID: "a"}, {ExpertID: "b"}},
			LatencyMs: 33,
		},
	}
	got = outcomeSummary("docs/plan.md", singular)
	if !strings.Contains(got, "2 expert responses") {
		t.Errorf("singular summary = %q", got)
	}
}

func TestUnboundExperts(t *testing.T) {
	providers := map[string]core.ReasoningProvider{"static": nil}
	experts := []config.ExpertConfig{
		{ID: "architect", Provider: "static"},
		// reviewer falls back to the default; gemini is not enabled.
		{ID: "reviewer"},
		{ID: "tester", Provider: "gemini"},
	}

	unbound := unboundExperts(experts, "static", providers)
	if len(unbound) != 1 || unbound[0] != "tester" {
		t.Errorf("unbound = %v, want [tester]", unbound)
	}

	unbound = unboundExperts(experts, "claude", providers)
	if len(unbound) != 2 {
		t.Errorf("unbound = %v, want reviewer and tester", unbound)
	}
}

func TestRunInit(t *testing.T) {
	tmpDir := t.TempDir()
	oldDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	defer func() { _ = os.Chdir(oldDir) }()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	initForce = false
	if err := runInit(nil, nil); err != nil {
		t.Fatalf("runInit: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, ".conclave", "config.yaml"))
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if !strings.Contains(string(data), "consensus:") {
		t.Error("written config missing consensus section")
	}

	// Second run without --force refuses to clobber.
	if err := runInit(nil, nil); err == nil {
		t.Error("expected error when config already exists")
	}

	initForce = true
	defer func() { initForce = false }()
	if err := runInit(nil, nil); err != nil {
		t.Errorf("runInit --force: %v", err)
	}
}
