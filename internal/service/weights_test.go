package service

import (
	"testing"

	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/testutil"
)

func TestWeightCalculatorAssignNormalizes(t *testing.T) {
	calc := NewWeightCalculator(StrategyBalanced, nil, nil)
	panel := testutil.TestPanel()
	responses := []core.ExpertResponse{
		testutil.SuccessResponse("architect", "answer a", 0.9),
		testutil.SuccessResponse("reviewer", "answer b", 0.8),
		testutil.SuccessResponse("automator", "answer c", 0.7),
	}
	relevance := map[string]float64{"architect": 1.0, "reviewer": 0.5, "automator": 0.0}

	weights := calc.Assign(testutil.NewTestRequest(), panel, responses, relevance)

	if !weights.IsNormalized(1e-9) {
		t.Fatalf("weights sum = %v, want 1.0", weights.Sum())
	}
	// balanced profile: raw = defaultWeight × (0.5 + 0.3×rel + 0.2×conf).
	// architect 0.4×0.98, reviewer 0.35×0.81, automator 0.25×0.64.
	testutil.AssertInDelta(t, weights["architect"], 0.392/0.8355, 1e-9)
	testutil.AssertInDelta(t, weights["reviewer"], 0.2835/0.8355, 1e-9)
	testutil.AssertInDelta(t, weights["automator"], 0.16/0.8355, 1e-9)
	if weights["architect"] <= weights["reviewer"] || weights["reviewer"] <= weights["automator"] {
		t.Errorf("weight order wrong: %v", weights)
	}
}

func TestWeightCalculatorSingleSuccess(t *testing.T) {
	calc := NewWeightCalculator(StrategyBalanced, nil, nil)
	responses := []core.ExpertResponse{
		testutil.SuccessResponse("architect", "only answer", 0.4),
		testutil.FailedResponse("reviewer", core.FailureTimeout),
	}

	weights := calc.Assign(testutil.NewTestRequest(), testutil.TestPanel(), responses, nil)

	if len(weights) != 1 || weights["architect"] != 1.0 {
		t.Errorf("single success weights = %v, want architect: 1.0", weights)
	}
}

func TestWeightCalculatorNoSuccesses(t *testing.T) {
	calc := NewWeightCalculator(StrategyBalanced, nil, nil)
	responses := []core.ExpertResponse{
		testutil.FailedResponse("architect", core.FailureTimeout),
		testutil.FailedResponse("reviewer", "invocation-error"),
	}

	weights := calc.Assign(testutil.NewTestRequest(), testutil.TestPanel(), responses, nil)
	if len(weights) != 0 {
		t.Errorf("weights = %v, want empty", weights)
	}
}

func TestWeightCalculatorFailedExpertsExcluded(t *testing.T) {
	calc := NewWeightCalculator(StrategyBalanced, nil, nil)
	responses := []core.ExpertResponse{
		testutil.SuccessResponse("architect", "answer", 0.9),
		testutil.FailedResponse("reviewer", core.FailureTimeout),
		testutil.SuccessResponse("automator", "answer", 0.9),
	}

	weights := calc.Assign(testutil.NewTestRequest(), testutil.TestPanel(), responses, nil)

	if _, ok := weights["reviewer"]; ok {
		t.Error("failed expert must carry no weight")
	}
	if !weights.IsNormalized(1e-9) {
		t.Errorf("remaining weights sum = %v, want 1.0", weights.Sum())
	}
}

func TestWeightCalculatorDegeneratePanelSplitsEvenly(t *testing.T) {
	calc := NewWeightCalculator(StrategyBalanced, nil, nil)
	panel := []core.ExpertDescriptor{
		testutil.Descriptor("a", "design", 0),
		testutil.Descriptor("b", "design", 0),
	}
	responses := []core.ExpertResponse{
		testutil.SuccessResponse("a", "answer", 0.9),
		testutil.SuccessResponse("b", "answer", 0.5),
	}

	weights := calc.Assign(testutil.NewTestRequest(), panel, responses, nil)

	if weights["a"] != 0.5 || weights["b"] != 0.5 {
		t.Errorf("degenerate weights = %v, want even 0.5/0.5", weights)
	}
}

func TestWeightCalculatorClampsInputs(t *testing.T) {
	calc := NewWeightCalculator(StrategyBalanced, nil, nil)
	panel := []core.ExpertDescriptor{
		testutil.Descriptor("a", "design", 0.5),
		testutil.Descriptor("b", "design", 0.5),
	}
	// Out-of-range relevance and confidence clamp to [0,1]; equal inputs
	// after clamping mean equal weights.
	responses := []core.ExpertResponse{
		testutil.SuccessResponse("a", "answer", 1.7),
		testutil.SuccessResponse("b", "answer", 1.0),
	}
	relevance := map[string]float64{"a": -4, "b": 0}

	weights := calc.Assign(testutil.NewTestRequest(), panel, responses, relevance)

	testutil.AssertInDelta(t, weights["a"], 0.5, 1e-9)
	testutil.AssertInDelta(t, weights["b"], 0.5, 1e-9)
}

func TestWeightCalculatorStrategy(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		requested  string
		trigger    core.TriggerKind
		want       string
	}{
		{"configured wins without override", StrategyBalanced, "", core.TriggerCodeMutation, StrategyBalanced},
		{"request overrides configured", StrategyBalanced, StrategyQuality, "", StrategyQuality},
		{"adaptive code mutation", StrategyAdaptive, "", core.TriggerCodeMutation, StrategyQuality},
		{"adaptive planning", StrategyAdaptive, "", core.TriggerPlanningDiscussion, StrategyWorkflow},
		{"adaptive unclassified", StrategyAdaptive, "", core.TriggerUnknown, StrategyBalanced},
		{"request can force adaptive", StrategyQuality, StrategyAdaptive, core.TriggerPlanningDiscussion, StrategyWorkflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := NewWeightCalculator(tt.configured, nil, nil)
			req := testutil.NewTestRequest(func(r *core.Request) {
				r.Strategy = tt.requested
				r.Trigger = tt.trigger
			})
			if got := calc.Strategy(req); got != tt.want {
				t.Errorf("Strategy() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWeightCalculatorDefaultsToAdaptive(t *testing.T) {
	calc := NewWeightCalculator("", nil, nil)
	req := testutil.NewTestRequest(func(r *core.Request) {
		r.Trigger = core.TriggerCodeMutation
	})
	if got := calc.Strategy(req); got != StrategyQuality {
		t.Errorf("Strategy() = %q, want %q", got, StrategyQuality)
	}
}

func TestWeightCalculatorUnknownProfileFallsBack(t *testing.T) {
	calc := NewWeightCalculator("galactic", nil, nil)
	got := calc.resolveProfile(testutil.NewTestRequest())
	if got != DefaultProfiles()[StrategyBalanced] {
		t.Errorf("resolveProfile() = %+v, want balanced profile", got)
	}
}
