package service

import (
	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/logging"
)

// Weighting strategy names.
const (
	StrategyBalanced = "balanced"
	StrategyQuality  = "quality_focused"
	StrategyWorkflow = "workflow_focused"
	StrategyAdaptive = "adaptive"
)

// Profile holds the three factors of one weighting strategy. An expert's
// raw weight is defaultWeight × (Base + Relevance×relevance +
// Confidence×confidence); raw weights are then normalized to sum to 1.0.
type Profile struct {
	Base       float64
	Relevance  float64
	Confidence float64
}

// DefaultProfiles returns the built-in strategy profiles.
func DefaultProfiles() map[string]Profile {
	return map[string]Profile{
		StrategyBalanced: {Base: 0.5, Relevance: 0.3, Confidence: 0.2},
		StrategyQuality:  {Base: 0.75, Relevance: 0.05, Confidence: 0.2},
		StrategyWorkflow: {Base: 0.3, Relevance: 0.5, Confidence: 0.2},
	}
}

// WeightCalculator turns relevance and confidence scores into a normalized
// weight assignment over the experts that responded.
type WeightCalculator struct {
	strategy string
	profiles map[string]Profile
	logger   *logging.Logger
}

// NewWeightCalculator creates a calculator with the configured default
// strategy. Unknown profile names fall back to the built-ins.
func NewWeightCalculator(strategy string, profiles map[string]Profile, logger *logging.Logger) *WeightCalculator {
	if strategy == "" {
		strategy = StrategyAdaptive
	}
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &WeightCalculator{
		strategy: strategy,
		profiles: profiles,
		logger:   logger.WithComponent("weights"),
	}
}

// Assign computes normalized weights over the non-failed responses.
// Failed experts get no weight. When exactly one expert succeeded it
// receives weight 1.0 regardless of strategy.
func (w *WeightCalculator) Assign(req *core.Request, experts []core.ExpertDescriptor, responses []core.ExpertResponse, relevance map[string]float64) core.WeightAssignment {
	successes := core.SuccessfulResponses(responses)
	assignment := make(core.WeightAssignment, len(successes))
	if len(successes) == 0 {
		return assignment
	}
	if len(successes) == 1 {
		assignment[successes[0].ExpertID] = 1.0
		return assignment
	}

	profile := w.resolveProfile(req)
	descByID := make(map[string]core.ExpertDescriptor, len(experts))
	for _, d := range experts {
		descByID[d.ID] = d
	}

	raw := make(map[string]float64, len(successes))
	var total float64
	for _, resp := range successes {
		desc := descByID[resp.ExpertID]
		factor := profile.Base +
			profile.Relevance*clamp01(relevance[resp.ExpertID]) +
			profile.Confidence*clamp01(resp.Confidence)
		weight := desc.DefaultWeight * factor
		raw[resp.ExpertID] = weight
		total += weight
	}

	if total <= 0 {
		// Degenerate panel config; split evenly rather than divide by zero.
		even := 1.0 / float64(len(successes))
		for _, resp := range successes {
			assignment[resp.ExpertID] = even
		}
		return assignment
	}

	for id, weight := range raw {
		assignment[id] = weight / total
	}
	return assignment
}

// Strategy returns the effective strategy name for a request.
func (w *WeightCalculator) Strategy(req *core.Request) string {
	strategy := w.strategy
	if req.Strategy != "" {
		strategy = req.Strategy
	}
	if strategy == StrategyAdaptive {
		return w.adapt(req)
	}
	return strategy
}

func (w *WeightCalculator) resolveProfile(req *core.Request) Profile {
	name := w.Strategy(req)
	if p, ok := w.profiles[name]; ok {
		return p
	}
	w.logger.Warn("unknown weighting profile, using balanced", "profile", name)
	if p, ok := w.profiles[StrategyBalanced]; ok {
		return p
	}
	return DefaultProfiles()[StrategyBalanced]
}

// adapt picks a concrete profile from the request shape: code mutations
// favor configured expert quality, planning chatter favors per-request
// relevance, everything else stays balanced.
func (w *WeightCalculator) adapt(req *core.Request) string {
	switch req.Trigger {
	case core.TriggerCodeMutation:
		return StrategyQuality
	case core.TriggerPlanningDiscussion:
		return StrategyWorkflow
	default:
		return StrategyBalanced
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
