package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/logging"
)

// agreementSpreadScale maps confidence standard deviation onto [0,1]: a
// spread at or above this value earns no agreement bonus.
const agreementSpreadScale = 0.25

// ResolverConfig tunes consensus resolution.
type ResolverConfig struct {
	// BreadthBonus is added once when more than one expert contributes.
	BreadthBonus float64

	// AgreementBonus is the maximum bonus for aligned confidences, scaled
	// down as the confidence spread grows.
	AgreementBonus float64

	// MaxConfidence caps the aggregate; the panel never claims certainty.
	MaxConfidence float64

	// DivergenceThreshold flags expert pairs whose response similarity
	// falls below it.
	DivergenceThreshold float64
}

// DefaultResolverConfig returns the standard resolution policy.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		BreadthBonus:        0.03,
		AgreementBonus:      0.05,
		MaxConfidence:       core.MaxConsensusConfidence,
		DivergenceThreshold: 0.5,
	}
}

// Resolver synthesizes one consensus result from the panel's responses.
type Resolver struct {
	cfg    ResolverConfig
	logger *logging.Logger
}

// NewResolver creates a resolver.
func NewResolver(cfg ResolverConfig, logger *logging.Logger) *Resolver {
	if cfg.MaxConfidence <= 0 {
		cfg.MaxConfidence = core.MaxConsensusConfidence
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{cfg: cfg, logger: logger.WithComponent("resolver")}
}

// Resolve produces the consensus result for a request. responses must be
// in registry order; weights must cover exactly the non-failed responses.
// A result below the request threshold is still produced, with reasoning
// that says so: partial certainty beats silence.
func (r *Resolver) Resolve(req *core.Request, experts []core.ExpertDescriptor, responses []core.ExpertResponse, weights core.WeightAssignment) *core.ConsensusResult {
	successes := core.SuccessfulResponses(responses)
	result := &core.ConsensusResult{
		RequestID: req.ID,
		Threshold: req.Threshold(),
		Omitted:   core.OmissionsOf(responses),
	}

	names := displayNames(experts)

	if len(successes) == 1 {
		r.resolveSingle(result, successes[0], names)
		return result
	}

	contributing := orderContributors(successes, weights)

	weightedSum := 0.0
	minConfidence := 1.0
	confidences := make([]float64, len(successes))
	for i, resp := range successes {
		confidences[i] = resp.Confidence
		weightedSum += weights[resp.ExpertID] * resp.Confidence
		if resp.Confidence < minConfidence {
			minConfidence = resp.Confidence
		}
	}

	spread := stddev(confidences)
	agreementBonus := r.cfg.AgreementBonus * (1 - math.Min(1, spread/agreementSpreadScale))
	aggregate := weightedSum + r.cfg.BreadthBonus + agreementBonus

	// Floor at the weakest contributing confidence, cap below certainty.
	if aggregate < minConfidence {
		aggregate = minConfidence
	}
	if aggregate > r.cfg.MaxConfidence {
		aggregate = r.cfg.MaxConfidence
	}

	disagreements := r.findDisagreements(successes)

	method := core.MethodWeighted
	var majority []string
	if req.Hybrid {
		method = core.MethodHybrid
		majority = majorityTexts(successes)
	}

	result.Method = method
	result.Confidence = aggregate
	result.ContributingExperts = contributing
	result.ThresholdMet = aggregate >= result.Threshold
	result.Disagreements = toDisagreements(disagreements)
	result.FinalText = r.synthesize(successes, contributing, names, aggregate, method, majority, disagreements)
	result.Reasoning = r.explain(len(successes), weightedSum, agreementBonus, spread, aggregate, method, len(majority), result)

	r.logger.Debug("consensus resolved",
		"method", string(method),
		"confidence", aggregate,
		"contributing", len(contributing),
		"omitted", len(result.Omitted),
	)
	return result
}

func (r *Resolver) resolveSingle(result *core.ConsensusResult, resp core.ExpertResponse, names map[string]string) {
	confidence := resp.Confidence
	if confidence > r.cfg.MaxConfidence {
		confidence = r.cfg.MaxConfidence
	}

	result.Method = core.MethodSingleExpertFallback
	result.Confidence = confidence
	result.ContributingExperts = []core.ContributingExpert{
		{ExpertID: resp.ExpertID, Weight: 1.0, Confidence: resp.Confidence},
	}
	result.ThresholdMet = confidence >= result.Threshold

	var sb strings.Builder
	writeExpertSection(&sb, names[resp.ExpertID], 1.0, resp.Confidence, resp.Text)
	sb.WriteString("\n## Implementation strategy\n\n")
	sb.WriteString("Only one expert produced a usable response; its answer stands unsynthesized.\n")
	result.FinalText = sb.String()

	result.Reasoning = fmt.Sprintf(
		"single-expert-fallback: one usable response; its confidence %.2f is used directly with weight 1.0; %s",
		confidence, thresholdClause(result))
}

// synthesize renders the final text: one labeled section per contributing
// expert in descending weight order, then an implementation strategy
// section that flags disagreements instead of papering over them.
func (r *Resolver) synthesize(successes []core.ExpertResponse, contributing []core.ContributingExpert, names map[string]string, aggregate float64, method core.ResolutionMethod, majority []string, disagreements []expertPair) string {
	byID := make(map[string]core.ExpertResponse, len(successes))
	for _, resp := range successes {
		byID[resp.ExpertID] = resp
	}

	var sb strings.Builder
	for i, c := range contributing {
		if i > 0 {
			sb.WriteString("\n")
		}
		writeExpertSection(&sb, names[c.ExpertID], c.Weight, c.Confidence, byID[c.ExpertID].Text)
	}

	sb.WriteString("\n## Implementation strategy\n\n")
	fmt.Fprintf(&sb, "Synthesis of %d perspectives (%s resolution, aggregate confidence %.2f).\n",
		len(contributing), method, aggregate)

	if method == core.MethodHybrid {
		sb.WriteString("\nMajority-supported points:\n")
		if len(majority) == 0 {
			sb.WriteString("- none: no point was asserted by a majority of experts\n")
		}
		for _, m := range majority {
			fmt.Fprintf(&sb, "- %s\n", m)
		}
	}

	if len(disagreements) > 0 {
		sb.WriteString("\nDisagreements to reconcile before acting:\n")
		for _, d := range disagreements {
			fmt.Fprintf(&sb, "- %s and %s diverge (similarity %.2f)\n",
				names[d.A], names[d.B], d.Similarity)
		}
	} else {
		sb.WriteString("\nNo significant disagreements between contributing experts.\n")
	}
	return sb.String()
}

func (r *Resolver) explain(contributors int, weightedSum, agreementBonus, spread, aggregate float64, method core.ResolutionMethod, majorityCount int, result *core.ConsensusResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s resolution over %d experts: weighted confidence sum %.3f",
		method, contributors, weightedSum)
	fmt.Fprintf(&sb, ", breadth bonus +%.3f", r.cfg.BreadthBonus)
	fmt.Fprintf(&sb, ", agreement bonus +%.3f (confidence spread %.3f)", agreementBonus, spread)
	if method == core.MethodHybrid {
		fmt.Fprintf(&sb, "; majority vote backed %d points", majorityCount)
	}
	fmt.Fprintf(&sb, "; final confidence %.2f (cap %.2f); %s",
		aggregate, r.cfg.MaxConfidence, thresholdClause(result))
	if len(result.Omitted) > 0 {
		fmt.Fprintf(&sb, "; %d experts omitted", len(result.Omitted))
	}
	return sb.String()
}

func thresholdClause(result *core.ConsensusResult) string {
	if result.ThresholdMet {
		return fmt.Sprintf("threshold %.2f met", result.Threshold)
	}
	return fmt.Sprintf("threshold %.2f not met: result returned with reduced certainty", result.Threshold)
}

// findDisagreements flags expert pairs whose responses barely overlap.
func (r *Resolver) findDisagreements(successes []core.ExpertResponse) []expertPair {
	ids := make([]string, len(successes))
	texts := make([]string, len(successes))
	for i, resp := range successes {
		ids[i] = resp.ExpertID
		texts[i] = resp.Text
	}

	flagged := make([]expertPair, 0)
	for _, pair := range pairwiseSimilarities(ids, texts) {
		if pair.Similarity < r.cfg.DivergenceThreshold {
			flagged = append(flagged, pair)
		}
	}
	return flagged
}

func toDisagreements(pairs []expertPair) []core.Disagreement {
	if len(pairs) == 0 {
		return nil
	}
	out := make([]core.Disagreement, len(pairs))
	for i, p := range pairs {
		out[i] = core.Disagreement{ExpertA: p.A, ExpertB: p.B, Similarity: p.Similarity}
	}
	return out
}

// majorityTexts extracts the normalized sentences a majority of experts
// assert, for hybrid resolution.
func majorityTexts(successes []core.ExpertResponse) []string {
	texts := make([]string, len(successes))
	for i, resp := range successes {
		texts[i] = resp.Text
	}
	return majoritySentences(texts)
}

// orderContributors sorts by descending weight; input order (registry
// order) breaks ties, keeping output bit-identical across runs.
func orderContributors(successes []core.ExpertResponse, weights core.WeightAssignment) []core.ContributingExpert {
	out := make([]core.ContributingExpert, len(successes))
	for i, resp := range successes {
		out[i] = core.ContributingExpert{
			ExpertID:   resp.ExpertID,
			Weight:     weights[resp.ExpertID],
			Confidence: resp.Confidence,
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Weight > out[j].Weight
	})
	return out
}

func writeExpertSection(sb *strings.Builder, name string, weight, confidence float64, text string) {
	fmt.Fprintf(sb, "## %s (weight %.2f, confidence %.2f)\n\n%s\n",
		name, weight, confidence, strings.TrimSpace(text))
}

func displayNames(experts []core.ExpertDescriptor) map[string]string {
	names := make(map[string]string, len(experts))
	for _, d := range experts {
		if d.DisplayName != "" {
			names[d.ID] = d.DisplayName
		} else {
			names[d.ID] = d.ID
		}
	}
	return names
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}
