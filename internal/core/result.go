package core

import (
	"math"
	"time"
)

// WeightAssignment maps expert ID to normalized influence for one request.
// Weights cover non-failed experts only and sum to 1.0. Assignments are
// computed fresh per request because they depend on request content.
type WeightAssignment map[string]float64

// Sum returns the total weight. For a valid assignment over at least one
// expert this is 1.0 within floating-point tolerance.
func (w WeightAssignment) Sum() float64 {
	total := 0.0
	for _, v := range w {
		total += v
	}
	return total
}

// IsNormalized reports whether the weights sum to 1.0 within tol.
func (w WeightAssignment) IsNormalized(tol float64) bool {
	if len(w) == 0 {
		return false
	}
	return math.Abs(w.Sum()-1.0) <= tol
}

// ResolutionMethod records how a consensus result was reached.
type ResolutionMethod string

const (
	// MethodWeighted is the standard path when two or more experts contribute.
	MethodWeighted ResolutionMethod = "weighted"
	// MethodMajority resolves by majority vote alone.
	MethodMajority ResolutionMethod = "majority"
	// MethodHybrid combines majority voting on categorical recommendations
	// with weighted confidence averaging. Used only on explicit request.
	MethodHybrid ResolutionMethod = "hybrid"
	// MethodSingleExpertFallback is used when exactly one expert succeeded.
	MethodSingleExpertFallback ResolutionMethod = "single-expert-fallback"
)

// IsValid reports whether the method is one of the supported values.
func (m ResolutionMethod) IsValid() bool {
	switch m {
	case MethodWeighted, MethodMajority, MethodHybrid, MethodSingleExpertFallback:
		return true
	}
	return false
}

// MaxConsensusConfidence caps aggregate confidence: the panel never claims
// absolute certainty.
const MaxConsensusConfidence = 0.98

// ContributingExpert records one expert's share of a consensus result.
type ContributingExpert struct {
	ExpertID   string  `json:"expert_id"`
	Weight     float64 `json:"weight"`
	Confidence float64 `json:"confidence"`
}

// Disagreement records one low-overlap expert pair flagged in the
// implementation strategy section.
type Disagreement struct {
	ExpertA    string  `json:"expert_a"`
	ExpertB    string  `json:"expert_b"`
	Similarity float64 `json:"similarity"`
}

// ConsensusResult is the terminal artifact of consensus mode. Immutable,
// produced exactly once per request.
type ConsensusResult struct {
	RequestID  string           `json:"request_id"`
	FinalText  string           `json:"final_text"`
	Confidence float64          `json:"confidence"`
	Method     ResolutionMethod `json:"method"`

	// ContributingExperts is ordered by descending weight with registry order
	// as the tie-break.
	ContributingExperts []ContributingExpert `json:"contributing_experts"`

	// Reasoning is a human-readable trace of how the result was reached,
	// including whether the configured threshold was met.
	Reasoning string `json:"reasoning"`

	Threshold    float64 `json:"threshold"`
	ThresholdMet bool    `json:"threshold_met"`

	// Omitted lists experts excluded from the synthesis and why.
	Omitted []Omission `json:"omitted_experts,omitempty"`

	// Disagreements lists the expert pairs whose responses barely overlap.
	Disagreements []Disagreement `json:"disagreements,omitempty"`

	LatencyMs int64 `json:"latency_ms"`
}

// SingularResult carries every successful expert response unmodified, one
// labeled entry per expert, plus the experts that produced nothing and why.
type SingularResult struct {
	RequestID string           `json:"request_id"`
	Responses []ExpertResponse `json:"responses"`
	Omitted   []Omission       `json:"omitted_experts,omitempty"`
	LatencyMs int64            `json:"latency_ms"`
}

// Outcome is the engine's answer to one request: exactly one of Consensus or
// Singular is set, matching Mode.
type Outcome struct {
	RequestID   string           `json:"request_id"`
	Mode        Mode             `json:"mode"`
	Consensus   *ConsensusResult `json:"consensus,omitempty"`
	Singular    *SingularResult  `json:"singular,omitempty"`
	CompletedAt time.Time        `json:"completed_at"`
}

// LatencyMs returns the end-to-end latency of whichever result is present.
func (o *Outcome) LatencyMs() int64 {
	switch {
	case o.Consensus != nil:
		return o.Consensus.LatencyMs
	case o.Singular != nil:
		return o.Singular.LatencyMs
	}
	return 0
}

// OutcomeRecord is the persisted summary of a completed request.
type OutcomeRecord struct {
	RequestID    string    `json:"request_id"`
	SessionID    string    `json:"session_id,omitempty"`
	Mode         Mode      `json:"mode"`
	Prompt       string    `json:"prompt"`
	FinalText    string    `json:"final_text,omitempty"`
	Confidence   float64   `json:"confidence"`
	Method       string    `json:"method,omitempty"`
	ThresholdMet bool      `json:"threshold_met"`
	Contributing int       `json:"contributing"`
	Omitted      int       `json:"omitted"`
	LatencyMs    int64     `json:"latency_ms"`
	CreatedAt    time.Time `json:"created_at"`
}
