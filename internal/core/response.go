package core

import "time"

// FailureTimeout is the failure reason recorded when an expert exceeds its
// per-call deadline.
const FailureTimeout = "timeout"

// ExpertResponse is one expert's answer to one request. The dispatcher owns
// instances until they are handed to the resolver.
type ExpertResponse struct {
	ExpertID string `json:"expert_id"`
	Text     string `json:"text,omitempty"`

	// Confidence is self-reported by the reasoning provider, in [0,1].
	Confidence float64 `json:"confidence"`

	LatencyMs  int64     `json:"latency_ms"`
	ProducedAt time.Time `json:"produced_at"`

	Failed        bool   `json:"failed,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// TimedOut reports whether the response records a deadline expiry.
func (r ExpertResponse) TimedOut() bool {
	return r.Failed && r.FailureReason == FailureTimeout
}

// SuccessfulResponses returns the non-failed responses, preserving input order.
func SuccessfulResponses(responses []ExpertResponse) []ExpertResponse {
	out := make([]ExpertResponse, 0, len(responses))
	for _, r := range responses {
		if !r.Failed {
			out = append(out, r)
		}
	}
	return out
}

// FailedResponses returns the failed responses, preserving input order.
func FailedResponses(responses []ExpertResponse) []ExpertResponse {
	out := make([]ExpertResponse, 0)
	for _, r := range responses {
		if r.Failed {
			out = append(out, r)
		}
	}
	return out
}

// Omission records an expert that produced no usable response and why.
// Failures are reported, never silently dropped.
type Omission struct {
	ExpertID      string `json:"expert_id"`
	FailureReason string `json:"failure_reason"`
}

// OmissionsOf converts failed responses into omission records.
func OmissionsOf(responses []ExpertResponse) []Omission {
	out := make([]Omission, 0)
	for _, r := range responses {
		if r.Failed {
			out = append(out, Omission{ExpertID: r.ExpertID, FailureReason: r.FailureReason})
		}
	}
	return out
}
