package testutil

import (
	"time"

	"github.com/conclave-ai/conclave/internal/core"
)

// NewTestRequest creates a Request with sensible defaults for tests.
// Use functional options to override specific fields.
func NewTestRequest(opts ...func(*core.Request)) *core.Request {
	r := &core.Request{
		ID:            "req-test",
		SessionID:     "sess-test",
		Prompt:        "Review the proposed module boundary for the billing service",
		RequestedMode: core.ModeConsensus,
		CreatedAt:     time.Now(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Descriptor builds an expert descriptor for tests.
func Descriptor(id, domain string, weight float64, caps ...string) core.ExpertDescriptor {
	return core.ExpertDescriptor{
		ID:            id,
		DisplayName:   id,
		Capabilities:  caps,
		DefaultWeight: weight,
		Domain:        domain,
		Provider:      "mock",
	}
}

// TestPanel returns a three-expert panel covering both vocabulary domains.
func TestPanel() []core.ExpertDescriptor {
	return []core.ExpertDescriptor{
		Descriptor("architect", "design", 0.4, "architecture", "design"),
		Descriptor("reviewer", "design", 0.35, "review", "quality"),
		Descriptor("automator", "workflow", 0.25, "automation", "tooling"),
	}
}

// SuccessResponse builds a successful expert response.
func SuccessResponse(expertID, text string, confidence float64) core.ExpertResponse {
	return core.ExpertResponse{
		ExpertID:   expertID,
		Text:       text,
		Confidence: confidence,
		LatencyMs:  10,
		ProducedAt: time.Now(),
	}
}

// FailedResponse builds a failed expert response.
func FailedResponse(expertID, reason string) core.ExpertResponse {
	return core.ExpertResponse{
		ExpertID:      expertID,
		Failed:        true,
		FailureReason: reason,
		ProducedAt:    time.Now(),
	}
}
