package service

import (
	"time"

	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/events"
	"github.com/conclave-ai/conclave/internal/logging"
)

// Publisher assembles outcomes and announces request lifecycle on the
// event bus. Completions and failures are priority events so monitors
// never miss them.
type Publisher struct {
	bus    *events.Bus
	logger *logging.Logger
}

// NewPublisher creates a publisher. bus may be nil.
func NewPublisher(bus *events.Bus, logger *logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Publisher{bus: bus, logger: logger.WithComponent("publisher")}
}

// Started announces that a validated request entered dispatch.
func (p *Publisher) Started(req *core.Request, mode core.Mode, experts []core.ExpertDescriptor) {
	ids := make([]string, len(experts))
	for i, d := range experts {
		ids[i] = d.ID
	}
	p.logger.WithRequest(req.ID).Info("request started",
		"mode", mode.String(),
		"experts", len(ids),
	)
	if p.bus != nil {
		p.bus.Publish(events.NewRequestStartedEvent(req.ID, req.SessionID, mode.String(), ids))
	}
}

// Failed announces a request that produced no outcome.
func (p *Publisher) Failed(req *core.Request, err error) {
	category := string(core.GetCategory(err))
	code := ""
	if domErr, ok := err.(*core.DomainError); ok {
		code = domErr.Code
	}
	p.logger.WithRequest(req.ID).Error("request failed",
		"category", category,
		"error", err,
	)
	if p.bus != nil {
		p.bus.PublishPriority(events.NewRequestFailedEvent(req.ID, req.SessionID, category, code, err.Error()))
	}
}

// ConsensusOutcome finalizes a consensus result into the request outcome
// and publishes completion.
func (p *Publisher) ConsensusOutcome(req *core.Request, result *core.ConsensusResult, started time.Time) *core.Outcome {
	result.LatencyMs = time.Since(started).Milliseconds()

	outcome := &core.Outcome{
		RequestID:   req.ID,
		Mode:        core.ModeConsensus,
		Consensus:   result,
		CompletedAt: time.Now(),
	}

	p.logger.WithRequest(req.ID).Info("consensus resolved",
		"method", string(result.Method),
		"confidence", result.Confidence,
		"threshold_met", result.ThresholdMet,
		"contributing", len(result.ContributingExperts),
		"omitted", len(result.Omitted),
		"latency_ms", result.LatencyMs,
	)

	if p.bus != nil {
		disagreements := make([]events.DisagreementDetail, 0, len(result.Disagreements))
		for _, d := range result.Disagreements {
			disagreements = append(disagreements, events.DisagreementDetail{
				ExpertA:    d.ExpertA,
				ExpertB:    d.ExpertB,
				Similarity: d.Similarity,
			})
		}
		p.bus.Publish(events.NewConsensusReachedEvent(
			req.ID, req.SessionID, result.Confidence, string(result.Method), result.ThresholdMet, disagreements))

		completed := events.NewRequestCompletedEvent(req.ID, req.SessionID, core.ModeConsensus.String())
		completed.Method = string(result.Method)
		completed.Confidence = result.Confidence
		completed.ThresholdMet = result.ThresholdMet
		completed.Contributing = len(result.ContributingExperts)
		completed.Omitted = len(result.Omitted)
		completed.LatencyMs = result.LatencyMs
		p.bus.PublishPriority(completed)
	}
	return outcome
}

// SingularOutcome packages the successful responses, one labeled entry per
// expert, plus omissions for the experts that produced nothing. Responses
// are never merged: singular mode reports perspectives, not a verdict.
func (p *Publisher) SingularOutcome(req *core.Request, responses []core.ExpertResponse, started time.Time) *core.Outcome {
	result := &core.SingularResult{
		RequestID: req.ID,
		Responses: core.SuccessfulResponses(responses),
		Omitted:   core.OmissionsOf(responses),
		LatencyMs: time.Since(started).Milliseconds(),
	}

	outcome := &core.Outcome{
		RequestID:   req.ID,
		Mode:        core.ModeSingular,
		Singular:    result,
		CompletedAt: time.Now(),
	}

	p.logger.WithRequest(req.ID).Info("singular responses collected",
		"responses", len(result.Responses),
		"omitted", len(result.Omitted),
		"latency_ms", result.LatencyMs,
	)

	if p.bus != nil {
		completed := events.NewRequestCompletedEvent(req.ID, req.SessionID, core.ModeSingular.String())
		completed.Contributing = len(result.Responses)
		completed.Omitted = len(result.Omitted)
		completed.LatencyMs = result.LatencyMs
		p.bus.PublishPriority(completed)
	}
	return outcome
}
