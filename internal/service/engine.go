package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/events"
	"github.com/conclave-ai/conclave/internal/logging"
)

// Budgets caps how long a request may spend waiting on the panel. The overall
// deadlines are strictly greater than the per-expert timeout so at least one
// full round can complete.
type Budgets struct {
	// ExpertTimeout bounds each individual provider call.
	ExpertTimeout time.Duration

	// ConsensusDeadline bounds the whole dispatch phase in consensus mode.
	ConsensusDeadline time.Duration

	// SingularDeadline bounds the whole dispatch phase in singular mode.
	SingularDeadline time.Duration

	// MaxConcurrent caps in-flight provider calls per request.
	MaxConcurrent int
}

// DefaultBudgets returns the standard latency budgets.
func DefaultBudgets() Budgets {
	return Budgets{
		ExpertTimeout:     200 * time.Millisecond,
		ConsensusDeadline: 400 * time.Millisecond,
		SingularDeadline:  200 * time.Millisecond,
		MaxConcurrent:     8,
	}
}

func (b Budgets) withDefaults() Budgets {
	def := DefaultBudgets()
	if b.ExpertTimeout <= 0 {
		b.ExpertTimeout = def.ExpertTimeout
	}
	if b.ConsensusDeadline <= 0 {
		b.ConsensusDeadline = def.ConsensusDeadline
	}
	if b.SingularDeadline <= 0 {
		b.SingularDeadline = def.SingularDeadline
	}
	if b.MaxConcurrent <= 0 {
		b.MaxConcurrent = def.MaxConcurrent
	}
	return b
}

// EngineConfig holds the tunable policy for the request pipeline.
type EngineConfig struct {
	Budgets Budgets

	// Strategy is the default weighting strategy; requests may override it.
	Strategy string

	// Profiles maps strategy names to weighting factor profiles.
	Profiles map[string]Profile

	Resolver ResolverConfig

	RelevanceCacheSize    int
	RelevanceDensityScale float64
}

// DefaultEngineConfig returns the standard pipeline policy.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Budgets:               DefaultBudgets(),
		Strategy:              StrategyAdaptive,
		Profiles:              DefaultProfiles(),
		Resolver:              DefaultResolverConfig(),
		RelevanceCacheSize:    defaultScoreCacheSize,
		RelevanceDensityScale: defaultDensityScale,
	}
}

// Engine orchestrates the complete request pipeline: validation, panel
// filtering, mode selection, context building, parallel dispatch, and
// resolution into one Outcome per request.
type Engine struct {
	config     *EngineConfig
	registry   core.ExpertRegistry
	selector   *ModeSelector
	builder    *ContextBuilder
	dispatcher *Dispatcher
	limiters   *RateLimiterRegistry
	scorer     RelevanceScorer
	weights    *WeightCalculator
	resolver   *Resolver
	publisher  *Publisher
	history    core.HistoryStore
	budgets    Budgets
	logger     *logging.Logger
}

// NewEngine creates an engine over the given ports. history and bus may be
// nil; the pipeline then runs without persistence or event fan-out.
func NewEngine(
	config *EngineConfig,
	registry core.ExpertRegistry,
	patterns core.PatternRepository,
	history core.HistoryStore,
	bus *events.Bus,
	logger *logging.Logger,
) *Engine {
	if config == nil {
		config = DefaultEngineConfig()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	limiters := NewRateLimiterRegistry()
	return &Engine{
		config:     config,
		registry:   registry,
		selector:   NewModeSelector(),
		builder:    NewContextBuilder(patterns, history, logger),
		dispatcher: NewDispatcher(registry, limiters, bus, logger),
		limiters:   limiters,
		scorer:     NewVocabularyScorer(patterns, config.RelevanceCacheSize, config.RelevanceDensityScale),
		weights:    NewWeightCalculator(config.Strategy, config.Profiles, logger),
		resolver:   NewResolver(config.Resolver, logger),
		publisher:  NewPublisher(bus, logger),
		history:    history,
		budgets:    config.Budgets.withDefaults(),
		logger:     logger.WithComponent("engine"),
	}
}

// Limiters exposes the per-provider rate limiter registry for startup wiring.
func (e *Engine) Limiters() *RateLimiterRegistry {
	return e.limiters
}

// Handle runs one request through the pipeline and returns its outcome.
// Requests that fail validation are rejected before any expert is invoked.
// A request with at least one usable expert response always produces an
// outcome; only total failure returns an error with no result body.
func (e *Engine) Handle(ctx context.Context, req *core.Request) (*core.Outcome, error) {
	started := time.Now()

	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = started
	}

	if err := req.Validate(); err != nil {
		e.publisher.Failed(req, err)
		return nil, err
	}
	if err := e.checkCapabilities(req); err != nil {
		e.publisher.Failed(req, err)
		return nil, err
	}

	experts := e.registry.Filter(req.RequiredCapabilities)
	if len(experts) == 0 {
		err := core.ErrInvalidRequest(core.CodeNoExperts, "no experts match the required capabilities").
			WithDetail("required_capabilities", req.RequiredCapabilities)
		e.publisher.Failed(req, err)
		return nil, err
	}

	mode := e.selector.Resolve(req)
	rctx := e.builder.Build(ctx, req)

	e.publisher.Started(req, mode, experts)

	budget := DispatchBudget{
		PerExpert:     e.budgets.ExpertTimeout,
		Overall:       e.budgets.ConsensusDeadline,
		MaxConcurrent: e.budgets.MaxConcurrent,
	}
	if mode == core.ModeSingular {
		budget.Overall = e.budgets.SingularDeadline
	}

	responses := e.dispatcher.Dispatch(ctx, rctx, experts, budget)

	if len(core.SuccessfulResponses(responses)) == 0 {
		err := core.ErrAllExpertsFailed(len(experts))
		e.publisher.Failed(req, err)
		return nil, err
	}

	var outcome *core.Outcome
	switch mode {
	case core.ModeSingular:
		outcome = e.publisher.SingularOutcome(req, responses, started)
	default:
		relevance := e.scoreRelevance(req, experts, responses)
		weights := e.weights.Assign(req, experts, responses, relevance)
		result := e.resolver.Resolve(req, experts, responses, weights)
		outcome = e.publisher.ConsensusOutcome(req, result, started)
	}

	e.saveOutcome(ctx, req, outcome)
	return outcome, nil
}

// checkCapabilities rejects capabilities no registered expert advertises,
// distinguishing a typo from a legitimately empty filter result.
func (e *Engine) checkCapabilities(req *core.Request) error {
	if len(req.RequiredCapabilities) == 0 {
		return nil
	}
	known := make(map[string]bool)
	for _, c := range e.registry.Capabilities() {
		known[c] = true
	}
	for _, c := range req.RequiredCapabilities {
		if !known[c] {
			return core.ErrInvalidRequest(core.CodeUnknownCapability, "required capability is not provided by any expert").
				WithDetail("capability", c)
		}
	}
	return nil
}

// scoreRelevance scores each successful response against its expert's domain
// vocabulary. Failed responses are skipped; they carry no weight anyway.
func (e *Engine) scoreRelevance(req *core.Request, experts []core.ExpertDescriptor, responses []core.ExpertResponse) map[string]float64 {
	scores := make(map[string]float64, len(responses))
	if e.scorer == nil {
		return scores
	}
	byID := make(map[string]core.ExpertDescriptor, len(experts))
	for _, d := range experts {
		byID[d.ID] = d
	}
	for _, resp := range responses {
		if resp.Failed {
			continue
		}
		desc, ok := byID[resp.ExpertID]
		if !ok {
			continue
		}
		scores[resp.ExpertID] = e.scorer.Score(desc, req.Prompt, resp.Text)
	}
	return scores
}

// saveOutcome persists the completed request. History failures are logged and
// swallowed: persistence must never fail a request that already resolved.
func (e *Engine) saveOutcome(ctx context.Context, req *core.Request, outcome *core.Outcome) {
	if e.history == nil {
		return
	}
	rec := &core.OutcomeRecord{
		RequestID: outcome.RequestID,
		SessionID: req.SessionID,
		Mode:      outcome.Mode,
		Prompt:    req.Prompt,
		LatencyMs: outcome.LatencyMs(),
		CreatedAt: outcome.CompletedAt,
	}
	if c := outcome.Consensus; c != nil {
		rec.FinalText = c.FinalText
		rec.Confidence = c.Confidence
		rec.Method = string(c.Method)
		rec.ThresholdMet = c.ThresholdMet
		rec.Contributing = len(c.ContributingExperts)
		rec.Omitted = len(c.Omitted)
	}
	if s := outcome.Singular; s != nil {
		rec.Contributing = len(core.SuccessfulResponses(s.Responses))
		rec.Omitted = len(s.Omitted)
	}
	if err := e.history.SaveOutcome(ctx, rec); err != nil {
		e.logger.WithRequest(req.ID).Warn("failed to save outcome", "error", err)
	}
}
