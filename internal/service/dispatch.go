package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/events"
	"github.com/conclave-ai/conclave/internal/logging"
)

// DispatchBudget bounds one dispatch run.
type DispatchBudget struct {
	// PerExpert is each expert's individual deadline.
	PerExpert time.Duration

	// Overall is the whole-request deadline for the mode.
	Overall time.Duration

	// MaxConcurrent bounds in-flight provider calls.
	MaxConcurrent int
}

// Dispatcher fans a request out to the panel in parallel. One slow or
// failing expert never aborts the others: every expert gets its own
// deadline, failures are recorded in the response slot, and results come
// back in the caller's expert order regardless of completion order.
type Dispatcher struct {
	registry core.ExpertRegistry
	limiters *RateLimiterRegistry
	bus      *events.Bus
	logger   *logging.Logger
}

// NewDispatcher creates a dispatcher. limiters and bus may be nil.
func NewDispatcher(registry core.ExpertRegistry, limiters *RateLimiterRegistry, bus *events.Bus, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		registry: registry,
		limiters: limiters,
		bus:      bus,
		logger:   logger.WithComponent("dispatch"),
	}
}

// Dispatch invokes every expert and returns one response per expert, in
// input order. It returns only when every slot is filled; callers decide
// what zero successes means.
func (d *Dispatcher) Dispatch(ctx context.Context, rctx *RequestContext, experts []core.ExpertDescriptor, budget DispatchBudget) []core.ExpertResponse {
	responses := make([]core.ExpertResponse, len(experts))
	if len(experts) == 0 {
		return responses
	}

	overallCtx := ctx
	var cancel context.CancelFunc
	if budget.Overall > 0 {
		overallCtx, cancel = context.WithTimeout(ctx, budget.Overall)
		defer cancel()
	}

	// Plain Group, not WithContext: a failed expert must not cancel its
	// siblings, and workers never return errors anyway.
	g := new(errgroup.Group)
	if budget.MaxConcurrent > 0 {
		g.SetLimit(budget.MaxConcurrent)
	}
	for i, desc := range experts {
		i, desc := i, desc
		g.Go(func() error {
			responses[i] = d.invoke(overallCtx, rctx, desc, budget.PerExpert)
			return nil
		})
	}
	_ = g.Wait()
	return responses
}

// invoke runs one expert call under its own deadline and converts every
// outcome, good or bad, into a response slot.
func (d *Dispatcher) invoke(ctx context.Context, rctx *RequestContext, desc core.ExpertDescriptor, timeout time.Duration) core.ExpertResponse {
	start := time.Now()
	req := rctx.Request
	log := d.logger.WithRequest(req.ID).WithExpert(desc.ID)

	resp := core.ExpertResponse{ExpertID: desc.ID}
	fail := func(reason string) core.ExpertResponse {
		resp.Failed = true
		resp.FailureReason = reason
		resp.LatencyMs = time.Since(start).Milliseconds()
		resp.ProducedAt = time.Now()
		if d.bus != nil {
			d.bus.Publish(events.NewExpertFailedEvent(req.ID, req.SessionID, desc.ID, reason))
		}
		return resp
	}

	provider, err := d.registry.Provider(desc.ID)
	if err != nil {
		log.Error("no provider bound", "error", err)
		return fail("no-provider")
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if d.limiters != nil {
		if err := d.limiters.Get(provider.Name()).Acquire(callCtx); err != nil {
			domErr := core.ErrRateLimit(provider.Name()).WithCause(err)
			log.Warn("rate limit wait expired", "error", domErr)
			return fail(failureReason(err))
		}
	}

	type callResult struct {
		opinion *core.Opinion
		err     error
	}
	// Buffered so a late provider return after deadline is dropped
	// without leaking the goroutine.
	ch := make(chan callResult, 1)
	go func() {
		opinion, err := provider.Invoke(callCtx, rctx.Invocation(desc))
		ch <- callResult{opinion: opinion, err: err}
	}()

	select {
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			domErr := core.ErrExpertTimeout(desc.ID)
			log.Warn("expert timed out", "timeout", timeout, "error", domErr)
			return fail(core.FailureTimeout)
		}
		log.Warn("expert call cancelled")
		return fail("cancelled")

	case res := <-ch:
		if res.err != nil {
			domErr := core.ErrExpertInvocation(desc.ID, res.err)
			log.Warn("expert invocation failed", "error", domErr)
			return fail(failureReason(res.err))
		}
		if res.opinion == nil || res.opinion.Text == "" {
			log.Warn("expert returned empty opinion")
			return fail("empty-response")
		}

		resp.Text = res.opinion.Text
		resp.Confidence = clamp01(res.opinion.Confidence)
		resp.LatencyMs = time.Since(start).Milliseconds()
		resp.ProducedAt = time.Now()
		log.Debug("expert responded",
			"confidence", resp.Confidence,
			"latency_ms", resp.LatencyMs,
		)
		if d.bus != nil {
			d.bus.Publish(events.NewExpertRespondedEvent(req.ID, req.SessionID, desc.ID, resp.Confidence, resp.LatencyMs))
		}
		return resp
	}
}

// failureReason maps an invocation error onto the recorded reason string.
func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return core.FailureTimeout
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case core.IsCategory(err, core.ErrCatRateLimit):
		return "rate-limited"
	default:
		return "invocation-error"
	}
}
