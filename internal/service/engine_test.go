package service

import (
	"context"
	"errors"
	"testing"

	"github.com/conclave-ai/conclave/internal/adapters/provider"
	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/events"
	"github.com/conclave-ai/conclave/internal/testutil"
)

type engineFixture struct {
	engine  *Engine
	history *testutil.MockHistory
	bus     *events.Bus
	failed  <-chan events.Event
	mocks   map[string]*testutil.MockProvider
}

// newEngineFixture wires an engine over the three-expert test panel with
// one mock provider per expert.
func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	registry := provider.NewRegistry(nil)
	mocks := make(map[string]*testutil.MockProvider)
	for _, desc := range testutil.TestPanel() {
		mock := testutil.NewMockProvider("mock")
		mocks[desc.ID] = mock
		if err := registry.Register(desc, mock); err != nil {
			t.Fatalf("registering %s: %v", desc.ID, err)
		}
	}

	patterns := testutil.NewMockPatterns().
		WithVocabulary("design", "architecture", "boundary", "module", "review").
		WithVocabulary("workflow", "pipeline", "automation", "deploy")

	history := testutil.NewMockHistory()
	bus := events.NewBus(16)
	t.Cleanup(bus.Close)

	f := &engineFixture{
		engine:  NewEngine(DefaultEngineConfig(), registry, patterns, history, bus, nil),
		history: history,
		bus:     bus,
		failed:  bus.SubscribePriority(),
		mocks:   mocks,
	}
	return f
}

func TestEngineConsensusPipeline(t *testing.T) {
	f := newEngineFixture(t)
	req := testutil.NewTestRequest(func(r *core.Request) { r.ID = "" })

	outcome, err := f.engine.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if req.ID == "" {
		t.Error("engine must assign a request ID")
	}
	if outcome.RequestID != req.ID || outcome.Mode != core.ModeConsensus {
		t.Fatalf("outcome = %+v", outcome)
	}
	c := outcome.Consensus
	if c == nil || outcome.Singular != nil {
		t.Fatal("consensus mode must produce exactly a consensus result")
	}
	if len(c.ContributingExperts) != 3 {
		t.Errorf("contributing = %+v, want all three experts", c.ContributingExperts)
	}
	if c.Method != core.MethodWeighted {
		t.Errorf("Method = %q", c.Method)
	}
	if !c.ThresholdMet || c.Confidence <= 0 || c.Confidence > core.MaxConsensusConfidence {
		t.Errorf("confidence = %v thresholdMet = %v", c.Confidence, c.ThresholdMet)
	}

	// Every expert was invoked once, with its own role over the shared prompt.
	for id, mock := range f.mocks {
		invs := mock.Invocations()
		if len(invs) != 1 {
			t.Fatalf("%s invoked %d times, want 1", id, len(invs))
		}
		testutil.AssertContains(t, invs[0].Role, "You are "+id)
		testutil.AssertContains(t, invs[0].Prompt, "## Request")
	}

	records := f.history.Records()
	if len(records) != 1 {
		t.Fatalf("history has %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.RequestID != req.ID || rec.Mode != core.ModeConsensus {
		t.Errorf("record = %+v", rec)
	}
	if rec.FinalText != c.FinalText || rec.Confidence != c.Confidence || rec.Contributing != 3 {
		t.Errorf("record fields = %+v", rec)
	}
}

func TestEngineSingularMode(t *testing.T) {
	f := newEngineFixture(t)
	req := testutil.NewTestRequest(func(r *core.Request) {
		r.RequestedMode = core.ModeSingular
	})

	outcome, err := f.engine.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if outcome.Mode != core.ModeSingular || outcome.Singular == nil || outcome.Consensus != nil {
		t.Fatalf("outcome = %+v", outcome)
	}
	s := outcome.Singular
	if len(s.Responses) != 3 {
		t.Fatalf("responses = %+v, want one per expert", s.Responses)
	}
	// Registry order, one labeled and unmerged response per expert.
	wantOrder := []string{"architect", "reviewer", "automator"}
	for i, resp := range s.Responses {
		if resp.ExpertID != wantOrder[i] {
			t.Errorf("response %d = %s, want %s", i, resp.ExpertID, wantOrder[i])
		}
		if resp.Text != "mock opinion from "+wantOrder[i] {
			t.Errorf("response %d text = %q", i, resp.Text)
		}
	}
	if len(s.Omitted) != 0 {
		t.Errorf("Omitted = %+v", s.Omitted)
	}
}

func TestEngineAutoMode(t *testing.T) {
	tests := []struct {
		name     string
		trigger  core.TriggerKind
		wantMode core.Mode
	}{
		{"code mutation resolves consensus", core.TriggerCodeMutation, core.ModeConsensus},
		{"planning resolves singular", core.TriggerPlanningDiscussion, core.ModeSingular},
		{"unclassified resolves consensus", core.TriggerUnknown, core.ModeConsensus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngineFixture(t)
			req := testutil.NewTestRequest(func(r *core.Request) {
				r.RequestedMode = core.ModeAuto
				r.Trigger = tt.trigger
			})

			outcome, err := f.engine.Handle(context.Background(), req)
			if err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if outcome.Mode != tt.wantMode {
				t.Errorf("Mode = %q, want %q", outcome.Mode, tt.wantMode)
			}
		})
	}
}

func TestEngineRejectsInvalidRequest(t *testing.T) {
	f := newEngineFixture(t)
	req := testutil.NewTestRequest(func(r *core.Request) { r.Prompt = "   " })

	outcome, err := f.engine.Handle(context.Background(), req)
	if outcome != nil {
		t.Fatalf("outcome = %+v, want nil", outcome)
	}

	var domErr *core.DomainError
	if !errors.As(err, &domErr) || domErr.Code != core.CodeEmptyPrompt {
		t.Fatalf("err = %v, want EMPTY_PROMPT", err)
	}

	for id, mock := range f.mocks {
		if mock.CallCount("Invoke") != 0 {
			t.Errorf("%s was invoked for a rejected request", id)
		}
	}
	if len(f.history.Records()) != 0 {
		t.Error("rejected requests must not be persisted")
	}

	failed := receiveEvent(t, f.failed).(events.RequestFailedEvent)
	if failed.Code != core.CodeEmptyPrompt {
		t.Errorf("failed event code = %q", failed.Code)
	}
}

func TestEngineRejectsUnknownCapability(t *testing.T) {
	f := newEngineFixture(t)
	req := testutil.NewTestRequest(func(r *core.Request) {
		r.RequiredCapabilities = []string{"review", "piloting"}
	})

	_, err := f.engine.Handle(context.Background(), req)

	var domErr *core.DomainError
	if !errors.As(err, &domErr) || domErr.Code != core.CodeUnknownCapability {
		t.Fatalf("err = %v, want UNKNOWN_CAPABILITY", err)
	}
	if domErr.Details["capability"] != "piloting" {
		t.Errorf("details = %v", domErr.Details)
	}
}

func TestEngineCapabilityFilter(t *testing.T) {
	f := newEngineFixture(t)
	req := testutil.NewTestRequest(func(r *core.Request) {
		r.RequiredCapabilities = []string{"review"}
	})

	outcome, err := f.engine.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if f.mocks["architect"].CallCount("Invoke") != 0 || f.mocks["automator"].CallCount("Invoke") != 0 {
		t.Error("filtered-out experts must not be invoked")
	}
	if f.mocks["reviewer"].CallCount("Invoke") != 1 {
		t.Error("reviewer should have been invoked")
	}

	c := outcome.Consensus
	if c.Method != core.MethodSingleExpertFallback {
		t.Errorf("Method = %q, want single-expert-fallback for a panel of one", c.Method)
	}
	if len(c.ContributingExperts) != 1 || c.ContributingExperts[0].ExpertID != "reviewer" {
		t.Errorf("contributing = %+v", c.ContributingExperts)
	}
}

func TestEngineEmptyPanel(t *testing.T) {
	registry := provider.NewRegistry(nil)
	engine := NewEngine(nil, registry, nil, nil, nil, nil)

	_, err := engine.Handle(context.Background(), testutil.NewTestRequest())

	var domErr *core.DomainError
	if !errors.As(err, &domErr) || domErr.Code != core.CodeNoExperts {
		t.Fatalf("err = %v, want NO_EXPERTS", err)
	}
}

func TestEngineAllExpertsFailed(t *testing.T) {
	f := newEngineFixture(t)
	for _, mock := range f.mocks {
		mock.WithError(errors.New("provider down"))
	}

	outcome, err := f.engine.Handle(context.Background(), testutil.NewTestRequest())

	if outcome != nil {
		t.Fatalf("outcome = %+v, want nil", outcome)
	}
	if !core.IsAllExpertsFailed(err) {
		t.Fatalf("err = %v, want all-experts-failed", err)
	}
	if len(f.history.Records()) != 0 {
		t.Error("total failures must not be persisted")
	}

	failed := receiveEvent(t, f.failed).(events.RequestFailedEvent)
	if failed.Code != core.CodeAllExpertsFailed {
		t.Errorf("failed event code = %q", failed.Code)
	}
}

func TestEnginePartialFailureStillResolves(t *testing.T) {
	f := newEngineFixture(t)
	f.mocks["reviewer"].WithError(errors.New("provider down"))

	outcome, err := f.engine.Handle(context.Background(), testutil.NewTestRequest())
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	c := outcome.Consensus
	if len(c.ContributingExperts) != 2 {
		t.Errorf("contributing = %+v, want 2", c.ContributingExperts)
	}
	if len(c.Omitted) != 1 || c.Omitted[0].ExpertID != "reviewer" || c.Omitted[0].FailureReason != "invocation-error" {
		t.Errorf("Omitted = %+v", c.Omitted)
	}

	rec := f.history.Records()[0]
	if rec.Contributing != 2 || rec.Omitted != 1 {
		t.Errorf("record counts = %d/%d, want 2/1", rec.Contributing, rec.Omitted)
	}
}

func TestEngineHistoryFailureSwallowed(t *testing.T) {
	f := newEngineFixture(t)
	f.history.WithSaveError(core.ErrStorage(core.CodeHistoryWrite, "disk full"))

	outcome, err := f.engine.Handle(context.Background(), testutil.NewTestRequest())
	if err != nil {
		t.Fatalf("Handle must not fail on history errors: %v", err)
	}
	if outcome == nil || outcome.Consensus == nil {
		t.Fatal("outcome must survive a failing history store")
	}
}

func TestEngineSingularHistoryRecord(t *testing.T) {
	f := newEngineFixture(t)
	req := testutil.NewTestRequest(func(r *core.Request) {
		r.RequestedMode = core.ModeSingular
	})

	if _, err := f.engine.Handle(context.Background(), req); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	rec := f.history.Records()[0]
	if rec.Mode != core.ModeSingular || rec.Contributing != 3 || rec.Omitted != 0 {
		t.Errorf("record = %+v", rec)
	}
	if rec.FinalText != "" || rec.Method != "" {
		t.Errorf("singular record must not carry consensus fields: %+v", rec)
	}
}

func TestEngineRequestStrategyOverride(t *testing.T) {
	f := newEngineFixture(t)
	req := testutil.NewTestRequest(func(r *core.Request) {
		r.Strategy = StrategyQuality
	})

	outcome, err := f.engine.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if outcome.Consensus == nil {
		t.Fatal("expected a consensus result")
	}
	// quality_focused leans on configured weights; the architect leads the
	// test panel.
	if got := outcome.Consensus.ContributingExperts[0].ExpertID; got != "architect" {
		t.Errorf("leading contributor = %s, want architect", got)
	}
}

func TestEngineLimitersExposed(t *testing.T) {
	f := newEngineFixture(t)

	limiters := f.engine.Limiters()
	if limiters == nil {
		t.Fatal("Limiters() returned nil")
	}
	limiters.SetConfig("mock", ConfigFromRPM(60))
	if got := limiters.Get("mock").MaxTokens(); got != 15 {
		t.Errorf("MaxTokens = %v, want 15", got)
	}
}
