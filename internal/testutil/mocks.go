package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/conclave-ai/conclave/internal/core"
)

// MockProvider implements ReasoningProvider for testing.
type MockProvider struct {
	name       string
	invokeFunc func(context.Context, core.Invocation) (*core.Opinion, error)
	pingFunc   func(context.Context) error
	delay      time.Duration
	calls      []MockCall
	mu         sync.Mutex
}

// MockCall records a call to the mock.
type MockCall struct {
	Method    string
	Args      interface{}
	Timestamp time.Time
}

// NewMockProvider creates a new mock provider.
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		name:  name,
		calls: make([]MockCall, 0),
	}
}

// Name returns the mock name.
func (m *MockProvider) Name() string {
	return m.name
}

// Ping mocks the availability check.
func (m *MockProvider) Ping(ctx context.Context) error {
	m.recordCall("Ping", nil)
	if m.pingFunc != nil {
		return m.pingFunc(ctx)
	}
	return nil
}

// Invoke mocks one reasoning call. A configured delay is waited out against
// ctx, so deadline tests observe real cancellation instead of a sleeping
// goroutine.
func (m *MockProvider) Invoke(ctx context.Context, inv core.Invocation) (*core.Opinion, error) {
	m.recordCall("Invoke", inv)

	if m.delay > 0 {
		timer := time.NewTimer(m.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.invokeFunc != nil {
		return m.invokeFunc(ctx, inv)
	}
	return &core.Opinion{
		Text:       fmt.Sprintf("mock opinion from %s", inv.ExpertID),
		Confidence: 0.8,
	}, nil
}

// WithInvokeFunc sets a custom invoke function.
func (m *MockProvider) WithInvokeFunc(fn func(context.Context, core.Invocation) (*core.Opinion, error)) *MockProvider {
	m.invokeFunc = fn
	return m
}

// WithPingFunc sets a custom ping function.
func (m *MockProvider) WithPingFunc(fn func(context.Context) error) *MockProvider {
	m.pingFunc = fn
	return m
}

// WithOpinion configures a fixed opinion.
func (m *MockProvider) WithOpinion(text string, confidence float64) *MockProvider {
	m.invokeFunc = func(ctx context.Context, inv core.Invocation) (*core.Opinion, error) {
		return &core.Opinion{Text: text, Confidence: confidence}, nil
	}
	return m
}

// WithError configures the mock to return an error.
func (m *MockProvider) WithError(err error) *MockProvider {
	m.invokeFunc = func(ctx context.Context, inv core.Invocation) (*core.Opinion, error) {
		return nil, err
	}
	return m
}

// WithDelay makes each invocation wait before answering.
func (m *MockProvider) WithDelay(d time.Duration) *MockProvider {
	m.delay = d
	return m
}

// Calls returns recorded calls.
func (m *MockProvider) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall{}, m.calls...)
}

// CallCount returns number of calls to a method.
func (m *MockProvider) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// Invocations returns the arguments of every recorded Invoke call.
func (m *MockProvider) Invocations() []core.Invocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Invocation, 0)
	for _, c := range m.calls {
		if inv, ok := c.Args.(core.Invocation); ok {
			out = append(out, inv)
		}
	}
	return out
}

// Reset clears call history.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = make([]MockCall, 0)
}

func (m *MockProvider) recordCall(method string, args interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{
		Method:    method,
		Args:      args,
		Timestamp: time.Now(),
	})
}

// MockHistory implements HistoryStore in memory.
type MockHistory struct {
	records  []*core.OutcomeRecord
	saveFunc func(*core.OutcomeRecord) error
	closed   bool
	mu       sync.Mutex
}

// NewMockHistory creates a new in-memory history store.
func NewMockHistory() *MockHistory {
	return &MockHistory{records: make([]*core.OutcomeRecord, 0)}
}

// SaveOutcome mocks persisting a record.
func (m *MockHistory) SaveOutcome(ctx context.Context, rec *core.OutcomeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveFunc != nil {
		return m.saveFunc(rec)
	}
	cp := *rec
	m.records = append(m.records, &cp)
	return nil
}

// GetOutcome mocks lookup by request ID.
func (m *MockHistory) GetOutcome(ctx context.Context, requestID string) (*core.OutcomeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.RequestID == requestID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

// ListOutcomes mocks listing, newest first.
func (m *MockHistory) ListOutcomes(ctx context.Context, limit int) ([]*core.OutcomeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*core.OutcomeRecord, 0, len(m.records))
	for i := len(m.records) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		cp := *m.records[i]
		out = append(out, &cp)
	}
	return out, nil
}

// RecentForSession mocks per-session listing, newest first.
func (m *MockHistory) RecentForSession(ctx context.Context, sessionID string, limit int) ([]*core.OutcomeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*core.OutcomeRecord, 0)
	for i := len(m.records) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if m.records[i].SessionID == sessionID {
			cp := *m.records[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Close marks the store closed.
func (m *MockHistory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// WithSaveError configures save to return an error.
func (m *MockHistory) WithSaveError(err error) *MockHistory {
	m.saveFunc = func(*core.OutcomeRecord) error {
		return err
	}
	return m
}

// Records returns all saved records in insertion order.
func (m *MockHistory) Records() []*core.OutcomeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*core.OutcomeRecord{}, m.records...)
}

// Closed reports whether Close was called.
func (m *MockHistory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockPatterns implements PatternRepository with fixed content.
type MockPatterns struct {
	vocabularies map[string][]string
	patterns     []core.Pattern
}

// NewMockPatterns creates an empty pattern repository.
func NewMockPatterns() *MockPatterns {
	return &MockPatterns{vocabularies: make(map[string][]string)}
}

// WithVocabulary sets the term list for a domain.
func (m *MockPatterns) WithVocabulary(domain string, terms ...string) *MockPatterns {
	m.vocabularies[domain] = terms
	return m
}

// WithPattern appends a pattern.
func (m *MockPatterns) WithPattern(p core.Pattern) *MockPatterns {
	m.patterns = append(m.patterns, p)
	return m
}

// Lookup returns the pattern stored under key.
func (m *MockPatterns) Lookup(key string) (core.Pattern, bool) {
	for _, p := range m.patterns {
		if p.Key == key {
			return p, true
		}
	}
	return core.Pattern{}, false
}

// All returns every pattern in insertion order.
func (m *MockPatterns) All() []core.Pattern {
	return append([]core.Pattern{}, m.patterns...)
}

// Vocabulary returns the term list for a domain.
func (m *MockPatterns) Vocabulary(domain string) ([]string, bool) {
	terms, ok := m.vocabularies[domain]
	if !ok {
		return nil, false
	}
	return append([]string{}, terms...), true
}

// Domains returns all vocabulary domains, sorted.
func (m *MockPatterns) Domains() []string {
	out := make([]string, 0, len(m.vocabularies))
	for d := range m.vocabularies {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Ensure interfaces are implemented
var _ core.ReasoningProvider = (*MockProvider)(nil)
var _ core.HistoryStore = (*MockHistory)(nil)
var _ core.PatternRepository = (*MockPatterns)(nil)
