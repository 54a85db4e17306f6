// Package provider implements the reasoning providers that back panel
// experts, plus the concrete expert registry binding descriptors to them.
package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/logging"
)

// Registry is the concrete expert panel. Descriptors keep their declared
// order, which downstream components use as the deterministic tie-break.
// Registration happens at startup; afterwards the registry is effectively
// read-only and safe to share across requests.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	experts   map[string]core.ExpertDescriptor
	providers map[string]core.ReasoningProvider
	logger    *logging.Logger
}

// NewRegistry creates an empty registry. logger may be nil.
func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{
		experts:   make(map[string]core.ExpertDescriptor),
		providers: make(map[string]core.ReasoningProvider),
		logger:    logger.WithComponent("registry"),
	}
}

// Register adds an expert and binds it to a reasoning provider. Duplicate IDs
// are rejected so a config typo cannot silently shadow an earlier expert.
func (r *Registry) Register(desc core.ExpertDescriptor, provider core.ReasoningProvider) error {
	if desc.ID == "" {
		return fmt.Errorf("register expert: empty ID")
	}
	if provider == nil {
		return fmt.Errorf("register expert %s: nil provider", desc.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.experts[desc.ID]; exists {
		return fmt.Errorf("register expert %s: already registered", desc.ID)
	}
	r.order = append(r.order, desc.ID)
	r.experts[desc.ID] = desc
	r.providers[desc.ID] = provider

	r.logger.Debug("expert registered",
		"expert", desc.ID,
		"provider", provider.Name(),
		"capabilities", desc.Capabilities,
		"weight", desc.DefaultWeight,
	)
	return nil
}

// Get returns the descriptor for an expert ID.
func (r *Registry) Get(id string) (core.ExpertDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.experts[id]
	if !ok {
		return core.ExpertDescriptor{}, errUnknownExpert(id)
	}
	return desc, nil
}

// Provider returns the reasoning provider bound to an expert.
func (r *Registry) Provider(id string) (core.ReasoningProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, errUnknownExpert(id)
	}
	return p, nil
}

// List returns all descriptors in declared order.
func (r *Registry) List() []core.ExpertDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.ExpertDescriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.experts[id])
	}
	return out
}

// Filter returns the experts whose capabilities intersect required,
// preserving declared order. Empty required means the whole panel.
func (r *Registry) Filter(required []string) []core.ExpertDescriptor {
	return core.FilterByCapabilities(r.List(), required)
}

// Capabilities returns the sorted union of all registered capability tags.
func (r *Registry) Capabilities() []string {
	return core.PanelCapabilities(r.List())
}

// Available returns IDs of experts whose provider answers Ping, in declared
// order. Pings run concurrently so one slow provider does not serialize the
// check.
func (r *Registry) Available(ctx context.Context) []string {
	panel := r.List()
	ok := make([]bool, len(panel))

	var wg sync.WaitGroup
	for i, desc := range panel {
		provider, err := r.Provider(desc.ID)
		if err != nil {
			continue
		}
		wg.Add(1)
		go func(i int, id string, p core.ReasoningProvider) {
			defer wg.Done()
			if err := p.Ping(ctx); err != nil {
				r.logger.Debug("expert unavailable", "expert", id, "provider", p.Name(), "error", err)
				return
			}
			ok[i] = true
		}(i, desc.ID, provider)
	}
	wg.Wait()

	available := make([]string, 0, len(panel))
	for i, desc := range panel {
		if ok[i] {
			available = append(available, desc.ID)
		}
	}
	return available
}

func errUnknownExpert(id string) *core.DomainError {
	return &core.DomainError{
		Category: core.ErrCatNotFound,
		Code:     core.CodeUnknownExpert,
		Message:  fmt.Sprintf("expert not registered: %s", id),
	}
}

var _ core.ExpertRegistry = (*Registry)(nil)
