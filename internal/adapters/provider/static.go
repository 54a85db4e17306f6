package provider

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/conclave-ai/conclave/internal/core"
)

// StaticProvider answers instantly from canned material. It backs offline
// panels and demos where no real reasoner is configured, and pinned answers
// make scripted runs reproducible.
type StaticProvider struct {
	mu      sync.RWMutex
	answers map[string]core.Opinion
}

// NewStaticProvider creates a provider with no pinned answers.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{answers: make(map[string]core.Opinion)}
}

// WithAnswer pins an exact opinion for one expert. Unpinned experts get a
// deterministic generated answer.
func (p *StaticProvider) WithAnswer(expertID, text string, confidence float64) *StaticProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.answers[expertID] = core.Opinion{Text: text, Confidence: confidence}
	return p
}

// Name returns the provider identifier.
func (p *StaticProvider) Name() string { return "static" }

// Ping always succeeds; there is nothing to reach.
func (p *StaticProvider) Ping(ctx context.Context) error { return nil }

// Invoke returns the pinned answer for the expert, or a generated one that is
// stable for a given expert and prompt.
func (p *StaticProvider) Invoke(ctx context.Context, inv core.Invocation) (*core.Opinion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	pinned, ok := p.answers[inv.ExpertID]
	p.mu.RUnlock()
	if ok {
		out := pinned
		return &out, nil
	}

	op := generateOpinion(inv)
	return &op, nil
}

var staticVerdicts = []string{
	"Proceed, with one reservation.",
	"This holds up under scrutiny.",
	"Workable, though the edges need care.",
	"Sound overall.",
	"Defensible, but not as the final word.",
}

var staticAngles = []string{
	"the main risk is hidden coupling between the parts involved",
	"the cost here is operational rather than structural",
	"test coverage at the boundary decides whether this is safe",
	"the migration path matters more than the end state",
	"ownership and naming need settling before anything moves",
}

// generateOpinion derives a stable answer from the expert and prompt so
// repeated offline runs produce identical panels.
func generateOpinion(inv core.Invocation) core.Opinion {
	h := fnv.New32a()
	h.Write([]byte(inv.ExpertID))
	h.Write([]byte{0})
	h.Write([]byte(inv.Prompt))
	seed := h.Sum32()

	verdict := staticVerdicts[int(seed)%len(staticVerdicts)]
	angle := staticAngles[int(seed/5)%len(staticAngles)]
	confidence := 0.60 + float64(seed%30)/100

	text := fmt.Sprintf("%s Regarding %q: %s. Scope the change narrowly and record the trade-off accepted.\n\nConfidence: %.2f",
		verdict, promptTopic(inv.Prompt), angle, confidence)
	return core.Opinion{Text: text, Confidence: confidence}
}

// promptTopic shortens a prompt to its leading words for quoting back.
func promptTopic(prompt string) string {
	words := strings.Fields(prompt)
	if len(words) > 8 {
		return strings.Join(words[:8], " ") + "..."
	}
	return strings.Join(words, " ")
}

var _ core.ReasoningProvider = (*StaticProvider)(nil)
