package core

import "context"

// =============================================================================
// Reasoning Provider Port
// =============================================================================

// Invocation is the input to one reasoning call on behalf of one expert.
type Invocation struct {
	ExpertID string

	// Role is the expert's perspective, prepended to the prompt so a shared
	// provider can answer as different panel members.
	Role string

	// Prompt is the fully rendered request context.
	Prompt string

	Model       string
	MaxTokens   int
	Temperature float64
}

// Opinion is one expert's raw answer: text plus self-reported confidence.
type Opinion struct {
	Text       string
	Confidence float64
}

// ReasoningProvider executes one expert's analysis. Implementations must
// honor ctx cancellation: the dispatcher abandons calls whose deadline
// expires, and late results are discarded.
type ReasoningProvider interface {
	// Name returns the provider identifier (e.g. "exec", "http", "gemini").
	Name() string

	// Ping checks whether the provider is reachable and usable.
	Ping(ctx context.Context) error

	// Invoke runs one reasoning call and returns the expert's opinion.
	Invoke(ctx context.Context, inv Invocation) (*Opinion, error)
}

// =============================================================================
// Expert Registry Port
// =============================================================================

// ExpertRegistry holds the fixed panel. It is populated at startup and
// read-only afterwards, so concurrent requests share it without locking.
type ExpertRegistry interface {
	// Register adds an expert and binds it to a reasoning provider.
	Register(desc ExpertDescriptor, provider ReasoningProvider) error

	// Get returns the descriptor for an expert ID.
	Get(id string) (ExpertDescriptor, error)

	// Provider returns the reasoning provider bound to an expert.
	Provider(id string) (ReasoningProvider, error)

	// List returns all descriptors in declared order. Declared order is the
	// deterministic tie-break used by every downstream component.
	List() []ExpertDescriptor

	// Filter returns the experts whose capabilities intersect required,
	// preserving declared order. Empty required means the whole panel.
	Filter(required []string) []ExpertDescriptor

	// Capabilities returns the sorted union of all registered capability tags.
	Capabilities() []string

	// Available returns IDs of experts whose provider answers Ping.
	Available(ctx context.Context) []string
}

// =============================================================================
// Collaborator Ports
// =============================================================================

// StructuralAnalyzer derives parsed-code facts from raw source text. Optional;
// only consulted when the caller opts in.
type StructuralAnalyzer interface {
	Analyze(ctx context.Context, sourceText string) (*StructuralFacts, error)
}

// TriggerEvent is an external occurrence that may start a request.
type TriggerEvent struct {
	Source  string // e.g. "fswatch", "api", "cli"
	Path    string // file path for filesystem events
	Op      string // e.g. "write", "create"
	Payload string // free-form event detail
}

// TriggerSource classifies external events so auto mode can pick between
// consensus and singular. Classification must be total.
type TriggerSource interface {
	Classify(event TriggerEvent) TriggerKind
}

// Pattern is one knowledge-base entry: either a domain vocabulary or a
// guidance snippet referenced during synthesis.
type Pattern struct {
	Key      string   `yaml:"key" json:"key"`
	Domain   string   `yaml:"domain" json:"domain"`
	Title    string   `yaml:"title,omitempty" json:"title,omitempty"`
	Guidance string   `yaml:"guidance,omitempty" json:"guidance,omitempty"`
	Terms    []string `yaml:"terms,omitempty" json:"terms,omitempty"`
}

// PatternRepository is the read-only knowledge base injected at startup. The
// context builder and the relevance scorer consume it without knowing how
// patterns are stored or sourced.
type PatternRepository interface {
	// Lookup returns the pattern stored under key.
	Lookup(key string) (Pattern, bool)

	// All returns every pattern in stable load order.
	All() []Pattern

	// Vocabulary returns the term list for a domain.
	Vocabulary(domain string) ([]string, bool)

	// Domains returns all known vocabulary domains, sorted.
	Domains() []string
}

// =============================================================================
// History Port
// =============================================================================

// HistoryStore persists completed request outcomes. Implementations exist for
// SQLite and atomic JSON files.
type HistoryStore interface {
	// SaveOutcome persists one outcome record.
	SaveOutcome(ctx context.Context, rec *OutcomeRecord) error

	// GetOutcome returns the record for a request ID.
	// Returns nil and no error if the record does not exist.
	GetOutcome(ctx context.Context, requestID string) (*OutcomeRecord, error)

	// ListOutcomes returns the most recent records, newest first.
	ListOutcomes(ctx context.Context, limit int) ([]*OutcomeRecord, error)

	// RecentForSession returns the most recent records for a session, newest
	// first. Used to feed session history into the context builder.
	RecentForSession(ctx context.Context, sessionID string, limit int) ([]*OutcomeRecord, error)

	// Close releases any underlying resources.
	Close() error
}
