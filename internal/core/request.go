package core

import (
	"strings"
	"time"
)

// Mode selects how the panel's responses are delivered.
type Mode string

const (
	// ModeConsensus produces one synthesized result from all experts.
	ModeConsensus Mode = "consensus"
	// ModeSingular produces one independent result per expert.
	ModeSingular Mode = "singular"
	// ModeAuto defers the decision to the trigger classification.
	ModeAuto Mode = "auto"
)

// IsValid reports whether the mode is one of the supported values.
func (m Mode) IsValid() bool {
	switch m {
	case ModeConsensus, ModeSingular, ModeAuto:
		return true
	}
	return false
}

func (m Mode) String() string { return string(m) }

// TriggerKind is the coarse classification of the event that originated a request.
type TriggerKind string

const (
	// TriggerCodeMutation covers events that change source code (file save, commit).
	TriggerCodeMutation TriggerKind = "code-mutation"
	// TriggerPlanningDiscussion covers design chatter, issues, and documentation edits.
	TriggerPlanningDiscussion TriggerKind = "planning-discussion"
	// TriggerUnknown means the source could not classify the event.
	TriggerUnknown TriggerKind = ""
)

// DefaultConsensusThreshold is applied when a request does not set one.
const DefaultConsensusThreshold = 0.7

// MaxPromptLength is the maximum allowed prompt length.
const MaxPromptLength = 100000

// Request is the immutable unit of work handed to the engine. It is created
// once per incoming event and never mutated after dispatch; all concurrent
// expert calls share it read-only.
type Request struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id,omitempty"`
	Prompt    string `json:"prompt"`

	// StructuralFacts carries optional parsed-code context supplied by a
	// structural analyzer. Nil when the caller did not opt in.
	StructuralFacts *StructuralFacts `json:"structural_facts,omitempty"`

	// SessionContext carries prior conversation key/value pairs.
	SessionContext map[string]string `json:"session_context,omitempty"`

	RequestedMode Mode `json:"requested_mode"`

	// Trigger is the classification of the originating event. Only consulted
	// when RequestedMode is auto.
	Trigger TriggerKind `json:"trigger,omitempty"`

	// ConsensusThreshold is the minimum aggregate confidence for a fully
	// satisfactory consensus result. Zero means "use the default".
	ConsensusThreshold float64 `json:"consensus_threshold,omitempty"`

	// RequiredCapabilities filters the panel. Empty means all experts.
	RequiredCapabilities []string `json:"required_capabilities,omitempty"`

	// Strategy overrides the configured weighting strategy for this request.
	// Empty means "use the configured default".
	Strategy string `json:"strategy,omitempty"`

	// Hybrid requests hybrid resolution: majority voting over categorical
	// recommendations combined with weighted confidence averaging.
	Hybrid bool `json:"hybrid,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Threshold returns the effective consensus threshold for the request.
func (r *Request) Threshold() float64 {
	if r.ConsensusThreshold == 0 {
		return DefaultConsensusThreshold
	}
	return r.ConsensusThreshold
}

// Validate rejects malformed requests before any expert is invoked.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return ErrInvalidRequest(CodeEmptyPrompt, "request prompt is empty")
	}
	if len(r.Prompt) > MaxPromptLength {
		return ErrInvalidRequest(CodePromptTooLong, "request prompt exceeds maximum length")
	}
	if r.RequestedMode != "" && !r.RequestedMode.IsValid() {
		return ErrInvalidRequest(CodeInvalidMode, "requested mode must be consensus, singular, or auto").
			WithDetail("requested_mode", string(r.RequestedMode))
	}
	if r.ConsensusThreshold < 0 || r.ConsensusThreshold > 1 {
		return ErrInvalidRequest(CodeInvalidThreshold, "consensus threshold must be within [0,1]").
			WithDetail("consensus_threshold", r.ConsensusThreshold)
	}
	return nil
}

// StructuralFacts summarizes source structure for the panel's shared context.
type StructuralFacts struct {
	Language  string   `json:"language,omitempty"`
	Path      string   `json:"path,omitempty"`
	Lines     int      `json:"lines"`
	Functions []string `json:"functions,omitempty"`
	Types     []string `json:"types,omitempty"`
	Imports   []string `json:"imports,omitempty"`
	TodoCount int      `json:"todo_count,omitempty"`
}

// IsEmpty reports whether the analyzer found nothing worth mentioning.
func (f *StructuralFacts) IsEmpty() bool {
	if f == nil {
		return true
	}
	return f.Lines == 0 && len(f.Functions) == 0 && len(f.Types) == 0 && len(f.Imports) == 0
}
