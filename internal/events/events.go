package events

// Event type constants.
const (
	TypeRequestStarted   = "request_started"
	TypeRequestCompleted = "request_completed"
	TypeRequestFailed    = "request_failed"
	TypeExpertResponded  = "expert_responded"
	TypeExpertFailed     = "expert_failed"
	TypeConsensusReached = "consensus_reached"
)

// RequestStartedEvent is emitted when a request passes validation and is
// handed to the dispatcher.
type RequestStartedEvent struct {
	BaseEvent
	Mode    string   `json:"mode"`
	Experts []string `json:"experts"`
}

// NewRequestStartedEvent creates a request started event.
func NewRequestStartedEvent(requestID, sessionID, mode string, experts []string) RequestStartedEvent {
	return RequestStartedEvent{
		BaseEvent: NewBaseEvent(TypeRequestStarted, requestID, sessionID),
		Mode:      mode,
		Experts:   experts,
	}
}

// RequestCompletedEvent is emitted when a request produces an outcome.
// Published as PRIORITY so monitors never miss completions.
type RequestCompletedEvent struct {
	BaseEvent
	Mode         string  `json:"mode"`
	Method       string  `json:"method,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
	ThresholdMet bool    `json:"threshold_met,omitempty"`
	Contributing int     `json:"contributing"`
	Omitted      int     `json:"omitted"`
	LatencyMs    int64   `json:"latency_ms"`
}

// NewRequestCompletedEvent creates a request completed event.
func NewRequestCompletedEvent(requestID, sessionID, mode string) RequestCompletedEvent {
	return RequestCompletedEvent{
		BaseEvent: NewBaseEvent(TypeRequestCompleted, requestID, sessionID),
		Mode:      mode,
	}
}

// RequestFailedEvent is emitted when a request fails without an outcome.
// Published as PRIORITY.
type RequestFailedEvent struct {
	BaseEvent
	Category string `json:"category"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// NewRequestFailedEvent creates a request failed event.
func NewRequestFailedEvent(requestID, sessionID, category, code, message string) RequestFailedEvent {
	return RequestFailedEvent{
		BaseEvent: NewBaseEvent(TypeRequestFailed, requestID, sessionID),
		Category:  category,
		Code:      code,
		Message:   message,
	}
}

// ExpertRespondedEvent is emitted for each expert that returns an opinion.
type ExpertRespondedEvent struct {
	BaseEvent
	ExpertID   string  `json:"expert_id"`
	Confidence float64 `json:"confidence"`
	LatencyMs  int64   `json:"latency_ms"`
}

// NewExpertRespondedEvent creates an expert responded event.
func NewExpertRespondedEvent(requestID, sessionID, expertID string, confidence float64, latencyMs int64) ExpertRespondedEvent {
	return ExpertRespondedEvent{
		BaseEvent:  NewBaseEvent(TypeExpertResponded, requestID, sessionID),
		ExpertID:   expertID,
		Confidence: confidence,
		LatencyMs:  latencyMs,
	}
}

// ExpertFailedEvent is emitted for each expert excluded from resolution.
type ExpertFailedEvent struct {
	BaseEvent
	ExpertID string `json:"expert_id"`
	Reason   string `json:"reason"`
}

// NewExpertFailedEvent creates an expert failed event.
func NewExpertFailedEvent(requestID, sessionID, expertID, reason string) ExpertFailedEvent {
	return ExpertFailedEvent{
		BaseEvent: NewBaseEvent(TypeExpertFailed, requestID, sessionID),
		ExpertID:  expertID,
		Reason:    reason,
	}
}

// DisagreementDetail describes one divergence between two experts.
type DisagreementDetail struct {
	ExpertA    string  `json:"expert_a"`
	ExpertB    string  `json:"expert_b"`
	Similarity float64 `json:"similarity"`
	Topic      string  `json:"topic,omitempty"`
}

// ConsensusReachedEvent is emitted after consensus resolution with the
// aggregate score and any disagreements flagged for the reader.
type ConsensusReachedEvent struct {
	BaseEvent
	Confidence    float64              `json:"confidence"`
	Method        string               `json:"method"`
	ThresholdMet  bool                 `json:"threshold_met"`
	Disagreements []DisagreementDetail `json:"disagreements,omitempty"`
}

// NewConsensusReachedEvent creates a consensus reached event.
func NewConsensusReachedEvent(requestID, sessionID string, confidence float64, method string, thresholdMet bool, disagreements []DisagreementDetail) ConsensusReachedEvent {
	return ConsensusReachedEvent{
		BaseEvent:     NewBaseEvent(TypeConsensusReached, requestID, sessionID),
		Confidence:    confidence,
		Method:        method,
		ThresholdMet:  thresholdMet,
		Disagreements: disagreements,
	}
}
