// Package service implements the request pipeline: mode selection,
// context building, parallel dispatch, relevance weighting, consensus
// resolution, and result publishing.
package service

import "github.com/conclave-ai/conclave/internal/core"

// ModeSelector resolves the operating mode for a request.
type ModeSelector struct{}

// NewModeSelector creates a mode selector.
func NewModeSelector() *ModeSelector {
	return &ModeSelector{}
}

// Resolve maps the requested mode and trigger classification to the
// operating mode. An explicit request always wins. Auto consults the
// trigger: code mutations get full consensus treatment, planning
// discussions get independent singular perspectives. Unclassified
// triggers fall back to consensus so ambiguous events never lose the
// synthesis step.
func (s *ModeSelector) Resolve(req *core.Request) core.Mode {
	switch req.RequestedMode {
	case core.ModeConsensus, core.ModeSingular:
		return req.RequestedMode
	}

	switch req.Trigger {
	case core.TriggerCodeMutation:
		return core.ModeConsensus
	case core.TriggerPlanningDiscussion:
		return core.ModeSingular
	default:
		return core.ModeConsensus
	}
}
