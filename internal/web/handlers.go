package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/conclave-ai/conclave/internal/core"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// SubmitRequest is the request body for POST /api/v1/requests.
type SubmitRequest struct {
	Prompt             string   `json:"prompt"`
	SessionID          string   `json:"session_id,omitempty"`
	Mode               string   `json:"mode,omitempty"`
	Trigger            string   `json:"trigger,omitempty"`
	ConsensusThreshold float64  `json:"consensus_threshold,omitempty"`
	Capabilities       []string `json:"capabilities,omitempty"`
	Strategy           string   `json:"strategy,omitempty"`
	Hybrid             bool     `json:"hybrid,omitempty"`

	// SourceText is optional raw source attached to the request. When the
	// server has an analyzer, its structural summary is added to the panel
	// context.
	SourceText string `json:"source_text,omitempty"`
	SourcePath string `json:"source_path,omitempty"`
}

// ExpertResponse is the API representation of one panel member.
type ExpertResponse struct {
	ID            string   `json:"id"`
	DisplayName   string   `json:"display_name"`
	Capabilities  []string `json:"capabilities"`
	DefaultWeight float64  `json:"default_weight"`
	Domain        string   `json:"domain"`
	Provider      string   `json:"provider"`
	Model         string   `json:"model,omitempty"`
}

// handleSubmitRequest runs one request through the engine and returns its
// outcome.
func (s *Server) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	var body SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req := &core.Request{
		Prompt:               body.Prompt,
		SessionID:            body.SessionID,
		RequestedMode:        core.Mode(body.Mode),
		Trigger:              core.TriggerKind(body.Trigger),
		ConsensusThreshold:   body.ConsensusThreshold,
		RequiredCapabilities: body.Capabilities,
		Strategy:             body.Strategy,
		Hybrid:               body.Hybrid,
	}

	if body.SourceText != "" && s.analyzer != nil {
		facts, err := s.analyzer.Analyze(r.Context(), body.SourceText)
		if err != nil {
			s.logger.Warn("structural analysis failed", "error", err)
		} else if !facts.IsEmpty() {
			facts.Path = body.SourcePath
			req.StructuralFacts = facts
		}
	}

	outcome, err := s.coordinator.Handle(r.Context(), req)
	if err != nil {
		s.logger.Warn("request rejected", "request_id", req.ID, "error", err)
		s.respondError(w, httpStatusForError(err), err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, outcome)
}

// handleGetOutcome returns the persisted outcome for one request ID.
func (s *Server) handleGetOutcome(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")

	if s.history == nil {
		s.respondError(w, http.StatusNotFound, "outcome not found")
		return
	}

	rec, err := s.history.GetOutcome(r.Context(), requestID)
	if err != nil {
		s.logger.Error("failed to read outcome", "request_id", requestID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to read outcome")
		return
	}
	if rec == nil {
		s.respondError(w, http.StatusNotFound, "outcome not found")
		return
	}

	s.respondJSON(w, http.StatusOK, rec)
}

// handleListExperts returns the registered panel in declared order.
func (s *Server) handleListExperts(w http.ResponseWriter, _ *http.Request) {
	if s.registry == nil {
		s.respondJSON(w, http.StatusOK, []ExpertResponse{})
		return
	}

	panel := s.registry.List()
	response := make([]ExpertResponse, 0, len(panel))
	for _, d := range panel {
		response = append(response, ExpertResponse{
			ID:            d.ID,
			DisplayName:   d.DisplayName,
			Capabilities:  d.Capabilities,
			DefaultWeight: d.DefaultWeight,
			Domain:        d.Domain,
			Provider:      d.Provider,
			Model:         d.Model,
		})
	}

	s.respondJSON(w, http.StatusOK, response)
}

// handleListHistory returns recent outcome records, newest first. The
// optional session query parameter narrows the listing to one session.
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondJSON(w, http.StatusOK, []*core.OutcomeRecord{})
		return
	}

	limit := parseLimit(r.URL.Query().Get("limit"))
	session := r.URL.Query().Get("session")

	var (
		records []*core.OutcomeRecord
		err     error
	)
	if session != "" {
		records, err = s.history.RecentForSession(r.Context(), session, limit)
	} else {
		records, err = s.history.ListOutcomes(r.Context(), limit)
	}
	if err != nil {
		s.logger.Error("failed to list history", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	if records == nil {
		records = []*core.OutcomeRecord{}
	}

	s.respondJSON(w, http.StatusOK, records)
}

func parseLimit(raw string) int {
	if raw == "" {
		return defaultHistoryLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultHistoryLimit
	}
	if n > maxHistoryLimit {
		return maxHistoryLimit
	}
	return n
}

// httpStatusForError maps domain error categories onto HTTP status codes.
func httpStatusForError(err error) int {
	var domErr *core.DomainError
	if !errors.As(err, &domErr) || domErr == nil {
		return http.StatusInternalServerError
	}

	switch domErr.Category {
	case core.ErrCatValidation:
		return http.StatusUnprocessableEntity
	case core.ErrCatNotFound:
		return http.StatusNotFound
	case core.ErrCatRateLimit:
		return http.StatusTooManyRequests
	case core.ErrCatTimeout:
		return http.StatusGatewayTimeout
	case core.ErrCatConsensus, core.ErrCatExecution, core.ErrCatNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
