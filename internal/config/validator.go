package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validatePanel(&cfg.Panel)
	v.validateDispatch(&cfg.Dispatch)
	v.validateWeights(&cfg.Weights)
	v.validateConsensus(&cfg.Consensus)
	v.validateRelevance(&cfg.Relevance)
	v.validateProviders(&cfg.Providers)
	v.validateServer(&cfg.Server)
	v.validateHistory(&cfg.History)
	v.validateWatch(&cfg.Watch)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"auto": true, "text": true, "json": true,
	}
	if !validFormats[cfg.Format] {
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}
}

func (v *Validator) validatePanel(cfg *PanelConfig) {
	if len(cfg.Experts) == 0 {
		v.addError("panel.experts", nil, "at least one expert required")
		return
	}
	if len(cfg.Experts) > 8 {
		v.addError("panel.experts", len(cfg.Experts), "panel limited to 8 experts")
	}

	seen := make(map[string]bool, len(cfg.Experts))
	for i, e := range cfg.Experts {
		prefix := fmt.Sprintf("panel.experts[%d]", i)
		if e.ID == "" {
			v.addError(prefix+".id", e.ID, "id required")
		}
		if seen[e.ID] {
			v.addError(prefix+".id", e.ID, "duplicate expert id")
		}
		seen[e.ID] = true
		if e.Weight <= 0 || e.Weight > 1 {
			v.addError(prefix+".weight", e.Weight, "must be in (0, 1]")
		}
		if len(e.Capabilities) == 0 {
			v.addError(prefix+".capabilities", nil, "at least one capability required")
		}
		if e.Domain != "design" && e.Domain != "workflow" {
			v.addError(prefix+".domain", e.Domain, "must be one of: design, workflow")
		}
	}
}

func (v *Validator) validateDispatch(cfg *DispatchConfig) {
	for field, value := range map[string]string{
		"dispatch.expert_timeout":     cfg.ExpertTimeout,
		"dispatch.consensus_deadline": cfg.ConsensusDeadline,
		"dispatch.singular_deadline":  cfg.SingularDeadline,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			v.addError(field, value, "invalid duration format")
		}
	}

	if cfg.MaxConcurrent < 1 || cfg.MaxConcurrent > 64 {
		v.addError("dispatch.max_concurrent", cfg.MaxConcurrent, "must be between 1 and 64")
	}
}

func (v *Validator) validateWeights(cfg *WeightsConfig) {
	validStrategies := map[string]bool{
		"balanced": true, "quality_focused": true, "workflow_focused": true, "adaptive": true,
	}
	if !validStrategies[cfg.Strategy] {
		v.addError("weights.strategy", cfg.Strategy,
			"must be one of: balanced, quality_focused, workflow_focused, adaptive")
	}

	for name, p := range cfg.Profiles {
		sum := p.Base + p.Relevance + p.Confidence
		if sum < 0.99 || sum > 1.01 {
			v.addError("weights.profiles."+name, sum, "factors must sum to 1.0")
		}
		for field, value := range map[string]float64{
			"base": p.Base, "relevance": p.Relevance, "confidence": p.Confidence,
		} {
			if value < 0 || value > 1 {
				v.addError("weights.profiles."+name+"."+field, value, "must be between 0 and 1")
			}
		}
	}
}

func (v *Validator) validateConsensus(cfg *ConsensusConfig) {
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		v.addError("consensus.threshold", cfg.Threshold, "must be between 0 and 1")
	}
	if cfg.BreadthBonus < 0 || cfg.BreadthBonus > 0.1 {
		v.addError("consensus.breadth_bonus", cfg.BreadthBonus, "must be between 0 and 0.1")
	}
	if cfg.AgreementBonus < 0 || cfg.AgreementBonus > 0.1 {
		v.addError("consensus.agreement_bonus", cfg.AgreementBonus, "must be between 0 and 0.1")
	}
	if cfg.MaxConfidence <= 0 || cfg.MaxConfidence > 0.99 {
		v.addError("consensus.max_confidence", cfg.MaxConfidence, "must be in (0, 0.99]")
	}
	if cfg.DivergenceThreshold < 0 || cfg.DivergenceThreshold > 1 {
		v.addError("consensus.divergence_threshold", cfg.DivergenceThreshold, "must be between 0 and 1")
	}
}

func (v *Validator) validateRelevance(cfg *RelevanceConfig) {
	if cfg.CacheSize < 0 {
		v.addError("relevance.cache_size", cfg.CacheSize, "must be non-negative")
	}
	if cfg.DensityScale <= 0 {
		v.addError("relevance.density_scale", cfg.DensityScale, "must be positive")
	}
}

func (v *Validator) validateProviders(cfg *ProvidersConfig) {
	validDefaults := map[string]bool{
		"claude": true, "codex": true, "gemini": true, "http": true, "static": true,
	}
	if !validDefaults[cfg.Default] {
		v.addError("providers.default", cfg.Default, "unknown provider")
	}

	defaultEnabled := map[string]bool{
		"claude": cfg.Claude.Enabled,
		"codex":  cfg.Codex.Enabled,
		"gemini": cfg.Gemini.Enabled,
		"http":   cfg.HTTP.Enabled,
		"static": cfg.Static.Enabled,
	}
	if enabled, ok := defaultEnabled[cfg.Default]; ok && !enabled {
		v.addError("providers.default", cfg.Default, "default provider must be enabled")
	}

	v.validateExecProvider("providers.claude", &cfg.Claude)
	v.validateExecProvider("providers.codex", &cfg.Codex)
	v.validateGeminiProvider("providers.gemini", &cfg.Gemini)
	v.validateHTTPProvider("providers.http", &cfg.HTTP)
}

func (v *Validator) validateExecProvider(prefix string, cfg *ExecProviderConfig) {
	if !cfg.Enabled {
		return
	}
	if cfg.Path == "" {
		v.addError(prefix+".path", cfg.Path, "path required when enabled")
	}
	if cfg.MaxTokens < 0 || cfg.MaxTokens > 200000 {
		v.addError(prefix+".max_tokens", cfg.MaxTokens, "must be between 0 and 200000")
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		v.addError(prefix+".temperature", cfg.Temperature, "must be between 0 and 2")
	}
	if cfg.RPM < 0 {
		v.addError(prefix+".rpm", cfg.RPM, "must be non-negative")
	}
}

func (v *Validator) validateGeminiProvider(prefix string, cfg *GeminiProviderConfig) {
	if !cfg.Enabled {
		return
	}
	if cfg.Model == "" {
		v.addError(prefix+".model", cfg.Model, "model required when enabled")
	}
	if cfg.APIKeyEnv == "" {
		v.addError(prefix+".api_key_env", cfg.APIKeyEnv, "api key env var required when enabled")
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		v.addError(prefix+".temperature", cfg.Temperature, "must be between 0 and 2")
	}
}

func (v *Validator) validateHTTPProvider(prefix string, cfg *HTTPProviderConfig) {
	if !cfg.Enabled {
		return
	}
	if cfg.BaseURL == "" {
		v.addError(prefix+".base_url", cfg.BaseURL, "base url required when enabled")
	}
	if cfg.Timeout != "" {
		if _, err := time.ParseDuration(cfg.Timeout); err != nil {
			v.addError(prefix+".timeout", cfg.Timeout, "invalid duration format")
		}
	}
}

func (v *Validator) validateServer(cfg *ServerConfig) {
	if cfg.Port < 1 || cfg.Port > 65535 {
		v.addError("server.port", cfg.Port, "must be between 1 and 65535")
	}
	if cfg.SSEHeartbeat != "" {
		if _, err := time.ParseDuration(cfg.SSEHeartbeat); err != nil {
			v.addError("server.sse_heartbeat", cfg.SSEHeartbeat, "invalid duration format")
		}
	}
}

func (v *Validator) validateHistory(cfg *HistoryConfig) {
	validBackends := map[string]bool{
		"sqlite": true, "json": true, "off": true,
	}
	if !validBackends[cfg.Backend] {
		v.addError("history.backend", cfg.Backend, "must be one of: sqlite, json, off")
	}
	if cfg.Backend != "off" && cfg.Path == "" {
		v.addError("history.path", cfg.Path, "path required")
	}
	if cfg.MaxEntries < 0 {
		v.addError("history.max_entries", cfg.MaxEntries, "must be non-negative")
	}
}

func (v *Validator) validateWatch(cfg *WatchConfig) {
	if cfg.Debounce != "" {
		if _, err := time.ParseDuration(cfg.Debounce); err != nil {
			v.addError("watch.debounce", cfg.Debounce, "invalid duration format")
		}
	}
}

// ValidateConfig is a convenience function that creates a validator and validates config.
func ValidateConfig(cfg *Config) error {
	v := NewValidator()
	return v.Validate(cfg)
}
