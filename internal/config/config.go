// Package config loads and validates the conclave configuration from
// files, environment variables, and CLI flags.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Panel     PanelConfig     `mapstructure:"panel"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Weights   WeightsConfig   `mapstructure:"weights"`
	Consensus ConsensusConfig `mapstructure:"consensus"`
	Relevance RelevanceConfig `mapstructure:"relevance"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Server    ServerConfig    `mapstructure:"server"`
	History   HistoryConfig   `mapstructure:"history"`
	Watch     WatchConfig     `mapstructure:"watch"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PanelConfig configures the expert panel.
type PanelConfig struct {
	Experts []ExpertConfig `mapstructure:"experts"`
}

// ExpertConfig configures a single expert persona.
type ExpertConfig struct {
	ID           string   `mapstructure:"id"`
	Name         string   `mapstructure:"name"`
	Capabilities []string `mapstructure:"capabilities"`
	Weight       float64  `mapstructure:"weight"`
	Domain       string   `mapstructure:"domain"`
	Provider     string   `mapstructure:"provider"`
	Model        string   `mapstructure:"model"`
}

// DispatchConfig configures the parallel dispatch budgets.
type DispatchConfig struct {
	ExpertTimeout     string `mapstructure:"expert_timeout"`
	ConsensusDeadline string `mapstructure:"consensus_deadline"`
	SingularDeadline  string `mapstructure:"singular_deadline"`
	MaxConcurrent     int    `mapstructure:"max_concurrent"`
}

// ExpertTimeoutDuration returns the per-expert timeout, defaulting to 200ms.
func (c DispatchConfig) ExpertTimeoutDuration() time.Duration {
	return parseDurationOr(c.ExpertTimeout, 200*time.Millisecond)
}

// ConsensusDeadlineDuration returns the consensus deadline, defaulting to 400ms.
func (c DispatchConfig) ConsensusDeadlineDuration() time.Duration {
	return parseDurationOr(c.ConsensusDeadline, 400*time.Millisecond)
}

// SingularDeadlineDuration returns the singular deadline, defaulting to 200ms.
func (c DispatchConfig) SingularDeadlineDuration() time.Duration {
	return parseDurationOr(c.SingularDeadline, 200*time.Millisecond)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// WeightsConfig configures the relevance weighting strategy.
type WeightsConfig struct {
	Strategy string                   `mapstructure:"strategy"`
	Profiles map[string]ProfileConfig `mapstructure:"profiles"`
}

// ProfileConfig holds the three component factors of a weighting profile.
// Base scales the expert's configured weight, Relevance and Confidence
// scale the per-request scores.
type ProfileConfig struct {
	Base       float64 `mapstructure:"base"`
	Relevance  float64 `mapstructure:"relevance"`
	Confidence float64 `mapstructure:"confidence"`
}

// ConsensusConfig configures consensus resolution.
type ConsensusConfig struct {
	Threshold           float64 `mapstructure:"threshold"`
	BreadthBonus        float64 `mapstructure:"breadth_bonus"`
	AgreementBonus      float64 `mapstructure:"agreement_bonus"`
	MaxConfidence       float64 `mapstructure:"max_confidence"`
	DivergenceThreshold float64 `mapstructure:"divergence_threshold"`
}

// RelevanceConfig configures the vocabulary relevance scorer.
type RelevanceConfig struct {
	CacheSize    int     `mapstructure:"cache_size"`
	DensityScale float64 `mapstructure:"density_scale"`

	// VocabularyFile is an optional knowledge file merged over the
	// embedded defaults.
	VocabularyFile string `mapstructure:"vocabulary_file"`
}

// ProvidersConfig configures the available reasoning providers.
type ProvidersConfig struct {
	Default string               `mapstructure:"default"`
	Claude  ExecProviderConfig   `mapstructure:"claude"`
	Codex   ExecProviderConfig   `mapstructure:"codex"`
	Gemini  GeminiProviderConfig `mapstructure:"gemini"`
	HTTP    HTTPProviderConfig   `mapstructure:"http"`
	Static  StaticProviderConfig `mapstructure:"static"`
}

// ExecProviderConfig configures a provider backed by a local CLI binary.
type ExecProviderConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Path        string  `mapstructure:"path"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	RPM         int     `mapstructure:"rpm"`
}

// GeminiProviderConfig configures the Gemini API provider.
type GeminiProviderConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Model       string  `mapstructure:"model"`
	APIKeyEnv   string  `mapstructure:"api_key_env"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	RPM         int     `mapstructure:"rpm"`
}

// HTTPProviderConfig configures an OpenAI-compatible HTTP endpoint.
type HTTPProviderConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	APIKeyEnv string `mapstructure:"api_key_env"`
	Timeout   string `mapstructure:"timeout"`
	RPM       int    `mapstructure:"rpm"`
}

// TimeoutDuration returns the HTTP request timeout, defaulting to 30s.
func (c HTTPProviderConfig) TimeoutDuration() time.Duration {
	return parseDurationOr(c.Timeout, 30*time.Second)
}

// StaticProviderConfig configures the offline canned provider.
type StaticProviderConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
	SSEHeartbeat string   `mapstructure:"sse_heartbeat"`
}

// SSEHeartbeatDuration returns the SSE keep-alive interval, defaulting to 15s.
func (c ServerConfig) SSEHeartbeatDuration() time.Duration {
	return parseDurationOr(c.SSEHeartbeat, 15*time.Second)
}

// HistoryConfig configures outcome persistence.
type HistoryConfig struct {
	Backend    string `mapstructure:"backend"`
	Path       string `mapstructure:"path"`
	MaxEntries int    `mapstructure:"max_entries"`
}

// WatchConfig configures the filesystem trigger source.
type WatchConfig struct {
	Paths          []string `mapstructure:"paths"`
	Debounce       string   `mapstructure:"debounce"`
	CodeExtensions []string `mapstructure:"code_extensions"`
	DocExtensions  []string `mapstructure:"doc_extensions"`
}

// DebounceDuration returns the watch debounce window, defaulting to 500ms.
func (c WatchConfig) DebounceDuration() time.Duration {
	return parseDurationOr(c.Debounce, 500*time.Millisecond)
}

// DefaultExperts returns the built-in six-expert panel used when the
// config declares none.
func DefaultExperts() []ExpertConfig {
	return []ExpertConfig{
		{
			ID:           "architect",
			Name:         "Architecture Strategist",
			Capabilities: []string{"architecture", "design", "api"},
			Weight:       0.20,
			Domain:       "design",
		},
		{
			ID:           "reviewer",
			Name:         "Code Review Lead",
			Capabilities: []string{"review", "quality", "style"},
			Weight:       0.18,
			Domain:       "design",
		},
		{
			ID:           "tester",
			Name:         "Test Engineer",
			Capabilities: []string{"testing", "quality"},
			Weight:       0.16,
			Domain:       "design",
		},
		{
			ID:           "automator",
			Name:         "Automation Engineer",
			Capabilities: []string{"automation", "tooling", "ci"},
			Weight:       0.15,
			Domain:       "workflow",
		},
		{
			ID:           "security",
			Name:         "Security Analyst",
			Capabilities: []string{"security", "review"},
			Weight:       0.16,
			Domain:       "design",
		},
		{
			ID:           "performance",
			Name:         "Performance Analyst",
			Capabilities: []string{"performance", "profiling"},
			Weight:       0.15,
			Domain:       "workflow",
		},
	}
}
