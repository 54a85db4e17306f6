package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := &Config{
		Log: LogConfig{Level: "info", Format: "auto"},
		Panel: PanelConfig{
			Experts: DefaultExperts(),
		},
		Dispatch: DispatchConfig{
			ExpertTimeout:     "200ms",
			ConsensusDeadline: "400ms",
			SingularDeadline:  "200ms",
			MaxConcurrent:     8,
		},
		Weights: WeightsConfig{
			Strategy: "adaptive",
			Profiles: defaultProfiles(),
		},
		Consensus: ConsensusConfig{
			Threshold:           0.70,
			BreadthBonus:        0.03,
			AgreementBonus:      0.05,
			MaxConfidence:       0.98,
			DivergenceThreshold: 0.5,
		},
		Relevance: RelevanceConfig{CacheSize: 256, DensityScale: 18},
		Providers: ProvidersConfig{
			Default: "claude",
			Claude: ExecProviderConfig{
				Enabled: true, Path: "claude", Model: "claude-sonnet-4-20250514",
				MaxTokens: 4096, Temperature: 0.7, RPM: 60,
			},
		},
		Server:  ServerConfig{Host: "127.0.0.1", Port: 8600, SSEHeartbeat: "15s"},
		History: HistoryConfig{Backend: "sqlite", Path: ".conclave/history.db", MaxEntries: 1000},
		Watch:   WatchConfig{Paths: []string{"."}, Debounce: "500ms"},
	}
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := ValidateConfig(validConfig()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.Log.Level = "verbose" },
			field:  "log.level",
		},
		{
			name:   "bad log format",
			mutate: func(c *Config) { c.Log.Format = "xml" },
			field:  "log.format",
		},
		{
			name:   "empty panel",
			mutate: func(c *Config) { c.Panel.Experts = nil },
			field:  "panel.experts",
		},
		{
			name: "oversized panel",
			mutate: func(c *Config) {
				for i := 0; i < 9; i++ {
					c.Panel.Experts = append(c.Panel.Experts, ExpertConfig{
						ID: strings.Repeat("x", i+1), Weight: 0.1,
						Capabilities: []string{"review"}, Domain: "design",
					})
				}
			},
			field: "panel.experts",
		},
		{
			name: "duplicate expert id",
			mutate: func(c *Config) {
				c.Panel.Experts[1].ID = c.Panel.Experts[0].ID
			},
			field: ".id",
		},
		{
			name:   "zero expert weight",
			mutate: func(c *Config) { c.Panel.Experts[0].Weight = 0 },
			field:  ".weight",
		},
		{
			name:   "bad expert domain",
			mutate: func(c *Config) { c.Panel.Experts[0].Domain = "ops" },
			field:  ".domain",
		},
		{
			name:   "bad expert timeout",
			mutate: func(c *Config) { c.Dispatch.ExpertTimeout = "fast" },
			field:  "dispatch.expert_timeout",
		},
		{
			name:   "concurrency too low",
			mutate: func(c *Config) { c.Dispatch.MaxConcurrent = 0 },
			field:  "dispatch.max_concurrent",
		},
		{
			name:   "unknown strategy",
			mutate: func(c *Config) { c.Weights.Strategy = "aggressive" },
			field:  "weights.strategy",
		},
		{
			name: "profile does not sum to one",
			mutate: func(c *Config) {
				c.Weights.Profiles["balanced"] = ProfileConfig{Base: 0.5, Relevance: 0.5, Confidence: 0.5}
			},
			field: "weights.profiles.balanced",
		},
		{
			name:   "threshold above one",
			mutate: func(c *Config) { c.Consensus.Threshold = 1.5 },
			field:  "consensus.threshold",
		},
		{
			name:   "cap above ceiling",
			mutate: func(c *Config) { c.Consensus.MaxConfidence = 0.995 },
			field:  "consensus.max_confidence",
		},
		{
			name:   "negative cache",
			mutate: func(c *Config) { c.Relevance.CacheSize = -1 },
			field:  "relevance.cache_size",
		},
		{
			name:   "unknown default provider",
			mutate: func(c *Config) { c.Providers.Default = "oracle" },
			field:  "providers.default",
		},
		{
			name: "default provider disabled",
			mutate: func(c *Config) {
				c.Providers.Claude.Enabled = false
			},
			field: "providers.default",
		},
		{
			name: "enabled exec provider without path",
			mutate: func(c *Config) {
				c.Providers.Codex = ExecProviderConfig{Enabled: true, MaxTokens: 100, Temperature: 0.5}
			},
			field: "providers.codex.path",
		},
		{
			name: "enabled gemini without key env",
			mutate: func(c *Config) {
				c.Providers.Gemini = GeminiProviderConfig{Enabled: true, Model: "gemini-2.5-flash"}
			},
			field: "providers.gemini.api_key_env",
		},
		{
			name:   "bad port",
			mutate: func(c *Config) { c.Server.Port = 0 },
			field:  "server.port",
		},
		{
			name:   "unknown history backend",
			mutate: func(c *Config) { c.History.Backend = "redis" },
			field:  "history.backend",
		},
		{
			name: "history path missing",
			mutate: func(c *Config) {
				c.History.Backend = "json"
				c.History.Path = ""
			},
			field: "history.path",
		},
		{
			name:   "bad watch debounce",
			mutate: func(c *Config) { c.Watch.Debounce = "soon" },
			field:  "watch.debounce",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not mention field %q", err.Error(), tt.field)
			}
		})
	}
}

func TestValidationErrorsAggregate(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Level = "loud"
	cfg.Server.Port = -1

	v := NewValidator()
	err := v.Validate(cfg)
	if err == nil {
		t.Fatal("expected errors")
	}
	if len(v.Errors()) < 2 {
		t.Errorf("expected both errors collected, got %d", len(v.Errors()))
	}
	if !v.Errors().HasErrors() {
		t.Error("HasErrors should be true")
	}
}
