package provider

import (
	"fmt"

	"github.com/conclave-ai/conclave/internal/config"
	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/logging"
)

// BuildProviders constructs every enabled provider from config, keyed by
// provider name.
func BuildProviders(cfg *config.Config, logger *logging.Logger) map[string]core.ReasoningProvider {
	providers := make(map[string]core.ReasoningProvider)

	if cfg.Providers.Claude.Enabled {
		providers["claude"] = NewExecProvider("claude", ExecConfig{
			Path:  cfg.Providers.Claude.Path,
			Model: cfg.Providers.Claude.Model,
		}, logger)
	}
	if cfg.Providers.Codex.Enabled {
		providers["codex"] = NewExecProvider("codex", ExecConfig{
			Path:  cfg.Providers.Codex.Path,
			Model: cfg.Providers.Codex.Model,
		}, logger)
	}
	if cfg.Providers.Gemini.Enabled {
		providers["gemini"] = NewGeminiProvider("gemini", GeminiConfig{
			Model:       cfg.Providers.Gemini.Model,
			APIKeyEnv:   cfg.Providers.Gemini.APIKeyEnv,
			MaxTokens:   cfg.Providers.Gemini.MaxTokens,
			Temperature: cfg.Providers.Gemini.Temperature,
		}, logger)
	}
	if cfg.Providers.HTTP.Enabled {
		providers["http"] = NewHTTPProvider("http", HTTPConfig{
			BaseURL:   cfg.Providers.HTTP.BaseURL,
			Model:     cfg.Providers.HTTP.Model,
			APIKeyEnv: cfg.Providers.HTTP.APIKeyEnv,
			Timeout:   cfg.Providers.HTTP.TimeoutDuration(),
		}, logger)
	}
	if cfg.Providers.Static.Enabled {
		providers["static"] = NewStaticProvider()
	}

	return providers
}

// BuildRegistry constructs the expert panel from config: providers first,
// then each configured expert bound to its provider. Experts without an
// explicit provider use the configured default.
func BuildRegistry(cfg *config.Config, logger *logging.Logger) (*Registry, error) {
	providers := BuildProviders(cfg, logger)
	registry := NewRegistry(logger)

	for _, ec := range cfg.Panel.Experts {
		name := ec.Provider
		if name == "" {
			name = cfg.Providers.Default
		}
		p, ok := providers[name]
		if !ok {
			return nil, fmt.Errorf("expert %s: provider %q is not enabled", ec.ID, name)
		}

		desc := core.ExpertDescriptor{
			ID:            ec.ID,
			DisplayName:   ec.Name,
			Capabilities:  ec.Capabilities,
			DefaultWeight: ec.Weight,
			Domain:        ec.Domain,
			Provider:      name,
			Model:         ec.Model,
		}
		if desc.DisplayName == "" {
			desc.DisplayName = ec.ID
		}
		if err := registry.Register(desc, p); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// ProviderRPMs returns the per-minute request budget of each enabled
// provider, for seeding the dispatcher's rate limiters. The static provider
// has no budget.
func ProviderRPMs(cfg *config.Config) map[string]int {
	rpms := make(map[string]int)
	if cfg.Providers.Claude.Enabled && cfg.Providers.Claude.RPM > 0 {
		rpms["claude"] = cfg.Providers.Claude.RPM
	}
	if cfg.Providers.Codex.Enabled && cfg.Providers.Codex.RPM > 0 {
		rpms["codex"] = cfg.Providers.Codex.RPM
	}
	if cfg.Providers.Gemini.Enabled && cfg.Providers.Gemini.RPM > 0 {
		rpms["gemini"] = cfg.Providers.Gemini.RPM
	}
	if cfg.Providers.HTTP.Enabled && cfg.Providers.HTTP.RPM > 0 {
		rpms["http"] = cfg.Providers.HTTP.RPM
	}
	return rpms
}
