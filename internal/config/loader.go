package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:         viper.New(),
		envPrefix: "CONCLAVE",
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: "CONCLAVE",
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (CONCLAVE_*)
// 3. Project config (.conclave.yaml in current directory)
// 4. User config (~/.config/conclave/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(".conclave")
		l.v.SetConfigType("yaml")

		// Project config takes precedence over user config.
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "conclave"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyFallbacks(&cfg)
	return &cfg, nil
}

// applyFallbacks fills structured defaults that cannot be expressed as
// flat viper keys: the built-in panel and the weighting profiles.
func applyFallbacks(cfg *Config) {
	if len(cfg.Panel.Experts) == 0 {
		cfg.Panel.Experts = DefaultExperts()
	}
	if cfg.Weights.Profiles == nil {
		cfg.Weights.Profiles = make(map[string]ProfileConfig)
	}
	for name, p := range defaultProfiles() {
		if _, ok := cfg.Weights.Profiles[name]; !ok {
			cfg.Weights.Profiles[name] = p
		}
	}
}

func defaultProfiles() map[string]ProfileConfig {
	return map[string]ProfileConfig{
		"balanced":         {Base: 0.5, Relevance: 0.3, Confidence: 0.2},
		"quality_focused":  {Base: 0.75, Relevance: 0.05, Confidence: 0.2},
		"workflow_focused": {Base: 0.3, Relevance: 0.5, Confidence: 0.2},
	}
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	// Log defaults
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	// Dispatch defaults
	l.v.SetDefault("dispatch.expert_timeout", "200ms")
	l.v.SetDefault("dispatch.consensus_deadline", "400ms")
	l.v.SetDefault("dispatch.singular_deadline", "200ms")
	l.v.SetDefault("dispatch.max_concurrent", 8)

	// Weighting defaults
	l.v.SetDefault("weights.strategy", "adaptive")

	// Consensus defaults
	l.v.SetDefault("consensus.threshold", 0.70)
	l.v.SetDefault("consensus.breadth_bonus", 0.03)
	l.v.SetDefault("consensus.agreement_bonus", 0.05)
	l.v.SetDefault("consensus.max_confidence", 0.98)
	l.v.SetDefault("consensus.divergence_threshold", 0.5)

	// Relevance defaults
	l.v.SetDefault("relevance.cache_size", 256)
	l.v.SetDefault("relevance.density_scale", 18.0)
	l.v.SetDefault("relevance.vocabulary_file", "")

	// Provider defaults
	l.v.SetDefault("providers.default", "claude")
	l.v.SetDefault("providers.claude.enabled", true)
	l.v.SetDefault("providers.claude.path", "claude")
	l.v.SetDefault("providers.claude.model", "claude-sonnet-4-20250514")
	l.v.SetDefault("providers.claude.max_tokens", 4096)
	l.v.SetDefault("providers.claude.temperature", 0.7)
	l.v.SetDefault("providers.claude.rpm", 60)
	l.v.SetDefault("providers.codex.enabled", false)
	l.v.SetDefault("providers.codex.path", "codex")
	l.v.SetDefault("providers.codex.model", "gpt-5.1-codex")
	l.v.SetDefault("providers.codex.max_tokens", 4096)
	l.v.SetDefault("providers.codex.temperature", 0.7)
	l.v.SetDefault("providers.codex.rpm", 60)
	l.v.SetDefault("providers.gemini.enabled", false)
	l.v.SetDefault("providers.gemini.model", "gemini-2.5-flash")
	l.v.SetDefault("providers.gemini.api_key_env", "GEMINI_API_KEY")
	l.v.SetDefault("providers.gemini.max_tokens", 4096)
	l.v.SetDefault("providers.gemini.temperature", 0.7)
	l.v.SetDefault("providers.gemini.rpm", 60)
	l.v.SetDefault("providers.http.enabled", false)
	l.v.SetDefault("providers.http.base_url", "http://localhost:11434/v1")
	l.v.SetDefault("providers.http.model", "llama3")
	l.v.SetDefault("providers.http.api_key_env", "")
	l.v.SetDefault("providers.http.timeout", "30s")
	l.v.SetDefault("providers.http.rpm", 120)
	l.v.SetDefault("providers.static.enabled", false)

	// Server defaults
	l.v.SetDefault("server.host", "127.0.0.1")
	l.v.SetDefault("server.port", 8600)
	l.v.SetDefault("server.cors_origins", []string{"http://localhost:5173"})
	l.v.SetDefault("server.sse_heartbeat", "15s")

	// History defaults (unified under .conclave/)
	l.v.SetDefault("history.backend", "sqlite")
	l.v.SetDefault("history.path", ".conclave/history.db")
	l.v.SetDefault("history.max_entries", 1000)

	// Watch defaults
	l.v.SetDefault("watch.paths", []string{"."})
	l.v.SetDefault("watch.debounce", "500ms")
	l.v.SetDefault("watch.code_extensions", []string{".go", ".ts", ".py", ".rs", ".java"})
	l.v.SetDefault("watch.doc_extensions", []string{".md", ".txt", ".rst"})
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Get returns a configuration value by key.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// Set sets a configuration value.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// IsSet checks if a key has been set.
func (l *Loader) IsSet(key string) bool {
	return l.v.IsSet(key)
}

// AllSettings returns all settings as a map.
func (l *Loader) AllSettings() map[string]interface{} {
	return l.v.AllSettings()
}
