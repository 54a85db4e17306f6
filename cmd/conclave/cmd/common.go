package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/conclave-ai/conclave/internal/adapters/history"
	"github.com/conclave-ai/conclave/internal/adapters/provider"
	"github.com/conclave-ai/conclave/internal/config"
	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/events"
	"github.com/conclave-ai/conclave/internal/knowledge"
	"github.com/conclave-ai/conclave/internal/logging"
	"github.com/conclave-ai/conclave/internal/render"
	"github.com/conclave-ai/conclave/internal/service"
)

// defaultRenderWidth applies when stdout is not a terminal.
const defaultRenderWidth = 100

// app holds the wired engine and its collaborators for one command run.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	patterns *knowledge.Repository
	registry *provider.Registry
	store    core.HistoryStore
	bus      *events.Bus
	engine   *service.Engine
}

// appOptions tunes which collaborators initApp wires.
type appOptions struct {
	// withBus attaches an event bus so monitors and SSE clients can
	// observe the pipeline.
	withBus bool

	// withoutHistory skips the outcome store even when configured.
	withoutHistory bool
}

// initApp loads configuration and assembles the engine with its panel,
// knowledge base, history store, and optional event bus.
func initApp(opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	patterns, err := loadKnowledge(cfg)
	if err != nil {
		return nil, err
	}

	registry, err := provider.BuildRegistry(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("building expert panel: %w", err)
	}

	var store core.HistoryStore
	if !opts.withoutHistory {
		store, err = history.NewStore(history.Options{
			Backend:    cfg.History.Backend,
			Path:       cfg.History.Path,
			MaxEntries: cfg.History.MaxEntries,
		})
		if err != nil {
			return nil, fmt.Errorf("opening history store: %w", err)
		}
	}

	var bus *events.Bus
	if opts.withBus {
		bus = events.NewBus(256)
	}

	engine := service.NewEngine(engineConfigFrom(cfg), registry, patterns, store, bus, logger)
	for name, rpm := range provider.ProviderRPMs(cfg) {
		engine.Limiters().SetConfig(name, service.ConfigFromRPM(rpm))
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		patterns: patterns,
		registry: registry,
		store:    store,
		bus:      bus,
		engine:   engine,
	}, nil
}

// Close releases the app's resources in reverse wiring order.
func (a *app) Close() {
	if a.bus != nil {
		a.bus.Close()
	}
	if err := history.CloseStore(a.store); err != nil {
		a.logger.Warn("closing history store", "error", err)
	}
}

// loadConfig loads and validates configuration through the global viper,
// so persistent flag bindings apply.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// loadKnowledge loads the embedded knowledge base, merged with the user's
// vocabulary file when configured.
func loadKnowledge(cfg *config.Config) (*knowledge.Repository, error) {
	if path := cfg.Relevance.VocabularyFile; path != "" {
		repo, err := knowledge.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading knowledge base: %w", err)
		}
		return repo, nil
	}
	return knowledge.NewRepository()
}

// engineConfigFrom maps the file configuration onto the engine policy.
func engineConfigFrom(cfg *config.Config) *service.EngineConfig {
	profiles := make(map[string]service.Profile, len(cfg.Weights.Profiles))
	for name, p := range cfg.Weights.Profiles {
		profiles[name] = service.Profile{
			Base:       p.Base,
			Relevance:  p.Relevance,
			Confidence: p.Confidence,
		}
	}

	return &service.EngineConfig{
		Budgets: service.Budgets{
			ExpertTimeout:     cfg.Dispatch.ExpertTimeoutDuration(),
			ConsensusDeadline: cfg.Dispatch.ConsensusDeadlineDuration(),
			SingularDeadline:  cfg.Dispatch.SingularDeadlineDuration(),
			MaxConcurrent:     cfg.Dispatch.MaxConcurrent,
		},
		Strategy: cfg.Weights.Strategy,
		Profiles: profiles,
		Resolver: service.ResolverConfig{
			BreadthBonus:        cfg.Consensus.BreadthBonus,
			AgreementBonus:      cfg.Consensus.AgreementBonus,
			MaxConfidence:       cfg.Consensus.MaxConfidence,
			DivergenceThreshold: cfg.Consensus.DivergenceThreshold,
		},
		RelevanceCacheSize:    cfg.Relevance.CacheSize,
		RelevanceDensityScale: cfg.Relevance.DensityScale,
	}
}

// newRenderer builds the terminal renderer for the current stdout.
func newRenderer() *render.Renderer {
	width := defaultRenderWidth
	color := false
	if term.IsTerminal(int(os.Stdout.Fd())) {
		color = !noColor
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			width = w
		}
	}
	return render.New(width, color)
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// outputJSON writes the given value to stdout as indented JSON.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
