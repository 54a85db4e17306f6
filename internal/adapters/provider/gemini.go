package provider

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/logging"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiConfig configures the Gemini API provider.
type GeminiConfig struct {
	// Model is the default model. An invocation-level model overrides it.
	Model string

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string

	MaxTokens   int
	Temperature float64
}

// GeminiProvider calls the Gemini API through the genai SDK. The client is
// built lazily on first use so construction never needs credentials.
type GeminiProvider struct {
	name        string
	model       string
	keyEnv      string
	maxTokens   int
	temperature float64
	logger      *logging.Logger

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiProvider creates a Gemini provider. logger may be nil.
func NewGeminiProvider(name string, cfg GeminiConfig, logger *logging.Logger) *GeminiProvider {
	if logger == nil {
		logger = logging.NewNop()
	}
	keyEnv := cfg.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "GEMINI_API_KEY"
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiProvider{
		name:        name,
		model:       model,
		keyEnv:      keyEnv,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		logger:      logger.WithComponent("provider." + name),
	}
}

// Name returns the provider identifier.
func (p *GeminiProvider) Name() string { return p.name }

// Ping verifies the API key is present. It performs no network call;
// reachability is proven by the first invocation.
func (p *GeminiProvider) Ping(ctx context.Context) error {
	if os.Getenv(p.keyEnv) == "" {
		return fmt.Errorf("provider %s: environment variable %s is empty", p.name, p.keyEnv)
	}
	return nil
}

func (p *GeminiProvider) ensureClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}

	key := os.Getenv(p.keyEnv)
	if key == "" {
		return nil, core.ErrExecution("NO_API_KEY", fmt.Sprintf("provider %s: environment variable %s is empty", p.name, p.keyEnv))
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, core.ErrExecution("CLIENT_INIT", fmt.Sprintf("provider %s: creating client", p.name)).WithCause(err)
	}
	p.client = client
	return client, nil
}

// Invoke runs one generation call. The role rides as the system instruction
// so a shared key answers as the requesting expert.
func (p *GeminiProvider) Invoke(ctx context.Context, inv core.Invocation) (*core.Opinion, error) {
	client, err := p.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	model := inv.Model
	if model == "" {
		model = p.model
	}

	config := &genai.GenerateContentConfig{}
	if inv.Role != "" {
		config.SystemInstruction = genai.NewContentFromText(inv.Role, genai.RoleUser)
	}
	if t := pick(inv.Temperature, p.temperature); t > 0 {
		config.Temperature = genai.Ptr(float32(t))
	}
	if m := pickInt(inv.MaxTokens, p.maxTokens); m > 0 {
		config.MaxOutputTokens = int32(m)
	}

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(inv.Prompt), config)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s call abandoned: %w", p.name, ctxErr)
		}
		return nil, p.classify(err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, core.ErrExecution("EMPTY_OUTPUT", fmt.Sprintf("provider %s returned no candidates", p.name))
	}

	opinion := ParseOpinion(text)
	p.logger.Debug("gemini responded",
		"model", model,
		"latency", time.Since(start).Round(time.Millisecond),
		"confidence", opinion.Confidence,
	)
	return &opinion, nil
}

func (p *GeminiProvider) classify(err error) error {
	msg := err.Error()
	switch {
	case containsAny(msg, "rate limit", "429", "quota", "resource exhausted"):
		return core.ErrRateLimit(p.name).WithCause(err)
	case containsAny(msg, "api key", "unauthorized", "permission denied", "401", "403"):
		return core.ErrExecution("AUTH_FAILED", fmt.Sprintf("provider %s rejected credentials", p.name)).WithCause(err)
	case containsAny(msg, "connection refused", "no such host", "network", "dial tcp"):
		return errNetwork(p.name, err)
	default:
		return core.ErrExecution("API_ERROR", fmt.Sprintf("provider %s call failed", p.name)).WithCause(err)
	}
}

// pick returns the invocation-level value when set, else the configured one.
func pick(inv, cfg float64) float64 {
	if inv > 0 {
		return inv
	}
	return cfg
}

func pickInt(inv, cfg int) int {
	if inv > 0 {
		return inv
	}
	return cfg
}

var _ core.ReasoningProvider = (*GeminiProvider)(nil)
