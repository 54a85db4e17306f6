package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/logging"
)

// maxResponseBytes caps how much of a chat response body is read.
const maxResponseBytes = 4 << 20

// HTTPConfig configures a provider backed by an OpenAI-compatible endpoint.
type HTTPConfig struct {
	// BaseURL is the API root, e.g. "https://api.example.com/v1".
	BaseURL string

	// Model is the default model. An invocation-level model overrides it.
	Model string

	// APIKeyEnv names the environment variable holding the bearer token.
	// Empty means unauthenticated.
	APIKeyEnv string

	// Timeout bounds a single HTTP exchange. The caller's ctx deadline still
	// applies on top. Zero means 30s.
	Timeout time.Duration
}

// HTTPProvider calls a chat completions endpoint over JSON. Any server
// speaking the OpenAI wire shape works, including local inference servers.
type HTTPProvider struct {
	name    string
	baseURL string
	model   string
	keyEnv  string
	client  *http.Client
	logger  *logging.Logger
}

// NewHTTPProvider creates an HTTP provider. logger may be nil.
func NewHTTPProvider(name string, cfg HTTPConfig, logger *logging.Logger) *HTTPProvider {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPProvider{
		name:    name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		keyEnv:  cfg.APIKeyEnv,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.WithComponent("provider." + name),
	}
}

// Name returns the provider identifier.
func (p *HTTPProvider) Name() string { return p.name }

// Ping checks the endpoint with a GET /models round trip.
func (p *HTTPProvider) Ping(ctx context.Context) error {
	if p.baseURL == "" {
		return fmt.Errorf("provider %s: base URL not configured", p.name)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	p.authorize(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return errNetwork(p.name, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 400 {
		return p.classifyStatus(resp.StatusCode, nil)
	}
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Invoke posts one chat completion. The role rides as the system message so
// a shared endpoint answers as the requesting expert.
func (p *HTTPProvider) Invoke(ctx context.Context, inv core.Invocation) (*core.Opinion, error) {
	if p.baseURL == "" {
		return nil, core.ErrExecution("NO_BASE_URL", fmt.Sprintf("provider %s has no base URL configured", p.name))
	}
	model := inv.Model
	if model == "" {
		model = p.model
	}

	messages := make([]chatMessage, 0, 2)
	if inv.Role != "" {
		messages = append(messages, chatMessage{Role: "system", Content: inv.Role})
	}
	messages = append(messages, chatMessage{Role: "user", Content: inv.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   inv.MaxTokens,
		Temperature: inv.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	p.authorize(req)

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s call abandoned: %w", p.name, ctxErr)
		}
		return nil, errNetwork(p.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errNetwork(p.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, p.classifyStatus(resp.StatusCode, raw)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, core.ErrExecution("BAD_RESPONSE", fmt.Sprintf("provider %s returned malformed JSON", p.name)).WithCause(err)
	}
	if parsed.Error != nil {
		return nil, core.ErrExecution("API_ERROR", fmt.Sprintf("provider %s: %s", p.name, parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return nil, core.ErrExecution("EMPTY_OUTPUT", fmt.Sprintf("provider %s returned no choices", p.name))
	}

	opinion := ParseOpinion(parsed.Choices[0].Message.Content)
	p.logger.Debug("chat endpoint responded",
		"status", resp.StatusCode,
		"latency", time.Since(start).Round(time.Millisecond),
		"confidence", opinion.Confidence,
	)
	return &opinion, nil
}

func (p *HTTPProvider) authorize(req *http.Request) {
	if p.keyEnv == "" {
		return
	}
	if key := os.Getenv(p.keyEnv); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
}

func (p *HTTPProvider) classifyStatus(status int, body []byte) error {
	preview := tail(strings.TrimSpace(string(body)), 200)
	switch {
	case status == http.StatusTooManyRequests:
		return core.ErrRateLimit(p.name)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return core.ErrExecution("AUTH_FAILED", fmt.Sprintf("provider %s rejected credentials (status %d)", p.name, status))
	case status >= 500:
		return core.ErrExecution("UPSTREAM_ERROR", fmt.Sprintf("provider %s upstream failure (status %d): %s", p.name, status, preview))
	default:
		return core.ErrExecution("HTTP_ERROR", fmt.Sprintf("provider %s returned status %d: %s", p.name, status, preview))
	}
}

var _ core.ReasoningProvider = (*HTTPProvider)(nil)
