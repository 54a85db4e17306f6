package provider

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/logging"
)

// ExecConfig configures a provider backed by a local reasoning CLI.
type ExecConfig struct {
	// Path is the binary to run. Multi-word values ("npx claude") are split
	// and the extra words become leading arguments. Empty means the provider
	// name itself.
	Path string

	// Model is the default model flag value. An invocation-level model
	// overrides it.
	Model string
}

// ExecProvider runs a reasoning CLI as a one-shot subprocess. The prompt
// travels over stdin and the opinion is parsed from stdout. The caller's ctx
// carries the deadline; the provider configures no timeout of its own.
type ExecProvider struct {
	name   string
	path   string
	model  string
	logger *logging.Logger
}

// NewExecProvider creates an exec provider. name doubles as the default
// binary when cfg.Path is empty. logger may be nil.
func NewExecProvider(name string, cfg ExecConfig, logger *logging.Logger) *ExecProvider {
	if logger == nil {
		logger = logging.NewNop()
	}
	path := cfg.Path
	if path == "" {
		path = name
	}
	return &ExecProvider{
		name:   name,
		path:   path,
		model:  cfg.Model,
		logger: logger.WithComponent("provider." + name),
	}
}

// Name returns the provider identifier.
func (p *ExecProvider) Name() string { return p.name }

// Ping verifies the binary resolves on PATH (or exists as given). It does
// not run the binary; reachability of the backing service is proven by the
// first invocation.
func (p *ExecProvider) Ping(ctx context.Context) error {
	binary := p.path
	if parts := strings.Fields(binary); len(parts) > 0 {
		binary = parts[0]
	}
	if _, err := exec.LookPath(binary); err != nil {
		return fmt.Errorf("provider %s: binary not found: %w", p.name, err)
	}
	return nil
}

// Invoke runs one reasoning call. Non-zero exits are classified from stderr
// so rate limiting and credential problems surface as their own categories.
func (p *ExecProvider) Invoke(ctx context.Context, inv core.Invocation) (*core.Opinion, error) {
	args, stdin := p.buildCall(inv)

	cmdPath := p.path
	if parts := strings.Fields(cmdPath); len(parts) > 1 {
		cmdPath = parts[0]
		args = append(append([]string{}, parts[1:]...), args...)
	}

	// #nosec G204 -- path and args come from validated config
	cmd := exec.CommandContext(ctx, cmdPath, args...)
	cmd.Stdin = strings.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(),
		"CONCLAVE_MANAGED=true",
		fmt.Sprintf("CONCLAVE_EXPERT=%s", inv.ExpertID),
	)

	p.logger.Debug("invoking reasoning CLI",
		"path", cmdPath,
		"args", args,
		"stdin_length", len(stdin),
	)
	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	// The deadline check comes first: a killed process reports "signal:
	// killed", which must not be misread as a CLI failure.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%s call abandoned after %s: %w", p.name, elapsed.Round(time.Millisecond), ctxErr)
	}
	if err != nil {
		return nil, p.classify(stderr.String(), err)
	}

	out := stdout.String()
	if strings.TrimSpace(out) == "" {
		return nil, core.ErrExecution("EMPTY_OUTPUT", fmt.Sprintf("provider %s produced no output", p.name))
	}

	opinion := ParseOpinion(out)
	p.logger.Debug("reasoning CLI responded",
		"latency", elapsed.Round(time.Millisecond),
		"confidence", opinion.Confidence,
	)
	return &opinion, nil
}

// buildCall returns the argument list and stdin payload for an invocation.
// The role is prepended to the prompt so a shared binary answers as the
// requesting expert.
func (p *ExecProvider) buildCall(inv core.Invocation) ([]string, string) {
	prompt := inv.Prompt
	if inv.Role != "" {
		prompt = inv.Role + "\n\n" + prompt
	}
	model := inv.Model
	if model == "" {
		model = p.model
	}

	switch p.flavor() {
	case "claude":
		args := []string{"--print", "--output-format", "json"}
		if model != "" {
			args = append(args, "--model", model)
		}
		return args, prompt

	case "codex":
		args := []string{"exec", "--skip-git-repo-check", "--json"}
		if model != "" {
			args = append(args, "--model", model)
		}
		// "-" makes codex read the prompt from stdin.
		args = append(args, "-")
		return args, prompt

	default:
		// Unknown binaries get the prompt on stdin with no flags.
		return nil, prompt
	}
}

// flavor identifies the CLI dialect. The whole path is checked so wrapped
// invocations like "npx claude" still flavor correctly.
func (p *ExecProvider) flavor() string {
	lower := strings.ToLower(p.path)
	switch {
	case strings.Contains(lower, "claude"):
		return "claude"
	case strings.Contains(lower, "codex"):
		return "codex"
	}
	binary := p.path
	if parts := strings.Fields(binary); len(parts) > 0 {
		binary = parts[0]
	}
	return strings.ToLower(strings.TrimSuffix(filepath.Base(binary), filepath.Ext(binary)))
}

// classify maps a failed run onto a domain error using stderr content.
func (p *ExecProvider) classify(stderr string, err error) error {
	msg := strings.TrimSpace(stderr)
	if msg == "" && err != nil {
		msg = err.Error()
	}

	switch {
	case containsAny(msg, "rate limit", "too many requests", "429", "quota"):
		return core.ErrRateLimit(p.name).WithCause(err)
	case containsAny(msg, "unauthorized", "authentication", "api key", "not logged in"):
		return core.ErrExecution("AUTH_FAILED", fmt.Sprintf("provider %s rejected credentials: %s", p.name, tail(msg, 200))).WithCause(err)
	case containsAny(msg, "connection refused", "no such host", "network", "dial tcp"):
		return errNetwork(p.name, err)
	default:
		return core.ErrExecution("CLI_ERROR", fmt.Sprintf("provider %s failed: %s", p.name, tail(msg, 200))).WithCause(err)
	}
}

var versionRe = regexp.MustCompile(`v?\d+\.\d+(\.\d+)?(-[\w.]+)?`)

// Version runs the binary with --version and extracts a version-looking
// token, falling back to the raw trimmed output.
func (p *ExecProvider) Version(ctx context.Context) (string, error) {
	cmdPath := p.path
	var lead []string
	if parts := strings.Fields(cmdPath); len(parts) > 1 {
		cmdPath = parts[0]
		lead = parts[1:]
	}
	out, err := exec.CommandContext(ctx, cmdPath, append(lead, "--version")...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s --version: %w", p.name, err)
	}
	if m := versionRe.Find(out); m != nil {
		return string(m), nil
	}
	return strings.TrimSpace(string(out)), nil
}

// tail returns the last n bytes of s, trimmed to whole lines where possible.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[len(s)-n:]
	if i := strings.IndexByte(cut, '\n'); i >= 0 && i < len(cut)-1 {
		cut = cut[i+1:]
	}
	return cut
}

func errNetwork(provider string, cause error) *core.DomainError {
	return &core.DomainError{
		Category:  core.ErrCatNetwork,
		Code:      "NETWORK_ERROR",
		Message:   fmt.Sprintf("provider %s unreachable", provider),
		Retryable: true,
		Cause:     cause,
	}
}

var _ core.ReasoningProvider = (*ExecProvider)(nil)
