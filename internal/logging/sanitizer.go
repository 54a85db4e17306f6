package logging

import (
	"regexp"
	"sync"
)

const redacted = "[REDACTED]"

// Sanitizer redacts reasoning-provider credentials and generic secrets
// from log output. Prompts routinely echo environment and config text, so
// every string that reaches a handler passes through here.
type Sanitizer struct {
	mu          sync.RWMutex
	patterns    []*regexp.Regexp
	placeholder string
}

// NewSanitizer creates a sanitizer with the default credential patterns.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		placeholder: redacted,
		patterns: []*regexp.Regexp{
			// Anthropic and OpenAI style keys.
			regexp.MustCompile(`sk-ant-[a-zA-Z0-9\-_]{10,}`),
			regexp.MustCompile(`sk-[a-zA-Z0-9\-_]{10,}`),
			// Google AI keys.
			regexp.MustCompile(`AIza[a-zA-Z0-9\-_]{30,}`),
			// Bearer tokens in copied headers.
			regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9\-_.~+/]{10,}=*`),
			// Generic assignments: api_key=..., token: "...", secret=...
			regexp.MustCompile(`(?i)(api[-_]?key|token|secret|password)["']?\s*[:=]\s*["']?[^\s"',;]{6,}`),
		},
	}
}

// Sanitize replaces credential matches in the input with the placeholder.
func (s *Sanitizer) Sanitize(input string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := input
	for _, p := range s.patterns {
		out = p.ReplaceAllString(out, s.placeholder)
	}
	return out
}

// SanitizeMap redacts string values in a map, leaving other types alone.
func (s *Sanitizer) SanitizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sv, ok := v.(string); ok {
			out[k] = s.Sanitize(sv)
		} else {
			out[k] = v
		}
	}
	return out
}

// AddPattern registers an additional redaction pattern.
func (s *Sanitizer) AddPattern(expr string) error {
	p, err := regexp.Compile(expr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns = append(s.patterns, p)
	return nil
}

// SetPlaceholder overrides the replacement text.
func (s *Sanitizer) SetPlaceholder(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placeholder = text
}
