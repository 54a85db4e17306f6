// Package knowledge loads the pattern knowledge base consulted by the
// context builder and the relevance scorer.
package knowledge

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/conclave-ai/conclave/internal/core"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// document is the on-disk shape of a knowledge file.
type document struct {
	Vocabularies map[string][]string `yaml:"vocabularies"`
	Patterns     []core.Pattern      `yaml:"patterns"`
}

// Repository is an in-memory core.PatternRepository backed by YAML.
type Repository struct {
	patterns     map[string]core.Pattern
	order        []string
	vocabularies map[string][]string
}

var _ core.PatternRepository = (*Repository)(nil)

// NewRepository loads the embedded knowledge base.
func NewRepository() (*Repository, error) {
	repo := &Repository{
		patterns:     make(map[string]core.Pattern),
		vocabularies: make(map[string][]string),
	}
	if err := repo.merge(defaultsYAML); err != nil {
		return nil, fmt.Errorf("embedded knowledge base: %w", err)
	}
	return repo, nil
}

// Load reads a knowledge file and merges it over the embedded defaults.
// User patterns override embedded patterns with the same key; vocabulary
// terms are unioned per domain.
func Load(path string) (*Repository, error) {
	repo, err := NewRepository()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading knowledge file: %w", err)
	}
	if err := repo.merge(data); err != nil {
		return nil, fmt.Errorf("knowledge file %s: %w", path, err)
	}
	return repo, nil
}

func (r *Repository) merge(data []byte) error {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}

	for domain, terms := range doc.Vocabularies {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			return fmt.Errorf("vocabulary with empty domain")
		}
		r.vocabularies[domain] = unionTerms(r.vocabularies[domain], terms)
	}

	for _, p := range doc.Patterns {
		p.Key = strings.TrimSpace(p.Key)
		if p.Key == "" {
			return fmt.Errorf("pattern with empty key")
		}
		if p.Domain == "" {
			return fmt.Errorf("pattern %s: domain required", p.Key)
		}
		for i, t := range p.Terms {
			p.Terms[i] = strings.ToLower(strings.TrimSpace(t))
		}
		if _, exists := r.patterns[p.Key]; !exists {
			r.order = append(r.order, p.Key)
		}
		r.patterns[p.Key] = p
	}
	return nil
}

func unionTerms(existing, extra []string) []string {
	seen := make(map[string]bool, len(existing)+len(extra))
	out := make([]string, 0, len(existing)+len(extra))
	for _, t := range existing {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, t := range extra {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Lookup returns the pattern stored under key.
func (r *Repository) Lookup(key string) (core.Pattern, bool) {
	p, ok := r.patterns[key]
	return p, ok
}

// All returns every pattern in stable load order.
func (r *Repository) All() []core.Pattern {
	out := make([]core.Pattern, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.patterns[key])
	}
	return out
}

// Vocabulary returns a copy of the term list for a domain.
func (r *Repository) Vocabulary(domain string) ([]string, bool) {
	terms, ok := r.vocabularies[strings.ToLower(domain)]
	if !ok {
		return nil, false
	}
	out := make([]string, len(terms))
	copy(out, terms)
	return out, true
}

// Domains returns all known vocabulary domains, sorted.
func (r *Repository) Domains() []string {
	out := make([]string, 0, len(r.vocabularies))
	for d := range r.vocabularies {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
