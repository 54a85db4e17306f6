package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/logging"
)

const (
	maxContextPatterns = 3
	maxContextHistory  = 3
	historyPromptWidth = 80
)

// RequestContext is the rendered context shared read-only by every expert
// invocation of one request. It is built once, before dispatch, and never
// mutated afterwards.
type RequestContext struct {
	Request  *core.Request
	Rendered string
	Sections []string
	Patterns []core.Pattern
}

// Invocation builds the provider call input for one expert.
func (c *RequestContext) Invocation(desc core.ExpertDescriptor) core.Invocation {
	return core.Invocation{
		ExpertID: desc.ID,
		Role:     fmt.Sprintf("You are %s. Answer from that perspective.", desc.DisplayName),
		Prompt:   c.Rendered,
		Model:    desc.Model,
	}
}

// ContextBuilder assembles the shared request context: prompt, structural
// facts, session context, recent session outcomes, and matched knowledge
// patterns.
type ContextBuilder struct {
	patterns core.PatternRepository
	history  core.HistoryStore
	logger   *logging.Logger
}

// NewContextBuilder creates a context builder. history may be nil; pattern
// and history sections are skipped when their source is absent.
func NewContextBuilder(patterns core.PatternRepository, history core.HistoryStore, logger *logging.Logger) *ContextBuilder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ContextBuilder{
		patterns: patterns,
		history:  history,
		logger:   logger.WithComponent("context"),
	}
}

// Build renders the request context. History lookups are best effort: a
// failing store degrades to a context without the outcomes section.
func (b *ContextBuilder) Build(ctx context.Context, req *core.Request) *RequestContext {
	rctx := &RequestContext{Request: req}
	var sb strings.Builder

	rctx.addSection(&sb, "request")
	sb.WriteString("## Request\n\n")
	sb.WriteString(strings.TrimSpace(req.Prompt))
	sb.WriteString("\n")

	if !req.StructuralFacts.IsEmpty() {
		rctx.addSection(&sb, "structural-facts")
		writeStructuralFacts(&sb, req.StructuralFacts)
	}

	if len(req.SessionContext) > 0 {
		rctx.addSection(&sb, "session-context")
		writeSessionContext(&sb, req.SessionContext)
	}

	if b.history != nil && req.SessionID != "" {
		records, err := b.history.RecentForSession(ctx, req.SessionID, maxContextHistory)
		if err != nil {
			b.logger.Warn("session history unavailable", "session_id", req.SessionID, "error", err)
		} else if len(records) > 0 {
			rctx.addSection(&sb, "recent-outcomes")
			writeRecentOutcomes(&sb, records)
		}
	}

	if b.patterns != nil {
		matched := matchPatterns(b.patterns.All(), req.Prompt, maxContextPatterns)
		if len(matched) > 0 {
			rctx.Patterns = matched
			rctx.addSection(&sb, "panel-guidance")
			writeGuidance(&sb, matched)
		}
	}

	rctx.Rendered = sb.String()
	return rctx
}

func (c *RequestContext) addSection(sb *strings.Builder, name string) {
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	c.Sections = append(c.Sections, name)
}

func writeStructuralFacts(sb *strings.Builder, f *core.StructuralFacts) {
	sb.WriteString("## Structural facts\n\n")
	if f.Language != "" {
		fmt.Fprintf(sb, "Language: %s\n", f.Language)
	}
	if f.Path != "" {
		fmt.Fprintf(sb, "Path: %s\n", f.Path)
	}
	fmt.Fprintf(sb, "Lines: %d\n", f.Lines)
	if len(f.Functions) > 0 {
		fmt.Fprintf(sb, "Functions: %s\n", strings.Join(f.Functions, ", "))
	}
	if len(f.Types) > 0 {
		fmt.Fprintf(sb, "Types: %s\n", strings.Join(f.Types, ", "))
	}
	if len(f.Imports) > 0 {
		fmt.Fprintf(sb, "Imports: %s\n", strings.Join(f.Imports, ", "))
	}
	if f.TodoCount > 0 {
		fmt.Fprintf(sb, "Open TODOs: %d\n", f.TodoCount)
	}
}

func writeSessionContext(sb *strings.Builder, sessionCtx map[string]string) {
	sb.WriteString("## Session context\n\n")
	keys := make([]string, 0, len(sessionCtx))
	for k := range sessionCtx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(sb, "%s: %s\n", k, sessionCtx[k])
	}
}

func writeRecentOutcomes(sb *strings.Builder, records []*core.OutcomeRecord) {
	sb.WriteString("## Recent session outcomes\n\n")
	for _, rec := range records {
		prompt := rec.Prompt
		if len(prompt) > historyPromptWidth {
			prompt = prompt[:historyPromptWidth] + "..."
		}
		if rec.Mode == core.ModeConsensus {
			fmt.Fprintf(sb, "- consensus (confidence %.2f): %s\n", rec.Confidence, prompt)
		} else {
			fmt.Fprintf(sb, "- %s: %s\n", rec.Mode, prompt)
		}
	}
}

func writeGuidance(sb *strings.Builder, patterns []core.Pattern) {
	sb.WriteString("## Panel guidance\n")
	for _, p := range patterns {
		fmt.Fprintf(sb, "\n### %s\n\n%s\n", p.Title, strings.TrimSpace(p.Guidance))
	}
}

// matchPatterns ranks patterns by how many of their terms occur in the
// prompt, descending, with load order as the tie-break. Patterns without
// a single hit are excluded.
func matchPatterns(patterns []core.Pattern, prompt string, limit int) []core.Pattern {
	promptTerms := toSet(tokenize(prompt))
	if len(promptTerms) == 0 {
		return nil
	}

	type scored struct {
		pattern core.Pattern
		hits    int
		pos     int
	}
	matches := make([]scored, 0)
	for i, p := range patterns {
		hits := 0
		for _, term := range p.Terms {
			if promptTerms[term] {
				hits++
			}
		}
		if hits > 0 {
			matches = append(matches, scored{pattern: p, hits: hits, pos: i})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].hits != matches[j].hits {
			return matches[i].hits > matches[j].hits
		}
		return matches[i].pos < matches[j].pos
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]core.Pattern, len(matches))
	for i, m := range matches {
		out[i] = m.pattern
	}
	return out
}
