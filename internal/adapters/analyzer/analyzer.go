// Package analyzer derives lightweight structural facts from source text:
// line counts, declared functions and types, imports, and open TODO markers.
// It is a line-scanning heuristic, not a parser; the panel only needs enough
// structure to anchor its reasoning.
package analyzer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/conclave-ai/conclave/internal/core"
)

const (
	// maxListed caps each declaration list so huge files cannot flood the
	// shared panel context.
	maxListed = 20

	// maxAnalyzeBytes bounds AnalyzeFile input.
	maxAnalyzeBytes = 1 << 20
)

var todoRe = regexp.MustCompile(`\b(?:TODO|FIXME)\b`)

// langSpec holds the per-language extraction patterns. Each regexp may carry
// several capture groups; the first non-empty one wins.
type langSpec struct {
	name      string
	functions *regexp.Regexp
	types     *regexp.Regexp
	imports   *regexp.Regexp
	probe     *regexp.Regexp
}

var (
	goSpec = langSpec{
		name:      "go",
		functions: regexp.MustCompile(`^func\s+(?:\([^)]*\)\s*)?([A-Za-z_]\w*)\s*\(`),
		types:     regexp.MustCompile(`^type\s+([A-Za-z_]\w*)\s`),
		imports:   regexp.MustCompile(`^\s*(?:import\s+)?(?:[A-Za-z_.]\w*\s+)?"([^"]+)"$`),
		probe:     regexp.MustCompile(`(?m)^package\s+\w+`),
	}
	rustSpec = langSpec{
		name:      "rust",
		functions: regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:async\s+)?fn\s+([A-Za-z_]\w*)`),
		types:     regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:struct|enum|trait)\s+([A-Za-z_]\w*)`),
		imports:   regexp.MustCompile(`^\s*use\s+([\w:]+)`),
		probe:     regexp.MustCompile(`(?m)^\s*(?:pub\s+)?fn\s+\w+\s*\(|^\s*use\s+\w+::`),
	}
	pythonSpec = langSpec{
		name:      "python",
		functions: regexp.MustCompile(`^\s*(?:async\s+)?def\s+([A-Za-z_]\w*)\s*\(`),
		types:     regexp.MustCompile(`^\s*class\s+([A-Za-z_]\w*)`),
		imports:   regexp.MustCompile(`^\s*(?:from\s+([\w.]+)\s+import|import\s+([\w.]+))`),
		probe:     regexp.MustCompile(`(?m)^\s*def\s+\w+\s*\(.*\)\s*:`),
	}
	tsSpec = langSpec{
		name:      "typescript",
		functions: regexp.MustCompile(`^\s*(?:export\s+)?(?:(?:async\s+)?function\s+([A-Za-z_$]\w*)|const\s+([A-Za-z_$]\w*)\s*=\s*(?:async\s*)?\()`),
		types:     regexp.MustCompile(`^\s*(?:export\s+)?(?:(?:abstract\s+)?(?:class|interface|enum)\s+([A-Za-z_$]\w*)|type\s+([A-Za-z_$]\w*)\s*=)`),
		imports:   regexp.MustCompile(`^\s*(?:import\b.*?from\s+['"]([^'"]+)['"]|.*require\(\s*['"]([^'"]+)['"])`),
		probe:     regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:interface\s+\w+|type\s+\w+\s*=)`),
	}
	jsSpec = langSpec{
		name:      "javascript",
		functions: tsSpec.functions,
		types:     regexp.MustCompile(`^\s*(?:export\s+)?class\s+([A-Za-z_$]\w*)`),
		imports:   tsSpec.imports,
		probe:     regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:async\s+)?function\s+\w+|=>|module\.exports|require\(`),
	}

	// Probe order matters: the distinctive languages go first.
	langSpecs = []*langSpec{&goSpec, &rustSpec, &pythonSpec, &tsSpec, &jsSpec}
)

// pathLanguages maps file extensions to language names. Extraction only runs
// for languages with a spec; the rest still get a correct label.
var pathLanguages = map[string]string{
	".go":   "go",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".py":   "python",
	".rb":   "ruby",
	".rs":   "rust",
	".java": "java",
	".c":    "c",
	".cpp":  "cpp",
	".h":    "c",
	".hpp":  "cpp",
	".sh":   "bash",
	".bash": "bash",
	".md":   "markdown",
	".sql":  "sql",
}

// Analyzer implements core.StructuralAnalyzer.
type Analyzer struct{}

// New creates an analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// Analyze summarizes raw source text. The language is probed from content;
// unrecognized text still yields line and TODO counts.
func (a *Analyzer) Analyze(_ context.Context, sourceText string) (*core.StructuralFacts, error) {
	if strings.TrimSpace(sourceText) == "" {
		return &core.StructuralFacts{}, nil
	}

	spec := probeSpec(sourceText)
	facts := buildFacts(sourceText, spec)
	if spec != nil {
		facts.Language = spec.name
	}
	return facts, nil
}

// AnalyzeFile reads and summarizes one file. The extension names the language
// when known; otherwise the content probe decides.
func (a *Analyzer) AnalyzeFile(_ context.Context, path string) (*core.StructuralFacts, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", path, err)
	}
	if info.Size() > maxAnalyzeBytes {
		return nil, fmt.Errorf("analyzing %s: file exceeds %d bytes", path, maxAnalyzeBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", path, err)
	}
	if isBinary(data) {
		return nil, fmt.Errorf("analyzing %s: binary content", path)
	}

	text := string(data)
	lang := pathLanguages[strings.ToLower(filepath.Ext(path))]
	spec := specFor(lang)
	if spec == nil {
		spec = probeSpec(text)
		if lang == "" && spec != nil {
			lang = spec.name
		}
	}

	facts := buildFacts(text, spec)
	facts.Language = lang
	facts.Path = path
	return facts, nil
}

func buildFacts(text string, spec *langSpec) *core.StructuralFacts {
	facts := &core.StructuralFacts{
		Lines:     countLines(text),
		TodoCount: len(todoRe.FindAllString(text, -1)),
	}
	if spec == nil {
		return facts
	}

	for _, line := range strings.Split(text, "\n") {
		facts.Functions = appendMatch(facts.Functions, spec.functions, line)
		facts.Types = appendMatch(facts.Types, spec.types, line)
		facts.Imports = appendMatch(facts.Imports, spec.imports, line)
	}
	return facts
}

// appendMatch adds the first non-empty capture of re in line, deduplicated
// and capped at maxListed.
func appendMatch(list []string, re *regexp.Regexp, line string) []string {
	if len(list) >= maxListed {
		return list
	}
	sub := re.FindStringSubmatch(line)
	if sub == nil {
		return list
	}
	var name string
	for _, group := range sub[1:] {
		if group != "" {
			name = group
			break
		}
	}
	if name == "" {
		return list
	}
	for _, existing := range list {
		if existing == name {
			return list
		}
	}
	return append(list, name)
}

func probeSpec(text string) *langSpec {
	for _, spec := range langSpecs {
		if spec.probe.MatchString(text) {
			return spec
		}
	}
	return nil
}

func specFor(language string) *langSpec {
	for _, spec := range langSpecs {
		if spec.name == language {
			return spec
		}
	}
	return nil
}

func countLines(text string) int {
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}

// isBinary reports whether content looks binary (NUL byte in the head).
func isBinary(content []byte) bool {
	checkLen := len(content)
	if checkLen > 8000 {
		checkLen = 8000
	}
	for i := 0; i < checkLen; i++ {
		if content[i] == 0 {
			return true
		}
	}
	return false
}

// Verify that Analyzer implements core.StructuralAnalyzer.
var _ core.StructuralAnalyzer = (*Analyzer)(nil)
