// Package trigger feeds external events into the engine. The classifier maps
// an event to the coarse kind auto mode keys on; the watcher turns debounced
// filesystem writes into classified events.
package trigger

import (
	"path/filepath"
	"strings"

	"github.com/conclave-ai/conclave/internal/core"
)

// Classifier maps trigger events to a TriggerKind by file extension.
// Classification is total: anything unrecognized is TriggerUnknown.
type Classifier struct {
	codeExts map[string]struct{}
	docExts  map[string]struct{}
}

// NewClassifier builds a classifier from extension lists. Extensions match
// case-insensitively and may be given with or without the leading dot.
func NewClassifier(codeExts, docExts []string) *Classifier {
	return &Classifier{
		codeExts: extSet(codeExts),
		docExts:  extSet(docExts),
	}
}

func extSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}

// Classify implements core.TriggerSource. Edits to code files are
// code-mutation, edits to documentation files are planning-discussion, and
// everything else is unknown.
func (c *Classifier) Classify(event core.TriggerEvent) core.TriggerKind {
	ext := strings.ToLower(filepath.Ext(event.Path))
	if ext == "" {
		return core.TriggerUnknown
	}
	if _, ok := c.codeExts[ext]; ok {
		return core.TriggerCodeMutation
	}
	if _, ok := c.docExts[ext]; ok {
		return core.TriggerPlanningDiscussion
	}
	return core.TriggerUnknown
}

// Verify that Classifier implements core.TriggerSource.
var _ core.TriggerSource = (*Classifier)(nil)
