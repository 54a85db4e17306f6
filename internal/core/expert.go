package core

import "sort"

// ExpertDescriptor identifies one member of the panel. Descriptors are
// registered at process start and are read-only during request processing.
type ExpertDescriptor struct {
	ID           string   `json:"id"`
	DisplayName  string   `json:"display_name"`
	Capabilities []string `json:"capabilities"`

	// DefaultWeight is the expert's baseline influence before per-request
	// relevance and confidence adjustments.
	DefaultWeight float64 `json:"default_weight"`

	// Domain names the vocabulary used for relevance scoring, e.g.
	// "workflow" (process/automation/tooling) or "design"
	// (design/testing/architecture).
	Domain string `json:"domain"`

	// Provider names the reasoning provider backing this expert.
	Provider string `json:"provider"`

	// Model optionally overrides the provider's default model for this
	// expert's invocations.
	Model string `json:"model,omitempty"`
}

// HasCapability reports whether the expert carries the given tag.
func (d ExpertDescriptor) HasCapability(tag string) bool {
	for _, c := range d.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}

// MatchesAny reports whether the expert's capabilities intersect the required
// set. An empty required set matches every expert.
func (d ExpertDescriptor) MatchesAny(required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, tag := range required {
		if d.HasCapability(tag) {
			return true
		}
	}
	return false
}

// FilterByCapabilities returns the experts whose capabilities intersect the
// required set, preserving declared order. Declared order is the tie-break for
// all downstream ordering, so the input order must be the registry's.
func FilterByCapabilities(panel []ExpertDescriptor, required []string) []ExpertDescriptor {
	if len(required) == 0 {
		out := make([]ExpertDescriptor, len(panel))
		copy(out, panel)
		return out
	}
	out := make([]ExpertDescriptor, 0, len(panel))
	for _, d := range panel {
		if d.MatchesAny(required) {
			out = append(out, d)
		}
	}
	return out
}

// PanelCapabilities returns the sorted union of all capability tags in a panel.
func PanelCapabilities(panel []ExpertDescriptor) []string {
	seen := make(map[string]bool)
	for _, d := range panel {
		for _, c := range d.Capabilities {
			seen[c] = true
		}
	}
	tags := make([]string, 0, len(seen))
	for c := range seen {
		tags = append(tags, c)
	}
	sort.Strings(tags)
	return tags
}

// RegistryOrder maps expert ID to declared position. Downstream components use
// it as the deterministic tie-break instead of arrival order.
func RegistryOrder(panel []ExpertDescriptor) map[string]int {
	order := make(map[string]int, len(panel))
	for i, d := range panel {
		order[d.ID] = i
	}
	return order
}
