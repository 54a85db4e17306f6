package provider

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/conclave-ai/conclave/internal/core"
)

// DefaultConfidence is assumed when provider output carries no
// machine-readable confidence.
const DefaultConfidence = 0.7

// confidenceRe matches a self-reported confidence marker such as
// "Confidence: 0.85" or "confidence = 85%".
var confidenceRe = regexp.MustCompile(`(?i)confidence[^0-9]{0,4}([0-9]*\.?[0-9]+)\s*%?`)

// ParseOpinion interprets raw provider output. A JSON envelope is tried
// first; otherwise the text is taken as-is and confidence is read from a
// trailing "Confidence: 0.NN" marker when present.
func ParseOpinion(raw string) core.Opinion {
	text := strings.TrimSpace(raw)
	confidence := 0.0
	haveConfidence := false

	if blob, ok := extractJSON(text); ok {
		var envelope struct {
			Text       string   `json:"text"`
			Result     string   `json:"result"`
			Response   string   `json:"response"`
			Content    string   `json:"content"`
			Confidence *float64 `json:"confidence"`
		}
		if err := json.Unmarshal([]byte(blob), &envelope); err == nil {
			switch {
			case envelope.Text != "":
				text = strings.TrimSpace(envelope.Text)
			case envelope.Result != "":
				text = strings.TrimSpace(envelope.Result)
			case envelope.Response != "":
				text = strings.TrimSpace(envelope.Response)
			case envelope.Content != "":
				text = strings.TrimSpace(envelope.Content)
			}
			if envelope.Confidence != nil {
				confidence = *envelope.Confidence
				haveConfidence = true
			}
		}
	}

	if !haveConfidence {
		if c, ok := confidenceFromText(text); ok {
			confidence = c
		} else {
			confidence = DefaultConfidence
		}
	}

	return core.Opinion{Text: text, Confidence: clampConfidence(confidence)}
}

// confidenceFromText scans free text for a confidence marker. Values above 1
// are treated as percentages.
func confidenceFromText(text string) (float64, bool) {
	m := confidenceRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if v > 1 {
		v /= 100
	}
	return v, true
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// extractJSON returns the first balanced JSON object or array embedded in s.
// String literals and escapes are honored so braces inside quoted text do
// not affect the depth count.
func extractJSON(s string) (string, bool) {
	start := -1
	var open, closer byte
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			start = i
			open = s[i]
			if open == '{' {
				closer = '}'
			} else {
				closer = ']'
			}
			break
		}
	}
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case open:
			if !inString {
				depth++
			}
		case closer:
			if !inString {
				depth--
				if depth == 0 {
					candidate := s[start : i+1]
					if json.Valid([]byte(candidate)) {
						return candidate, true
					}
					return "", false
				}
			}
		}
	}
	return "", false
}

// containsAny reports whether s contains any of the substrings,
// case-insensitively.
func containsAny(s string, subs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}
