package service

import (
	"sort"
	"strings"
	"unicode"
)

// JaccardSimilarity calculates the Jaccard index |A ∩ B| / |A ∪ B| over
// two term slices. Two empty sets count as perfect agreement.
func JaccardSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}

	setA := toSet(a)
	setB := toSet(b)

	intersection := 0
	for item := range setA {
		if setB[item] {
			intersection++
		}
	}

	union := len(setA)
	for item := range setB {
		if !setA[item] {
			union++
		}
	}

	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

// NormalizeText lowercases text and collapses punctuation to single spaces
// so surface formatting differences do not register as disagreement.
func NormalizeText(text string) string {
	text = strings.ToLower(text)

	var builder strings.Builder
	prevSpace := true
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			builder.WriteRune(r)
			prevSpace = false
		} else if !prevSpace {
			builder.WriteRune(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(builder.String())
}

// tokenize splits text into normalized terms.
func tokenize(text string) []string {
	normalized := NormalizeText(text)
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}

// sentences splits response text into normalized sentence-level units for
// majority voting. Line breaks and sentence punctuation both delimit.
func sentences(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n' || r == ';'
	})
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if n := NormalizeText(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// expertPair identifies an ordered pair of experts and their textual
// similarity.
type expertPair struct {
	A, B       string
	Similarity float64
}

// pairwiseSimilarities computes token-set Jaccard similarity for every
// expert pair, in input order.
func pairwiseSimilarities(ids []string, texts []string) []expertPair {
	pairs := make([]expertPair, 0, len(ids)*(len(ids)-1)/2)
	tokens := make([][]string, len(texts))
	for i, t := range texts {
		tokens[i] = tokenize(t)
	}
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			pairs = append(pairs, expertPair{
				A:          ids[i],
				B:          ids[j],
				Similarity: JaccardSimilarity(tokens[i], tokens[j]),
			})
		}
	}
	return pairs
}

// majoritySentences returns the normalized sentences asserted by more than
// half of the experts, most widely supported first, ties alphabetical.
func majoritySentences(texts []string) []string {
	if len(texts) < 2 {
		return nil
	}
	support := make(map[string]int)
	for _, text := range texts {
		seen := make(map[string]bool)
		for _, s := range sentences(text) {
			if !seen[s] {
				seen[s] = true
				support[s]++
			}
		}
	}

	majority := len(texts)/2 + 1
	out := make([]string, 0)
	for s, n := range support {
		if n >= majority {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if support[out[i]] != support[out[j]] {
			return support[out[i]] > support[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

func toSet(items []string) map[string]bool {
	result := make(map[string]bool, len(items))
	for _, item := range items {
		result[item] = true
	}
	return result
}
