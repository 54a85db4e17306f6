package service

import (
	"crypto/sha256"
	"sync"

	"github.com/conclave-ai/conclave/internal/core"
)

const (
	// defaultDensityScale maps raw term density onto [0,1]: technical prose
	// rarely exceeds one domain term per ~18 tokens.
	defaultDensityScale = 18.0

	defaultScoreCacheSize = 256

	requestTextWeight  = 0.6
	responseTextWeight = 0.4
)

// RelevanceScorer assigns a per-request relevance score in [0,1] for one
// expert, based on the request and that expert's response.
type RelevanceScorer interface {
	Score(desc core.ExpertDescriptor, requestText, responseText string) float64
}

// VocabularyScorer measures how densely an expert's domain vocabulary
// occurs in the request and response text. Density is weighted toward the
// request: what was asked matters more than how the expert phrased the
// answer.
type VocabularyScorer struct {
	vocabularies map[string]map[string]bool
	densityScale float64
	cache        *densityCache
}

var _ RelevanceScorer = (*VocabularyScorer)(nil)

// NewVocabularyScorer builds a scorer over the repository's domain
// vocabularies. cacheSize 0 disables caching; densityScale 0 uses the
// default.
func NewVocabularyScorer(repo core.PatternRepository, cacheSize int, densityScale float64) *VocabularyScorer {
	if densityScale <= 0 {
		densityScale = defaultDensityScale
	}

	vocabularies := make(map[string]map[string]bool)
	if repo != nil {
		for _, domain := range repo.Domains() {
			terms, ok := repo.Vocabulary(domain)
			if !ok {
				continue
			}
			vocabularies[domain] = toSet(terms)
		}
	}

	var cache *densityCache
	if cacheSize > 0 {
		cache = newDensityCache(cacheSize)
	}
	return &VocabularyScorer{
		vocabularies: vocabularies,
		densityScale: densityScale,
		cache:        cache,
	}
}

// Score returns min(1, weightedDensity × densityScale). Experts whose
// domain has no vocabulary score zero; the weight calculator's base factor
// still keeps them in play.
func (s *VocabularyScorer) Score(desc core.ExpertDescriptor, requestText, responseText string) float64 {
	vocab, ok := s.vocabularies[desc.Domain]
	if !ok || len(vocab) == 0 {
		return 0
	}

	density := requestTextWeight*s.density(desc.Domain, vocab, requestText) +
		responseTextWeight*s.density(desc.Domain, vocab, responseText)

	score := density * s.densityScale
	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

func (s *VocabularyScorer) density(domain string, vocab map[string]bool, text string) float64 {
	if text == "" {
		return 0
	}

	var key [32]byte
	if s.cache != nil {
		key = densityKey(domain, text)
		if v, ok := s.cache.get(key); ok {
			return v
		}
	}

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0
	}
	hits := 0
	for _, t := range tokens {
		if vocab[t] {
			hits++
		}
	}
	d := float64(hits) / float64(len(tokens))

	if s.cache != nil {
		s.cache.put(key, d)
	}
	return d
}

func densityKey(domain, text string) [32]byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0})
	h.Write([]byte(text))
	var key [32]byte
	copy(key[:], h.Sum(nil))
	return key
}

// densityCache is a bounded cache for computed densities. Scoring is pure,
// so lock contention degrades to recomputation instead of waiting: TryLock
// misses and full buckets both just skip the cache.
type densityCache struct {
	mu      sync.Mutex
	entries map[[32]byte]float64
	max     int
}

func newDensityCache(max int) *densityCache {
	return &densityCache{
		entries: make(map[[32]byte]float64, max),
		max:     max,
	}
}

func (c *densityCache) get(key [32]byte) (float64, bool) {
	if !c.mu.TryLock() {
		return 0, false
	}
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *densityCache) put(key [32]byte, v float64) {
	if !c.mu.TryLock() {
		return
	}
	defer c.mu.Unlock()
	if len(c.entries) >= c.max {
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	c.entries[key] = v
}

func (c *densityCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
