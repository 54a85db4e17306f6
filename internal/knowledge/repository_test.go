package knowledge

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestEmbeddedDefaults(t *testing.T) {
	repo, err := NewRepository()
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}

	if got := repo.Domains(); !reflect.DeepEqual(got, []string{"design", "workflow"}) {
		t.Errorf("Domains() = %v, want [design workflow]", got)
	}

	design, ok := repo.Vocabulary("design")
	if !ok {
		t.Fatal("design vocabulary missing")
	}
	if !containsTerm(design, "architecture") {
		t.Error("design vocabulary should contain architecture")
	}

	workflow, ok := repo.Vocabulary("workflow")
	if !ok {
		t.Fatal("workflow vocabulary missing")
	}
	if !containsTerm(workflow, "pipeline") {
		t.Error("workflow vocabulary should contain pipeline")
	}

	if len(repo.All()) == 0 {
		t.Error("embedded patterns missing")
	}
}

func TestLookup(t *testing.T) {
	repo, err := NewRepository()
	if err != nil {
		t.Fatal(err)
	}

	p, ok := repo.Lookup("contract-first-api")
	if !ok {
		t.Fatal("contract-first-api should exist")
	}
	if p.Domain != "design" {
		t.Errorf("domain = %q, want design", p.Domain)
	}
	if p.Guidance == "" {
		t.Error("guidance should not be empty")
	}

	if _, ok := repo.Lookup("no-such-pattern"); ok {
		t.Error("unknown key should not resolve")
	}
}

func TestAllStableOrder(t *testing.T) {
	repo, err := NewRepository()
	if err != nil {
		t.Fatal(err)
	}

	first := repo.All()
	second := repo.All()
	if len(first) != len(second) {
		t.Fatal("All() length varies")
	}
	for i := range first {
		if first[i].Key != second[i].Key {
			t.Fatalf("order unstable at %d: %s vs %s", i, first[i].Key, second[i].Key)
		}
	}
}

func TestLoadMergesUserFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	content := `
vocabularies:
  design:
    - hexagonal
patterns:
  - key: contract-first-api
    domain: design
    title: Overridden
    guidance: custom guidance
    terms: [api]
  - key: team-pattern
    domain: workflow
    title: Team pattern
    guidance: local rule
    terms: [pipeline]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	repo, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Override wins, position preserved.
	p, ok := repo.Lookup("contract-first-api")
	if !ok || p.Title != "Overridden" {
		t.Errorf("override not applied: %+v", p)
	}

	// New pattern appended.
	if _, ok := repo.Lookup("team-pattern"); !ok {
		t.Error("user pattern missing after merge")
	}
	all := repo.All()
	if all[len(all)-1].Key != "team-pattern" {
		t.Errorf("new pattern should append, last = %s", all[len(all)-1].Key)
	}

	// Vocabulary union keeps both old and new terms.
	design, _ := repo.Vocabulary("design")
	if !containsTerm(design, "hexagonal") || !containsTerm(design, "architecture") {
		t.Errorf("vocabulary union incomplete: %v", design)
	}
}

func TestLoadRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("patterns: [{domain: design}]"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("pattern without key should be rejected")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file should be an error")
	}
}

func TestVocabularyReturnsCopy(t *testing.T) {
	repo, err := NewRepository()
	if err != nil {
		t.Fatal(err)
	}

	terms, _ := repo.Vocabulary("design")
	terms[0] = "mutated"

	fresh, _ := repo.Vocabulary("design")
	if fresh[0] == "mutated" {
		t.Error("Vocabulary must return a copy")
	}
}

func containsTerm(terms []string, want string) bool {
	for _, t := range terms {
		if t == want {
			return true
		}
	}
	return false
}
