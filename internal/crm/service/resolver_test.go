package service

import (
	"testing"

	"github.com/google/uuid"

	"crm_assistant_backend/internal/crm/repository"
	"crm_assistant_backend/platform/textnorm"
)

func candidate(name, city string) repository.Establishment {
	return repository.Establishment{
		ID:            uuid.New(),
		Name:          name,
		CanonicalName: textnorm.Normalize(name),
		City:          city,
	}
}

func TestResolveExactBeatsEverything(t *testing.T) {
	novotel := candidate("Novotel Bron", "Bron")
	candidates := []repository.Establishment{
		candidate("Novotel Lyon Part-Dieu", "Lyon"),
		novotel,
	}

	matches := Resolve("Novotel de Bron", "", candidates, nil)
	if len(matches) == 0 {
		t.Fatal("expected matches")
	}
	if matches[0].ID != novotel.ID {
		t.Errorf("top match = %q, want Novotel Bron", matches[0].Name)
	}
	if matches[0].Score != 100 || matches[0].MatchType != "exact" {
		t.Errorf("top match = %d %q, want 100 exact", matches[0].Score, matches[0].MatchType)
	}
}

func TestResolveAliasExact(t *testing.T) {
	est := candidate("Centre Hospitalier Lyon Sud", "Pierre-Bénite")
	aliases := []repository.Alias{{EstablishmentID: est.ID, Alias: "CHLS"}}

	matches := Resolve("chls", "", []repository.Establishment{est}, aliases)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Score != 95 || matches[0].MatchType != "alias_exact" {
		t.Errorf("match = %d %q, want 95 alias_exact", matches[0].Score, matches[0].MatchType)
	}
}

func TestResolveContainment(t *testing.T) {
	est := candidate("Brasserie Georges Lyon", "Lyon")

	matches := Resolve("Brasserie Georges", "", []repository.Establishment{est}, nil)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Score != 70 || matches[0].MatchType != "contains" {
		t.Errorf("match = %d %q, want 70 contains", matches[0].Score, matches[0].MatchType)
	}
}

func TestResolvePartialPrefix(t *testing.T) {
	est := candidate("Sofitel Bellecour", "Lyon")

	// Shares the first five normalized characters only.
	matches := Resolve("Sofitel Part-Dieu", "", []repository.Establishment{est}, nil)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Score != 50 || matches[0].MatchType != "partial" {
		t.Errorf("match = %d %q, want 50 partial", matches[0].Score, matches[0].MatchType)
	}
}

func TestResolveCityBonus(t *testing.T) {
	bron := candidate("Novotel Bron", "Bron")
	lyon := candidate("Novotel Lyon", "Lyon")

	matches := Resolve("Novotel", "Bron", []repository.Establishment{lyon, bron}, nil)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != bron.ID {
		t.Errorf("city hint should rank Bron first, got %q", matches[0].Name)
	}
	if matches[0].Score != 90 || matches[0].MatchType != "contains_ville" {
		t.Errorf("match = %d %q, want 90 contains_ville", matches[0].Score, matches[0].MatchType)
	}
	if matches[1].Score != 70 {
		t.Errorf("second match score = %d, want 70", matches[1].Score)
	}
}

func TestResolveNoCityBonusWithoutBaseScore(t *testing.T) {
	est := candidate("Boulangerie Martin", "Bron")

	matches := Resolve("Quincaillerie Dupuis", "Bron", []repository.Establishment{est}, nil)
	if len(matches) != 0 {
		t.Errorf("city alone must not produce a match, got %+v", matches)
	}
}

func TestResolveCapsAtThree(t *testing.T) {
	var candidates []repository.Establishment
	for _, name := range []string{"Ibis Lyon Nord", "Ibis Lyon Sud", "Ibis Lyon Est", "Ibis Lyon Ouest"} {
		candidates = append(candidates, candidate(name, "Lyon"))
	}

	matches := Resolve("Ibis Lyon", "", candidates, nil)
	if len(matches) != 3 {
		t.Errorf("expected top 3, got %d", len(matches))
	}
}

func TestResolveEmptyName(t *testing.T) {
	if matches := Resolve("", "", []repository.Establishment{candidate("Novotel", "")}, nil); matches != nil {
		t.Errorf("expected nil for empty name, got %+v", matches)
	}
}
