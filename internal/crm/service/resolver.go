package service

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"crm_assistant_backend/internal/crm/repository"
	"crm_assistant_backend/platform/textnorm"
)

// Match scores and match types, highest applicable rule wins per candidate.
const (
	scoreExact         = 100
	scoreAliasExact    = 95
	scoreContains      = 70
	scoreAliasContains = 65
	scorePartial       = 50
	scoreCityBonus     = 20

	matchExact         = "exact"
	matchAliasExact    = "alias_exact"
	matchContains      = "contains"
	matchAliasContains = "alias_contains"
	matchPartial       = "partial"
	citySuffix         = "_ville"
)

// Match is one ranked resolution candidate.
type Match struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	City      string    `json:"city,omitempty"`
	Score     int       `json:"score"`
	MatchType string    `json:"matchType"`
}

// Resolve ranks the owner's establishments against a free-text name and an
// optional city hint. Pure function over the supplied candidate set; returns
// at most the top 3 matches, score descending, stable on candidate order.
func Resolve(name, city string, candidates []repository.Establishment, aliases []repository.Alias) []Match {
	key := textnorm.Normalize(name)
	if key == "" {
		return nil
	}
	cityKey := textnorm.Normalize(city)

	aliasesByEstablishment := make(map[uuid.UUID][]string, len(aliases))
	for _, a := range aliases {
		aliasesByEstablishment[a.EstablishmentID] = append(aliasesByEstablishment[a.EstablishmentID], textnorm.Normalize(a.Alias))
	}

	var matches []Match
	for _, cand := range candidates {
		score, matchType := scoreCandidate(key, cand, aliasesByEstablishment[cand.ID])
		if score == 0 {
			continue
		}
		if cityKey != "" && textnorm.Normalize(cand.City) == cityKey {
			score += scoreCityBonus
			matchType += citySuffix
		}
		matches = append(matches, Match{
			ID:        cand.ID,
			Name:      cand.Name,
			City:      cand.City,
			Score:     score,
			MatchType: matchType,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > 3 {
		matches = matches[:3]
	}
	return matches
}

func scoreCandidate(key string, cand repository.Establishment, aliasKeys []string) (int, string) {
	candKey := cand.CanonicalName
	if candKey == "" {
		candKey = textnorm.Normalize(cand.Name)
	}

	if key == candKey {
		return scoreExact, matchExact
	}
	for _, aliasKey := range aliasKeys {
		if aliasKey != "" && key == aliasKey {
			return scoreAliasExact, matchAliasExact
		}
	}
	if containsEither(key, candKey) {
		return scoreContains, matchContains
	}
	for _, aliasKey := range aliasKeys {
		if containsEither(key, aliasKey) {
			return scoreAliasContains, matchAliasContains
		}
	}
	if len(key) >= 5 && len(candKey) >= 5 && key[:5] == candKey[:5] {
		return scorePartial, matchPartial
	}
	return 0, ""
}

func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
