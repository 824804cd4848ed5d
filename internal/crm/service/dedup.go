package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"crm_assistant_backend/internal/crm/bag"
	"crm_assistant_backend/internal/crm/repository"
	"crm_assistant_backend/platform/textnorm"
)

// findDuplicates searches the owner's live establishments for collisions with
// an incoming name. Search order: exact canonical match, then canonical
// prefix with matching city, then alias substring containment. The first
// rule producing results wins.
func findDuplicates(name, city string, candidates []repository.Establishment, aliases []repository.Alias) []repository.Establishment {
	key := textnorm.Normalize(name)
	if key == "" {
		return nil
	}

	var exact []repository.Establishment
	for _, cand := range candidates {
		if cand.CanonicalName == key {
			exact = append(exact, cand)
		}
	}
	if len(exact) > 0 {
		return exact
	}

	cityKey := textnorm.Normalize(city)
	if cityKey != "" {
		var prefixed []repository.Establishment
		for _, cand := range candidates {
			if textnorm.Normalize(cand.City) != cityKey {
				continue
			}
			if sharesPrefix(key, cand.CanonicalName) {
				prefixed = append(prefixed, cand)
			}
		}
		if len(prefixed) > 0 {
			return prefixed
		}
	}

	byID := make(map[string]repository.Establishment, len(candidates))
	for _, cand := range candidates {
		byID[cand.ID.String()] = cand
	}

	var viaAlias []repository.Establishment
	seen := make(map[string]bool)
	for _, a := range aliases {
		aliasKey := textnorm.Normalize(a.Alias)
		if !containsEither(key, aliasKey) {
			continue
		}
		id := a.EstablishmentID.String()
		if seen[id] {
			continue
		}
		if cand, ok := byID[id]; ok {
			viaAlias = append(viaAlias, cand)
			seen[id] = true
		}
	}
	return viaAlias
}

// DetectDuplicates reports the owner's establishments colliding with a name,
// using the same search order as creation.
func (s *Service) DetectDuplicates(ctx context.Context, ownerID uuid.UUID, name, city string) ([]repository.Establishment, error) {
	candidates, err := s.repo.ListEstablishments(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	aliases, err := s.repo.ListAliases(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return findDuplicates(name, city, candidates, aliases), nil
}

func sharesPrefix(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}

// mergeFields copies newly supplied non-empty fields from incoming onto the
// existing establishment. Populated fields are never overwritten by empty
// ones. Returns true when anything changed.
func mergeFields(existing *repository.Establishment, incoming repository.Establishment) bool {
	changed := false

	fill := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
			changed = true
		}
	}

	fill(&existing.DisplayName, incoming.DisplayName)
	fill(&existing.Street, incoming.Street)
	fill(&existing.PostalCode, incoming.PostalCode)
	fill(&existing.City, incoming.City)
	fill(&existing.Sector, incoming.Sector)
	fill(&existing.Subsector, incoming.Subsector)
	fill(&existing.GroupName, incoming.GroupName)
	fill(&existing.PrimaryCompetitor, incoming.PrimaryCompetitor)
	fill(&existing.Notes, incoming.Notes)

	if existing.Coefficient == nil && incoming.Coefficient != nil {
		existing.Coefficient = incoming.Coefficient
		changed = true
	}

	if len(incoming.Extra) > 0 {
		before := len(existing.Extra)
		if existing.Extra == nil {
			existing.Extra = bag.New()
		}
		existing.Extra.Merge(incoming.Extra)
		if len(existing.Extra) != before {
			changed = true
		}
	}

	// Prospect to client promotion when the new data requests it.
	if existing.Kind == repository.KindProspect && incoming.Kind == repository.KindClient {
		existing.Kind = repository.KindClient
		existing.CommercialStatus = repository.StatusWon
		if incoming.CommercialStatus != "" {
			existing.CommercialStatus = incoming.CommercialStatus
		}
		changed = true
	}

	return changed
}
