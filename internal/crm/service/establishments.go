package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"crm_assistant_backend/internal/crm/bag"
	"crm_assistant_backend/internal/crm/repository"
	"crm_assistant_backend/internal/crm/vocab"
	"crm_assistant_backend/platform/apperr"
	"crm_assistant_backend/platform/phone"
	"crm_assistant_backend/platform/textnorm"
)

// CreateEstablishmentInput carries the fields of a creation request. Only
// Name is mandatory; missing optional fields never block creation.
type CreateEstablishmentInput struct {
	Name              string
	Kind              string
	CommercialStatus  string
	DisplayName       string
	Street            string
	PostalCode        string
	City              string
	Sector            string
	Subsector         string
	Coefficient       *float64
	GroupName         string
	PrimaryCompetitor string
	Notes             string
	Extra             bag.Bag
}

// Creation outcomes.
const (
	OutcomeCreated           = "created"
	OutcomeAutoDeduplicated  = "auto_deduplicated"
	OutcomeDuplicateDetected = "duplicate_detected"
	OutcomeRefused           = "refused"
)

// CreateEstablishmentResult describes what happened to a creation request.
type CreateEstablishmentResult struct {
	Outcome       string
	Establishment repository.Establishment
	Candidates    []Match
	Message       string
}

// CreateEstablishment runs the dedup engine, then creates the establishment
// with the minimal-first fallback. See the outcome constants for the four
// possible results.
func (s *Service) CreateEstablishment(ctx context.Context, ownerID uuid.UUID, input CreateEstablishmentInput) (CreateEstablishmentResult, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return CreateEstablishmentResult{}, apperr.Validation("le nom de l'établissement est obligatoire")
	}

	if IsExcludedName(name) {
		return CreateEstablishmentResult{Outcome: OutcomeRefused, Message: RefusalMessage}, nil
	}

	incoming := s.buildEstablishment(ownerID, name, input)

	candidates, err := s.repo.ListEstablishments(ctx, ownerID)
	if err != nil {
		return CreateEstablishmentResult{}, err
	}
	aliases, err := s.repo.ListAliases(ctx, ownerID)
	if err != nil {
		return CreateEstablishmentResult{}, err
	}

	duplicates := findDuplicates(name, input.City, candidates, aliases)
	switch {
	case len(duplicates) == 1:
		return s.autoDeduplicate(ctx, ownerID, name, incoming, duplicates[0])
	case len(duplicates) >= 2:
		matches := make([]Match, 0, len(duplicates))
		for _, d := range duplicates {
			matches = append(matches, Match{ID: d.ID, Name: d.Name, City: d.City})
		}
		return CreateEstablishmentResult{
			Outcome:    OutcomeDuplicateDetected,
			Candidates: matches,
			Message:    "Plusieurs établissements existants correspondent à ce nom. Précise lequel utiliser, ou confirme la création d'un nouveau.",
		}, nil
	}

	created, err := s.insertWithFallback(ctx, ownerID, incoming)
	if err != nil {
		return CreateEstablishmentResult{}, err
	}
	return CreateEstablishmentResult{
		Outcome:       OutcomeCreated,
		Establishment: created,
		Message:       "✓ Établissement \"" + created.Name + "\" créé.",
	}, nil
}

// autoDeduplicate silently folds the creation request into the single
// existing duplicate: non-empty fields merged in, possible prospect-to-client
// promotion, name variant aliased, one auto_deduplicate audit record.
func (s *Service) autoDeduplicate(ctx context.Context, ownerID uuid.UUID, name string, incoming, existing repository.Establishment) (CreateEstablishmentResult, error) {
	if mergeFields(&existing, incoming) {
		if err := s.repo.UpdateEstablishment(ctx, existing); err != nil {
			return CreateEstablishmentResult{}, err
		}
	}

	if textnorm.Normalize(name) != existing.CanonicalName {
		if err := s.repo.InsertAlias(ctx, existing.ID, name); err != nil {
			s.log.DatabaseError("insert alias", err)
		}
	}

	args, _ := json.Marshal(map[string]string{"name": name, "existingId": existing.ID.String()})
	s.recordAudit(ctx, ownerID, "auto_deduplicate", args, nil, true)

	return CreateEstablishmentResult{
		Outcome:       OutcomeAutoDeduplicated,
		Establishment: existing,
		Message:       "✓ Informations ajoutées à l'établissement existant \"" + existing.Name + "\".",
	}, nil
}

// insertWithFallback tries the full insert first, then retries with only the
// mandatory fields and patches the optional ones afterwards. A creation
// request is never entirely lost because of one problematic optional field.
func (s *Service) insertWithFallback(ctx context.Context, ownerID uuid.UUID, est repository.Establishment) (repository.Establishment, error) {
	created, err := s.repo.InsertEstablishment(ctx, est)
	if err == nil {
		return created, nil
	}
	s.log.DatabaseError("insert establishment, retrying minimal", err)

	minimal, err := s.repo.InsertEstablishmentMinimal(ctx, ownerID, est.Name, est.CanonicalName, est.Kind)
	if err != nil {
		return repository.Establishment{}, err
	}

	patched := minimal
	if mergeFields(&patched, est) {
		if err := s.repo.UpdateEstablishment(ctx, patched); err != nil {
			// The minimal record exists; keep it rather than failing the call.
			s.log.DatabaseError("patch minimal establishment", err)
			return minimal, nil
		}
	}
	return patched, nil
}

func (s *Service) buildEstablishment(ownerID uuid.UUID, name string, input CreateEstablishmentInput) repository.Establishment {
	kind, status := inferKind(input.Kind, name)
	if input.CommercialStatus != "" {
		status = input.CommercialStatus
	}

	sector, subsector := input.Sector, input.Subsector
	if sector != "" {
		if canonical, sub, ok := vocab.Canonical(sector); ok {
			sector = canonical
			if subsector == "" {
				subsector = sub
			}
		}
	}

	extra := input.Extra
	if extra == nil {
		extra = bag.New()
	}

	return repository.Establishment{
		OwnerID:           ownerID,
		Name:              name,
		CanonicalName:     textnorm.Normalize(name),
		DisplayName:       input.DisplayName,
		Kind:              kind,
		CommercialStatus:  status,
		Street:            input.Street,
		PostalCode:        input.PostalCode,
		City:              input.City,
		Sector:            sector,
		Subsector:         subsector,
		Coefficient:       input.Coefficient,
		GroupName:         input.GroupName,
		PrimaryCompetitor: input.PrimaryCompetitor,
		Notes:             input.Notes,
		Extra:             extra,
	}
}

// inferKind derives kind and commercial status from the explicit kind field
// or from keyword hints in the name.
func inferKind(explicitKind, name string) (string, string) {
	hint := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(explicitKind)), "_", " ")
	nameLower := strings.ToLower(name)

	switch {
	case hint == "client" || strings.Contains(hint, "client actuel") || strings.Contains(nameLower, "client actuel"):
		return repository.KindClient, repository.StatusWon
	case hint == "former client" || strings.Contains(hint, "ancien client"):
		return repository.KindFormerClient, repository.StatusToContact
	default:
		return repository.KindProspect, repository.StatusToContact
	}
}

// UpdateEstablishmentInput carries a partial update keyed by name.
type UpdateEstablishmentInput struct {
	Name   string
	Fields CreateEstablishmentInput
}

// UpdateEstablishment resolves the establishment by name and merges the
// supplied non-empty fields into it.
func (s *Service) UpdateEstablishment(ctx context.Context, ownerID uuid.UUID, input UpdateEstablishmentInput) (repository.Establishment, error) {
	est, err := s.resolveOne(ctx, ownerID, input.Name, input.Fields.City)
	if err != nil {
		return repository.Establishment{}, err
	}

	incoming := s.buildEstablishment(ownerID, est.Name, input.Fields)
	if mergeFields(&est, incoming) {
		if err := s.repo.UpdateEstablishment(ctx, est); err != nil {
			return repository.Establishment{}, err
		}
	}
	return est, nil
}

// DeleteEstablishment soft-deletes the establishment resolved by name.
func (s *Service) DeleteEstablishment(ctx context.Context, ownerID uuid.UUID, name string) (repository.Establishment, error) {
	est, err := s.resolveOne(ctx, ownerID, name, "")
	if err != nil {
		return repository.Establishment{}, err
	}
	if err := s.repo.SoftDeleteEstablishment(ctx, ownerID, est.ID); err != nil {
		return repository.Establishment{}, err
	}
	return est, nil
}

// ResolveEstablishment ranks the owner's establishments against a free-text
// name, for disambiguation by the conversation layer.
func (s *Service) ResolveEstablishment(ctx context.Context, ownerID uuid.UUID, name, city string) ([]Match, error) {
	candidates, err := s.repo.ListEstablishments(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	aliases, err := s.repo.ListAliases(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return Resolve(name, city, candidates, aliases), nil
}

// resolveOne resolves a name to exactly one live establishment or fails with
// a not-found error carrying the offending name.
func (s *Service) resolveOne(ctx context.Context, ownerID uuid.UUID, name, city string) (repository.Establishment, error) {
	matches, err := s.ResolveEstablishment(ctx, ownerID, name, city)
	if err != nil {
		return repository.Establishment{}, err
	}
	if len(matches) == 0 {
		return repository.Establishment{}, apperr.NotFound("Établissement \"" + name + "\" introuvable.")
	}
	return s.repo.GetEstablishment(ctx, ownerID, matches[0].ID)
}

// AddAlias registers a name variant for an establishment. Idempotent, and
// never applied to the excluded corporate name.
func (s *Service) AddAlias(ctx context.Context, ownerID uuid.UUID, establishmentName, alias string) error {
	if IsExcludedName(establishmentName) || IsExcludedName(alias) {
		return apperr.Forbidden(RefusalMessage)
	}
	est, err := s.resolveOne(ctx, ownerID, establishmentName, "")
	if err != nil {
		return err
	}
	return s.repo.InsertAlias(ctx, est.ID, alias)
}

// GetEstablishment resolves a name and returns the full record.
func (s *Service) GetEstablishment(ctx context.Context, ownerID uuid.UUID, name string) (repository.Establishment, error) {
	return s.resolveOne(ctx, ownerID, name, "")
}

// ListEstablishments returns all live establishments of the owner.
func (s *Service) ListEstablishments(ctx context.Context, ownerID uuid.UUID) ([]repository.Establishment, error) {
	return s.repo.ListEstablishments(ctx, ownerID)
}

// CreateContactInput carries a contact creation request.
type CreateContactInput struct {
	EstablishmentName string
	LastName          string
	FirstName         string
	Role              string
	Phone             string
	Email             string
	ContactPreference string
	Notes             string
}

// CreateContact attaches a contact to the establishment resolved by name.
// The phone number is normalized to E.164 when it parses as a French number.
// A live contact of the establishment with the same normalized name is
// updated in place instead of being duplicated.
func (s *Service) CreateContact(ctx context.Context, ownerID uuid.UUID, input CreateContactInput) (repository.Contact, error) {
	if input.LastName == "" && input.FirstName == "" {
		return repository.Contact{}, apperr.Validation("le nom du contact est obligatoire")
	}

	est, err := s.resolveOne(ctx, ownerID, input.EstablishmentName, "")
	if err != nil {
		return repository.Contact{}, err
	}

	contact := repository.Contact{
		EstablishmentID:   est.ID,
		LastName:          input.LastName,
		FirstName:         input.FirstName,
		Role:              input.Role,
		Phone:             phone.NormalizeE164(input.Phone),
		Email:             input.Email,
		ContactPreference: input.ContactPreference,
		Notes:             input.Notes,
		Extra:             bag.New(),
	}

	existing, err := s.repo.ListContacts(ctx, est.ID)
	if err != nil {
		return repository.Contact{}, err
	}
	key := textnorm.Normalize(input.FirstName + input.LastName)
	for _, c := range existing {
		if textnorm.Normalize(c.FirstName+c.LastName) == key {
			if mergeContactFields(&c, contact) {
				if err := s.repo.UpdateContact(ctx, c); err != nil {
					return repository.Contact{}, err
				}
			}
			return c, nil
		}
	}

	return s.repo.InsertContact(ctx, contact)
}

// mergeContactFields fills the empty fields of dst from src and reports
// whether anything changed. Populated fields are never overwritten.
func mergeContactFields(dst *repository.Contact, src repository.Contact) bool {
	changed := false
	fill := func(field *string, v string) {
		if *field == "" && v != "" {
			*field = v
			changed = true
		}
	}
	fill(&dst.Role, src.Role)
	fill(&dst.Phone, src.Phone)
	fill(&dst.Email, src.Email)
	fill(&dst.ContactPreference, src.ContactPreference)
	fill(&dst.Notes, src.Notes)
	return changed
}

// ListContacts returns the live contacts of the establishment resolved by name.
func (s *Service) ListContacts(ctx context.Context, ownerID uuid.UUID, establishmentName string) ([]repository.Contact, error) {
	est, err := s.resolveOne(ctx, ownerID, establishmentName, "")
	if err != nil {
		return nil, err
	}
	return s.repo.ListContacts(ctx, est.ID)
}
