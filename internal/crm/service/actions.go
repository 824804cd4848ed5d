package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"crm_assistant_backend/internal/crm/bag"
	"crm_assistant_backend/internal/crm/repository"
	"crm_assistant_backend/internal/events"
	"crm_assistant_backend/platform/apperr"
	"crm_assistant_backend/platform/frdate"
	"crm_assistant_backend/platform/textnorm"
)

// Comment keywords marking an action as semantically a reminder.
var reminderKeywords = []string{"rappel", "relancer"}

// CreateActionInput carries an action creation request. Establishment,
// contact and assignee are referenced by free-text names.
type CreateActionInput struct {
	EstablishmentName string
	City              string
	Kind              string
	DateExpr          string
	ContactName       string
	AssigneeFirstName string
	Comment           string
	RemindExpr        string
	IsReminder        bool
}

// CreateActionResult is the outcome of a successful action creation.
type CreateActionResult struct {
	Action            repository.Action
	Establishment     repository.Establishment
	EstablishmentStub bool
	Confirmation      string
}

// CreateAction resolves the establishment (creating a minimal stub when
// nothing matches), resolves the optional contact and assignee best-effort,
// parses the date, applies the reminder policy and inserts the action with
// one repair retry. An unparseable date is the only blocking condition.
func (s *Service) CreateAction(ctx context.Context, ownerID uuid.UUID, input CreateActionInput) (CreateActionResult, error) {
	name := strings.TrimSpace(input.EstablishmentName)
	if name == "" {
		return CreateActionResult{}, apperr.Validation("le nom de l'établissement est obligatoire")
	}

	now := s.now()
	kind := NormalizeKind(input.Kind)

	occursAt, err := s.dates.Parse(input.DateExpr, now)
	if err != nil {
		if errors.Is(err, frdate.ErrAmbiguous) {
			return CreateActionResult{}, apperr.Validation(
				fmt.Sprintf("Date ambiguë : précise le jour/mois/année ou une heure pour %q.", input.DateExpr))
		}
		return CreateActionResult{}, err
	}

	est, isStub, err := s.resolveOrStub(ctx, ownerID, name, input.City)
	if err != nil {
		return CreateActionResult{}, err
	}

	action := repository.Action{
		EstablishmentID: est.ID,
		OwnerID:         ownerID,
		Kind:            kind,
		OccursAt:        occursAt,
		Comment:         input.Comment,
		Extra:           bag.New(),
	}
	action.ContactID = s.resolveContact(ctx, est.ID, input.ContactName)
	action.AssigneeID = s.resolveAssignee(ctx, input.AssigneeFirstName)
	action.RemindAt = s.reminderFor(kind, occursAt, input, now)

	// A call carrying a reminder is the reminder: both timestamps hold the
	// same instant.
	if kind == repository.ActionCall && action.RemindAt != nil {
		action.OccursAt = *action.RemindAt
	}

	created, err := s.repo.InsertAction(ctx, action)
	if err != nil {
		// The resolved establishment may have been deleted concurrently.
		// One repair retry against a fresh minimal stub.
		s.log.DatabaseError("insert action, repairing", err)
		stub, stubErr := s.repo.InsertEstablishmentMinimal(ctx, ownerID, name, textnorm.Normalize(name), repository.KindProspect)
		if stubErr != nil {
			return CreateActionResult{}, fmt.Errorf("repair establishment: %w", stubErr)
		}
		est, isStub = stub, true
		action.EstablishmentID = stub.ID
		created, err = s.repo.InsertAction(ctx, action)
		if err != nil {
			return CreateActionResult{}, fmt.Errorf("insert action after repair: %w", err)
		}
	}

	if created.RemindAt != nil {
		s.publish(ctx, events.ActionReminderScheduled{
			BaseEvent:         events.NewBaseEvent(),
			ActionID:          created.ID,
			OwnerID:           ownerID,
			EstablishmentName: est.Name,
			Kind:              created.Kind,
			RemindAt:          *created.RemindAt,
			Comment:           created.Comment,
		})
	}

	return CreateActionResult{
		Action:            created,
		Establishment:     est,
		EstablishmentStub: isStub,
		Confirmation:      confirmation(created, est.Name),
	}, nil
}

// resolveOrStub resolves the establishment by fuzzy match, creating a minimal
// prospect stub when nothing matches. The action must never be blocked by a
// missing establishment.
func (s *Service) resolveOrStub(ctx context.Context, ownerID uuid.UUID, name, city string) (repository.Establishment, bool, error) {
	matches, err := s.ResolveEstablishment(ctx, ownerID, name, city)
	if err != nil {
		return repository.Establishment{}, false, err
	}
	if len(matches) > 0 {
		est, err := s.repo.GetEstablishment(ctx, ownerID, matches[0].ID)
		if err == nil {
			// Silent alias for a recognized name variant.
			if key := textnorm.Normalize(name); key != est.CanonicalName && !IsExcludedName(name) {
				if aliasErr := s.repo.InsertAlias(ctx, est.ID, name); aliasErr != nil {
					s.log.DatabaseError("insert alias", aliasErr)
				}
			}
			return est, false, nil
		}
		if !apperr.Is(err, apperr.KindNotFound) {
			return repository.Establishment{}, false, err
		}
	}

	stub, err := s.repo.InsertEstablishmentMinimal(ctx, ownerID, name, textnorm.Normalize(name), repository.KindProspect)
	if err != nil {
		return repository.Establishment{}, false, err
	}
	return stub, true, nil
}

// resolveContact finds a contact of the establishment by name containment.
// Best-effort: a miss returns nil instead of failing the action.
func (s *Service) resolveContact(ctx context.Context, establishmentID uuid.UUID, name string) *uuid.UUID {
	key := textnorm.Normalize(name)
	if key == "" {
		return nil
	}

	contacts, err := s.repo.ListContacts(ctx, establishmentID)
	if err != nil {
		s.log.DatabaseError("list contacts", err)
		return nil
	}
	for _, c := range contacts {
		full := textnorm.Normalize(c.FirstName + " " + c.LastName)
		if containsEither(key, full) ||
			containsEither(key, textnorm.Normalize(c.LastName)) ||
			containsEither(key, textnorm.Normalize(c.FirstName)) {
			id := c.ID
			return &id
		}
	}
	return nil
}

// resolveAssignee finds an internal user by first name. Best-effort.
func (s *Service) resolveAssignee(ctx context.Context, firstName string) *uuid.UUID {
	key := textnorm.Normalize(firstName)
	if key == "" {
		return nil
	}

	users, err := s.repo.ListInternalUsers(ctx)
	if err != nil {
		s.log.DatabaseError("list internal users", err)
		return nil
	}
	for _, u := range users {
		if containsEither(key, textnorm.Normalize(u.FirstName)) {
			id := u.ID
			return &id
		}
	}
	return nil
}

// reminderFor computes the reminder timestamp. Priority order: reminder
// semantics on a call, explicit reminder expression, visit minus one hour,
// otherwise none.
func (s *Service) reminderFor(kind string, occursAt time.Time, input CreateActionInput, now time.Time) *time.Time {
	isReminder := input.IsReminder || commentRequestsReminder(input.Comment)
	if isReminder && kind == repository.ActionCall {
		t := occursAt
		return &t
	}

	if input.RemindExpr != "" {
		remindAt, err := s.dates.Parse(input.RemindExpr, now)
		if err != nil {
			// An unparseable reminder expression never fails the action.
			s.log.Warn("ignoring unparseable reminder expression", "expr", input.RemindExpr)
			return nil
		}
		return &remindAt
	}

	if kind == repository.ActionVisit {
		t := occursAt.Add(-time.Hour)
		return &t
	}
	return nil
}

func commentRequestsReminder(comment string) bool {
	key := textnorm.StripAccents(strings.ToLower(comment))
	for _, kw := range reminderKeywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

// confirmation builds the literal confirmation string returned to the
// conversation layer.
func confirmation(a repository.Action, establishmentName string) string {
	label := "Action"
	switch {
	case a.Kind == repository.ActionCall && a.RemindAt != nil:
		label = "Rappel"
	case a.Kind == repository.ActionVisit:
		label = "Visite"
	case a.Kind == repository.ActionMail:
		label = "Email"
	case a.Kind == repository.ActionCall:
		label = "Appel"
	}

	msg := fmt.Sprintf("✓ %s enregistré pour le %s", label, a.OccursAt.Format("02/01/2006 à 15h04"))
	if a.Comment != "" {
		msg += " : " + a.Comment
	}
	return msg + " (" + establishmentName + ")"
}

// ListActions returns the owner's actions, optionally scoped to one
// establishment resolved by name.
func (s *Service) ListActions(ctx context.Context, ownerID uuid.UUID, establishmentName string) ([]repository.Action, error) {
	establishmentID := uuid.Nil
	if strings.TrimSpace(establishmentName) != "" {
		est, err := s.resolveOne(ctx, ownerID, establishmentName, "")
		if err != nil {
			return nil, err
		}
		establishmentID = est.ID
	}
	return s.repo.ListActions(ctx, ownerID, establishmentID)
}

// UpcomingReminders returns the owner's reminders due within the horizon.
func (s *Service) UpcomingReminders(ctx context.Context, ownerID uuid.UUID, horizon time.Duration) ([]repository.Action, error) {
	if horizon <= 0 {
		horizon = 7 * 24 * time.Hour
	}
	return s.repo.ListUpcomingReminders(ctx, ownerID, s.now().Add(horizon))
}
