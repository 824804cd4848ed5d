package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"crm_assistant_backend/internal/crm/bag"
	"crm_assistant_backend/internal/crm/repository"
	"crm_assistant_backend/platform/apperr"
	"crm_assistant_backend/platform/frdate"
	"crm_assistant_backend/platform/logger"
	"crm_assistant_backend/platform/textnorm"
)

// fakeRepo is an in-memory Repository for service tests.
type fakeRepo struct {
	ests        []repository.Establishment
	deleted     map[uuid.UUID]bool
	aliases     []repository.Alias
	contacts    map[uuid.UUID][]repository.Contact
	actions     []repository.Action
	competitive []repository.CompetitiveEntry
	users       []repository.InternalUser
	audits      []repository.AuditRecord

	failFullEstablishmentInserts int
	failActionInserts            int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		deleted:  make(map[uuid.UUID]bool),
		contacts: make(map[uuid.UUID][]repository.Contact),
	}
}

var _ repository.Repository = (*fakeRepo)(nil)

func (f *fakeRepo) GetEstablishment(_ context.Context, ownerID, id uuid.UUID) (repository.Establishment, error) {
	for _, e := range f.ests {
		if e.ID == id && e.OwnerID == ownerID && !f.deleted[id] {
			return e, nil
		}
	}
	return repository.Establishment{}, apperr.NotFound("établissement introuvable")
}

func (f *fakeRepo) ListEstablishments(_ context.Context, ownerID uuid.UUID) ([]repository.Establishment, error) {
	var out []repository.Establishment
	for _, e := range f.ests {
		if e.OwnerID == ownerID && !f.deleted[e.ID] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeRepo) InsertEstablishment(_ context.Context, est repository.Establishment) (repository.Establishment, error) {
	if f.failFullEstablishmentInserts > 0 {
		f.failFullEstablishmentInserts--
		return repository.Establishment{}, errors.New("simulated insert failure")
	}
	est.ID = uuid.New()
	est.CreatedAt = time.Now()
	est.UpdatedAt = est.CreatedAt
	f.ests = append(f.ests, est)
	return est, nil
}

func (f *fakeRepo) InsertEstablishmentMinimal(_ context.Context, ownerID uuid.UUID, name, canonicalName, kind string) (repository.Establishment, error) {
	est := repository.Establishment{
		ID:               uuid.New(),
		OwnerID:          ownerID,
		Name:             name,
		CanonicalName:    canonicalName,
		Kind:             kind,
		CommercialStatus: repository.StatusToContact,
		Extra:            bag.New(),
		CreatedAt:        time.Now(),
	}
	f.ests = append(f.ests, est)
	return est, nil
}

func (f *fakeRepo) UpdateEstablishment(_ context.Context, est repository.Establishment) error {
	for i := range f.ests {
		if f.ests[i].ID == est.ID && !f.deleted[est.ID] {
			f.ests[i] = est
			return nil
		}
	}
	return apperr.NotFound("établissement introuvable")
}

func (f *fakeRepo) SoftDeleteEstablishment(_ context.Context, ownerID, id uuid.UUID) error {
	for _, e := range f.ests {
		if e.ID == id && e.OwnerID == ownerID && !f.deleted[id] {
			f.deleted[id] = true
			return nil
		}
	}
	return apperr.NotFound("établissement introuvable")
}

func (f *fakeRepo) RepointRelations(_ context.Context, fromID, toID uuid.UUID) error {
	if moved, ok := f.contacts[fromID]; ok {
		for i := range moved {
			moved[i].EstablishmentID = toID
		}
		f.contacts[toID] = append(f.contacts[toID], moved...)
		delete(f.contacts, fromID)
	}
	for i := range f.actions {
		if f.actions[i].EstablishmentID == fromID {
			f.actions[i].EstablishmentID = toID
		}
	}
	for i := range f.competitive {
		if f.competitive[i].EstablishmentID == fromID {
			f.competitive[i].EstablishmentID = toID
		}
	}
	return nil
}

func (f *fakeRepo) ListAliases(_ context.Context, ownerID uuid.UUID) ([]repository.Alias, error) {
	byID := make(map[uuid.UUID]repository.Establishment)
	for _, e := range f.ests {
		byID[e.ID] = e
	}
	var out []repository.Alias
	for _, a := range f.aliases {
		if e, ok := byID[a.EstablishmentID]; ok && e.OwnerID == ownerID && !f.deleted[e.ID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeRepo) InsertAlias(_ context.Context, establishmentID uuid.UUID, alias string) error {
	for _, a := range f.aliases {
		if a.EstablishmentID == establishmentID && a.Alias == alias {
			return nil
		}
	}
	f.aliases = append(f.aliases, repository.Alias{ID: uuid.New(), EstablishmentID: establishmentID, Alias: alias})
	return nil
}

func (f *fakeRepo) ListContacts(_ context.Context, establishmentID uuid.UUID) ([]repository.Contact, error) {
	return f.contacts[establishmentID], nil
}

func (f *fakeRepo) InsertContact(_ context.Context, c repository.Contact) (repository.Contact, error) {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	f.contacts[c.EstablishmentID] = append(f.contacts[c.EstablishmentID], c)
	return c, nil
}

func (f *fakeRepo) UpdateContact(_ context.Context, c repository.Contact) error {
	for estID, list := range f.contacts {
		for i := range list {
			if list[i].ID == c.ID {
				f.contacts[estID][i] = c
				return nil
			}
		}
	}
	return apperr.NotFound("contact introuvable")
}

func (f *fakeRepo) MoveContacts(_ context.Context, fromID, toID uuid.UUID) (int64, error) {
	moved := f.contacts[fromID]
	for i := range moved {
		moved[i].EstablishmentID = toID
	}
	f.contacts[toID] = append(f.contacts[toID], moved...)
	delete(f.contacts, fromID)
	return int64(len(moved)), nil
}

func (f *fakeRepo) InsertAction(_ context.Context, a repository.Action) (repository.Action, error) {
	if f.failActionInserts > 0 {
		f.failActionInserts--
		return repository.Action{}, errors.New("simulated insert failure")
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	f.actions = append(f.actions, a)
	return a, nil
}

func (f *fakeRepo) GetAction(_ context.Context, ownerID, id uuid.UUID) (repository.Action, error) {
	for _, a := range f.actions {
		if a.ID == id && a.OwnerID == ownerID {
			return a, nil
		}
	}
	return repository.Action{}, apperr.NotFound("action introuvable")
}

func (f *fakeRepo) ListActions(_ context.Context, ownerID, establishmentID uuid.UUID) ([]repository.Action, error) {
	var out []repository.Action
	for _, a := range f.actions {
		if a.OwnerID != ownerID {
			continue
		}
		if establishmentID != uuid.Nil && a.EstablishmentID != establishmentID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeRepo) ListUpcomingReminders(_ context.Context, ownerID uuid.UUID, until time.Time) ([]repository.Action, error) {
	var out []repository.Action
	for _, a := range f.actions {
		if a.OwnerID == ownerID && a.RemindAt != nil && !a.RemindAt.After(until) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeRepo) InsertCompetitiveEntry(_ context.Context, e repository.CompetitiveEntry) (repository.CompetitiveEntry, error) {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	f.competitive = append(f.competitive, e)
	return e, nil
}

func (f *fakeRepo) ListCompetitiveEntries(_ context.Context, ownerID, establishmentID uuid.UUID) ([]repository.CompetitiveEntry, error) {
	var out []repository.CompetitiveEntry
	for _, e := range f.competitive {
		if e.OwnerID == ownerID && e.EstablishmentID == establishmentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListOwnerCompetitiveEntries(_ context.Context, ownerID uuid.UUID) ([]repository.CompetitiveEntry, error) {
	var out []repository.CompetitiveEntry
	for _, e := range f.competitive {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListInternalUsers(_ context.Context) ([]repository.InternalUser, error) {
	return f.users, nil
}

func (f *fakeRepo) GetInternalUser(_ context.Context, id uuid.UUID) (repository.InternalUser, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return repository.InternalUser{}, apperr.NotFound("collaborateur introuvable")
}

func (f *fakeRepo) InsertInternalUser(_ context.Context, u repository.InternalUser) (repository.InternalUser, error) {
	u.ID = uuid.New()
	f.users = append(f.users, u)
	return u, nil
}

func (f *fakeRepo) InsertAuditRecord(_ context.Context, rec repository.AuditRecord) error {
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now()
	f.audits = append(f.audits, rec)
	return nil
}

func (f *fakeRepo) ListAuditRecords(_ context.Context, userID uuid.UUID, limit int) ([]repository.AuditRecord, error) {
	var out []repository.AuditRecord
	for _, rec := range f.audits {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Test helpers.

var parisLoc = mustLoadParis()

func mustLoadParis() *time.Location {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		panic(err)
	}
	return loc
}

func newTestService(repo *fakeRepo) *Service {
	svc := New(repo, frdate.NewParser(parisLoc), nil, logger.New("development"))
	// Monday morning, frozen.
	svc.WithClock(func() time.Time { return time.Date(2025, 3, 10, 8, 0, 0, 0, parisLoc) })
	return svc
}

func seedEstablishment(repo *fakeRepo, ownerID uuid.UUID, name, city string) repository.Establishment {
	est := repository.Establishment{
		ID:               uuid.New(),
		OwnerID:          ownerID,
		Name:             name,
		CanonicalName:    textnorm.Normalize(name),
		Kind:             repository.KindProspect,
		CommercialStatus: repository.StatusToContact,
		City:             city,
		Extra:            bag.New(),
		CreatedAt:        time.Now(),
	}
	repo.ests = append(repo.ests, est)
	return est
}

func countAudits(repo *fakeRepo, kind string) int {
	n := 0
	for _, rec := range repo.audits {
		if rec.ToolName == kind {
			n++
		}
	}
	return n
}
