package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"crm_assistant_backend/internal/crm/repository"
	"crm_assistant_backend/internal/crm/vocab"
	"crm_assistant_backend/platform/apperr"
	"crm_assistant_backend/platform/textnorm"
)

// CreateCompetitiveEntryInput records a competitor's presence at an
// establishment referenced by name.
type CreateCompetitiveEntryInput struct {
	EstablishmentName   string
	MainCompetitor      string
	Positions           []string
	Sector              string
	Subsector           string
	ObservedCoefficient *float64
	Status              string
	StartedOn           *time.Time
	EndedOn             *time.Time
	Remarks             string
}

// CreateCompetitiveEntry resolves the establishment and inserts the entry.
// Sector and subsector are inherited from the establishment when omitted.
func (s *Service) CreateCompetitiveEntry(ctx context.Context, ownerID uuid.UUID, input CreateCompetitiveEntryInput) (repository.CompetitiveEntry, error) {
	if strings.TrimSpace(input.MainCompetitor) == "" {
		return repository.CompetitiveEntry{}, apperr.Validation("le concurrent principal est obligatoire")
	}

	est, err := s.resolveOne(ctx, ownerID, input.EstablishmentName, "")
	if err != nil {
		return repository.CompetitiveEntry{}, err
	}

	sector, subsector := input.Sector, input.Subsector
	if sector == "" {
		sector = est.Sector
	}
	if subsector == "" {
		subsector = est.Subsector
	}

	status := input.Status
	switch status {
	case "active", "historical", "prospective":
	default:
		status = "active"
	}

	entry := repository.CompetitiveEntry{
		EstablishmentID:     est.ID,
		OwnerID:             ownerID,
		MainCompetitor:      input.MainCompetitor,
		Positions:           input.Positions,
		Sector:              sector,
		Subsector:           subsector,
		ObservedCoefficient: input.ObservedCoefficient,
		Status:              status,
		StartedOn:           input.StartedOn,
		EndedOn:             input.EndedOn,
		Remarks:             input.Remarks,
	}
	return s.repo.InsertCompetitiveEntry(ctx, entry)
}

// ListCompetitiveEntries returns the entries of the establishment resolved by name.
func (s *Service) ListCompetitiveEntries(ctx context.Context, ownerID uuid.UUID, establishmentName string) ([]repository.CompetitiveEntry, error) {
	est, err := s.resolveOne(ctx, ownerID, establishmentName, "")
	if err != nil {
		return nil, err
	}
	return s.repo.ListCompetitiveEntries(ctx, ownerID, est.ID)
}

// ListInternalUsers returns the agency's staff for assignment lookups.
func (s *Service) ListInternalUsers(ctx context.Context) ([]repository.InternalUser, error) {
	return s.repo.ListInternalUsers(ctx)
}

// CreateInternalUser adds a staff member.
func (s *Service) CreateInternalUser(ctx context.Context, firstName, lastName, email string) (repository.InternalUser, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return repository.InternalUser{}, apperr.Validation("prénom et nom sont obligatoires")
	}
	return s.repo.InsertInternalUser(ctx, repository.InternalUser{
		FirstName: firstName,
		LastName:  lastName,
		Email:     strings.TrimSpace(email),
	})
}

// CompetitorStat is one line of the competitor aggregation.
type CompetitorStat struct {
	Competitor     string   `json:"competitor"`
	Entries        int      `json:"entries"`
	AvgCoefficient *float64 `json:"avgCoefficient,omitempty"`
}

// QueryCompetitive aggregates the user's competitive entries per competitor,
// most present first. The sector filter accepts vocabulary hints ("EHPAD",
// "Hôtellerie") and matches on the normalized sector. Limit caps the result,
// 10 by default.
func (s *Service) QueryCompetitive(ctx context.Context, ownerID uuid.UUID, sector string, limit int) ([]CompetitorStat, error) {
	entries, err := s.repo.ListOwnerCompetitiveEntries(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	sectorKey := textnorm.Normalize(sector)
	if canonical, _, ok := vocab.Canonical(sector); ok {
		sectorKey = textnorm.Normalize(canonical)
	}

	type acc struct {
		name  string
		count int
		sum   float64
		n     int
	}
	byCompetitor := map[string]*acc{}
	var order []string
	for _, e := range entries {
		if sectorKey != "" && textnorm.Normalize(e.Sector) != sectorKey {
			continue
		}
		key := textnorm.Normalize(e.MainCompetitor)
		if key == "" {
			continue
		}
		a, ok := byCompetitor[key]
		if !ok {
			a = &acc{name: e.MainCompetitor}
			byCompetitor[key] = a
			order = append(order, key)
		}
		a.count++
		if e.ObservedCoefficient != nil {
			a.sum += *e.ObservedCoefficient
			a.n++
		}
	}

	stats := make([]CompetitorStat, 0, len(order))
	for _, key := range order {
		a := byCompetitor[key]
		stat := CompetitorStat{Competitor: a.name, Entries: a.count}
		if a.n > 0 {
			avg := a.sum / float64(a.n)
			stat.AvgCoefficient = &avg
		}
		stats = append(stats, stat)
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Entries > stats[j].Entries })

	if limit <= 0 {
		limit = 10
	}
	if len(stats) > limit {
		stats = stats[:limit]
	}
	return stats, nil
}

// MoveContacts reassigns the contacts of one establishment to another, both
// resolved by name.
func (s *Service) MoveContacts(ctx context.Context, ownerID uuid.UUID, fromName, toName string) (int64, error) {
	from, err := s.resolveOne(ctx, ownerID, fromName, "")
	if err != nil {
		return 0, err
	}
	to, err := s.resolveOne(ctx, ownerID, toName, "")
	if err != nil {
		return 0, err
	}
	if from.ID == to.ID {
		return 0, apperr.Validation("les deux établissements sont identiques")
	}

	moved, err := s.repo.MoveContacts(ctx, from.ID, to.ID)
	if err != nil {
		return 0, fmt.Errorf("move contacts %s -> %s: %w", from.ID, to.ID, err)
	}
	return moved, nil
}
